package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/animelog/internal/service"
	"github.com/user/animelog/internal/utils"
)

type initDatabaseRequest struct {
	Action string `json:"action"`
}

// InitDatabase 数据库维护：initCounters / checkStatus / initAll / reconcileStats
func (h *Handler) InitDatabase(c *gin.Context) {
	var req initDatabaseRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	switch req.Action {
	case "initCounters":
		res, err := h.Maintenance.InitCounters(ctx)
		if err != nil {
			fail(c, "initDatabase", err)
			return
		}
		message := "计数器已存在"
		if res.Created {
			message = "计数器初始化成功"
		}
		utils.Success(c, res.Counter, gin.H{"message": message})

	case "checkStatus":
		utils.Success(c, nil, gin.H{"status": h.Maintenance.CheckStatus(ctx)})

	case "initAll":
		steps, err := h.Maintenance.InitAll(ctx)
		if err != nil {
			fail(c, "initDatabase", err)
			return
		}
		utils.Success(c, nil, gin.H{"message": "数据库初始化完成", "results": steps})

	case "reconcileStats":
		report, err := h.Maintenance.ReconcileStats(ctx)
		if err != nil {
			fail(c, "initDatabase", err)
			return
		}
		utils.Success(c, report, gin.H{"message": "统计对账完成"})

	default:
		fail(c, "initDatabase", service.ErrUnknownAction)
	}
}
