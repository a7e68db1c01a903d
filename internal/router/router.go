package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/animelog/internal/handler"
	"github.com/user/animelog/internal/middleware"
	"github.com/user/animelog/internal/utils"
)

// RegisterValidations 在 gin 的校验器上注册自定义规则
func RegisterValidations() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return utils.RegisterValidations(v)
	}
	return nil
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	fn := r.Group("/api/fn")

	// ==================== 目录（无需身份）====================
	fn.POST("/getAnimeDetail", h.GetAnimeDetail)
	fn.POST("/searchAnime", h.SearchAnime)
	fn.POST("/getAnimeEpisodes", h.GetAnimeEpisodes)
	fn.POST("/getCalendar", h.GetCalendar)

	// ==================== 需要身份 ====================
	auth := fn.Group("")
	auth.Use(middleware.RequireIdentity(h.Config.AppSecret, h.Config.TrustIdentityHeader))
	{
		auth.POST("/login", h.Login)
		auth.POST("/getUserStats", h.GetUserStats)
		auth.POST("/updateUserProfile", h.UpdateUserProfile)
		auth.POST("/bindPhone", h.BindPhone)

		auth.POST("/addCollection", h.AddCollection)
		auth.POST("/removeCollection", h.RemoveCollection)
		auth.POST("/updateCollectionStatus", h.UpdateCollectionStatus)
		auth.POST("/updateWatchProgress", h.UpdateWatchProgress)
		auth.POST("/toggleLike", h.ToggleLike)
		auth.POST("/getMyCollections", h.GetMyCollections)
		auth.POST("/getCollectionDetail", h.GetCollectionDetail)

		auth.POST("/initDatabase", h.InitDatabase)
	}
}
