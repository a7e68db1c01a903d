package handler

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/user/animelog/internal/config"
	"github.com/user/animelog/internal/repository"
	"github.com/user/animelog/internal/service"
	"github.com/user/animelog/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Config      *config.Config
	Users       *service.UserService
	Collections *service.CollectionService
	Catalog     *service.CatalogService
	Maintenance *service.MaintenanceService
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	bangumi := service.NewBangumiClient(cfg.BangumiBase, cfg.BangumiUserAgent, cfg.BangumiTimeout)

	return &Handler{
		Config:      cfg,
		Users:       service.NewUserService(repos, cfg.DefaultAvatar),
		Collections: service.NewCollectionService(repos),
		// 外部请求之外再留出读写缓存的时间
		Catalog:     service.NewCatalogService(bangumi, repos, cfg.BangumiTimeout+5*time.Second),
		Maintenance: service.NewMaintenanceService(repos, cfg.ReconcileInterval),
	}
}

// bind 解析 JSON 请求体，空请求体视为空对象；失败时已写入响应
func bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	utils.Fail(c, bindingMessage(err), nil)
	return false
}

// bindingMessage 将校验失败转换为面向用户的提示
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "参数格式不正确"
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "cnphone":
			return service.ErrPhoneFormat.Message
		case "oneof":
			return service.ErrInvalidStatus.Message
		case "min":
			return service.ErrInvalidEpisode.Message
		}
	}
	return "参数格式不正确"
}

// fail 按错误分类输出统一的失败响应
func fail(c *gin.Context, op string, err error) {
	var appErr *service.AppError
	if !errors.As(err, &appErr) {
		log.Printf("[%s] 内部错误: %v", op, err)
		_ = c.Error(err)
		utils.Fail(c, err.Error(), nil)
		return
	}

	switch appErr.Kind {
	case service.KindUpstream:
		log.Printf("[%s] 上游错误: %v", op, err)
	case service.KindInternal:
		log.Printf("[%s] 内部错误: %v", op, err)
	}

	var extra gin.H
	if errors.Is(err, service.ErrUserNotFound) {
		extra = gin.H{"needLogin": true}
	}
	utils.Fail(c, appErr.Message, extra)
}
