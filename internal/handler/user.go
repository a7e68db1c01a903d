package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/animelog/internal/middleware"
	"github.com/user/animelog/internal/service"
	"github.com/user/animelog/internal/utils"
)

type profileRequest struct {
	Nickname *string `json:"nickname"`
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
}

func (r profileRequest) nickname() *string {
	if r.Nickname != nil {
		return r.Nickname
	}
	return r.Name
}

type loginRequest struct {
	profileRequest
	CheckOnly bool `json:"checkOnly"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Login 解析身份，首次登录时注册
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.Users.Login(c.Request.Context(), middleware.GetOpenID(c), service.LoginInput{
		Nickname:  deref(req.nickname()),
		Avatar:    deref(req.Avatar),
		CheckOnly: req.CheckOnly,
	})
	if err != nil {
		fail(c, "login", err)
		return
	}
	if res.User == nil {
		utils.Success(c, nil, gin.H{"isNewUser": res.IsNewUser, "needProfile": res.NeedProfile})
		return
	}
	utils.Success(c, res.User, gin.H{"isNewUser": res.IsNewUser})
}

// GetUserStats 用户统计
func (h *Handler) GetUserStats(c *gin.Context) {
	view, err := h.Users.GetStats(c.Request.Context(), middleware.GetOpenID(c))
	if err != nil {
		fail(c, "getUserStats", err)
		return
	}
	utils.Success(c, view, nil)
}

// UpdateUserProfile 修改昵称与头像
func (h *Handler) UpdateUserProfile(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Users.UpdateProfile(c.Request.Context(), middleware.GetOpenID(c), req.nickname(), req.Avatar); err != nil {
		fail(c, "updateUserProfile", err)
		return
	}
	utils.SuccessMessage(c, "更新成功")
}

type bindPhoneRequest struct {
	Phone string `json:"phone" binding:"omitempty,cnphone"`
}

// BindPhone 绑定手机号
func (h *Handler) BindPhone(c *gin.Context) {
	var req bindPhoneRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Users.BindPhone(c.Request.Context(), middleware.GetOpenID(c), req.Phone); err != nil {
		fail(c, "bindPhone", err)
		return
	}
	utils.SuccessMessage(c, "绑定成功")
}
