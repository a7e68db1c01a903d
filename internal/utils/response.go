package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 统一响应结构: {success, data?, error?, ...extra}
// 业务失败同样返回 200，由 success 字段区分

// Success 返回成功响应，extra 中的字段平铺到顶层
func Success(c *gin.Context, data any, extra gin.H) {
	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// SuccessMessage 返回只带提示信息的成功响应
func SuccessMessage(c *gin.Context, message string) {
	Success(c, nil, gin.H{"message": message})
}

// SuccessNull 返回 data 显式为 null 的成功响应
func SuccessNull(c *gin.Context, extra gin.H) {
	body := gin.H{"success": true, "data": nil}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail 返回业务失败响应
func Fail(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": false, "error": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Unauthorized 身份缺失或无效
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "用户未登录"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success":   false,
		"error":     message,
		"needLogin": true,
	})
}
