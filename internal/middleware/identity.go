package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/animelog/internal/utils"
)

const (
	openIDKey = "open_id"
	// IdentityHeader 平台网关注入的原始身份令牌
	IdentityHeader = "X-Identity-Token"
)

// RequireIdentity 解析调用方身份令牌，失败时返回 401
// trustHeader 为 true 时接受网关注入的 X-Identity-Token
func RequireIdentity(secret string, trustHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		openID, err := resolveIdentity(c, secret, trustHeader)
		if err != nil {
			utils.Unauthorized(c, "")
			return
		}
		c.Set(openIDKey, openID)
		c.Next()
	}
}

func resolveIdentity(c *gin.Context, secret string, trustHeader bool) (string, error) {
	if trustHeader {
		if token := strings.TrimSpace(c.GetHeader(IdentityHeader)); token != "" {
			return token, nil
		}
	}

	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", jwt.ErrTokenMalformed
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("身份令牌缺少 subject")
	}
	return claims.Subject, nil
}

// GetOpenID 从上下文获取身份令牌（未登录返回空串）
func GetOpenID(c *gin.Context) string {
	return c.GetString(openIDKey)
}

// GenerateToken 为身份令牌签发 JWT，expiry 为 0 时不设置过期时间
func GenerateToken(openID, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  openID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
