package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/api/middleware"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextKeyUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 提取当前 Access Token 的声明（登出时用于拉黑 jti）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextKeyClaims)
	claims, ok := v.(*jwt.Claims)
	if !exists || !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// MustGetAuthContext 提取 Authorize 中间件注入的授权上下文
func MustGetAuthContext(c *gin.Context) (*policy.AuthorizationContext, bool) {
	v, exists := c.Get(middleware.ContextKeyAuthContext)
	ac, ok := v.(*policy.AuthorizationContext)
	if !exists || !ok || ac == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return ac, true
}
