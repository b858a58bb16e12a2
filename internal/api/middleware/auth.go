package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/policy"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	apperrors "github.com/Heman1223/Placement-Management-System-sub002/pkg/errors"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/jwt"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// 上下文键，handler 包通过这些常量读取
const (
	ContextKeyUserID      = "user_id"
	ContextKeyRole        = "role"
	ContextKeyClaims      = "claims"
	ContextKeyActor       = "actor"
	ContextKeyAuthContext = "auth_context"
)

// TokenChecker Token 黑名单查询，*redis.Client 实现该接口
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// ActorLoader 按用户 ID 加载操作者
type ActorLoader interface {
	ResolveActor(ctx context.Context, userID string) (*policy.Actor, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// blacklist 为 nil 时跳过黑名单检查；黑名单查询失败返回 503（已登出的 Token 不能放行）
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, 10002, "Token 已过期")
			} else {
				response.Unauthorized(c, 10002, "Token 无效")
			}
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error("查询 Token 黑名单失败", zap.Error(err))
				response.ServiceUnavailable(c, 10006, "认证服务暂不可用")
				c.Abort()
				return
			}
			if revoked {
				response.Unauthorized(c, 10002, "Token 已失效，请重新登录")
				c.Abort()
				return
			}
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// LoadActor 每个请求从数据库重新加载操作者，并执行启用状态检查
// 角色、审核、暂停等状态变更无需等待 Token 过期即可生效
func LoadActor(loader ActorLoader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextKeyUserID)
		if userID == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		actor, err := loader.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserNotFound):
				response.Unauthorized(c, 10002, "账号不存在")
			case apperrors.IsUnavailable(err):
				response.ServiceUnavailable(c, 10006, "服务暂不可用，请稍后重试")
			default:
				logger.Error("加载操作者失败", zap.String("user_id", userID), zap.Error(err))
				response.InternalError(c)
			}
			c.Abort()
			return
		}

		if err := policy.CheckActive(*actor); err != nil {
			response.Forbidden(c, 10007, err.Error())
			c.Abort()
			return
		}

		c.Set(ContextKeyActor, actor)
		c.Next()
	}
}

// Authorize 按操作执行角色门与审核门，通过后注入 AuthorizationContext
// 查询参数 include_deleted=true 请求查看已删除记录，仅超级管理员可用；
// opts 在查询参数之后生效，恢复类路由以此固定 IncludeDeleted(true)
func Authorize(op policy.Operation, opts ...policy.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextKeyActor)
		actor, ok := v.(*policy.Actor)
		if !exists || !ok {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		options := append([]policy.Option{policy.IncludeDeleted(c.Query("include_deleted") == "true")}, opts...)
		ac, err := policy.Authorize(*actor, op, options...)
		if err != nil {
			var denial *policy.Denial
			if errors.As(err, &denial) {
				response.Forbidden(c, denialCode(denial.Reason), denial.Message)
			} else {
				response.Forbidden(c, 10003, "无权限访问")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyAuthContext, ac)
		c.Next()
	}
}

func denialCode(r policy.Reason) int {
	switch r {
	case policy.ReasonPendingApproval:
		return 10008
	case policy.ReasonSuspended:
		return 10009
	case policy.ReasonAccountDeactivated:
		return 10007
	}
	return 10003
}
