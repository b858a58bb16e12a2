package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// SettingsReader 读取进程内平台设置，*service.SettingsHolder 实现该接口
type SettingsReader interface {
	Current() model.PlatformSettings
}

// Maintenance 维护模式中间件
// 维护期间除超级管理员外的请求一律返回 503；需放在 JWTAuth 之后才能识别超级管理员
func Maintenance(settings SettingsReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		cur := settings.Current()
		if !cur.MaintenanceMode || c.GetString(ContextKeyRole) == model.RoleSuperAdmin {
			c.Next()
			return
		}

		msg := cur.MaintenanceMessage
		if msg == "" {
			msg = "平台维护中，请稍后再试"
		}
		response.ServiceUnavailable(c, 10010, msg)
		c.Abort()
	}
}
