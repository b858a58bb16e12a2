package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Heman1223/Placement-Management-System-sub002/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 声明了 Content-Length 的超限请求直接拒绝；其余在读取时由 MaxBytesReader 截断，
// 绑定失败后由 handler 识别 *http.MaxBytesError 返回 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
