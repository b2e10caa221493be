package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/filmdiary/internal/utils"
)

// LoadChecker 报告用户文档是否已成功加载
type LoadChecker interface {
	Loaded() bool
}

// RequireLoaded 文档未加载时拒绝写请求
// 页面表单重定向回来源页，API 返回 503。
func RequireLoaded(store LoadChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store.Loaded() {
			c.Next()
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			utils.ServiceUnavailable(c, "用户数据暂时不可读，已停止写入")
			return
		}

		target := c.Request.Referer()
		if target == "" {
			target = "/"
		}
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}
