package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// CheckOrigin 返回握手阶段的 Origin 校验函数。
// allowed 为空时放行所有来源（本地开发）；否则按 host 精确匹配。
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	hosts := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		hosts[normalizeOrigin(a)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 非浏览器客户端（TV/移动端SDK）不带 Origin
			return true
		}
		_, ok := hosts[normalizeOrigin(origin)]
		return ok
	}
}

// Origin gin 中间件版本：握手前拒绝非法来源，省一次 upgrade
func Origin(allowed []string) gin.HandlerFunc {
	check := CheckOrigin(allowed)
	return func(c *gin.Context) {
		if !check(c.Request) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func normalizeOrigin(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		return u.Host
	}
	return strings.TrimSuffix(s, "/")
}
