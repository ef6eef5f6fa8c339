package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"urlshortener.local/gee"
	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/basex"
	"urlshortener.local/internal/app/shortlink/stats"
)

// RegisterAPIRoutes 在给定分组（例如 /api/v1）下挂载短链管理 API。
//
// 本包只做传输层工作：参数校验、错误映射、响应格式；领域逻辑在 internal/app/shortlink。
// baseURL 用来拼 short_url，为空时按请求的 Host 推导。
func RegisterAPIRoutes(api *gee.RouterGroup, svc *shortlink.Service, baseURL string) {
	h := &handlers{svc: svc, baseURL: baseURL}
	api.POST("/urls", h.create)
	api.GET("/urls", h.list)
	api.GET("/urls/:token", h.get)
	api.DELETE("/urls/:token", h.delete)
}

// RegisterPublicRoutes 在根路由上挂载跳转入口 GET /:token。
//
// 跳转入口不放在 /api/v1 下，方便用户直接在浏览器输入短链。collector 可以为 nil，
// 此时不记录点击。
func RegisterPublicRoutes(engine *gee.Engine, svc *shortlink.Service, collector stats.Collector) {
	h := &handlers{svc: svc, collector: collector}
	engine.GET("/:token", h.redirect)
	engine.HEAD("/:token", h.redirect)
}

// ErrRouteShadowsToken is returned by CheckRoutes when a static route spells a valid token.
var ErrRouteShadowsToken = errors.New("route shadows a short link token")

// CheckRoutes 检查根下的单段静态 GET/HEAD 路由（例如 /healthz）是否恰好是 pool 下的
// 合法 token：静态路由优先匹配，那条短链就永远跳转不到了。换 ALPHABET 时在启动阶段报错。
func CheckRoutes(routes []gee.RouteInfo, pool *basex.Pool) error {
	var shadowed []string
	for _, ri := range routes {
		if ri.Method != http.MethodGet && ri.Method != http.MethodHead {
			continue
		}
		seg, single := ri.StaticRoot()
		if !single {
			continue
		}
		if _, err := basex.DecodeInt64(seg, pool); err == nil && basex.Canonical(seg, pool) {
			shadowed = append(shadowed, ri.Method+" "+ri.Pattern)
		}
	}
	if len(shadowed) > 0 {
		return fmt.Errorf("%w: %s", ErrRouteShadowsToken, strings.Join(shadowed, ", "))
	}
	return nil
}
