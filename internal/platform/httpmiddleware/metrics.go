package httpmiddleware

import (
	"strconv"
	"time"

	"urlshortener.local/gee"
	"urlshortener.local/internal/platform/metrics"
)

// unmatchedRoute labels requests no route matched, so scanners probing random paths
// cannot blow up label cardinality.
const unmatchedRoute = "UNMATCHED"

func routeLabel(ctx *gee.Context) string {
	if ctx.RoutePattern == "" {
		return unmatchedRoute
	}
	return ctx.RoutePattern
}

func Metrics() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		start := time.Now()
		metrics.HTTPInflightRequests.Inc()       //正在处理的请求数+1
		defer metrics.HTTPInflightRequests.Dec() //请求处理结束
		defer func() {
			route := routeLabel(ctx)
			status := ctx.Writer.Status()
			metrics.HTTPRequestsTotal.WithLabelValues(ctx.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDurationSeconds.WithLabelValues(ctx.Method, route).Observe(time.Since(start).Seconds())
		}()
		ctx.Next()
	}
}
