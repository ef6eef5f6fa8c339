package httpmiddleware

import (
	"go.opentelemetry.io/otel/trace"

	"urlshortener.local/gee"
)

// TraceName 把 otelhttp 建的 span 改名为 "METHOD route"，token 不进 span 名。
func TraceName() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		span := trace.SpanFromContext(ctx.Req.Context())
		span.SetName(ctx.Method + " " + routeLabel(ctx))
		ctx.Next()
	}
}
