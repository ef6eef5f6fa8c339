package middleware

import (
	"github.com/google/uuid"

	"urlshortener.local/gee"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLen 超长的上游 id 直接丢弃重新生成，避免日志被灌爆。
const maxRequestIDLen = 128

// ReqID 复用上游传来的 X-Request-ID，没有就生成一个 UUIDv4；同时写回请求头和响应头。
func ReqID() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		id := ctx.Req.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
			ctx.Req.Header.Set(requestIDHeader, id)
		}
		ctx.SetHeader(requestIDHeader, id)

		ctx.Next()
	}
}
