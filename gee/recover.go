package gee

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

// stack 返回 panic 发生处的调用栈，跳过 runtime 和 Recovery 自身的帧。
func stack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}

// Recovery turns a panic in a later handler into a 500 ErrorResponse. A panic with
// http.ErrAbortHandler is re-raised so net/http aborts the connection silently.
func Recovery() HandlerFunc {
	return func(ctx *Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			slog.ErrorContext(ctx.Context(), "panic recovered",
				"request_id", ctx.Req.Header.Get("X-Request-ID"),
				"method", ctx.Method,
				"path", ctx.Path,
				"route", ctx.RoutePattern,
				"panic", fmt.Sprint(rec),
				"stack", stack(3),
			)
			// 已经开始写响应就只能中止，状态码改不了了
			if ctx.Writer.Written() {
				ctx.Abort()
				return
			}
			ctx.AbortWithError(http.StatusInternalServerError, "Internal Server Error")
		}()
		ctx.Next()
	}
}
