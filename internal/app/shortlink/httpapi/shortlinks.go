package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"urlshortener.local/gee"
	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/stats"
	"urlshortener.local/internal/platform/httpmiddleware"
	"urlshortener.local/internal/platform/metrics"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

const msgNoSuchURL = "No such URL"

type CreateRequest struct {
	URL string `json:"url"`
}

type ShortURLResponse struct {
	Token    string `json:"token"`
	ShortURL string `json:"short_url"`
	URL      string `json:"url"`
}

type ShortURLDetail struct {
	Token      string    `json:"token"`
	ShortURL   string    `json:"short_url"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	ClickCount int64     `json:"click_count"`
}

type ListResponse struct {
	Items      []ShortURLDetail `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type handlers struct {
	svc       *shortlink.Service
	collector stats.Collector
	baseURL   string
}

// POST /urls：已存在的 URL 返回原 token 和 200，新建返回 201。
func (h *handlers) create(ctx *gee.Context) {
	var req CreateRequest
	if err := ctx.BindJSON(&req); err != nil {
		return
	}
	link, created, err := h.svc.Shorten(ctx.Context(), req.URL)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ctx.JSON(status, ShortURLResponse{
		Token:    link.Token,
		ShortURL: h.shortURL(ctx, link.Token),
		URL:      link.URL,
	})
}

// GET /urls?limit=&cursor=
func (h *handlers) list(ctx *gee.Context) {
	limit, err := ctx.QueryInt("limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		ctx.AbortWithError(http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	links, next, err := h.svc.List(ctx.Context(), limit, ctx.Query("cursor"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	resp := ListResponse{Items: make([]ShortURLDetail, 0, len(links)), NextCursor: next}
	for _, link := range links {
		resp.Items = append(resp.Items, h.detail(ctx, link))
	}
	ctx.JSON(http.StatusOK, resp)
}

// GET /urls/:token
func (h *handlers) get(ctx *gee.Context) {
	link, err := h.svc.Lookup(ctx.Context(), ctx.Param("token"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, h.detail(ctx, link))
}

// DELETE /urls/:token
func (h *handlers) delete(ctx *gee.Context) {
	if err := h.svc.Delete(ctx.Context(), ctx.Param("token")); err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, MessageResponse{Message: "Short URL deleted."})
}

// GET /:token：302 到目标地址，点击事件异步记录。
func (h *handlers) redirect(ctx *gee.Context) {
	token := ctx.Param("token")
	id, target, err := h.svc.Resolve(ctx.Context(), token)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	metrics.ShortlinkRedirects.Inc()

	if h.collector != nil && ctx.Method == http.MethodGet {
		h.collector.Collect(stats.ClickEvent{
			ID:        id,
			ClickedAt: time.Now(),
			IP:        httpmiddleware.ClientIP(ctx.Req),
			UserAgent: ctx.Req.UserAgent(),
			Referer:   ctx.Req.Referer(),
		})
	}

	// 目标地址可能被删除或修改，不让浏览器缓存跳转
	ctx.SetHeader("Cache-Control", "private, max-age=0")
	ctx.Redirect(http.StatusFound, target)
}

func (h *handlers) fail(ctx *gee.Context, err error) {
	switch {
	case errors.Is(err, shortlink.ErrNotFound):
		ctx.AbortWithError(http.StatusNotFound, msgNoSuchURL)
	case errors.Is(err, shortlink.ErrInvalidURL):
		ctx.AbortWithError(http.StatusBadRequest, "invalid url")
	case errors.Is(err, shortlink.ErrInvalidCursor):
		ctx.AbortWithError(http.StatusBadRequest, "invalid cursor")
	default:
		slog.Error("shortlink request failed",
			"request_id", ctx.Req.Header.Get("X-Request-ID"),
			"method", ctx.Method,
			"route", ctx.RoutePattern,
			"err", err)
		ctx.AbortWithError(http.StatusInternalServerError, "internal error")
	}
}

func (h *handlers) detail(ctx *gee.Context, link shortlink.Shortlink) ShortURLDetail {
	return ShortURLDetail{
		Token:      link.Token,
		ShortURL:   h.shortURL(ctx, link.Token),
		URL:        link.URL,
		CreatedAt:  link.CreatedAt.UTC(),
		ClickCount: link.ClickCount,
	}
}

func (h *handlers) shortURL(ctx *gee.Context, token string) string {
	path := "/" + url.PathEscape(token)
	if h.baseURL != "" {
		return h.baseURL + path
	}
	host := ctx.Req.Host
	if host == "" {
		return path
	}
	scheme := ctx.Req.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if ctx.Req.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + host + path
}
