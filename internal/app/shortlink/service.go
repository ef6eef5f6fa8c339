package shortlink

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"urlshortener.local/internal/app/shortlink/basex"
	"urlshortener.local/internal/platform/metrics"
)

var tracer = otel.Tracer("urlshortener.local/internal/app/shortlink")

// ErrNotFound covers both unknown records and tokens that cannot name a record.
var ErrNotFound = errors.New("short url not found")

// ErrInvalidCursor is returned by List for a cursor that is not a valid token.
var ErrInvalidCursor = errors.New("invalid cursor")

// Record is a stored URL. ID is the store's primary key and never leaves the service.
type Record struct {
	ID         int64
	URL        string
	CreatedAt  time.Time
	ClickCount int64
}

// Shortlink 是对外暴露的领域对象：只有 token，没有内部 id。
type Shortlink struct {
	Token      string
	URL        string
	CreatedAt  time.Time
	ClickCount int64
}

// Store persists records keyed by integer id.
//
// FindOrCreate is the deduplication point: it returns the existing record for url, or
// inserts a new one, and reports whether it inserted.
type Store interface {
	FindOrCreate(ctx context.Context, url string) (Record, bool, error)
	Get(ctx context.Context, id int64) (Record, error)
	Delete(ctx context.Context, id int64) error
	// List returns up to limit records with ID > afterID, ordered by ID.
	List(ctx context.Context, limit int, afterID int64) ([]Record, error)
}

// URLCache caches id -> URL lookups. A negative entry is reported as found with an
// empty url.
type URLCache interface {
	Get(ctx context.Context, id int64) (url string, found bool, err error)
	Set(ctx context.Context, id int64, url string) error
	SetNotFound(ctx context.Context, id int64) error
}

// Filter answers "was this id ever created"; false positives are allowed, false
// negatives are not.
type Filter interface {
	Add(id int64)
	MightExist(id int64) bool
}

type Service struct {
	store  Store
	pool   *basex.Pool
	cache  URLCache
	filter Filter
	// watermark 是 WarmUp 从 store 读到的最大 id。只有 id <= watermark 时过滤器的
	// “不存在”才可信；更大的 id 可能是别的实例刚创建的。
	watermark atomic.Int64
	// highest 是本实例见过的最大 id。Resolve 查库前取快照，只给不大于快照的 id 写
	// 负缓存：查库之后才创建的 id 一定比快照大，不会被负缓存盖掉。
	highest atomic.Int64
}

type Option func(*Service)

func WithCache(c URLCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithFilter enables the existence pre-check for ids up to the WarmUp watermark. Call
// WarmUp before serving traffic and periodically afterwards.
func WithFilter(f Filter) Option {
	return func(s *Service) { s.filter = f }
}

func NewService(store Store, pool *basex.Pool, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("shortlink: nil store")
	}
	if pool == nil || pool.Len() < 2 {
		return nil, basex.ErrInvalidAlphabet
	}
	s := &Service{store: store, pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Pool() *basex.Pool {
	return s.pool
}

// Shorten stores rawURL (or finds it) and returns its token. created is false when the
// URL was already known.
func (s *Service) Shorten(ctx context.Context, rawURL string) (link Shortlink, created bool, err error) {
	ctx, span := tracer.Start(ctx, "shortlink.Shorten")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Bool("shortlink.created", created))
		span.End()
	}()

	if err := ValidateURL(rawURL); err != nil {
		return Shortlink{}, false, err
	}
	rec, created, err := s.store.FindOrCreate(ctx, rawURL)
	if err != nil {
		return Shortlink{}, false, err
	}
	link, err = s.toShortlink(rec)
	if err != nil {
		return Shortlink{}, false, err
	}

	if s.filter != nil {
		s.filter.Add(rec.ID)
	}
	s.observe(rec.ID)
	// 创建后立刻写缓存，覆盖此前可能存在的负缓存。
	if s.cache != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		if err := s.cache.Set(cacheCtx, rec.ID, rec.URL); err != nil {
			slog.Warn("cache set failed", "err", err, "token", link.Token)
		}
	}
	if created {
		metrics.ShortlinksCreated.Inc()
	}
	return link, created, nil
}

// Resolve returns the record id and target URL of token. Any token that does not
// decode under the pool yields ErrNotFound.
func (s *Service) Resolve(ctx context.Context, token string) (int64, string, error) {
	ctx, span := tracer.Start(ctx, "shortlink.Resolve")
	defer span.End()

	id, err := s.decode(token)
	if err != nil {
		return 0, "", err
	}
	span.SetAttributes(attribute.Int64("shortlink.id", id))

	if s.cache != nil {
		url, found, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.Warn("cache get failed", "err", err, "token", token)
		} else if found {
			if url == "" {
				return 0, "", ErrNotFound // 命中负缓存
			}
			return id, url, nil
		}
	}

	known := s.highest.Load()
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) && s.cache != nil {
			if id > known {
				slog.Debug("skip negative cache for unseen id", "token", token)
			} else if err := s.cache.SetNotFound(ctx, id); err != nil {
				slog.Warn("cache set not found failed", "err", err, "token", token)
			}
		}
		return 0, "", err
	}
	s.observe(id)

	if s.cache != nil {
		if err := s.cache.Set(ctx, id, rec.URL); err != nil {
			slog.Warn("cache set failed", "err", err, "token", token)
		}
	}
	return id, rec.URL, nil
}

// Lookup returns the stored metadata of token without going through the cache.
func (s *Service) Lookup(ctx context.Context, token string) (Shortlink, error) {
	id, err := s.decode(token)
	if err != nil {
		return Shortlink{}, err
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Shortlink{}, err
	}
	s.observe(id)
	return s.toShortlink(rec)
}

// Delete removes the record token names.
func (s *Service) Delete(ctx context.Context, token string) error {
	id, err := s.decode(token)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.SetNotFound(ctx, id); err != nil {
			slog.Warn("cache invalidate failed", "err", err, "token", token)
		}
	}
	return nil
}

// List pages through all short URLs in creation order. cursor is the token of the
// last item of the previous page, or "" for the first page; next is "" on the last page.
func (s *Service) List(ctx context.Context, limit int, cursor string) (links []Shortlink, next string, err error) {
	var afterID int64
	if cursor != "" {
		afterID, err = basex.DecodeInt64(cursor, s.pool)
		if err != nil || !basex.Canonical(cursor, s.pool) {
			return nil, "", ErrInvalidCursor
		}
	}
	recs, err := s.store.List(ctx, limit, afterID)
	if err != nil {
		return nil, "", err
	}
	if len(recs) > 0 {
		s.observe(recs[len(recs)-1].ID)
	}
	links = make([]Shortlink, 0, len(recs))
	for _, rec := range recs {
		link, err := s.toShortlink(rec)
		if err != nil {
			return nil, "", err
		}
		links = append(links, link)
	}
	if len(links) == limit && limit > 0 {
		next = links[len(links)-1].Token
	}
	return links, next, nil
}

// WarmUp loads ids created since the previous call into the filter, advances the
// watermark and returns how many ids it added. The first call loads every stored id.
func (s *Service) WarmUp(ctx context.Context) (int, error) {
	if s.filter == nil {
		return 0, nil
	}
	const page = 1000
	afterID := s.watermark.Load()
	total := 0
	for {
		recs, err := s.store.List(ctx, page, afterID)
		if err != nil {
			return total, err
		}
		for _, rec := range recs {
			s.filter.Add(rec.ID)
		}
		total += len(recs)
		if len(recs) > 0 {
			afterID = recs[len(recs)-1].ID
			s.watermark.Store(afterID)
			s.observe(afterID)
		}
		if len(recs) < page {
			return total, nil
		}
	}
}

// observe raises highest to id.
func (s *Service) observe(id int64) {
	for {
		cur := s.highest.Load()
		if id <= cur || s.highest.CompareAndSwap(cur, id) {
			return
		}
	}
}

// decode maps a client token to a record id, folding every malformed case into
// ErrNotFound.
func (s *Service) decode(token string) (int64, error) {
	id, err := basex.DecodeInt64(token, s.pool)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, basex.ErrOverflow) {
			reason = "overflow"
		}
		metrics.TokenRejections.WithLabelValues(reason).Inc()
		slog.Debug("token rejected", "reason", reason, "err", err)
		return 0, ErrNotFound
	}
	// 带前导“零”符号的 token 也能解码，但不是该记录唯一的公开 token。
	if !basex.Canonical(token, s.pool) {
		metrics.TokenRejections.WithLabelValues("non_canonical").Inc()
		return 0, ErrNotFound
	}
	if s.filter != nil && id <= s.watermark.Load() && !s.filter.MightExist(id) {
		metrics.TokenRejections.WithLabelValues("filtered").Inc()
		return 0, ErrNotFound
	}
	return id, nil
}

func (s *Service) toShortlink(rec Record) (Shortlink, error) {
	token, err := basex.Encode(rec.ID, s.pool)
	if err != nil {
		return Shortlink{}, err
	}
	return Shortlink{
		Token:      token,
		URL:        rec.URL,
		CreatedAt:  rec.CreatedAt,
		ClickCount: rec.ClickCount,
	}, nil
}
