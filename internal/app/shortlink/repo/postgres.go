package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/stats"
)

// PostgresStore keeps short URLs in the short_urls table (see migrations/).
type PostgresStore struct {
	db *pgxpool.Pool
}

var (
	_ shortlink.Store = (*PostgresStore)(nil)
	_ stats.Sink      = (*PostgresStore)(nil)
)

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindOrCreate 插入 url，已存在时返回原记录。
// DO UPDATE 保证冲突时也能 RETURNING；xmax = 0 说明这一行是本次插入的。
func (s *PostgresStore) FindOrCreate(ctx context.Context, url string) (shortlink.Record, bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rec := shortlink.Record{URL: url}
	var inserted bool
	err := s.db.QueryRow(dbctx, `
INSERT INTO short_urls (url) VALUES ($1)
ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
RETURNING id, created_at, click_count, (xmax = 0)`, url).
		Scan(&rec.ID, &rec.CreatedAt, &rec.ClickCount, &inserted)
	if err != nil {
		slog.Error("find or create short url failed", "err", err)
		return shortlink.Record{}, false, err
	}
	return rec, inserted, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (shortlink.Record, error) {
	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	rec := shortlink.Record{ID: id}
	err := s.db.QueryRow(dbctx, `SELECT url, created_at, click_count FROM short_urls WHERE id=$1`, id).
		Scan(&rec.URL, &rec.CreatedAt, &rec.ClickCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shortlink.Record{}, shortlink.ErrNotFound
		}
		slog.Error(err.Error())
		return shortlink.Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	tag, err := s.db.Exec(dbctx, `DELETE FROM short_urls WHERE id=$1`, id)
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	if tag.RowsAffected() == 0 {
		return shortlink.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int, afterID int64) ([]shortlink.Record, error) {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.db.Query(dbctx,
		`SELECT id, url, created_at, click_count FROM short_urls WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, limit)
	if err != nil {
		slog.Error(err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []shortlink.Record
	for rows.Next() {
		var rec shortlink.Record
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.CreatedAt, &rec.ClickCount); err != nil {
			slog.Error(err.Error())
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error(err.Error())
		return nil, err
	}
	return result, nil
}

// RecordClicks writes a batch of click events in one transaction. Events for records
// deleted in the meantime are skipped.
func (s *PostgresStore) RecordClicks(ctx context.Context, events []stats.ClickEvent) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(context.Background()) // 提交成功后 rollback 无效，可忽略

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
INSERT INTO click_stats (short_url_id, clicked_at, ip, user_agent, referer)
SELECT $1::bigint, $2::timestamptz, $3::text, $4::text, $5::text
WHERE EXISTS (SELECT 1 FROM short_urls WHERE id = $1::bigint)`,
			e.ID, e.ClickedAt, e.IP, e.UserAgent, e.Referer)
		batch.Queue(`UPDATE short_urls SET click_count = click_count + 1 WHERE id = $1`, e.ID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
