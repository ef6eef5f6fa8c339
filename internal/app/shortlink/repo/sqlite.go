package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/stats"
)

// autoincrement 保证删除后的 id 不会被复用，否则旧 token 会指向新 URL。
const sqliteSchema = `
create table if not exists short_urls (
	id integer primary key autoincrement,
	url text not null unique,
	click_count integer not null default 0,
	created_at timestamp not null
);
create table if not exists click_stats (
	id integer primary key autoincrement,
	short_url_id integer not null references short_urls(id) on delete cascade,
	clicked_at timestamp not null,
	ip text not null default '',
	user_agent text not null default '',
	referer text not null default ''
);
create index if not exists click_stats_short_url_id_idx on click_stats (short_url_id);
`

// SQLiteStore is a Store backed by a single SQLite database file, for single-node
// deployments without Postgres.
type SQLiteStore struct {
	db *sql.DB
	l  sync.Mutex // serializes writers
}

var (
	_ shortlink.Store = (*SQLiteStore)(nil)
	_ stats.Sink      = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) the database at path and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open SQLite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create SQLite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindOrCreate(ctx context.Context, url string) (shortlink.Record, bool, error) {
	s.l.Lock()
	defer s.l.Unlock()

	res, err := s.db.ExecContext(ctx, "insert or ignore into short_urls (url, created_at) values (?, ?)", url, time.Now().UTC())
	if err != nil {
		return shortlink.Record{}, false, fmt.Errorf("error adding short url to database: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return shortlink.Record{}, false, err
	}

	rec := shortlink.Record{URL: url}
	err = s.db.QueryRowContext(ctx, "select id, created_at, click_count from short_urls where url = ?", url).
		Scan(&rec.ID, &rec.CreatedAt, &rec.ClickCount)
	if err != nil {
		return shortlink.Record{}, false, fmt.Errorf("error getting id of added url from database: %w", err)
	}
	return rec, n == 1, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (shortlink.Record, error) {
	rec := shortlink.Record{ID: id}
	err := s.db.QueryRowContext(ctx, "select url, created_at, click_count from short_urls where id = ?", id).
		Scan(&rec.URL, &rec.CreatedAt, &rec.ClickCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shortlink.Record{}, shortlink.ErrNotFound
		}
		return shortlink.Record{}, fmt.Errorf("error resolving id %d in database: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	s.l.Lock()
	defer s.l.Unlock()

	res, err := s.db.ExecContext(ctx, "delete from short_urls where id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting short url %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shortlink.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int, afterID int64) ([]shortlink.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"select id, url, created_at, click_count from short_urls where id > ? order by id limit ?",
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing short urls: %w", err)
	}
	defer rows.Close()

	var result []shortlink.Record
	for rows.Next() {
		var rec shortlink.Record
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.CreatedAt, &rec.ClickCount); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) RecordClicks(ctx context.Context, events []stats.ClickEvent) error {
	s.l.Lock()
	defer s.l.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		if _, err := tx.ExecContext(ctx, `insert into click_stats (short_url_id, clicked_at, ip, user_agent, referer)
select ?, ?, ?, ?, ? where exists (select 1 from short_urls where id = ?)`,
			e.ID, e.ClickedAt.UTC(), e.IP, e.UserAgent, e.Referer, e.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "update short_urls set click_count = click_count + 1 where id = ?", e.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
