package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-quake-heatmap/internal/models"
)

const defaultListLimit = 100

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS fetches (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			period TEXT NOT NULL,
			url TEXT NOT NULL,
			generation INTEGER NOT NULL,
			status TEXT NOT NULL,
			feature_count INTEGER NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			fetched_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_fetches_fetched_at ON fetches(fetched_at);
		CREATE INDEX IF NOT EXISTS idx_fetches_session_id ON fetches(session_id);
		CREATE INDEX IF NOT EXISTS idx_fetches_status ON fetches(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) AddFetch(ctx context.Context, rec *models.FetchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetches (id, session_id, period, url, generation, status, feature_count, error, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Period, rec.URL, int64(rec.Generation), string(rec.Status),
		rec.FeatureCount, rec.Error, rec.Duration.Milliseconds(), rec.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting fetch %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteDB) ListFetches(ctx context.Context, opts Filter) ([]models.FetchRecord, error) {
	where, args := opts.where()
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT id, session_id, period, url, generation, status, feature_count, error, duration_ms, fetched_at
		FROM fetches` + where + ` ORDER BY fetched_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing fetches: %w", err)
	}
	defer rows.Close()

	out := []models.FetchRecord{}
	for rows.Next() {
		var (
			rec        models.FetchRecord
			generation int64
			status     string
			errText    sql.NullString
			durationMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Period, &rec.URL, &generation, &status,
			&rec.FeatureCount, &errText, &durationMs, &rec.FetchedAt); err != nil {
			return nil, fmt.Errorf("error scanning fetch: %w", err)
		}
		rec.Generation = uint64(generation)
		rec.Status = models.FetchStatus(status)
		rec.Error = errText.String
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) CountFetches(ctx context.Context, opts Filter) (int, error) {
	where, args := opts.where()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetches`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting fetches: %w", err)
	}
	return n, nil
}

func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*f.Status))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
