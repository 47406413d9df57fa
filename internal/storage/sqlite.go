package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/farhan/webins/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS endpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token TEXT NOT NULL UNIQUE,
			single_use INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'Active',
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS captures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint_id INTEGER NOT NULL REFERENCES endpoints(id),
			hit_at DATETIME NOT NULL,
			header_data TEXT NOT NULL,
			form_data TEXT NOT NULL,
			raw_data TEXT NOT NULL,
			files_data TEXT NOT NULL,
			query_params_data TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_endpoints_token ON endpoints(token)`,
		`CREATE INDEX IF NOT EXISTS idx_captures_endpoint ON captures(endpoint_id)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- Endpoints ---

func (s *SQLiteStorage) CreateEndpoint(ctx context.Context, ep *models.Endpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	singleUse := 0
	if ep.SingleUse {
		singleUse = 1
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO endpoints (token, single_use, status, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		ep.Token, singleUse, ep.Status, ep.ExpiresAt, ep.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrTokenExists
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	ep.ID = id
	return nil
}

func (s *SQLiteStorage) scanEndpoint(row interface{ Scan(...interface{}) error }) (*models.Endpoint, error) {
	var ep models.Endpoint
	var singleUse int
	err := row.Scan(&ep.ID, &ep.Token, &singleUse, &ep.Status, &ep.ExpiresAt, &ep.CreatedAt)
	if err != nil {
		return nil, err
	}
	ep.SingleUse = singleUse == 1
	return &ep, nil
}

func (s *SQLiteStorage) ListEndpoints(ctx context.Context) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, token, single_use, status, expires_at, created_at FROM endpoints ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		ep, err := s.scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, *ep)
	}
	return endpoints, rows.Err()
}

func (s *SQLiteStorage) FindUsableEndpoint(ctx context.Context, tok string, now time.Time) (*models.Endpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, token, single_use, status, expires_at, created_at
		 FROM endpoints WHERE token = ? AND status = ? AND expires_at >= ?`,
		tok, models.EndpointActive, now)
	ep, err := s.scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ep, err
}

// --- Captures ---

func (s *SQLiteStorage) CreateCapture(ctx context.Context, c *models.Capture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO captures (endpoint_id, hit_at, header_data, form_data, raw_data, files_data, query_params_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.EndpointID, c.HitAt, c.HeaderData, c.FormData, c.RawData, c.FilesData, c.QueryParamsData, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (s *SQLiteStorage) ListCapturesByEndpoint(ctx context.Context, endpointID int64) ([]models.Capture, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint_id, hit_at, header_data, form_data, raw_data, files_data, query_params_data, created_at, updated_at
		 FROM captures WHERE endpoint_id = ? ORDER BY id DESC`, endpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []models.Capture
	for rows.Next() {
		var c models.Capture
		if err := rows.Scan(&c.ID, &c.EndpointID, &c.HitAt, &c.HeaderData, &c.FormData, &c.RawData, &c.FilesData, &c.QueryParamsData, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// --- Stats ---

func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM endpoints`).Scan(&stats.TotalEndpoints); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM endpoints WHERE status = ? AND expires_at >= ?`,
		models.EndpointActive, time.Now().UTC()).Scan(&stats.UsableEndpoints); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures`).Scan(&stats.TotalCaptures); err != nil {
		return nil, err
	}

	return stats, nil
}
