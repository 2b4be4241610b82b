package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type ExportRecord struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path,omitempty"`
	Query     string    `json:"query"`
	Rows      int       `json:"rows"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func RecordExport(ctx context.Context, db *sql.DB, e ExportRecord) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO exports(file_name, path, query, rows, total, created_at)
VALUES(?,?,?,?,?,?);`,
		e.FileName, e.Path, e.Query, e.Rows, e.Total, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("record export: %w", err)
	}
	return res.LastInsertId()
}

// ListExports returns the newest exports first.
func ListExports(ctx context.Context, db *sql.DB, limit int) ([]ExportRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, file_name, path, query, rows, total, created_at
FROM exports
ORDER BY created_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ExportRecord{}
	for rows.Next() {
		var e ExportRecord
		var created string
		if err := rows.Scan(&e.ID, &e.FileName, &e.Path, &e.Query, &e.Rows, &e.Total, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CleanupOldExports drops history rows older than maxAge. Files on disk are
// left alone.
func CleanupOldExports(ctx context.Context, db *sql.DB, now time.Time, maxAge time.Duration) (int64, error) {
	cutoff := now.Add(-maxAge).UTC().Format(time.RFC3339Nano)
	res, err := db.ExecContext(ctx, `DELETE FROM exports WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old exports: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
