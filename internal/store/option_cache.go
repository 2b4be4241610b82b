package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"leaddesk-engine/internal/domain"
)

// ErrNoCache means no option list of that kind was ever saved.
var ErrNoCache = errors.New("option cache empty")

// SaveOptions replaces the cached dropdown entries for kind
// ("statuses", "users", "teams").
func SaveOptions(ctx context.Context, db *sql.DB, kind string, opts []domain.Option, at time.Time) error {
	if opts == nil {
		opts = []domain.Option{}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO option_cache(kind, payload, fetched_at)
VALUES(?,?,?)
ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at;`,
		kind, string(b), at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %s options: %w", kind, err)
	}
	return nil
}

func LoadOptions(ctx context.Context, db *sql.DB, kind string) ([]domain.Option, time.Time, error) {
	var payload, fetched string
	err := db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM option_cache WHERE kind = ?;`, kind).
		Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoCache
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var out []domain.Option
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode %s options: %w", kind, err)
	}
	at, _ := time.Parse(time.RFC3339Nano, fetched)
	return out, at, nil
}
