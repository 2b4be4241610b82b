// Package options serves the filter dropdown lists (statuses, users,
// teams), falling back to the last good copy in the local store when the
// backend cannot be reached.
package options

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"leaddesk-engine/internal/backend"
	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/store"
)

const (
	KindStatuses = "statuses"
	KindUsers    = "users"
	KindTeams    = "teams"
)

type Loader interface {
	LoadOptions(ctx context.Context) (backend.Options, error)
}

type Result struct {
	backend.Options
	Cached    bool      `json:"cached"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Service struct {
	Loader Loader
	DB     *sql.DB
	Now    func() time.Time
	Logger *log.Logger
}

// Load asks the backend first. On a network failure it serves the cache;
// server errors (401, 500, ...) are returned as they are.
func (s Service) Load(ctx context.Context) (Result, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	opts, err := s.Loader.LoadOptions(ctx)
	if err == nil {
		at := now()
		if s.DB != nil {
			if err := s.save(ctx, opts, at); err != nil {
				logger.Printf("[options] cache write failed: %v", err)
			}
		}
		return Result{Options: opts, FetchedAt: at}, nil
	}

	if s.DB == nil || !backend.IsNetwork(err) {
		return Result{}, err
	}
	cached, cerr := s.cached(ctx)
	if cerr != nil {
		logger.Printf("[options] backend unreachable and no cache: %v", cerr)
		return Result{}, err
	}
	logger.Printf("[options] backend unreachable, serving cache from %s", cached.FetchedAt.Format(time.RFC3339))
	return cached, nil
}

func (s Service) save(ctx context.Context, o backend.Options, at time.Time) error {
	for kind, xs := range map[string][]domain.Option{
		KindStatuses: o.Statuses,
		KindUsers:    o.Users,
		KindTeams:    o.Teams,
	} {
		if err := store.SaveOptions(ctx, s.DB, kind, xs, at); err != nil {
			return err
		}
	}
	return nil
}

func (s Service) cached(ctx context.Context) (Result, error) {
	out := Result{Cached: true}
	var errs []error
	for kind, dst := range map[string]*[]domain.Option{
		KindStatuses: &out.Statuses,
		KindUsers:    &out.Users,
		KindTeams:    &out.Teams,
	} {
		xs, at, err := store.LoadOptions(ctx, s.DB, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = xs
		if out.FetchedAt.IsZero() || at.Before(out.FetchedAt) {
			out.FetchedAt = at
		}
	}
	if len(errs) > 0 {
		return Result{}, errors.Join(errs...)
	}
	return out, nil
}
