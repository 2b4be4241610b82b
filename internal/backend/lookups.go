package backend

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"leaddesk-engine/internal/domain"
)

type Options struct {
	Statuses []domain.Option `json:"statuses"`
	Users    []domain.Option `json:"users"`
	Teams    []domain.Option `json:"teams"`
}

func (c *Client) Statuses(ctx context.Context) ([]domain.Option, error) {
	return c.options(ctx, "list statuses", "/statuses", "name", "status_name", "title")
}

func (c *Client) Users(ctx context.Context) ([]domain.Option, error) {
	return c.options(ctx, "list users", "/users/all", "name", "full_name", "username", "email")
}

func (c *Client) Teams(ctx context.Context) ([]domain.Option, error) {
	return c.options(ctx, "list teams", "/teams", "name", "team_name")
}

// LoadOptions fetches the three dropdown sources concurrently. One failing
// source fails the whole load.
func (c *Client) LoadOptions(ctx context.Context) (Options, error) {
	var out Options
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		xs, err := c.Statuses(gctx)
		out.Statuses = xs
		return err
	})
	g.Go(func() error {
		xs, err := c.Users(gctx)
		out.Users = xs
		return err
	})
	g.Go(func() error {
		xs, err := c.Teams(gctx)
		out.Teams = xs
		return err
	})

	if err := g.Wait(); err != nil {
		return Options{}, err
	}
	return out, nil
}

func (c *Client) options(ctx context.Context, op, path string, nameKeys ...string) ([]domain.Option, error) {
	var rows []domain.Record
	if err := c.do(ctx, op, http.MethodGet, path, "", &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Option, 0, len(rows))
	for _, r := range rows {
		id := r.ID()
		if id == "" {
			id, _ = r.String("_id")
		}
		if id == "" {
			continue
		}
		name := id
		for _, k := range nameKeys {
			if s, ok := r.String(k); ok {
				name = s
				break
			}
		}
		out = append(out, domain.Option{ID: id, Name: name})
	}
	return out, nil
}
