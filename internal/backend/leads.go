package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"leaddesk-engine/internal/domain"
)

type leadsPayload struct {
	Leads []domain.Record `json:"leads"`
	Total json.Number     `json:"total"`
}

// ListLeads issues GET /leads with an already-encoded query string.
func (c *Client) ListLeads(ctx context.Context, rawQuery string) (domain.PageResult, error) {
	var p leadsPayload
	if err := c.do(ctx, "list leads", http.MethodGet, "/leads", rawQuery, &p); err != nil {
		return domain.PageResult{}, err
	}
	total := 0
	if p.Total != "" {
		n, err := p.Total.Int64()
		if err != nil {
			return domain.PageResult{}, &NetworkError{Op: "list leads", Err: fmt.Errorf("bad total %q", p.Total)}
		}
		total = int(n)
	}
	if total < 0 {
		total = 0
	}
	items := p.Leads
	if items == nil {
		items = []domain.Record{}
	}
	return domain.PageResult{Items: items, Total: total}, nil
}

// CountLeads reads only data.total from the cheapest possible listing.
func (c *Client) CountLeads(ctx context.Context) (int, error) {
	res, err := c.ListLeads(ctx, "page=1&limit=1")
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("delete lead: empty id")
	}
	return c.do(ctx, "delete lead", http.MethodDelete, "/leads/"+url.PathEscape(id), "", nil)
}
