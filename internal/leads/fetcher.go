package leads

import (
	"context"
	"sync/atomic"

	"leaddesk-engine/internal/domain"
)

// FetchFailedMessage is shown when a listing fails without a server message.
const FetchFailedMessage = "Failed to fetch leads"

// Lister is the read side of the backend's /leads endpoint.
type Lister interface {
	ListLeads(ctx context.Context, rawQuery string) (domain.PageResult, error)
}

// Ticket identifies one fetch. Tickets increase monotonically per Fetcher.
type Ticket uint64

// Fetcher issues listing reads. Concurrent fetches are not deduplicated or
// cancelled; instead each one carries a ticket and only the latest ticket's
// result should be applied.
type Fetcher struct {
	lister Lister
	seq    atomic.Uint64
}

func NewFetcher(l Lister) *Fetcher {
	return &Fetcher{lister: l}
}

func (f *Fetcher) Fetch(ctx context.Context, fs FilterState) (Ticket, domain.PageResult, error) {
	t := Ticket(f.seq.Add(1))
	res, err := f.FetchQuery(ctx, BuildQuery(fs))
	return t, res, err
}

// FetchQuery reads one page for an explicit query, outside the ticket
// sequence. The export path uses it with an overridden limit.
func (f *Fetcher) FetchQuery(ctx context.Context, q Query) (domain.PageResult, error) {
	res, err := f.lister.ListLeads(ctx, q.Encode())
	if err != nil {
		return domain.PageResult{}, err
	}
	if res.Items == nil {
		res.Items = []domain.Record{}
	}
	return res, nil
}

func (f *Fetcher) IsCurrent(t Ticket) bool {
	return uint64(t) == f.seq.Load()
}

// Invalidate makes every outstanding ticket stale.
func (f *Fetcher) Invalidate() {
	f.seq.Add(1)
}
