package events

import (
	"context"
	"log"
	"sync"
)

const DefaultJournalSize = 100

// Journal keeps the most recent hub events for clients that poll for
// them, and logs each one as it passes.
type Journal struct {
	size   int
	logger *log.Logger

	mu     sync.Mutex
	recent []Event
}

func NewJournal(size int, l *log.Logger) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	if l == nil {
		l = log.Default()
	}
	return &Journal{size: size, logger: l}
}

// Run consumes h until ctx is done. ready, when non-nil, is closed once
// the subscription is in place.
func (j *Journal) Run(ctx context.Context, h *Hub, ready chan<- struct{}) {
	sub := h.Subscribe()
	defer h.Unsubscribe(sub)
	if ready != nil {
		close(ready)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			j.record(msg)
		}
	}
}

func (j *Journal) record(msg string) {
	e, err := Parse(msg)
	if err != nil {
		j.logger.Printf("[events] unreadable event: %v", err)
		return
	}
	j.logger.Printf("[events] type=%s view=%s request_id=%s", e.Type, e.ViewID, e.RequestID)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.recent = append(j.recent, e)
	if over := len(j.recent) - j.size; over > 0 {
		j.recent = append(j.recent[:0:0], j.recent[over:]...)
	}
}

// Recent returns up to n events, oldest first. n <= 0 means all kept.
// viewID, when set, keeps only that view's events.
func (j *Journal) Recent(n int, viewID string) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, 0, len(j.recent))
	for _, e := range j.recent {
		if viewID == "" || e.ViewID == viewID {
			out = append(out, e)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
