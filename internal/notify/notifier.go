// Package notify raises a "N new leads" signal by polling the backend's
// lead count and comparing it with the last count it saw.
//
// The count is a total-row delta, so anything that grows the table (not
// only new leads) raises the signal.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"leaddesk-engine/internal/scheduler"
)

const DefaultInterval = 30 * time.Second

type State int

const (
	// Inactive notifiers belong to roles that may not watch; they never poll.
	Inactive State = iota
	// Armed is waiting for its first successful poll.
	Armed
	// Baselined has a count but has not seen it grow.
	Baselined
	// Raised has a visible signal.
	Raised
	// Dismissed had its signal hidden by the user.
	Dismissed
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Armed:
		return "armed"
	case Baselined:
		return "baselined"
	case Raised:
		return "raised"
	case Dismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Counter reports the current number of leads.
type Counter interface {
	CountLeads(ctx context.Context) (int, error)
}

type Baseline struct {
	LastObservedCount int       `json:"last_observed_count"`
	PendingDelta      int       `json:"pending_delta"`
	Visible           bool      `json:"visible"`
	State             State     `json:"state"`
	RaisedAt          time.Time `json:"raised_at,omitempty"`
}

type Options struct {
	Interval time.Duration
	Logger   *log.Logger
	Now      func() time.Time
	// OnRaise runs after every raise, outside the notifier's lock.
	OnRaise func(Baseline)
}

type Notifier struct {
	counter  Counter
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
	onRaise  func(Baseline)

	mu       sync.Mutex
	state    State
	baseline int
	delta    int
	raisedAt time.Time

	// gen identifies the current polling session. Results carrying an
	// older gen arrived after Stop and are dropped.
	gen     uint64
	running bool
	cancel  context.CancelFunc
}

// New builds a notifier. canWatch is checked once, here: a notifier built
// without it stays Inactive for its whole life.
func New(counter Counter, canWatch bool, opts Options) *Notifier {
	n := &Notifier{
		counter:  counter,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      opts.Now,
		onRaise:  opts.OnRaise,
		state:    Inactive,
	}
	if n.interval <= 0 {
		n.interval = DefaultInterval
	}
	if n.logger == nil {
		n.logger = log.Default()
	}
	if n.now == nil {
		n.now = time.Now
	}
	if canWatch && counter != nil {
		n.state = Armed
	}
	return n
}

// Start begins polling on its own goroutine. The first poll is immediate.
// It reports false for inactive notifiers and for notifiers already running.
func (n *Notifier) Start(parent context.Context) bool {
	n.mu.Lock()
	if n.state == Inactive || n.running {
		n.mu.Unlock()
		return false
	}
	n.gen++
	gen := n.gen
	n.state = Armed
	n.baseline = 0
	n.delta = 0
	n.raisedAt = time.Time{}
	ctx, cancel := context.WithCancel(parent)
	n.cancel = cancel
	n.running = true
	n.mu.Unlock()

	go scheduler.Every(ctx, n.logger, n.interval, "notify", func(ctx context.Context) error {
		return n.poll(ctx, gen)
	})
	return true
}

// Stop tears the timer down. It does not wait for a poll in flight; that
// poll's result is discarded when it lands.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	n.running = false
	n.gen++
	n.cancel()
	n.cancel = nil
}

func (n *Notifier) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

func (n *Notifier) poll(ctx context.Context, gen uint64) error {
	total, err := n.counter.CountLeads(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	n.mu.Lock()
	live := n.running && n.gen == gen
	n.mu.Unlock()
	if !live {
		return nil
	}
	n.observe(total, gen)
	return nil
}

// Observe applies one successful count. Polling calls it; it is exported
// for callers that learn the count another way.
func (n *Notifier) Observe(total int) {
	n.observe(total, 0)
}

func (n *Notifier) observe(total int, gen uint64) {
	n.mu.Lock()
	if gen != 0 && (gen != n.gen || !n.running) {
		n.mu.Unlock()
		return
	}

	switch n.state {
	case Inactive:
		n.mu.Unlock()
		return
	case Armed:
		n.baseline = total
		n.state = Baselined
		n.mu.Unlock()
		n.logger.Printf("[notify] baseline=%d", total)
		return
	}

	prev := n.baseline
	n.baseline = total
	if total <= prev {
		n.mu.Unlock()
		return
	}
	n.delta = total - prev
	n.state = Raised
	n.raisedAt = n.now()
	snap := n.snapshotLocked()
	n.mu.Unlock()

	n.logger.Printf("[notify] raised delta=%d baseline=%d", snap.PendingDelta, snap.LastObservedCount)
	if n.onRaise != nil {
		n.onRaise(snap)
	}
}

// Dismiss hides a raised signal until the count grows again.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == Raised {
		n.state = Dismissed
	}
}

func (n *Notifier) Snapshot() Baseline {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

func (n *Notifier) snapshotLocked() Baseline {
	return Baseline{
		LastObservedCount: n.baseline,
		PendingDelta:      n.delta,
		Visible:           n.state == Raised,
		State:             n.state,
		RaisedAt:          n.raisedAt,
	}
}
