// Package notify implements the transient, auto-expiring notification queue
// shown alongside the desktop windows.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
)

const (
	// DefaultExpiry is how long a notification stays visible.
	DefaultExpiry = 7 * time.Second
	// DefaultTick is the interval of the passive expiry sweep.
	DefaultTick = time.Second
)

// Severity classifies a notification for rendering.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeveritySuccess     Severity = "success"
	SeverityWarning     Severity = "warning"
	SeverityError       Severity = "error"
	SeverityAchievement Severity = "achievement"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError, SeverityAchievement:
		return true
	}
	return false
}

// Notification is one transient status message.
type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Age returns how long the notification has existed at now.
func (n Notification) Age(now time.Time) time.Duration {
	return now.Sub(n.CreatedAt)
}

// Notifier is the narrow interface panels and the window manager use to
// report outcomes.
type Notifier interface {
	Enqueue(n Notification) Notification
}

// Queue holds notifications in insertion order; newest is last.
//
// Ids are not unique across time: enqueueing an id that is still visible
// appends a second entry, and Dismiss removes every entry carrying that id.
type Queue struct {
	mu     sync.Mutex
	clock  clock.Clock
	expiry time.Duration
	items  []Notification

	// OnChange, when set, is called after every mutation (outside the lock).
	OnChange func()
}

// NewQueue creates an empty queue. A zero expiry selects DefaultExpiry.
func NewQueue(clk clock.Clock, expiry time.Duration) *Queue {
	if clk == nil {
		clk = clock.New()
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Queue{clock: clk, expiry: expiry}
}

// Expiry returns the configured visibility threshold.
func (q *Queue) Expiry() time.Duration {
	return q.expiry
}

// Enqueue appends n and returns the stored copy. Missing ids are generated,
// a zero CreatedAt is stamped with the queue clock and an unknown severity
// falls back to info.
func (q *Queue) Enqueue(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = q.clock.Now()
	}
	if !n.Severity.Valid() {
		n.Severity = SeverityInfo
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	q.changed()
	return n
}

// Dismiss removes every entry with id immediately, regardless of age.
// It reports whether anything was removed.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	kept := q.items[:0]
	removed := false
	for _, n := range q.items {
		if n.ID == id {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	q.items = kept
	q.mu.Unlock()

	if removed {
		q.changed()
	}
	return removed
}

// Expire purges every notification whose age at now has reached the expiry
// threshold. It returns the number of purged entries.
func (q *Queue) Expire(now time.Time) int {
	q.mu.Lock()
	kept := q.items[:0]
	purged := 0
	for _, n := range q.items {
		if n.Age(now) >= q.expiry {
			purged++
			continue
		}
		kept = append(kept, n)
	}
	q.items = kept
	q.mu.Unlock()

	if purged > 0 {
		q.changed()
	}
	return purged
}

// Tick runs one passive expiry sweep at the current clock time.
func (q *Queue) Tick() int {
	return q.Expire(q.clock.Now())
}

// Run sweeps expired notifications every interval until ctx is cancelled.
// A non-positive interval selects DefaultTick.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTick
	}
	t := q.clock.Ticker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			q.Expire(now)
		}
	}
}

// Visible returns a copy of the notifications still below the expiry
// threshold, oldest first. Entries that aged out since the last sweep are
// filtered here too, so readers never see a stale entry.
func (q *Queue) Visible() []Notification {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, 0, len(q.items))
	for _, n := range q.items {
		if n.Age(now) < q.expiry {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of stored entries, including any awaiting purge.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every notification.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	q.changed()
}

func (q *Queue) changed() {
	if q.OnChange != nil {
		q.OnChange()
	}
}
