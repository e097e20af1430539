// Package desktop implements the window manager: the set of open windows,
// their geometry, stacking order and lifecycle.
package desktop

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

// OpenRequest asks the manager to open a window bound to a panel.
type OpenRequest struct {
	ID       string
	Title    string
	Kind     panel.Kind
	Elevated bool
	// Credential is forwarded to the access checker for elevated windows.
	Credential string
}

// OpenResult reports what Open did.
type OpenResult int

const (
	// OpenIgnored means the request was malformed (empty id, unknown kind).
	OpenIgnored OpenResult = iota
	// OpenCreated means a new window was added.
	OpenCreated
	// OpenAlreadyOpen means a window with that id exists; nothing changed.
	OpenAlreadyOpen
	// OpenRevived means a closing window was reopened before removal.
	OpenRevived
	// OpenDenied means the access check refused an elevated window.
	OpenDenied
)

// String returns the string representation of the result
func (r OpenResult) String() string {
	switch r {
	case OpenIgnored:
		return "ignored"
	case OpenCreated:
		return "created"
	case OpenAlreadyOpen:
		return "already_open"
	case OpenRevived:
		return "revived"
	case OpenDenied:
		return "denied"
	default:
		return "unknown"
	}
}

type entry struct {
	Window
	// deadline is when the pending Opening or Closing phase ends.
	deadline time.Time
}

// Manager owns the window collection. Every exported method is safe for
// concurrent use and operations on unknown ids are silent no-ops.
//
// Phase changes (Opening→Active, Closing→removed) are deadlines held on each
// window. They are applied lazily on every call and by a wake-up timer on
// the injected clock, so a mock clock drives them deterministically.
type Manager struct {
	mu       sync.Mutex
	clock    clock.Clock
	opts     Options
	checker  access.Checker
	notifier notify.Notifier
	windows  []*entry
	wake     *clock.Timer
	closed   bool

	// OnChange, when set, is called after every state change (outside the
	// lock).
	OnChange func()
}

// NewManager creates an empty window manager. checker may be nil, in which
// case elevated windows are always refused. notifier may be nil.
func NewManager(clk clock.Clock, opts Options, checker access.Checker, notifier notify.Notifier) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		clock:    clk,
		opts:     opts.withDefaults(),
		checker:  checker,
		notifier: notifier,
	}
}

// Options returns the effective options.
func (m *Manager) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// Open adds a window unless one with the same id is already tracked, in
// which case nothing happens (the existing window is not raised). A window
// that is still closing is revived instead of being left to its removal.
//
// Elevated windows consult the access checker first, without holding the
// manager lock; a refusal enqueues an error notification and creates
// nothing.
func (m *Manager) Open(ctx context.Context, req OpenRequest) OpenResult {
	if req.ID == "" || !req.Kind.Valid() {
		return OpenIgnored
	}
	if req.Title == "" {
		req.Title = req.ID
	}

	if req.Elevated {
		m.mu.Lock()
		m.advanceLocked(m.clock.Now())
		e := m.findLocked(req.ID)
		tracked := e != nil && e.Lifecycle != LifecycleClosing
		m.mu.Unlock()
		if tracked {
			return OpenAlreadyOpen
		}

		if !m.confirm(ctx, req) {
			m.report(notify.Notification{
				ID:       "access_denied",
				Severity: notify.SeverityError,
				Title:    "Access denied",
				Message:  fmt.Sprintf("%s requires elevated access", req.Title),
			})
			return OpenDenied
		}
	}

	m.mu.Lock()
	now := m.clock.Now()
	m.advanceLocked(now)

	result := OpenCreated
	if e := m.findLocked(req.ID); e != nil {
		if e.Lifecycle != LifecycleClosing {
			m.mu.Unlock()
			return OpenAlreadyOpen
		}
		e.Title = req.Title
		e.Kind = req.Kind
		e.Elevated = req.Elevated
		e.Lifecycle = LifecycleOpening
		e.deadline = now.Add(m.opts.OpenDelay)
		e.ZIndex = m.topZLocked() + 1
		result = OpenRevived
	} else {
		n := len(m.windows)
		origin := Point{
			X: m.opts.Origin.X + n*m.opts.Cascade,
			Y: m.opts.Origin.Y + n*m.opts.Cascade,
		}
		z := m.opts.ZBase + n
		if top := m.maxZLocked(); n > 0 && z <= top {
			z = top + 1
		}
		m.windows = append(m.windows, &entry{
			Window: Window{
				ID:        req.ID,
				Title:     req.Title,
				Kind:      req.Kind,
				Position:  Clamp(origin, m.opts.Viewport, m.opts.MinVisible),
				Size:      m.opts.WindowSize,
				ZIndex:    z,
				Lifecycle: LifecycleOpening,
				Elevated:  req.Elevated,
			},
			deadline: now.Add(m.opts.OpenDelay),
		})
	}
	m.scheduleLocked(now)
	m.mu.Unlock()

	m.changed()
	return result
}

// Close starts the closing phase; the window is removed once CloseDelay has
// elapsed. Closing a window that is still opening interrupts the opening.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	now := m.clock.Now()
	m.advanceLocked(now)
	e := m.findLocked(id)
	if e == nil || e.Lifecycle == LifecycleClosing {
		m.mu.Unlock()
		return false
	}
	e.Lifecycle = LifecycleClosing
	e.deadline = now.Add(m.opts.CloseDelay)
	m.scheduleLocked(now)
	m.mu.Unlock()

	m.changed()
	return true
}

// Minimize toggles a window between Active and Minimized. A window still
// opening is minimized straight away. Closing or unknown windows are left
// alone.
func (m *Manager) Minimize(id string) bool {
	m.mu.Lock()
	now := m.clock.Now()
	m.advanceLocked(now)
	e := m.findLocked(id)
	if e == nil {
		m.mu.Unlock()
		return false
	}
	switch e.Lifecycle {
	case LifecycleActive, LifecycleOpening:
		e.Lifecycle = LifecycleMinimized
		e.deadline = time.Time{}
	case LifecycleMinimized:
		e.Lifecycle = LifecycleActive
	default:
		m.mu.Unlock()
		return false
	}
	m.scheduleLocked(now)
	m.mu.Unlock()

	m.changed()
	return true
}

// MinimizeAll minimizes every visible window and returns how many changed.
func (m *Manager) MinimizeAll() int {
	m.mu.Lock()
	now := m.clock.Now()
	m.advanceLocked(now)
	count := 0
	for _, e := range m.windows {
		if e.Lifecycle == LifecycleActive || e.Lifecycle == LifecycleOpening {
			e.Lifecycle = LifecycleMinimized
			e.deadline = time.Time{}
			count++
		}
	}
	m.scheduleLocked(now)
	m.mu.Unlock()

	if count > 0 {
		m.changed()
	}
	return count
}

// Restore is the taskbar action: a minimized window becomes active and any
// restored window is raised to the front.
func (m *Manager) Restore(id string) bool {
	m.mu.Lock()
	m.advanceLocked(m.clock.Now())
	e := m.findLocked(id)
	if e == nil || e.Lifecycle == LifecycleClosing {
		m.mu.Unlock()
		return false
	}
	if e.Lifecycle == LifecycleMinimized {
		e.Lifecycle = LifecycleActive
	}
	e.ZIndex = m.topZLocked() + 1
	m.mu.Unlock()

	m.changed()
	return true
}

// BringToFront assigns the window a zIndex one above the current maximum
// (or the ZBase floor when that is higher).
func (m *Manager) BringToFront(id string) bool {
	m.mu.Lock()
	m.advanceLocked(m.clock.Now())
	e := m.findLocked(id)
	if e == nil {
		m.mu.Unlock()
		return false
	}
	e.ZIndex = m.topZLocked() + 1
	m.mu.Unlock()

	m.changed()
	return true
}

// Grab raises the window and returns its origin in one step. It is the
// drag-start primitive: no caller can observe the drag origin without the
// raise. Minimized and closing windows cannot be grabbed.
func (m *Manager) Grab(id string) (Point, bool) {
	m.mu.Lock()
	m.advanceLocked(m.clock.Now())
	e := m.findLocked(id)
	if e == nil || e.Lifecycle == LifecycleMinimized || e.Lifecycle == LifecycleClosing {
		m.mu.Unlock()
		return Point{}, false
	}
	e.ZIndex = m.topZLocked() + 1
	pos := e.Position
	m.mu.Unlock()

	m.changed()
	return pos, true
}

// Reposition moves a window, clamped to the viewport, and returns the
// position actually applied.
func (m *Manager) Reposition(id string, p Point) (Point, bool) {
	m.mu.Lock()
	m.advanceLocked(m.clock.Now())
	e := m.findLocked(id)
	if e == nil || e.Lifecycle == LifecycleClosing {
		m.mu.Unlock()
		return Point{}, false
	}
	e.Position = Clamp(p, m.opts.Viewport, m.opts.MinVisible)
	pos := e.Position
	m.mu.Unlock()

	m.changed()
	return pos, true
}

// SetViewport resizes the rendering surface and re-clamps every window.
func (m *Manager) SetViewport(size Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	m.mu.Lock()
	m.opts.Viewport = size
	for _, e := range m.windows {
		e.Position = Clamp(e.Position, size, m.opts.MinVisible)
	}
	m.mu.Unlock()

	m.changed()
}

// Viewport returns the current rendering surface size.
func (m *Manager) Viewport() Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts.Viewport
}

// Window returns a snapshot of one window.
func (m *Manager) Window(id string) (Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(m.clock.Now())
	if e := m.findLocked(id); e != nil {
		return e.Window, true
	}
	return Window{}, false
}

// Windows returns snapshots of every tracked window in opening order, which
// is also taskbar order.
func (m *Manager) Windows() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(m.clock.Now())
	out := make([]Window, 0, len(m.windows))
	for _, e := range m.windows {
		out = append(out, e.Window)
	}
	return out
}

// Stacked returns the windows ordered bottom to top, the painting order.
func (m *Manager) Stacked() []Window {
	out := m.Windows()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}

// Focused returns the topmost window whose content is showing.
func (m *Manager) Focused() (Window, bool) {
	stacked := m.Stacked()
	for i := len(stacked) - 1; i >= 0; i-- {
		w := stacked[i]
		if w.Lifecycle == LifecycleActive || w.Lifecycle == LifecycleOpening {
			return w, true
		}
	}
	return Window{}, false
}

// HitTest finds the topmost visible window under p and the region hit.
func (m *Manager) HitTest(p Point) (Window, Region) {
	stacked := m.Stacked()
	header := m.Options().HeaderHeight
	for i := len(stacked) - 1; i >= 0; i-- {
		w := stacked[i]
		if !w.ContentVisible() || !w.Contains(p) {
			continue
		}
		if p.Y < w.Position.Y+header {
			return w, RegionHeader
		}
		return w, RegionBody
	}
	return Window{}, RegionNone
}

// Len returns the number of tracked windows, closing ones included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(m.clock.Now())
	return len(m.windows)
}

// Advance applies every phase change that is due. It is driven by the
// manager's own wake-up timer and may also be called from a render tick.
func (m *Manager) Advance() {
	m.mu.Lock()
	now := m.clock.Now()
	changed := m.advanceLocked(now)
	m.scheduleLocked(now)
	m.mu.Unlock()

	if changed {
		m.changed()
	}
}

// Shutdown cancels the pending wake-up timer. The manager stays readable but
// no longer advances on its own.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	if m.wake != nil {
		m.wake.Stop()
		m.wake = nil
	}
	m.mu.Unlock()
}

func (m *Manager) confirm(ctx context.Context, req OpenRequest) bool {
	if m.checker == nil {
		return false
	}
	ok, err := m.checker.Confirm(ctx, access.Request{
		WindowID:   req.ID,
		Title:      req.Title,
		Credential: req.Credential,
	})
	return err == nil && ok
}

func (m *Manager) report(n notify.Notification) {
	if m.notifier != nil {
		m.notifier.Enqueue(n)
	}
}

func (m *Manager) changed() {
	if m.OnChange != nil {
		m.OnChange()
	}
}

func (m *Manager) findLocked(id string) *entry {
	for _, e := range m.windows {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (m *Manager) maxZLocked() int {
	top := 0
	for i, e := range m.windows {
		if i == 0 || e.ZIndex > top {
			top = e.ZIndex
		}
	}
	return top
}

// topZLocked is the stacking maximum, never below the ZBase floor.
func (m *Manager) topZLocked() int {
	top := m.opts.ZBase
	if len(m.windows) > 0 {
		if z := m.maxZLocked(); z > top {
			top = z
		}
	}
	return top
}

// advanceLocked applies due deadlines and reports whether anything changed.
func (m *Manager) advanceLocked(now time.Time) bool {
	changed := false
	kept := m.windows[:0]
	for _, e := range m.windows {
		due := !e.deadline.IsZero() && !now.Before(e.deadline)
		switch {
		case due && e.Lifecycle == LifecycleOpening:
			e.Lifecycle = LifecycleActive
			e.deadline = time.Time{}
			changed = true
		case due && e.Lifecycle == LifecycleClosing:
			changed = true
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(m.windows); i++ {
		m.windows[i] = nil
	}
	m.windows = kept
	return changed
}

// scheduleLocked arms the wake-up timer for the earliest pending deadline.
func (m *Manager) scheduleLocked(now time.Time) {
	if m.wake != nil {
		m.wake.Stop()
		m.wake = nil
	}
	if m.closed {
		return
	}

	var next time.Time
	for _, e := range m.windows {
		if e.deadline.IsZero() {
			continue
		}
		if next.IsZero() || e.deadline.Before(next) {
			next = e.deadline
		}
	}
	if next.IsZero() {
		return
	}
	m.wake = m.clock.AfterFunc(next.Sub(now), m.Advance)
}
