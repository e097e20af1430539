// Package daemon runs a desktop session: the window manager, drag controller,
// notification queue and panel backend, wired to shared clocks and timers.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/config"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/drag"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

// ErrNoBackend is returned by panel actions when no backend is configured.
var ErrNoBackend = errors.New("no backend configured")

// ErrUnknownPanel is returned when a window id is not in the panel catalog.
var ErrUnknownPanel = errors.New("unknown panel")

// Options configures a Session.
type Options struct {
	Config *config.Config
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
	// Checker overrides the access checker built from Config.
	Checker access.Checker
	// Client overrides the backend client built from Config.
	Client *panel.Client
}

// Session owns one desktop: every state change flows through it.
type Session struct {
	clock  clock.Clock
	logger *slog.Logger

	desktop *desktop.Manager
	drag    *drag.Controller
	notices *notify.Queue
	host    *panel.Host

	mu           sync.RWMutex
	cfg          *config.Config
	checker      access.Checker
	catalog      []panel.Entry
	data         panel.Data
	online       bool
	fetched      bool
	lastFetchErr string
	focus        bool
	now          time.Time

	// pinned keeps an injected checker across reloads.
	pinned    bool
	refresher *Refresher
	changes   chan struct{}
}

// New builds a session from opts. It does not start any timers; call Run.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	checker := opts.Checker
	if checker == nil {
		built, err := cfg.Checker()
		if err != nil {
			return nil, fmt.Errorf("access checker: %w", err)
		}
		checker = built
	}

	s := &Session{
		clock:   clk,
		logger:  logger,
		cfg:     cfg,
		checker: checker,
		catalog: cfg.Catalog(),
		now:     clk.Now(),
		pinned:  opts.Checker != nil,
		changes: make(chan struct{}, 1),
	}

	s.notices = notify.NewQueue(clk, cfg.Timing.NotificationExpiry)
	s.notices.OnChange = s.signal
	s.desktop = desktop.NewManager(clk, cfg.DesktopOptions(), access.CheckerFunc(s.confirm), s.notices)
	s.desktop.OnChange = s.signal
	s.drag = drag.NewController(s.desktop)

	client := opts.Client
	if client == nil && cfg.BackendEnabled() {
		client = panel.NewClient(cfg.ClientConfig())
	}
	if client != nil {
		s.host = panel.NewHost(client, s.notices)
	}
	s.refresher = NewRefresher(RefresherConfig{
		Interval: cfg.Timing.RefreshInterval,
		Clock:    clk,
		Logger:   logger,
	}, s.Refresh)
	return s, nil
}

// Desktop exposes the window manager.
func (s *Session) Desktop() *desktop.Manager { return s.desktop }

// Drag exposes the drag controller.
func (s *Session) Drag() *drag.Controller { return s.drag }

// Notifications exposes the notification queue.
func (s *Session) Notifications() *notify.Queue { return s.notices }

// Changes delivers a coalesced signal after any state change.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// Run drives the session timers until ctx is cancelled: the notification
// expiry sweep, the clock tick that also advances window animations, and
// the backend refresh loop. Pending phase timers are stopped on return.
func (s *Session) Run(ctx context.Context) error {
	cfg := s.Config()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.notices.Run(ctx, cfg.Timing.ExpiryTick)
	}()
	go func() {
		defer wg.Done()
		s.runClock(ctx, cfg.Timing.ClockTick)
	}()
	go func() {
		defer wg.Done()
		s.refresher.Run(ctx)
	}()

	s.logger.Info("session started",
		"backend", cfg.Backend.BaseURL,
		"viewport", fmt.Sprintf("%dx%d", cfg.Viewport.Width, cfg.Viewport.Height))

	<-ctx.Done()
	wg.Wait()
	s.desktop.Shutdown()
	s.logger.Info("session stopped")
	return nil
}

func (s *Session) runClock(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultClockTick
	}
	t := s.clock.Ticker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.mu.Lock()
			s.now = now
			s.mu.Unlock()
			s.desktop.Advance()
			s.signal()
		}
	}
}

// Refresh fetches panel data from the backend and merges realtime
// notifications into the queue. When the very first fetch fails (or no
// backend is configured) a welcome notification is shown instead.
func (s *Session) Refresh(ctx context.Context) error {
	if s.host == nil {
		s.welcomeOnce()
		return nil
	}

	data, err := s.host.Client().Fetch(ctx)
	if err != nil {
		s.mu.Lock()
		s.online = false
		s.lastFetchErr = err.Error()
		s.mu.Unlock()
		s.welcomeOnce()
		s.signal()
		return err
	}
	data.FetchedAt = s.clock.Now()

	s.mu.Lock()
	s.data = data
	s.online = true
	s.fetched = true
	s.lastFetchErr = ""
	s.mu.Unlock()

	s.mergeRemote(data.Notifications)
	s.logger.Debug("backend refreshed",
		"jobs", len(data.Jobs),
		"tasks", len(data.Tasks),
		"notifications", len(data.Notifications))
	s.signal()
	return nil
}

func (s *Session) welcomeOnce() {
	s.mu.Lock()
	first := !s.fetched
	s.fetched = true
	s.mu.Unlock()
	if !first {
		return
	}
	s.notices.Enqueue(notify.Notification{
		ID:       "welcome",
		Severity: notify.SeveritySuccess,
		Title:    "Welcome to thriveos",
		Message:  "Your productivity workspace is ready. Start exploring!",
	})
}

// mergeRemote enqueues backend notifications whose id is not already
// showing, so a periodic refresh does not stack duplicates.
func (s *Session) mergeRemote(remote []panel.RemoteNotification) {
	if len(remote) == 0 {
		return
	}
	visible := make(map[string]bool)
	for _, n := range s.notices.Visible() {
		visible[n.ID] = true
	}
	for _, r := range remote {
		if r.ID != "" && visible[r.ID] {
			continue
		}
		n := s.notices.Enqueue(r.Notification())
		visible[n.ID] = true
	}
}

// Open opens the catalog panel id. credential is forwarded to the access
// checker when the panel is elevated.
func (s *Session) Open(ctx context.Context, id, credential string) (desktop.OpenResult, error) {
	entry, ok := s.Lookup(id)
	if !ok {
		return desktop.OpenIgnored, fmt.Errorf("%w: %q", ErrUnknownPanel, id)
	}
	res := s.desktop.Open(ctx, desktop.OpenRequest{
		ID:         entry.ID,
		Title:      entry.Title,
		Kind:       entry.Kind,
		Elevated:   entry.Elevated,
		Credential: credential,
	})
	s.logger.Debug("open window", "id", id, "result", res.String())
	return res, nil
}

// Close starts closing a window.
func (s *Session) Close(id string) bool { return s.desktop.Close(id) }

// Minimize toggles a window's minimized state.
func (s *Session) Minimize(id string) bool { return s.desktop.Minimize(id) }

// Restore un-minimizes and raises a window.
func (s *Session) Restore(id string) bool { return s.desktop.Restore(id) }

// BringToFront raises a window.
func (s *Session) BringToFront(id string) bool { return s.desktop.BringToFront(id) }

// PointerDown routes a press: on a header it starts a drag, on a body it
// raises the window. It returns the window hit, if any. A press while a drag
// is in progress is ignored and reports RegionNone.
func (s *Session) PointerDown(p desktop.Point) (desktop.Window, desktop.Region) {
	if _, dragging := s.drag.Active(); dragging {
		return desktop.Window{}, desktop.RegionNone
	}
	w, region := s.desktop.HitTest(p)
	switch region {
	case desktop.RegionHeader:
		s.drag.PointerDown(w.ID, region, p)
	case desktop.RegionBody:
		s.desktop.BringToFront(w.ID)
	}
	return w, region
}

// PointerMove continues an active drag.
func (s *Session) PointerMove(p desktop.Point) (desktop.Point, bool) {
	return s.drag.PointerMove(p)
}

// PointerUp ends any drag.
func (s *Session) PointerUp() {
	s.drag.PointerUp()
	s.signal()
}

// Notify enqueues a notification.
func (s *Session) Notify(n notify.Notification) notify.Notification {
	return s.notices.Enqueue(n)
}

// Dismiss removes notifications by id.
func (s *Session) Dismiss(id string) bool { return s.notices.Dismiss(id) }

// DismissNewest removes the most recently enqueued visible notification.
func (s *Session) DismissNewest() bool {
	visible := s.notices.Visible()
	if len(visible) == 0 {
		return false
	}
	return s.notices.Dismiss(visible[len(visible)-1].ID)
}

// RunAction executes a panel action against the backend. Successful actions
// other than terminal commands schedule a data refresh.
func (s *Session) RunAction(ctx context.Context, req panel.ActionRequest) (panel.ActionResult, error) {
	if s.host == nil {
		return panel.ActionResult{}, ErrNoBackend
	}
	res, err := s.host.Run(ctx, req)
	if err != nil {
		s.logger.Warn("panel action failed", "action", string(req.Action), "error", err)
		return res, err
	}
	if req.Action != panel.ActionTerminalCommand {
		s.refresher.Trigger()
	}
	return res, nil
}

// ToggleFocus flips focus mode. Entering it minimizes every window; both
// transitions are announced. It returns the new state.
func (s *Session) ToggleFocus() bool {
	s.mu.Lock()
	s.focus = !s.focus
	on := s.focus
	s.mu.Unlock()

	if on {
		s.desktop.MinimizeAll()
		s.notices.Enqueue(notify.Notification{
			ID:       "focus_mode",
			Severity: notify.SeverityInfo,
			Title:    "Focus mode enabled",
			Message:  "Distractions minimized. Stay productive!",
		})
	} else {
		s.notices.Enqueue(notify.Notification{
			ID:       "focus_mode_off",
			Severity: notify.SeverityInfo,
			Title:    "Focus mode disabled",
			Message:  "Welcome back to full productivity mode!",
		})
	}
	s.logger.Info("focus mode", "enabled", on)
	return on
}

// SetViewport resizes the desktop surface.
func (s *Session) SetViewport(size desktop.Size) {
	s.desktop.SetViewport(size)
}

// Reload swaps in a new configuration. The catalog and access checker take
// effect immediately; geometry and timing apply to new sessions only.
func (s *Session) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	checker, err := cfg.Checker()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	if !s.pinned {
		s.checker = checker
	}
	s.catalog = cfg.Catalog()
	s.mu.Unlock()
	s.logger.Info("config reloaded")
	s.signal()
	return nil
}

// Config returns the active configuration.
func (s *Session) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Catalog returns the launchable panels.
func (s *Session) Catalog() []panel.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]panel.Entry(nil), s.catalog...)
}

// Lookup finds a catalog entry.
func (s *Session) Lookup(id string) (panel.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return panel.Lookup(s.catalog, id)
}

// Data returns the last fetched panel data.
func (s *Session) Data() panel.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Snapshot is a point-in-time view of the whole desktop.
type Snapshot struct {
	Windows       []desktop.Window      `json:"windows"`
	Focused       string                `json:"focused,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
	FocusMode     bool                  `json:"focus_mode"`
	Cursor        string                `json:"cursor"`
	Dragging      string                `json:"dragging,omitempty"`
	Viewport      desktop.Size          `json:"viewport"`
	Now           time.Time             `json:"now"`
	Backend       BackendStatus         `json:"backend"`
}

// BackendStatus summarizes backend reachability.
type BackendStatus struct {
	Configured  bool      `json:"configured"`
	Online      bool      `json:"online"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Snapshot captures the current state. Windows are in opening order.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Windows:       s.desktop.Windows(),
		Notifications: s.notices.Visible(),
		Cursor:        s.drag.Cursor().String(),
		Viewport:      s.desktop.Viewport(),
	}
	if w, ok := s.desktop.Focused(); ok {
		snap.Focused = w.ID
	}
	if d, ok := s.drag.Active(); ok {
		snap.Dragging = d.WindowID
	}

	s.mu.RLock()
	snap.FocusMode = s.focus
	snap.Now = s.now
	snap.Backend = BackendStatus{
		Configured:  s.host != nil,
		Online:      s.online,
		LastRefresh: s.data.FetchedAt,
		LastError:   s.lastFetchErr,
	}
	s.mu.RUnlock()
	return snap
}

func (s *Session) confirm(ctx context.Context, req access.Request) (bool, error) {
	s.mu.RLock()
	checker := s.checker
	s.mu.RUnlock()
	return checker.Confirm(ctx, req)
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
