package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/config"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

func offlineConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = ""
	return cfg
}

func newTestSession(t *testing.T, cfg *config.Config, client *panel.Client) (*Session, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	s, err := New(Options{Config: cfg, Clock: clk, Client: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Desktop().Shutdown)
	return s, clk
}

// backend serves canned JSON per "METHOD path".
type backend struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{replies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.calls = append(b.calls, key)
		reply := b.replies[key]
		b.mu.Unlock()
		if reply == "" {
			reply = "{}"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) set(key, reply string) {
	b.mu.Lock()
	b.replies[key] = reply
	b.mu.Unlock()
}

func clientFor(url string) *panel.Client {
	return panel.NewClient(panel.ClientConfig{BaseURL: url, MaxRetries: -1, RateLimit: 1000, RateBurst: 100})
}

func visibleIDs(s *Session) []string {
	var ids []string
	for _, n := range s.Notifications().Visible() {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := offlineConfig()
	cfg.Viewport.Width = 0
	if _, err := New(Options{Config: cfg}); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestRefreshWithoutBackendWelcomesOnce(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)

	for i := 0; i < 3; i++ {
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	ids := visibleIDs(s)
	if len(ids) != 1 || ids[0] != "welcome" {
		t.Fatalf("visible = %v, want [welcome]", ids)
	}
	if s.Snapshot().Backend.Configured {
		t.Fatal("backend should not be configured")
	}
}

func TestRefreshUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, _ := newTestSession(t, offlineConfig(), clientFor(url))
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	ids := visibleIDs(s)
	if len(ids) != 1 || ids[0] != "welcome" {
		t.Fatalf("visible = %v, want a single welcome", ids)
	}
	st := s.Snapshot().Backend
	if !st.Configured || st.Online || st.LastError == "" {
		t.Fatalf("backend status = %+v", st)
	}
}

func TestRefreshMergesRemoteNotifications(t *testing.T) {
	b, srv := newBackend(t)
	b.set("GET /api/jobs", `{"jobs":[{"id":"j1","title":"Go dev"}]}`)
	b.set("GET /api/realtime/notifications", `{"notifications":[
		{"id":"r1","type":"achievement","title":"Streak","message":"5 days"},
		{"id":"r2","type":"bogus","title":"Hi","message":"there"}]}`)

	s, clk := newTestSession(t, offlineConfig(), clientFor(srv.URL))
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := s.Notifications().Visible()
	if len(got) != 2 {
		t.Fatalf("visible = %v, want r1 and r2 once each", got)
	}
	if got[0].Severity != notify.SeverityAchievement || got[1].Severity != notify.SeverityInfo {
		t.Fatalf("severities = %s, %s", got[0].Severity, got[1].Severity)
	}
	if len(s.Data().Jobs) != 1 {
		t.Fatalf("jobs = %v", s.Data().Jobs)
	}
	if !s.Data().FetchedAt.Equal(clk.Now()) {
		t.Fatalf("FetchedAt = %v, want session clock", s.Data().FetchedAt)
	}
	if !s.Snapshot().Backend.Online {
		t.Fatal("backend should be online")
	}

	// Once expired, the same remote id shows up again.
	clk.Add(notify.DefaultExpiry)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n := len(s.Notifications().Visible()); n != 2 {
		t.Fatalf("visible after expiry = %d, want 2", n)
	}
}

func TestOpen(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	ctx := context.Background()

	res, err := s.Open(ctx, "jobs", "")
	if err != nil || res != desktop.OpenCreated {
		t.Fatalf("Open(jobs) = %v, %v", res, err)
	}
	if res, _ := s.Open(ctx, "jobs", ""); res != desktop.OpenAlreadyOpen {
		t.Fatalf("second Open = %v", res)
	}
	if _, err := s.Open(ctx, "nope", ""); !errors.Is(err, ErrUnknownPanel) {
		t.Fatalf("Open(nope) err = %v", err)
	}
	w, ok := s.Desktop().Window("jobs")
	if !ok || w.Title != "Job Search" {
		t.Fatalf("window = %+v", w)
	}
}

func TestOpenElevatedDeniedByDefault(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)

	res, err := s.Open(context.Background(), "terminal", "")
	if err != nil || res != desktop.OpenDenied {
		t.Fatalf("Open(terminal) = %v, %v", res, err)
	}
	if s.Desktop().Len() != 0 {
		t.Fatal("denied window must not be created")
	}
	ids := visibleIDs(s)
	if len(ids) != 1 || ids[0] != "access_denied" {
		t.Fatalf("visible = %v", ids)
	}
}

func TestOpenElevatedWithPassphrase(t *testing.T) {
	cfg := offlineConfig()
	cfg.Access.Mode = "passphrase"
	cfg.Access.Passphrase = "s3cret"
	s, _ := newTestSession(t, cfg, nil)
	ctx := context.Background()

	if res, _ := s.Open(ctx, "settings", "wrong"); res != desktop.OpenDenied {
		t.Fatalf("wrong passphrase = %v", res)
	}
	if res, _ := s.Open(ctx, "settings", "s3cret"); res != desktop.OpenCreated {
		t.Fatalf("right passphrase = %v", res)
	}
}

func TestPointerRouting(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	ctx := context.Background()
	s.Open(ctx, "jobs", "")
	s.Open(ctx, "savings", "")

	// jobs at (50,50), savings at (90,90) on top. Press the uncovered strip
	// of the jobs body: it is raised, no drag.
	w, region := s.PointerDown(desktop.Point{X: 60, Y: 400})
	if w.ID != "jobs" || region != desktop.RegionBody {
		t.Fatalf("PointerDown body = %s, %v", w.ID, region)
	}
	if f, _ := s.Desktop().Focused(); f.ID != "jobs" {
		t.Fatalf("focused = %s, want jobs", f.ID)
	}
	if _, dragging := s.Drag().Active(); dragging {
		t.Fatal("body press must not start a drag")
	}

	// Header press on the part of savings jobs no longer covers starts a
	// drag and raises it.
	w, region = s.PointerDown(desktop.Point{X: 960, Y: 100})
	if w.ID != "savings" || region != desktop.RegionHeader {
		t.Fatalf("PointerDown header = %s, %v", w.ID, region)
	}
	if s.Snapshot().Dragging != "savings" || s.Snapshot().Cursor != "grabbing" {
		t.Fatalf("snapshot = %+v", s.Snapshot())
	}
	if f, _ := s.Desktop().Focused(); f.ID != "savings" {
		t.Fatalf("focused = %s, want savings", f.ID)
	}
	got, ok := s.PointerMove(desktop.Point{X: 1000, Y: 300})
	if !ok || got != (desktop.Point{X: 130, Y: 290}) {
		t.Fatalf("PointerMove = %v, %v", got, ok)
	}
	s.PointerUp()
	if _, ok := s.PointerMove(desktop.Point{X: 0, Y: 0}); ok {
		t.Fatal("move after release must be ignored")
	}

	if _, region := s.PointerDown(desktop.Point{X: 1900, Y: 1070}); region != desktop.RegionNone {
		t.Fatalf("empty press region = %v", region)
	}
}

func TestPointerDownIgnoredWhileDragging(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	ctx := context.Background()
	s.Open(ctx, "jobs", "")
	s.Open(ctx, "savings", "")

	if _, region := s.PointerDown(desktop.Point{X: 960, Y: 100}); region != desktop.RegionHeader {
		t.Fatalf("savings header press region = %v", region)
	}
	s.PointerMove(desktop.Point{X: 980, Y: 120})

	for _, p := range []desktop.Point{{X: 60, Y: 400}, {X: 60, Y: 60}} {
		if w, region := s.PointerDown(p); region != desktop.RegionNone || w.ID != "" {
			t.Fatalf("press at %v during drag = %s, %v", p, w.ID, region)
		}
	}
	if f, _ := s.Desktop().Focused(); f.ID != "savings" {
		t.Fatalf("focused = %s, want savings", f.ID)
	}
	jobs, _ := s.Desktop().Window("jobs")
	savings, _ := s.Desktop().Window("savings")
	if jobs.ZIndex >= savings.ZIndex {
		t.Fatalf("jobs z=%d raised above dragged savings z=%d", jobs.ZIndex, savings.ZIndex)
	}
	if d, ok := s.Drag().Active(); !ok || d.WindowID != "savings" {
		t.Fatalf("drag = %+v, %v", d, ok)
	}
}

func TestToggleFocus(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	ctx := context.Background()
	s.Open(ctx, "jobs", "")
	s.Open(ctx, "tasks", "")

	if !s.ToggleFocus() {
		t.Fatal("first toggle should enable focus mode")
	}
	for _, w := range s.Desktop().Windows() {
		if w.Lifecycle != desktop.LifecycleMinimized {
			t.Fatalf("%s lifecycle = %s, want minimized", w.ID, w.Lifecycle)
		}
	}
	if s.ToggleFocus() {
		t.Fatal("second toggle should disable focus mode")
	}
	ids := visibleIDs(s)
	if len(ids) != 2 || ids[0] != "focus_mode" || ids[1] != "focus_mode_off" {
		t.Fatalf("visible = %v", ids)
	}
	if s.Snapshot().FocusMode {
		t.Fatal("snapshot focus mode should be off")
	}
}

func TestRunAction(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	if _, err := s.RunAction(context.Background(), panel.ActionRequest{Action: panel.ActionJobsRefresh}); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("RunAction without backend err = %v", err)
	}

	b, srv := newBackend(t)
	b.set("POST /api/jobs/refresh", `{"message":"Found 3 new jobs"}`)
	s, _ = newTestSession(t, offlineConfig(), clientFor(srv.URL))

	res, err := s.RunAction(context.Background(), panel.ActionRequest{Action: panel.ActionJobsRefresh})
	if err != nil {
		t.Fatalf("RunAction: %v", err)
	}
	if res.Notification == "" {
		t.Fatal("expected a success notification")
	}
	if len(s.refresher.trigger) != 1 {
		t.Fatal("successful action should schedule a refresh")
	}

	// Terminal commands do not schedule a refresh.
	<-s.refresher.trigger
	if _, err := s.RunAction(context.Background(), panel.ActionRequest{Action: panel.ActionTerminalCommand, Command: "help"}); err != nil {
		t.Fatalf("terminal: %v", err)
	}
	if len(s.refresher.trigger) != 0 {
		t.Fatal("terminal command should not schedule a refresh")
	}
}

func TestReload(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)

	next := offlineConfig()
	next.Access.Mode = "allow"
	next.Panels = append(next.Panels, panel.Entry{ID: "journal", Title: "Journal", Kind: panel.KindNotes})
	if err := s.Reload(next); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := s.Lookup("journal"); !ok {
		t.Fatal("reloaded catalog should contain journal")
	}
	if res, _ := s.Open(context.Background(), "terminal", ""); res != desktop.OpenCreated {
		t.Fatalf("terminal after allow reload = %v", res)
	}

	bad := offlineConfig()
	bad.Access.Mode = "sometimes"
	if err := s.Reload(bad); err == nil {
		t.Fatal("expected error for invalid reload")
	}
}

func TestReloadKeepsInjectedChecker(t *testing.T) {
	var asked atomic.Int32
	checker := access.CheckerFunc(func(ctx context.Context, req access.Request) (bool, error) {
		asked.Add(1)
		return true, nil
	})
	s, err := New(Options{Config: offlineConfig(), Clock: clock.NewMock(), Checker: checker})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Desktop().Shutdown()

	if err := s.Reload(offlineConfig()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if res, _ := s.Open(context.Background(), "terminal", ""); res != desktop.OpenCreated {
		t.Fatalf("Open(terminal) = %v", res)
	}
	if asked.Load() != 1 {
		t.Fatalf("checker asked %d times, want 1", asked.Load())
	}
}

func TestChangesSignal(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	s.Open(context.Background(), "jobs", "")
	s.Notify(notify.Notification{Title: "x"})

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-s.Changes():
		t.Fatal("signals should be coalesced")
	default:
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New(Options{Config: offlineConfig()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(visibleIDs(s)) == 0 {
		select {
		case <-deadline:
			t.Fatal("welcome notification never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRefresherRecoversFromPanic(t *testing.T) {
	var calls atomic.Int32
	r := NewRefresher(RefresherConfig{}, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	r.Trigger()
	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("calls = %d, want 2", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestDismissNewest(t *testing.T) {
	s, _ := newTestSession(t, offlineConfig(), nil)
	s.Notify(notify.Notification{ID: "first", Title: "First"})
	s.Notify(notify.Notification{ID: "second", Title: "Second"})

	if !s.DismissNewest() {
		t.Fatal("DismissNewest = false with two notifications")
	}
	if got := visibleIDs(s); len(got) != 1 || got[0] != "first" {
		t.Fatalf("visible = %v, want [first]", got)
	}
	s.DismissNewest()
	if s.DismissNewest() {
		t.Fatal("DismissNewest on an empty queue should report false")
	}
}
