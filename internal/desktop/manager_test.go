package desktop

import (
	"context"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

type recordingNotifier struct {
	got []notify.Notification
}

func (r *recordingNotifier) Enqueue(n notify.Notification) notify.Notification {
	r.got = append(r.got, n)
	return n
}

func newTestManager(t *testing.T, checker access.Checker) (*Manager, *clock.Mock, *recordingNotifier) {
	t.Helper()
	mock := clock.NewMock()
	rec := &recordingNotifier{}
	m := NewManager(mock, DefaultOptions(), checker, rec)
	t.Cleanup(m.Shutdown)
	return m, mock, rec
}

func open(t *testing.T, m *Manager, id string, kind panel.Kind) OpenResult {
	t.Helper()
	return m.Open(context.Background(), OpenRequest{ID: id, Title: id, Kind: kind})
}

func mustWindow(t *testing.T, m *Manager, id string) Window {
	t.Helper()
	w, ok := m.Window(id)
	if !ok {
		t.Fatalf("window %q not found", id)
	}
	return w
}

func TestLifecycleScenario(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)

	if got := open(t, m, "jobs", panel.KindJobs); got != OpenCreated {
		t.Fatalf("Open = %v, want created", got)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	if w := mustWindow(t, m, "jobs"); w.Lifecycle != LifecycleOpening {
		t.Fatalf("lifecycle = %v, want opening", w.Lifecycle)
	}

	mock.Add(DefaultOpenDelay + time.Millisecond)
	if w := mustWindow(t, m, "jobs"); w.Lifecycle != LifecycleActive {
		t.Fatalf("lifecycle after open delay = %v, want active", w.Lifecycle)
	}

	if !m.Minimize("jobs") {
		t.Fatal("Minimize returned false")
	}
	w := mustWindow(t, m, "jobs")
	if w.Lifecycle != LifecycleMinimized {
		t.Fatalf("lifecycle = %v, want minimized", w.Lifecycle)
	}
	if w.ContentVisible() {
		t.Fatal("minimized window must not render content")
	}

	m.Minimize("jobs")
	if w := mustWindow(t, m, "jobs"); w.Lifecycle != LifecycleActive {
		t.Fatalf("lifecycle after second minimize = %v, want active", w.Lifecycle)
	}
}

func TestOpen_DuplicateIsNoOp(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)

	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "savings", panel.KindSavings)
	before := mustWindow(t, m, "jobs")

	for i := 0; i < 5; i++ {
		if got := open(t, m, "jobs", panel.KindJobs); got != OpenAlreadyOpen {
			t.Fatalf("Open #%d = %v, want already_open", i, got)
		}
		mock.Add(100 * time.Millisecond)
	}

	count := 0
	for _, w := range m.Windows() {
		if w.ID == "jobs" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("found %d jobs windows, want 1", count)
	}
	after := mustWindow(t, m, "jobs")
	if after.ZIndex != before.ZIndex {
		t.Fatalf("duplicate open re-raised window: z %d -> %d", before.ZIndex, after.ZIndex)
	}
}

func TestOpen_IgnoresInvalidRequests(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	if got := m.Open(context.Background(), OpenRequest{Kind: panel.KindJobs}); got != OpenIgnored {
		t.Fatalf("empty id: Open = %v, want ignored", got)
	}
	if got := m.Open(context.Background(), OpenRequest{ID: "x", Kind: panel.KindUnknown}); got != OpenIgnored {
		t.Fatalf("unknown kind: Open = %v, want ignored", got)
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d, want 0", m.Len())
	}
}

func TestOpen_CascadesAndStacks(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "savings", panel.KindSavings)
	open(t, m, "tasks", panel.KindTasks)

	wantPos := []Point{{50, 50}, {90, 90}, {130, 130}}
	wantZ := []int{1000, 1001, 1002}
	for i, w := range m.Windows() {
		if w.Position != wantPos[i] {
			t.Errorf("%s position = %+v, want %+v", w.ID, w.Position, wantPos[i])
		}
		if w.ZIndex != wantZ[i] {
			t.Errorf("%s z = %d, want %d", w.ID, w.ZIndex, wantZ[i])
		}
		if w.Size != (Size{Width: DefaultWidth, Height: DefaultHeight}) {
			t.Errorf("%s size = %+v, want default", w.ID, w.Size)
		}
	}
}

func TestZOrderScenario(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "savings", panel.KindSavings)

	jobs, savings := mustWindow(t, m, "jobs"), mustWindow(t, m, "savings")
	if savings.ZIndex <= jobs.ZIndex {
		t.Fatalf("savings z %d should exceed jobs z %d", savings.ZIndex, jobs.ZIndex)
	}

	m.BringToFront("jobs")
	jobs, savings = mustWindow(t, m, "jobs"), mustWindow(t, m, "savings")
	if jobs.ZIndex <= savings.ZIndex {
		t.Fatalf("jobs z %d should exceed savings z %d", jobs.ZIndex, savings.ZIndex)
	}
}

func TestBringToFront_AlwaysStrictMax(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		open(t, m, id, panel.KindNotes)
	}

	order := []string{"c", "a", "a", "d", "b", "c"}
	for _, id := range order {
		m.BringToFront(id)
		target := mustWindow(t, m, id)
		for _, w := range m.Windows() {
			if w.ID != id && w.ZIndex >= target.ZIndex {
				t.Fatalf("after BringToFront(%s): %s z %d >= %d", id, w.ID, w.ZIndex, target.ZIndex)
			}
		}
	}
}

func TestOpen_NewWindowStartsOnTopAfterRaises(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	open(t, m, "a", panel.KindNotes)
	open(t, m, "b", panel.KindNotes)
	for i := 0; i < 3; i++ {
		m.BringToFront("a")
		m.BringToFront("b")
	}

	open(t, m, "c", panel.KindNotes)
	c := mustWindow(t, m, "c")
	for _, w := range m.Windows() {
		if w.ID != "c" && w.ZIndex >= c.ZIndex {
			t.Fatalf("new window z %d not above %s z %d", c.ZIndex, w.ID, w.ZIndex)
		}
	}
}

func TestClose_RemovesAfterDelay(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)
	mock.Add(DefaultOpenDelay)

	if !m.Close("jobs") {
		t.Fatal("Close returned false")
	}
	if w := mustWindow(t, m, "jobs"); w.Lifecycle != LifecycleClosing {
		t.Fatalf("lifecycle = %v, want closing", w.Lifecycle)
	}
	if m.Minimize("jobs") {
		t.Fatal("Minimize of closing window should be a no-op")
	}
	if m.Close("jobs") {
		t.Fatal("second Close should be a no-op")
	}

	mock.Add(DefaultCloseDelay)
	if _, ok := m.Window("jobs"); ok {
		t.Fatal("window still present after close delay")
	}
	if m.Minimize("jobs") {
		t.Fatal("Minimize after removal should be a no-op")
	}
	if _, ok := m.Reposition("jobs", Point{X: 10, Y: 10}); ok {
		t.Fatal("Reposition after removal should be a no-op")
	}
	if m.BringToFront("jobs") {
		t.Fatal("BringToFront after removal should be a no-op")
	}
}

func TestClose_InterruptsOpening(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)

	mock.Add(100 * time.Millisecond)
	if !m.Close("jobs") {
		t.Fatal("Close during opening returned false")
	}
	if w := mustWindow(t, m, "jobs"); w.Lifecycle != LifecycleClosing {
		t.Fatalf("lifecycle = %v, want closing", w.Lifecycle)
	}

	// The original opening deadline passes; the window must not flip back
	// to active.
	mock.Add(250 * time.Millisecond)
	if w, ok := m.Window("jobs"); ok && w.Lifecycle != LifecycleClosing {
		t.Fatalf("lifecycle = %v, want closing", w.Lifecycle)
	}

	mock.Add(DefaultCloseDelay)
	if _, ok := m.Window("jobs"); ok {
		t.Fatal("window still present")
	}
}

func TestOpen_DuringCloseRevivesWindow(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)
	mock.Add(DefaultOpenDelay)

	m.Close("jobs")
	mock.Add(100 * time.Millisecond)
	if got := open(t, m, "jobs", panel.KindJobs); got != OpenRevived {
		t.Fatalf("Open during close = %v, want revived", got)
	}

	mock.Add(DefaultCloseDelay + DefaultOpenDelay)
	w, ok := m.Window("jobs")
	if !ok {
		t.Fatal("revived window was removed by the stale close deadline")
	}
	if w.Lifecycle != LifecycleActive {
		t.Fatalf("lifecycle = %v, want active", w.Lifecycle)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}

func TestMinimize_DuringOpening(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)

	m.Minimize("jobs")
	mock.Add(time.Second)
	if w := mustWindow(t, m, "jobs"); w.Lifecycle != LifecycleMinimized {
		t.Fatalf("lifecycle = %v, want minimized", w.Lifecycle)
	}
}

func TestRestore_RaisesAndUnminimizes(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "savings", panel.KindSavings)
	mock.Add(DefaultOpenDelay)

	m.Minimize("jobs")
	if !m.Restore("jobs") {
		t.Fatal("Restore returned false")
	}
	jobs, savings := mustWindow(t, m, "jobs"), mustWindow(t, m, "savings")
	if jobs.Lifecycle != LifecycleActive {
		t.Fatalf("lifecycle = %v, want active", jobs.Lifecycle)
	}
	if jobs.ZIndex <= savings.ZIndex {
		t.Fatalf("restored window z %d should exceed %d", jobs.ZIndex, savings.ZIndex)
	}
	if m.Restore("missing") {
		t.Fatal("Restore of unknown id should be a no-op")
	}
}

func TestMinimizeAll(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "a", panel.KindNotes)
	open(t, m, "b", panel.KindNotes)
	mock.Add(DefaultOpenDelay)
	open(t, m, "c", panel.KindNotes)
	m.Close("a")

	if got := m.MinimizeAll(); got != 2 {
		t.Fatalf("MinimizeAll = %d, want 2", got)
	}
	if _, ok := m.Focused(); ok {
		t.Fatal("expected no focused window after MinimizeAll")
	}
}

func TestReposition_Clamps(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)

	tests := []struct {
		in   Point
		want Point
	}{
		{Point{X: 200, Y: 300}, Point{X: 200, Y: 300}},
		{Point{X: -500, Y: -20}, Point{X: 0, Y: 0}},
		{Point{X: 1e6, Y: 1e6}, Point{X: DefaultViewportW - DefaultMinVisibleW, Y: DefaultViewportH - DefaultMinVisibleH}},
		{Point{X: -1e6, Y: 1e6}, Point{X: 0, Y: DefaultViewportH - DefaultMinVisibleH}},
	}
	for _, tt := range tests {
		got, ok := m.Reposition("jobs", tt.in)
		if !ok {
			t.Fatalf("Reposition(%+v) returned false", tt.in)
		}
		if got != tt.want {
			t.Fatalf("Reposition(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestClamp_TinyViewport(t *testing.T) {
	got := Clamp(Point{X: 50, Y: 50}, Size{Width: 100, Height: 100}, Size{Width: 300, Height: 200})
	if got != (Point{}) {
		t.Fatalf("Clamp = %+v, want origin", got)
	}
}

func TestSetViewport_ReclampsWindows(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)
	m.Reposition("jobs", Point{X: 1500, Y: 800})

	m.SetViewport(Size{Width: 1000, Height: 700})
	w := mustWindow(t, m, "jobs")
	if w.Position != (Point{X: 700, Y: 500}) {
		t.Fatalf("position = %+v, want {700 500}", w.Position)
	}
}

func TestGrab_RaisesAndReturnsOrigin(t *testing.T) {
	m, mock, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "savings", panel.KindSavings)
	mock.Add(DefaultOpenDelay)

	pos, ok := m.Grab("jobs")
	if !ok {
		t.Fatal("Grab returned false")
	}
	if pos != (Point{X: 50, Y: 50}) {
		t.Fatalf("Grab origin = %+v", pos)
	}
	if mustWindow(t, m, "jobs").ZIndex <= mustWindow(t, m, "savings").ZIndex {
		t.Fatal("Grab did not raise the window")
	}

	m.Minimize("savings")
	if _, ok := m.Grab("savings"); ok {
		t.Fatal("minimized window must not be grabbable")
	}
}

func TestHitTest(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "savings", panel.KindSavings)

	// savings (90,90) overlaps jobs (50,50) and is on top.
	if w, region := m.HitTest(Point{X: 100, Y: 100}); w.ID != "savings" || region != RegionHeader {
		t.Fatalf("HitTest = %s/%v, want savings/header", w.ID, region)
	}
	if w, region := m.HitTest(Point{X: 60, Y: 60}); w.ID != "jobs" || region != RegionHeader {
		t.Fatalf("HitTest = %s/%v, want jobs/header", w.ID, region)
	}
	if w, region := m.HitTest(Point{X: 300, Y: 400}); w.ID != "savings" || region != RegionBody {
		t.Fatalf("HitTest = %s/%v, want savings/body", w.ID, region)
	}
	if _, region := m.HitTest(Point{X: 5, Y: 5}); region != RegionNone {
		t.Fatalf("HitTest on desktop = %v, want none", region)
	}

	m.Minimize("savings")
	if w, _ := m.HitTest(Point{X: 100, Y: 100}); w.ID != "jobs" {
		t.Fatalf("minimized window hit: %s", w.ID)
	}
}

func TestOpen_ElevatedDenied(t *testing.T) {
	m, _, rec := newTestManager(t, access.Static(false))

	got := m.Open(context.Background(), OpenRequest{ID: "terminal", Title: "Terminal", Kind: panel.KindTerminal, Elevated: true})
	if got != OpenDenied {
		t.Fatalf("Open = %v, want denied", got)
	}
	if m.Len() != 0 {
		t.Fatalf("denied open created a window")
	}
	if len(rec.got) != 1 || rec.got[0].Severity != notify.SeverityError {
		t.Fatalf("expected one error notification, got %+v", rec.got)
	}
}

func TestOpen_ElevatedWithoutCheckerDenied(t *testing.T) {
	m, _, rec := newTestManager(t, nil)
	got := m.Open(context.Background(), OpenRequest{ID: "settings", Kind: panel.KindSettings, Elevated: true})
	if got != OpenDenied || len(rec.got) != 1 {
		t.Fatalf("Open = %v, notifications = %d; want denied, 1", got, len(rec.got))
	}
}

func TestOpen_ElevatedGranted(t *testing.T) {
	var seen access.Request
	checker := access.CheckerFunc(func(_ context.Context, req access.Request) (bool, error) {
		seen = req
		return req.Credential == "letmein", nil
	})
	m, _, rec := newTestManager(t, checker)

	got := m.Open(context.Background(), OpenRequest{
		ID: "terminal", Title: "Terminal", Kind: panel.KindTerminal, Elevated: true, Credential: "letmein",
	})
	if got != OpenCreated {
		t.Fatalf("Open = %v, want created", got)
	}
	if seen.WindowID != "terminal" {
		t.Fatalf("checker saw %+v", seen)
	}
	if len(rec.got) != 0 {
		t.Fatalf("unexpected notifications: %+v", rec.got)
	}
	if w := mustWindow(t, m, "terminal"); !w.Elevated {
		t.Fatal("window should be flagged elevated")
	}
}

func TestOnChange(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	calls := 0
	m.OnChange = func() { calls++ }

	open(t, m, "jobs", panel.KindJobs)
	open(t, m, "jobs", panel.KindJobs)
	m.Close("missing")
	m.Minimize("jobs")
	m.Reposition("jobs", Point{X: 10, Y: 10})

	if calls != 3 {
		t.Fatalf("OnChange called %d times, want 3", calls)
	}
}
