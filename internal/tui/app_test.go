package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbletea"
	"github.com/facebookgo/clock"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/config"
	"github.com/1broseidon/thriveos/internal/daemon"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/notify"
)

func newTestModel(t *testing.T, mode string, opts Options, checker access.Checker) (model, *daemon.Session, *clock.Mock) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = ""
	cfg.Access.Mode = mode
	clk := clock.NewMock()
	session, err := daemon.New(daemon.Options{Config: cfg, Clock: clk, Checker: checker})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(session.Desktop().Shutdown)

	m := newModel(context.Background(), session, opts)
	return update(t, m, tea.WindowSizeMsg{Width: 96, Height: 56}), session, clk
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func press(col, row int) tea.MouseMsg {
	return tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mustOpen(t *testing.T, s *daemon.Session, id string) {
	t.Helper()
	if res, err := s.Open(context.Background(), id, ""); err != nil || res != desktop.OpenCreated {
		t.Fatalf("Open(%s) = %s, %v", id, res, err)
	}
}

func TestIconClickOpensPanel(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)

	_, cmd := m.Update(press(3, 2))
	if cmd == nil {
		t.Fatal("icon press should return an open command")
	}
	msg, ok := cmd().(openedMsg)
	if !ok || msg.id != "dashboard" || msg.result != desktop.OpenCreated {
		t.Fatalf("open msg = %+v", msg)
	}
	if _, ok := s.Desktop().Window("dashboard"); !ok {
		t.Fatal("dashboard not open")
	}
}

func TestNumberKeyOpensPanel(t *testing.T) {
	m, _, _ := newTestModel(t, "deny", Options{}, nil)
	_, cmd := m.Update(key("2"))
	if cmd == nil {
		t.Fatal("expected open command")
	}
	if msg := cmd().(openedMsg); msg.id != "jobs" {
		t.Fatalf("opened %q, want jobs", msg.id)
	}
}

func TestHeaderDragMovesWindow(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	mustOpen(t, s, "jobs")
	m = update(t, m, changedMsg{})

	m = update(t, m, press(10, 3))
	if d, ok := s.Drag().Active(); !ok || d.WindowID != "jobs" {
		t.Fatalf("drag = %+v, %v", d, ok)
	}
	if m.snap.Dragging != "jobs" {
		t.Fatalf("snapshot dragging = %q", m.snap.Dragging)
	}

	m = update(t, m, tea.MouseMsg{X: 20, Y: 8, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	w, _ := s.Desktop().Window("jobs")
	if w.Position != (desktop.Point{X: 250, Y: 150}) {
		t.Fatalf("position = %+v, want {250 150}", w.Position)
	}

	m = update(t, m, tea.MouseMsg{X: 20, Y: 8, Action: tea.MouseActionRelease})
	if _, ok := s.Drag().Active(); ok {
		t.Fatal("drag should end on release")
	}
	update(t, m, tea.MouseMsg{X: 40, Y: 20, Action: tea.MouseActionMotion})
	if w2, _ := s.Desktop().Window("jobs"); w2.Position != w.Position {
		t.Fatalf("moved after release: %+v", w2.Position)
	}
}

func TestBodyPressRaises(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	mustOpen(t, s, "jobs")
	mustOpen(t, s, "savings")
	m = update(t, m, changedMsg{})
	if m.snap.Focused != "savings" {
		t.Fatalf("focused = %q, want savings", m.snap.Focused)
	}

	m = update(t, m, press(3, 10))
	if m.snap.Focused != "jobs" {
		t.Fatalf("focused = %q, want jobs", m.snap.Focused)
	}
	if _, ok := s.Drag().Active(); ok {
		t.Fatal("body press must not start a drag")
	}
}

func TestPressIgnoredWhileDragging(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	mustOpen(t, s, "jobs")
	mustOpen(t, s, "savings")
	if _, region := s.PointerDown(desktop.Point{X: 960, Y: 100}); region != desktop.RegionHeader {
		t.Fatalf("savings header press region = %v", region)
	}
	m = update(t, m, changedMsg{})

	m = update(t, m, press(3, 10))
	if m.snap.Focused != "savings" {
		t.Fatalf("focused = %q, want savings", m.snap.Focused)
	}
	if d, ok := s.Drag().Active(); !ok || d.WindowID != "savings" {
		t.Fatalf("drag = %+v, %v", d, ok)
	}
}

func TestHeaderButtons(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	mustOpen(t, s, "jobs")
	m = update(t, m, changedMsg{})

	update(t, m, press(42, 3))
	if w, _ := s.Desktop().Window("jobs"); w.Lifecycle != desktop.LifecycleMinimized {
		t.Fatalf("lifecycle after minimize = %s", w.Lifecycle)
	}

	s.Restore("jobs")
	m = update(t, m, changedMsg{})
	update(t, m, press(44, 3))
	if w, _ := s.Desktop().Window("jobs"); w.Lifecycle != desktop.LifecycleClosing {
		t.Fatalf("lifecycle after close = %s", w.Lifecycle)
	}
}

func TestTaskbarClicks(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	mustOpen(t, s, "jobs")
	mustOpen(t, s, "savings")
	m = update(t, m, changedMsg{})

	// jobs is the first tab and not focused: raise it.
	m = update(t, m, press(2, 55))
	if m.snap.Focused != "jobs" {
		t.Fatalf("focused = %q, want jobs", m.snap.Focused)
	}
	// Focused tab minimizes.
	m = update(t, m, press(2, 55))
	if w, _ := s.Desktop().Window("jobs"); w.Lifecycle != desktop.LifecycleMinimized {
		t.Fatalf("lifecycle = %s, want minimized", w.Lifecycle)
	}
	// Minimized tab restores.
	m = update(t, m, press(2, 55))
	if m.snap.Focused != "jobs" {
		t.Fatalf("focused after restore = %q", m.snap.Focused)
	}
}

func TestToastClickDismisses(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	s.Notify(notify.Notification{ID: "n1", Title: "Hi"})
	m = update(t, m, changedMsg{})

	m = update(t, m, press(60, 2))
	if len(m.snap.Notifications) != 0 {
		t.Fatalf("notifications = %+v", m.snap.Notifications)
	}
}

func TestKeys(t *testing.T) {
	m, s, _ := newTestModel(t, "deny", Options{}, nil)
	mustOpen(t, s, "jobs")
	m = update(t, m, changedMsg{})

	m = update(t, m, key("f"))
	if !m.snap.FocusMode {
		t.Fatal("f should enable focus mode")
	}
	if w, _ := s.Desktop().Window("jobs"); w.Lifecycle != desktop.LifecycleMinimized {
		t.Fatalf("focus mode left jobs %s", w.Lifecycle)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	for _, n := range m.snap.Notifications {
		if n.ID == "focus_mode" {
			t.Fatal("esc should dismiss the newest notification")
		}
	}

	s.Restore("jobs")
	m = update(t, m, changedMsg{})
	m = update(t, m, key("x"))
	if w, _ := s.Desktop().Window("jobs"); w.Lifecycle != desktop.LifecycleClosing {
		t.Fatalf("x left jobs %s", w.Lifecycle)
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Fatal("q should quit")
	}
}

func TestAccessModalGrants(t *testing.T) {
	broker := access.NewBroker(1)
	grant := access.NewSession(broker)
	opts := Options{Prompts: broker, Verify: access.Passphrase{Secret: "s3cret"}, Grant: grant}
	m, s, _ := newTestModel(t, "deny", opts, grant)

	results := make(chan openedMsg, 1)
	cmd := m.open("terminal")
	go func() { results <- cmd().(openedMsg) }()

	pending := <-broker.Requests()
	m = update(t, m, promptMsg(pending))
	if m.prompt == nil || !strings.Contains(m.View(), "Elevated access: Terminal") {
		t.Fatal("modal not shown")
	}

	m = update(t, m, key("nope"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompt != nil {
		t.Fatal("modal should close after enter")
	}
	if res := <-results; res.result != desktop.OpenDenied {
		t.Fatalf("wrong passphrase result = %s", res.result)
	}

	cmd = m.open("terminal")
	go func() { results <- cmd().(openedMsg) }()
	m = update(t, m, promptMsg(<-broker.Requests()))
	m = update(t, m, key("s3cret"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if res := <-results; res.result != desktop.OpenCreated {
		t.Fatalf("passphrase result = %s", res.result)
	}
	if !grant.Granted() {
		t.Fatal("grant should be cached")
	}

	update(t, m, key("L"))
	if grant.Granted() {
		t.Fatal("L should revoke the grant")
	}
	if _, ok := s.Desktop().Window("terminal"); !ok {
		t.Fatal("terminal window missing")
	}
}

func TestAccessModalEscDenies(t *testing.T) {
	broker := access.NewBroker(1)
	m, _, _ := newTestModel(t, "deny", Options{Prompts: broker}, broker)

	results := make(chan openedMsg, 1)
	cmd := m.open("settings")
	go func() { results <- cmd().(openedMsg) }()

	m = update(t, m, promptMsg(<-broker.Requests()))
	if m.View() == "" {
		t.Fatal("empty view")
	}
	m = update(t, m, tea.MouseMsg{X: 3, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if res := <-results; res.result != desktop.OpenDenied {
		t.Fatalf("result = %s, want denied", res.result)
	}
}

func TestAccessModalReportsVerifyError(t *testing.T) {
	broker := access.NewBroker(1)
	verify := access.CheckerFunc(func(context.Context, access.Request) (bool, error) {
		return true, errors.New("keyring locked")
	})
	m, _, _ := newTestModel(t, "deny", Options{Prompts: broker, Verify: verify}, broker)

	results := make(chan openedMsg, 1)
	cmd := m.open("terminal")
	go func() { results <- cmd().(openedMsg) }()
	m = update(t, m, promptMsg(<-broker.Requests()))
	m = update(t, m, key("s3cret"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if res := <-results; res.result != desktop.OpenDenied {
		t.Fatalf("result = %s, want denied", res.result)
	}
	m = update(t, m, changedMsg{})
	for _, n := range m.snap.Notifications {
		if n.ID == "access_error" && n.Severity == notify.SeverityError && n.Message == "keyring locked" {
			return
		}
	}
	t.Fatalf("notifications = %+v", m.snap.Notifications)
}

func TestTerminalCommandWithoutBackend(t *testing.T) {
	m, s, clk := newTestModel(t, "allow", Options{}, nil)
	mustOpen(t, s, "terminal")
	m = update(t, m, changedMsg{})
	if !strings.Contains(m.View(), "opening") {
		t.Fatal("an opening window should show its placeholder")
	}
	clk.Add(desktop.DefaultOpenDelay)
	m = update(t, m, changedMsg{})

	m = update(t, m, key(":"))
	if !m.typing {
		t.Fatal(": should start the command line on a focused terminal")
	}
	m = update(t, m, key("ls"))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if cmd == nil {
		t.Fatal("enter should run the command")
	}
	m = update(t, m, cmd())

	if len(m.terminal) != 2 || m.terminal[0] != "$ ls" || !strings.HasPrefix(m.terminal[1], "error: ") {
		t.Fatalf("terminal = %q", m.terminal)
	}
	found := false
	for _, n := range m.snap.Notifications {
		if n.ID == "no_backend" {
			found = true
		}
	}
	if !found {
		t.Fatalf("notifications = %+v", m.snap.Notifications)
	}
	if !strings.Contains(m.View(), "$ ls") {
		t.Fatal("terminal output not rendered")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.typing {
		t.Fatal("esc should leave the command line")
	}
}

func TestTerminalScrollback(t *testing.T) {
	var m model
	for i := 0; i < terminalScrollback+5; i++ {
		m.appendTerminal("line")
	}
	if len(m.terminal) != terminalScrollback {
		t.Fatalf("scrollback = %d", len(m.terminal))
	}
}

func TestViewBeforeSize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = ""
	s, err := daemon.New(daemon.Options{Config: cfg, Clock: clock.NewMock()})
	if err != nil {
		t.Fatal(err)
	}
	if v := newModel(context.Background(), s, Options{}).View(); v != "" {
		t.Fatalf("view before size = %q", v)
	}
}
