package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/daemon"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

// terminalScrollback is how many lines of command output the terminal
// panel keeps.
const terminalScrollback = 50

type (
	changedMsg   struct{}
	tickMsg      time.Time
	promptMsg    access.Pending
	refreshedMsg struct{ err error }
	openedMsg    struct {
		id     string
		result desktop.OpenResult
		err    error
	}
	actionMsg struct {
		req panel.ActionRequest
		res panel.ActionResult
		err error
	}
)

// model is the root bubbletea model: a view over one daemon.Session.
type model struct {
	ctx     context.Context
	session *daemon.Session
	opts    Options

	width  int
	height int

	snap    daemon.Snapshot
	stacked []desktop.Window

	// prompt is the access request the modal is answering.
	prompt     *access.Pending
	passphrase textinput.Model

	// typing routes keys to the terminal command line.
	typing   bool
	command  textinput.Model
	terminal []string
}

func newModel(ctx context.Context, session *daemon.Session, opts Options) model {
	pass := textinput.New()
	pass.Placeholder = "passphrase"
	pass.EchoMode = textinput.EchoPassword
	pass.CharLimit = 128

	cmd := textinput.New()
	cmd.Prompt = "$ "
	cmd.Placeholder = "help"
	cmd.CharLimit = 256

	m := model{
		ctx:        ctx,
		session:    session,
		opts:       opts,
		passphrase: pass,
		command:    cmd,
	}
	m.sync()
	return m
}

func (m *model) sync() {
	m.snap = m.session.Snapshot()
	m.stacked = m.session.Desktop().Stacked()
}

func (m model) layout() layout {
	return layout{cols: m.width, rows: m.height, viewport: m.snap.Viewport}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), tick(), m.waitForPrompt())
}

func (m model) waitForChange() tea.Cmd {
	changes, ctx := m.session.Changes(), m.ctx
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m model) waitForPrompt() tea.Cmd {
	if m.opts.Prompts == nil {
		return nil
	}
	requests, ctx := m.opts.Prompts.Requests(), m.ctx
	return func() tea.Msg {
		select {
		case p := <-requests:
			return promptMsg(p)
		case <-ctx.Done():
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.command.Width = max(10, msg.Width-4)
		m.sync()
		return m, nil

	case changedMsg:
		m.sync()
		return m, m.waitForChange()

	case tickMsg:
		m.sync()
		return m, tick()

	case refreshedMsg, openedMsg:
		m.sync()
		return m, nil

	case promptMsg:
		p := access.Pending(msg)
		m.prompt = &p
		m.passphrase.Reset()
		m.passphrase.Focus()
		return m, textinput.Blink

	case actionMsg:
		m.actionDone(msg)
		m.sync()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.prompt != nil {
			return m.updatePrompt(msg)
		}
		if m.typing {
			return m.updateCommand(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.prompt != nil {
			return m, nil
		}
		cmd := m.handleMouse(msg)
		m.sync()
		return m, cmd
	}

	var cmd tea.Cmd
	switch {
	case m.prompt != nil:
		m.passphrase, cmd = m.passphrase.Update(msg)
	case m.typing:
		m.command, cmd = m.command.Update(msg)
	}
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q":
		return m, tea.Quit
	case "f":
		m.session.ToggleFocus()
	case "r":
		return m, m.refresh()
	case "x":
		if w, ok := m.focused(); ok {
			m.session.Close(w.ID)
		}
	case "m":
		if w, ok := m.focused(); ok {
			m.session.Minimize(w.ID)
		}
	case "tab":
		m.cycle()
	case "esc":
		m.session.DismissNewest()
	case "u":
		return m, m.action(panel.ActionRequest{Action: panel.ActionJobsRefresh})
	case "L":
		if m.opts.Grant != nil {
			m.opts.Grant.Revoke()
			m.session.Notify(notify.Notification{
				ID:       "access_locked",
				Severity: notify.SeverityInfo,
				Title:    "Elevated access locked",
				Message:  "Elevated panels will ask again.",
			})
		}
	case ":":
		if w, ok := m.focused(); ok && w.Kind == panel.KindTerminal {
			m.typing = true
			m.command.Reset()
			m.command.Focus()
			return m, textinput.Blink
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			catalog := m.session.Catalog()
			if i := int(key[0] - '1'); i < len(catalog) {
				return m, m.open(catalog[i].ID)
			}
		}
		return m, nil
	}
	m.sync()
	return m, nil
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		ok := true
		if m.opts.Verify != nil {
			req := m.prompt.Request
			req.Credential = m.passphrase.Value()
			var err error
			ok, err = m.opts.Verify.Confirm(m.ctx, req)
			if err != nil {
				ok = false
				m.session.Notify(notify.Notification{
					ID:       "access_error",
					Severity: notify.SeverityError,
					Title:    "Access check failed",
					Message:  err.Error(),
				})
			}
		}
		return m.answer(ok)
	case "esc":
		return m.answer(false)
	}
	var cmd tea.Cmd
	m.passphrase, cmd = m.passphrase.Update(msg)
	return m, cmd
}

func (m model) answer(ok bool) (tea.Model, tea.Cmd) {
	m.opts.Prompts.Respond(m.prompt.ID, ok)
	m.prompt = nil
	m.passphrase.Reset()
	m.passphrase.Blur()
	return m, m.waitForPrompt()
}

func (m model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		line := strings.TrimSpace(m.command.Value())
		m.command.Reset()
		if line == "" {
			return m, nil
		}
		m.appendTerminal("$ " + line)
		return m, m.action(panel.ActionRequest{Action: panel.ActionTerminalCommand, Command: line})
	case "esc":
		m.typing = false
		m.command.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.command, cmd = m.command.Update(msg)
	return m, cmd
}

// handleMouse routes a pointer event. Layers are tested top down: bars,
// notifications, windows, then desktop icons.
func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	l := m.layout()
	if !l.valid() {
		return nil
	}
	col, row := msg.X, msg.Y

	switch msg.Action {
	case tea.MouseActionMotion:
		if _, dragging := m.session.Drag().Active(); dragging {
			m.session.PointerMove(l.pixel(col, row))
		}
		return nil
	case tea.MouseActionRelease:
		m.session.PointerUp()
		return nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	if _, dragging := m.session.Drag().Active(); dragging {
		return nil
	}

	if row == l.rows-1 {
		for _, spot := range taskbar(l, m.snap.Windows) {
			if spot.rect.contains(col, row) {
				m.tabClicked(spot.window)
				break
			}
		}
		return nil
	}
	for _, spot := range toasts(l, m.snap.Notifications) {
		if spot.rect.contains(col, row) {
			m.session.Dismiss(spot.note.ID)
			return nil
		}
	}

	w, region := hitWindow(l, m.stacked, col, row)
	switch region {
	case desktop.RegionHeader:
		switch headerButton(l.frame(w), col) {
		case "close":
			m.session.Close(w.ID)
		case "minimize":
			m.session.Minimize(w.ID)
		default:
			m.session.Drag().PointerDown(w.ID, region, l.pixel(col, row))
		}
		return nil
	case desktop.RegionBody:
		m.session.BringToFront(w.ID)
		return nil
	}

	for _, spot := range icons(l, m.session.Catalog()) {
		if spot.rect.contains(col, row) {
			return m.open(spot.entry.ID)
		}
	}
	return nil
}

// tabClicked restores a minimized window, minimizes the focused one and
// raises any other.
func (m *model) tabClicked(w desktop.Window) {
	switch {
	case w.Lifecycle == desktop.LifecycleMinimized:
		m.session.Restore(w.ID)
	case w.ID == m.snap.Focused:
		m.session.Minimize(w.ID)
	default:
		m.session.BringToFront(w.ID)
	}
}

// cycle raises the lowest visible window.
func (m *model) cycle() {
	for _, w := range m.stacked {
		if w.ContentVisible() && w.Lifecycle != desktop.LifecycleClosing && w.ID != m.snap.Focused {
			m.session.BringToFront(w.ID)
			return
		}
	}
}

func (m model) focused() (desktop.Window, bool) {
	for _, w := range m.stacked {
		if w.ID == m.snap.Focused {
			return w, true
		}
	}
	return desktop.Window{}, false
}

// open runs Open off the UI goroutine; elevated panels may block on the
// access modal.
func (m model) open(id string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		res, err := session.Open(ctx, id, "")
		return openedMsg{id: id, result: res, err: err}
	}
}

func (m model) refresh() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: session.Refresh(ctx)}
	}
}

func (m model) action(req panel.ActionRequest) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		res, err := session.RunAction(ctx, req)
		return actionMsg{req: req, res: res, err: err}
	}
}

func (m *model) actionDone(msg actionMsg) {
	if errors.Is(msg.err, daemon.ErrNoBackend) {
		m.session.Notify(notify.Notification{
			ID:       "no_backend",
			Severity: notify.SeverityWarning,
			Title:    "Backend unavailable",
			Message:  "Set backend.base_url to use " + string(msg.req.Action) + ".",
		})
	}
	if msg.req.Action != panel.ActionTerminalCommand {
		return
	}
	if msg.err != nil {
		m.appendTerminal("error: " + msg.err.Error())
		return
	}
	m.appendTerminal(msg.res.Output...)
}

func (m *model) appendTerminal(lines ...string) {
	m.terminal = append(m.terminal, lines...)
	if over := len(m.terminal) - terminalScrollback; over > 0 {
		m.terminal = append([]string(nil), m.terminal[over:]...)
	}
}

// View implements tea.Model.
func (m model) View() string {
	l := m.layout()
	if !l.valid() {
		return ""
	}
	c := paintScene(scene{
		layout:   l,
		snap:     m.snap,
		stacked:  m.stacked,
		catalog:  m.session.Catalog(),
		data:     m.session.Data(),
		terminal: m.terminal,
	})
	lines := strings.Split(c.render(), "\n")

	if m.prompt != nil {
		modal := lipgloss.Place(l.cols, l.deskRows(), lipgloss.Center, lipgloss.Center, m.promptBox(l.cols))
		lines = append([]string{lines[0]}, append(strings.Split(modal, "\n"), lines[len(lines)-1])...)
	}
	if m.typing {
		bar := lipgloss.NewStyle().
			Width(l.cols).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
		lines[len(lines)-1] = bar.Render(m.command.View())
	}
	return strings.Join(lines, "\n")
}

func (m model) promptBox(areaW int) string {
	boxW := min(60, max(30, areaW-8))

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	footStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	title := titleStyle.Render("Elevated access: " + m.prompt.Request.Title)
	body := "Confirm to open this panel."
	field := ""
	if m.opts.Verify != nil {
		body = "Enter the passphrase to open this panel."
		field = "\n" + m.passphrase.View() + "\n"
	}
	footer := footStyle.Render("enter: confirm  esc: deny")
	content := title + "\n\n" + body + "\n" + field + "\n" + footer

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(1, 2).
		Width(boxW).
		Render(content)
}
