package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/1broseidon/thriveos/internal/daemon"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

// scene is everything painted in one frame.
type scene struct {
	layout   layout
	snap     daemon.Snapshot
	stacked  []desktop.Window
	catalog  []panel.Entry
	data     panel.Data
	terminal []string
}

func paintScene(s scene) *canvas {
	l := s.layout
	c := newCanvas(l.cols, l.rows)

	c.fill(l.desk(), '·', paintDesk)
	for _, spot := range icons(l, s.catalog) {
		p := paintIcon
		label := "▣ " + spot.entry.Title
		if spot.entry.Elevated {
			p = paintIconElevated
			label += " *"
		}
		c.text(spot.rect.X, spot.rect.Y, label, spot.rect.W, p)
	}

	for _, w := range s.stacked {
		paintWindow(c, s, w)
	}
	for _, spot := range toasts(l, s.snap.Notifications) {
		paintToast(c, spot, s.snap)
	}

	paintMenuBar(c, s.snap)
	paintTaskbar(c, l, s.snap)
	return c
}

func paintWindow(c *canvas, s scene, w desktop.Window) {
	if !w.ContentVisible() {
		return
	}
	f := s.layout.frame(w)
	focused := w.ID == s.snap.Focused

	if w.Lifecycle == desktop.LifecycleClosing {
		c.fill(f, ' ', paintDim)
		c.box(f, paintDim)
		return
	}

	c.fill(f, ' ', paintBody)
	frame, title := paintFrame, paintTitle
	if focused {
		frame, title = paintFrameFocused, paintTitleFocused
	}
	c.box(f, frame)
	c.text(f.X+2, f.Y, " "+w.Title+" ", f.W-8, title)
	c.set(f.right()-4, f.Y, '_', frame)
	c.set(f.right()-2, f.Y, 'x', frame)

	var lines []string
	switch {
	case w.Lifecycle == desktop.LifecycleOpening:
		lines = []string{"opening..."}
	case w.Kind == panel.KindTerminal:
		lines = append(panel.Render(w.Kind, s.data), s.terminal...)
	default:
		lines = panel.Render(w.Kind, s.data)
	}

	inner := f.H - 2
	if len(lines) > inner {
		lines = lines[len(lines)-inner:]
	}
	for i, line := range lines {
		c.text(f.X+2, f.Y+1+i, line, f.W-4, paintBody)
	}
}

func severityPaint(sev notify.Severity) paint {
	switch sev {
	case notify.SeveritySuccess:
		return paintSuccess
	case notify.SeverityWarning:
		return paintWarning
	case notify.SeverityError:
		return paintError
	case notify.SeverityAchievement:
		return paintAchievement
	default:
		return paintInfo
	}
}

func paintToast(c *canvas, spot toastSpot, snap daemon.Snapshot) {
	r, n := spot.rect, spot.note
	p := severityPaint(n.Severity)
	c.fill(r, ' ', paintBody)
	c.box(r, p)
	c.text(r.X+2, r.Y, " "+n.Title+" ", r.W-4, p)

	now := snap.Now
	if now.Before(n.CreatedAt) {
		now = n.CreatedAt
	}
	age := humanize.RelTime(n.CreatedAt, now, "ago", "from now")
	msg := n.Message
	if msg == "" {
		msg = string(n.Severity)
	}
	c.text(r.X+2, r.Y+1, msg, r.W-4, paintBody)
	c.text(r.right()-1-len(age)-1, r.bottom(), " "+age, len(age)+1, paintDim)
}

func paintMenuBar(c *canvas, snap daemon.Snapshot) {
	c.fill(rect{X: 0, Y: 0, W: c.w, H: 1}, ' ', paintBar)
	c.text(1, 0, "thriveos", c.w-1, paintBar)

	var parts []string
	if snap.Dragging != "" {
		parts = append(parts, "moving "+snap.Dragging)
	}
	if snap.FocusMode {
		parts = append(parts, "focus mode")
	}
	parts = append(parts, backendLabel(snap.Backend))
	if !snap.Now.IsZero() {
		parts = append(parts, snap.Now.Format("Mon 15:04"))
	}
	status := strings.Join(parts, "  ")
	c.text(max(10, c.w-len([]rune(status))-1), 0, status, c.w, paintBar)
}

func backendLabel(b daemon.BackendStatus) string {
	switch {
	case !b.Configured:
		return "local"
	case b.Online:
		return "online"
	case b.LastError != "":
		return "offline"
	default:
		return "connecting"
	}
}

func paintTaskbar(c *canvas, l layout, snap daemon.Snapshot) {
	c.fill(rect{X: 0, Y: l.rows - 1, W: c.w, H: 1}, ' ', paintBar)
	spots := taskbar(l, snap.Windows)
	for _, spot := range spots {
		p := paintTab
		switch {
		case spot.window.Lifecycle == desktop.LifecycleMinimized:
			p = paintTabMinimized
		case spot.window.ID == snap.Focused:
			p = paintTabActive
		}
		c.fill(spot.rect, ' ', p)
		c.text(spot.rect.X+1, spot.rect.Y, spot.window.Title, spot.rect.W-2, p)
	}
	if hidden := len(snap.Windows) - len(spots); hidden > 0 {
		more := fmt.Sprintf("+%d", hidden)
		c.text(c.w-len(more)-1, l.rows-1, more, len(more), paintBar)
	}
}
