package tui

import (
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

const (
	minFrameW  = 14
	minFrameH  = 3
	iconWidth  = 18
	toastWidth = 40
	toastRows  = 3
	tabWidth   = 20
)

// rect is a cell rectangle on the terminal screen.
type rect struct {
	X, Y, W, H int
}

func (r rect) contains(col, row int) bool {
	return col >= r.X && col < r.X+r.W && row >= r.Y && row < r.Y+r.H
}

func (r rect) right() int  { return r.X + r.W - 1 }
func (r rect) bottom() int { return r.Y + r.H - 1 }

// layout maps the pixel viewport onto the terminal. Row 0 is the menu bar
// and the last row is the taskbar; the desktop fills the rows between.
type layout struct {
	cols, rows int
	viewport   desktop.Size
}

func (l layout) deskRows() int {
	return max(1, l.rows-2)
}

func (l layout) valid() bool {
	return l.cols > 0 && l.rows > 2 && l.viewport.Width > 0 && l.viewport.Height > 0
}

// cell converts a viewport point to a screen cell.
func (l layout) cell(p desktop.Point) (int, int) {
	col := p.X * l.cols / l.viewport.Width
	row := 1 + p.Y*l.deskRows()/l.viewport.Height
	return col, row
}

// pixel converts a screen cell back to the viewport point at its top-left
// corner.
func (l layout) pixel(col, row int) desktop.Point {
	return desktop.Point{
		X: col * l.viewport.Width / l.cols,
		Y: (row - 1) * l.viewport.Height / l.deskRows(),
	}
}

// frame returns the cells a window occupies, including its border. The top
// border row doubles as the header.
func (l layout) frame(w desktop.Window) rect {
	x1, y1 := l.cell(w.Position)
	x2, y2 := l.cell(w.Position.Add(desktop.Point{X: w.Size.Width, Y: w.Size.Height}))
	return rect{X: x1, Y: y1, W: max(minFrameW, x2-x1), H: max(minFrameH, y2-y1)}
}

func (l layout) desk() rect {
	return rect{X: 0, Y: 1, W: l.cols, H: l.deskRows()}
}

// headerButton names the control under col on a window header, if any.
func headerButton(f rect, col int) string {
	switch col {
	case f.right() - 2:
		return "close"
	case f.right() - 4:
		return "minimize"
	}
	return ""
}

// hitWindow finds the topmost drawn window under the cell. stacked is in
// painting order, bottom first.
func hitWindow(l layout, stacked []desktop.Window, col, row int) (desktop.Window, desktop.Region) {
	for i := len(stacked) - 1; i >= 0; i-- {
		w := stacked[i]
		if !w.ContentVisible() || w.Lifecycle == desktop.LifecycleClosing {
			continue
		}
		f := l.frame(w)
		if !f.contains(col, row) {
			continue
		}
		if row == f.Y {
			return w, desktop.RegionHeader
		}
		return w, desktop.RegionBody
	}
	return desktop.Window{}, desktop.RegionNone
}

type iconSpot struct {
	entry panel.Entry
	rect  rect
}

// icons lays the catalog out as a column on the left of the desktop, one
// icon every other row, dropping what does not fit.
func icons(l layout, catalog []panel.Entry) []iconSpot {
	out := make([]iconSpot, 0, len(catalog))
	for i, e := range catalog {
		row := 2 + i*2
		if row >= l.rows-1 {
			break
		}
		out = append(out, iconSpot{entry: e, rect: rect{X: 1, Y: row, W: min(iconWidth, l.cols-1), H: 1}})
	}
	return out
}

type tabSpot struct {
	window desktop.Window
	rect   rect
}

// taskbar places one button per window in opening order along the bottom
// row.
func taskbar(l layout, windows []desktop.Window) []tabSpot {
	out := make([]tabSpot, 0, len(windows))
	x := 1
	for _, w := range windows {
		if x+tabWidth > l.cols-4 {
			break
		}
		out = append(out, tabSpot{window: w, rect: rect{X: x, Y: l.rows - 1, W: tabWidth, H: 1}})
		x += tabWidth + 1
	}
	return out
}

type toastSpot struct {
	note notify.Notification
	rect rect
}

// toasts stacks notifications down the right edge of the desktop, newest
// on top.
func toasts(l layout, notes []notify.Notification) []toastSpot {
	w := min(toastWidth, l.cols/2)
	if w < minFrameW {
		return nil
	}
	out := make([]toastSpot, 0, len(notes))
	row := 1
	for i := len(notes) - 1; i >= 0; i-- {
		if row+toastRows > l.rows-1 {
			break
		}
		out = append(out, toastSpot{note: notes[i], rect: rect{X: l.cols - w - 1, Y: row, W: w, H: toastRows}})
		row += toastRows
	}
	return out
}
