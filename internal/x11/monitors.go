package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

func (m Monitor) contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}

	return monitors, nil
}

// GetActiveMonitor returns the monitor under the focused window, falling
// back to the one under the pointer and then the first one.
func (c *Connection) GetActiveMonitor() (Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return Monitor{}, err
	}
	if len(monitors) == 0 {
		return Monitor{}, fmt.Errorf("no monitors found")
	}

	if win, err := ewmh.ActiveWindowGet(c.XUtil); err == nil && win != 0 {
		if x, y, ok := c.windowCenter(win); ok {
			if m, ok := pick(monitors, x, y); ok {
				return m, nil
			}
		}
	}
	if p, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		if m, ok := pick(monitors, int(p.RootX), int(p.RootY)); ok {
			return m, nil
		}
	}
	return monitors[0], nil
}

// UsableArea shrinks m by the dock struts that overlap it. Without docks it
// falls back to the EWMH work area of the current desktop.
func (c *Connection) UsableArea(m Monitor) Monitor {
	if area, ok := c.strutArea(m); ok {
		return area
	}

	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return m
	}
	idx := 0
	if cur, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(cur) < len(workArea) {
		idx = int(cur)
	}
	wa := workArea[idx]
	if area, ok := intersect(m, Monitor{X: wa.X, Y: wa.Y, Width: int(wa.Width), Height: int(wa.Height)}); ok {
		return area
	}
	return m
}

func (c *Connection) windowCenter(win xproto.Window) (int, int, bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, false
	}
	tr, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, false
	}
	return int(tr.DstX) + int(geom.Width)/2, int(tr.DstY) + int(geom.Height)/2, true
}

func (c *Connection) strutArea(m Monitor) (Monitor, bool) {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return m, false
	}
	rootW, rootH := int(rootGeom.Width), int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return m, false
	}

	var struts []ewmh.WmStrutPartial
	for _, win := range clients {
		if !c.isDock(win) {
			continue
		}
		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, win); err == nil {
			struts = append(struts, *sp)
			continue
		}
		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, win); err == nil {
			struts = append(struts, fullStrut(s, rootW, rootH))
		}
	}
	return applyStruts(m, rootW, rootH, struts)
}

func (c *Connection) isDock(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

func pick(monitors []Monitor, x, y int) (Monitor, bool) {
	for _, m := range monitors {
		if m.contains(x, y) {
			return m, true
		}
	}
	return Monitor{}, false
}

func fullStrut(s *ewmh.WmStrut, rootW, rootH int) ewmh.WmStrutPartial {
	return ewmh.WmStrutPartial{
		Left:       s.Left,
		Right:      s.Right,
		Top:        s.Top,
		Bottom:     s.Bottom,
		LeftEndY:   uint(rootH - 1),
		RightEndY:  uint(rootH - 1),
		TopEndX:    uint(rootW - 1),
		BottomEndX: uint(rootW - 1),
	}
}

// applyStruts removes the strips reserved by struts from m. It reports false
// when no strut touches the monitor.
func applyStruts(m Monitor, rootW, rootH int, struts []ewmh.WmStrutPartial) (Monitor, bool) {
	var left, right, top, bottom int
	for _, sp := range struts {
		if sp.Top > 0 {
			r, _ := intersect(m, Monitor{X: int(sp.TopStartX), Width: int(sp.TopEndX) + 1 - int(sp.TopStartX), Height: int(sp.Top)})
			top = max(top, r.Height)
		}
		if sp.Bottom > 0 {
			r, _ := intersect(m, Monitor{X: int(sp.BottomStartX), Y: rootH - int(sp.Bottom), Width: int(sp.BottomEndX) + 1 - int(sp.BottomStartX), Height: int(sp.Bottom)})
			bottom = max(bottom, r.Height)
		}
		if sp.Left > 0 {
			r, _ := intersect(m, Monitor{Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) + 1 - int(sp.LeftStartY)})
			left = max(left, r.Width)
		}
		if sp.Right > 0 {
			r, _ := intersect(m, Monitor{X: rootW - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) + 1 - int(sp.RightStartY)})
			right = max(right, r.Width)
		}
	}
	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return m, false
	}

	out := m
	out.X += left
	out.Y += top
	out.Width = max(1, m.Width-left-right)
	out.Height = max(1, m.Height-top-bottom)
	return out, true
}

// intersect returns the overlap of a and b, keeping a's identity. The
// result is empty and false when they do not overlap.
func intersect(a, b Monitor) (Monitor, bool) {
	x1, y1 := max(a.X, b.X), max(a.Y, b.Y)
	x2, y2 := min(a.X+a.Width, b.X+b.Width), min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return Monitor{ID: a.ID, Name: a.Name}, false
	}
	out := a
	out.X, out.Y, out.Width, out.Height = x1, y1, x2-x1, y2-y1
	return out, true
}
