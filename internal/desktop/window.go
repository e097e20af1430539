package desktop

import (
	"fmt"

	"github.com/1broseidon/thriveos/internal/panel"
)

// Point is a viewport coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Lifecycle is the phase of a tracked window.
type Lifecycle int

const (
	// LifecycleOpening runs from open until the opening animation ends.
	LifecycleOpening Lifecycle = iota
	// LifecycleActive is a normal, visible window.
	LifecycleActive
	// LifecycleMinimized shows only a taskbar entry.
	LifecycleMinimized
	// LifecycleClosing runs from close until the window is removed.
	LifecycleClosing
)

// String returns the string representation of the lifecycle
func (l Lifecycle) String() string {
	switch l {
	case LifecycleOpening:
		return "opening"
	case LifecycleActive:
		return "active"
	case LifecycleMinimized:
		return "minimized"
	case LifecycleClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifecycle) UnmarshalText(text []byte) error {
	for _, c := range []Lifecycle{LifecycleOpening, LifecycleActive, LifecycleMinimized, LifecycleClosing} {
		if c.String() == string(text) {
			*l = c
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle %q", text)
}

// Region identifies the part of a window under the pointer.
type Region int

const (
	RegionNone Region = iota
	// RegionHeader is the title bar; drags start here.
	RegionHeader
	// RegionBody is the panel content area.
	RegionBody
)

// Window is a snapshot of one managed window.
type Window struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Kind      panel.Kind `json:"kind"`
	Position  Point      `json:"position"`
	Size      Size       `json:"size"`
	ZIndex    int        `json:"z_index"`
	Lifecycle Lifecycle  `json:"lifecycle"`
	Elevated  bool       `json:"elevated,omitempty"`
}

// ContentVisible reports whether the panel body should be rendered. A
// minimized window shows only its taskbar entry.
func (w Window) ContentVisible() bool {
	return w.Lifecycle != LifecycleMinimized
}

// Contains reports whether p falls inside the window frame.
func (w Window) Contains(p Point) bool {
	return p.X >= w.Position.X && p.X < w.Position.X+w.Size.Width &&
		p.Y >= w.Position.Y && p.Y < w.Position.Y+w.Size.Height
}

// String returns the string representation of the region
func (r Region) String() string {
	switch r {
	case RegionHeader:
		return "header"
	case RegionBody:
		return "body"
	default:
		return "none"
	}
}
