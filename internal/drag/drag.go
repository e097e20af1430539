// Package drag translates pointer gestures into window moves.
package drag

import (
	"sync"

	"github.com/1broseidon/thriveos/internal/desktop"
)

// Cursor is the root cursor affordance the host should display.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorGrabbing
)

// String returns the string representation of the cursor
func (c Cursor) String() string {
	if c == CursorGrabbing {
		return "grabbing"
	}
	return "default"
}

// Target is the window-manager surface the controller drives.
type Target interface {
	// Grab raises the window and returns its origin atomically.
	Grab(id string) (desktop.Point, bool)
	// Reposition moves the window, clamped to the viewport.
	Reposition(id string, p desktop.Point) (desktop.Point, bool)
}

// Session is the transient record of an in-progress drag.
type Session struct {
	WindowID string
	// Offset is pointer minus window origin, captured at drag start.
	Offset desktop.Point
}

// Controller is the Idle/Dragging state machine. At most one session exists
// at a time.
type Controller struct {
	mu      sync.Mutex
	target  Target
	session *Session

	// OnCursor, when set, is called whenever the cursor affordance changes.
	OnCursor func(Cursor)
}

// NewController creates an idle controller driving target.
func NewController(target Target) *Controller {
	return &Controller{target: target}
}

// PointerDown starts a drag when the press lands on a window header. It
// returns false, leaving the controller unchanged, when a drag is already in
// progress, the press is not on a header or the window cannot be grabbed.
func (c *Controller) PointerDown(windowID string, region desktop.Region, pointer desktop.Point) bool {
	if region != desktop.RegionHeader {
		return false
	}

	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return false
	}
	origin, ok := c.target.Grab(windowID)
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.session = &Session{WindowID: windowID, Offset: pointer.Sub(origin)}
	c.mu.Unlock()

	c.cursor(CursorGrabbing)
	return true
}

// PointerMove repositions the dragged window so the pointer keeps the offset
// captured at drag start. It returns the applied position, or false when
// idle.
func (c *Controller) PointerMove(pointer desktop.Point) (desktop.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return desktop.Point{}, false
	}
	pos, ok := c.target.Reposition(c.session.WindowID, pointer.Sub(c.session.Offset))
	if !ok {
		// The window went away mid-drag; nothing left to move.
		c.session = nil
		defer c.cursor(CursorDefault)
		return desktop.Point{}, false
	}
	return pos, true
}

// PointerUp ends any drag, wherever the pointer is.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	wasDragging := c.session != nil
	c.session = nil
	c.mu.Unlock()

	if wasDragging {
		c.cursor(CursorDefault)
	}
}

// Active returns a copy of the current session, if any.
func (c *Controller) Active() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Cursor returns the affordance for the current state.
func (c *Controller) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return CursorGrabbing
	}
	return CursorDefault
}

func (c *Controller) cursor(cur Cursor) {
	if c.OnCursor != nil {
		c.OnCursor(cur)
	}
}
