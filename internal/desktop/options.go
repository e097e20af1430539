package desktop

import "time"

// Defaults for window placement and animation timing.
const (
	DefaultOriginX      = 50
	DefaultOriginY      = 50
	DefaultCascade      = 40
	DefaultZBase        = 1000
	DefaultWidth        = 900
	DefaultHeight       = 650
	DefaultMinVisibleW  = 300
	DefaultMinVisibleH  = 200
	DefaultHeaderHeight = 40
	DefaultViewportW    = 1920
	DefaultViewportH    = 1080

	DefaultOpenDelay  = 300 * time.Millisecond
	DefaultCloseDelay = 300 * time.Millisecond
)

// Options configures a Manager.
type Options struct {
	// Origin is where the first window opens; later windows cascade from it.
	Origin Point
	// Cascade is the diagonal offset added per already-tracked window.
	Cascade int
	// ZBase is the stacking floor; new windows start at ZBase + count.
	ZBase int
	// WindowSize is the size of newly opened windows.
	WindowSize Size
	// MinVisible is how much of a window must stay inside the viewport on
	// the right and bottom edges.
	MinVisible Size
	// HeaderHeight is the height of the draggable title bar.
	HeaderHeight int
	// Viewport is the initial rendering surface size.
	Viewport Size

	OpenDelay  time.Duration
	CloseDelay time.Duration
}

// DefaultOptions returns the stock desktop geometry and timings.
func DefaultOptions() Options {
	return Options{
		Origin:       Point{X: DefaultOriginX, Y: DefaultOriginY},
		Cascade:      DefaultCascade,
		ZBase:        DefaultZBase,
		WindowSize:   Size{Width: DefaultWidth, Height: DefaultHeight},
		MinVisible:   Size{Width: DefaultMinVisibleW, Height: DefaultMinVisibleH},
		HeaderHeight: DefaultHeaderHeight,
		Viewport:     Size{Width: DefaultViewportW, Height: DefaultViewportH},
		OpenDelay:    DefaultOpenDelay,
		CloseDelay:   DefaultCloseDelay,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Cascade < 0 {
		o.Cascade = 0
	}
	if o.WindowSize.Width <= 0 || o.WindowSize.Height <= 0 {
		o.WindowSize = def.WindowSize
	}
	if o.MinVisible.Width < 0 || o.MinVisible.Height < 0 {
		o.MinVisible = def.MinVisible
	}
	if o.HeaderHeight <= 0 {
		o.HeaderHeight = def.HeaderHeight
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = def.Viewport
	}
	if o.OpenDelay < 0 {
		o.OpenDelay = 0
	}
	if o.CloseDelay < 0 {
		o.CloseDelay = 0
	}
	return o
}

// Clamp keeps a window origin inside viewport so that at least minVisible of
// the window remains on screen: left/top never go negative and right/bottom
// never pass viewport minus minVisible.
func Clamp(p Point, viewport, minVisible Size) Point {
	maxX := viewport.Width - minVisible.Width
	maxY := viewport.Height - minVisible.Height
	return Point{X: clampInt(p.X, 0, maxX), Y: clampInt(p.Y, 0, maxY)}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
