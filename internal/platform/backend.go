// Package platform resolves the size of the surface the desktop renders
// into, from the window system when one is available.
package platform

import (
	"errors"
	"fmt"

	"github.com/1broseidon/thriveos/internal/config"
	"github.com/1broseidon/thriveos/internal/desktop"
)

// ErrUnsupported is returned by Open on platforms without a display backend.
var ErrUnsupported = errors.New("no display backend on this platform")

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Backend abstracts display queries across window systems.
type Backend interface {
	Displays() ([]Display, error)
	ActiveDisplay() (Display, error)
}

// Opener connects to the window system. The returned func releases the
// connection.
type Opener func() (Backend, func(), error)

// Viewport is a resolved desktop surface.
type Viewport struct {
	Size desktop.Size
	// Source names where the size came from: "x11:<display>" or "fixed".
	Source string
}

// DetectViewport resolves the viewport for a config detect mode:
//
//	fixed: always fallback
//	x11:   the usable area of the active display, or an error
//	auto:  like x11, but falls back when no display is reachable
func DetectViewport(mode string, fallback desktop.Size, open Opener) (Viewport, error) {
	fixed := Viewport{Size: fallback, Source: "fixed"}
	switch mode {
	case config.DetectFixed:
		return fixed, nil
	case config.DetectX11, config.DetectAuto, "":
	default:
		return Viewport{}, fmt.Errorf("unknown viewport detect mode %q", mode)
	}

	vp, err := detect(open)
	if err != nil {
		if mode == config.DetectX11 {
			return Viewport{}, err
		}
		return fixed, nil
	}
	return vp, nil
}

func detect(open Opener) (Viewport, error) {
	if open == nil {
		return Viewport{}, ErrUnsupported
	}
	backend, release, err := open()
	if err != nil {
		return Viewport{}, fmt.Errorf("failed to open display: %w", err)
	}
	if release != nil {
		defer release()
	}

	d, err := backend.ActiveDisplay()
	if err != nil {
		return Viewport{}, fmt.Errorf("failed to query active display: %w", err)
	}
	area := d.Usable
	if area.Width <= 0 || area.Height <= 0 {
		area = d.Bounds
	}
	if area.Width <= 0 || area.Height <= 0 {
		return Viewport{}, fmt.Errorf("display %q reports an empty area", d.Name)
	}
	return Viewport{
		Size:   desktop.Size{Width: area.Width, Height: area.Height},
		Source: "x11:" + d.Name,
	}, nil
}
