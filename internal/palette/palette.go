// Package palette shows a pick list through an external dmenu-style menu
// (rofi, fuzzel, wofi or dmenu) and reports the chosen entry.
package palette

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the menu closes without a selection.
var ErrCancelled = errors.New("palette cancelled")

// Item is one row of the menu.
type Item struct {
	Label string
	// Value is returned to the caller and never shown.
	Value  string
	Icon   string
	Info   string
	Active bool
	Urgent bool
}

// Backend displays items and returns the selected one.
type Backend interface {
	Show(ctx context.Context, prompt string, items []Item) (Item, error)
	Name() string
}

// Backends lists the supported menus in detection order.
var Backends = []string{"rofi", "fuzzel", "wofi", "dmenu"}

var lookPath = exec.LookPath

// Detect returns the first menu found in PATH.
func Detect() (Backend, error) {
	for _, name := range Backends {
		if _, err := lookPath(name); err == nil {
			return newMenu(name), nil
		}
	}
	return nil, fmt.Errorf("no palette backend found in PATH (looked for: %s)", strings.Join(Backends, ", "))
}

// NewBackend returns the named menu, or the detected one for "" and "auto".
func NewBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return Detect()
	}
	for _, known := range Backends {
		if name != known {
			continue
		}
		if _, err := lookPath(name); err != nil {
			return nil, fmt.Errorf("palette backend %q not found in PATH", name)
		}
		return newMenu(name), nil
	}
	return nil, fmt.Errorf("unknown palette backend %q (expected: auto, %s)", name, strings.Join(Backends, ", "))
}
