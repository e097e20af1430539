package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/1broseidon/thriveos/internal/desktop"
)

// ActionKind is what a hotkey does to the desktop.
type ActionKind int

const (
	ActionFocusMode ActionKind = iota + 1
	ActionRefresh
	ActionDismiss
	ActionOpen
)

// openPrefix introduces an open action: "open.<panel id>".
const openPrefix = "open."

// actionTimeout bounds one hotkey's work, such as a backend refresh.
const actionTimeout = 30 * time.Second

// Action is a parsed hotkey binding target.
type Action struct {
	Kind ActionKind
	// Panel is the catalog id for ActionOpen.
	Panel string
}

// ParseAction parses a binding name: focus_mode, refresh, dismiss or
// open.<panel id>.
func ParseAction(name string) (Action, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "focus_mode":
		return Action{Kind: ActionFocusMode}, nil
	case "refresh":
		return Action{Kind: ActionRefresh}, nil
	case "dismiss":
		return Action{Kind: ActionDismiss}, nil
	}
	if id, ok := strings.CutPrefix(name, openPrefix); ok {
		if id == "" {
			return Action{}, fmt.Errorf("hotkey action %q names no panel", name)
		}
		return Action{Kind: ActionOpen, Panel: id}, nil
	}
	return Action{}, fmt.Errorf("unknown hotkey action %q (valid: focus_mode, refresh, dismiss, open.<panel>)", name)
}

// String returns the string representation of the action
func (a Action) String() string {
	switch a.Kind {
	case ActionFocusMode:
		return "focus_mode"
	case ActionRefresh:
		return "refresh"
	case ActionDismiss:
		return "dismiss"
	case ActionOpen:
		return openPrefix + a.Panel
	default:
		return "unknown"
	}
}

// Target is the desktop session hotkeys act on.
type Target interface {
	ToggleFocus() bool
	Refresh(ctx context.Context) error
	DismissNewest() bool
	Open(ctx context.Context, id, credential string) (desktop.OpenResult, error)
}

// Run performs the action on target.
func (a Action) Run(ctx context.Context, target Target) error {
	switch a.Kind {
	case ActionFocusMode:
		target.ToggleFocus()
	case ActionRefresh:
		return target.Refresh(ctx)
	case ActionDismiss:
		target.DismissNewest()
	case ActionOpen:
		_, err := target.Open(ctx, a.Panel, "")
		return err
	default:
		return fmt.Errorf("unknown hotkey action")
	}
	return nil
}

// Registrar binds a key sequence such as "Mod4-Shift-f" to a callback.
type Registrar interface {
	RegisterFunc(keySequence string, callback func()) error
}

// Bind registers every action -> key sequence binding on reg. Each press runs
// its action in its own goroutine so a slow backend never stalls the key
// grab. Bindings that fail to parse or register are skipped and reported
// together.
func Bind(ctx context.Context, reg Registrar, bindings map[string]string, target Target, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		keys := bindings[name]
		action, err := ParseAction(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		err = reg.RegisterFunc(keys, func() {
			go func() {
				actx, cancel := context.WithTimeout(ctx, actionTimeout)
				defer cancel()
				logger.Debug("hotkey", "keys", keys, "action", action.String())
				if err := action.Run(actx, target); err != nil {
					logger.Warn("hotkey action failed", "action", action.String(), "error", err)
				}
			}()
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("hotkey %s (%s): %w", name, keys, err))
			continue
		}
		logger.Info("hotkey registered", "keys", keys, "action", action.String())
	}
	return errors.Join(errs...)
}
