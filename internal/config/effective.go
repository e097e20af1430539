package config

import (
	"fmt"
	"strings"

	"github.com/1broseidon/thriveos/internal/panel"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw onto DefaultConfig. It does not validate.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if v := raw.Viewport; v != nil {
		if v.Width != nil {
			cfg.Viewport.Width = *v.Width
		}
		if v.Height != nil {
			cfg.Viewport.Height = *v.Height
		}
		if v.Detect != nil {
			cfg.Viewport.Detect = strings.ToLower(strings.TrimSpace(*v.Detect))
		}
	}

	if w := raw.Windows; w != nil {
		if w.OriginX != nil {
			cfg.Windows.OriginX = *w.OriginX
		}
		if w.OriginY != nil {
			cfg.Windows.OriginY = *w.OriginY
		}
		if w.Cascade != nil {
			cfg.Windows.Cascade = *w.Cascade
		}
		if w.ZBase != nil {
			cfg.Windows.ZBase = *w.ZBase
		}
		if w.Width != nil {
			cfg.Windows.Width = *w.Width
		}
		if w.Height != nil {
			cfg.Windows.Height = *w.Height
		}
		if w.MinVisibleWidth != nil {
			cfg.Windows.MinVisibleWidth = *w.MinVisibleWidth
		}
		if w.MinVisibleHeight != nil {
			cfg.Windows.MinVisibleHeight = *w.MinVisibleHeight
		}
		if w.HeaderHeight != nil {
			cfg.Windows.HeaderHeight = *w.HeaderHeight
		}
	}

	if t := raw.Timing; t != nil {
		if t.OpenDelay != nil {
			cfg.Timing.OpenDelay = *t.OpenDelay
		}
		if t.CloseDelay != nil {
			cfg.Timing.CloseDelay = *t.CloseDelay
		}
		if t.NotificationExpiry != nil {
			cfg.Timing.NotificationExpiry = *t.NotificationExpiry
		}
		if t.ExpiryTick != nil {
			cfg.Timing.ExpiryTick = *t.ExpiryTick
		}
		if t.ClockTick != nil {
			cfg.Timing.ClockTick = *t.ClockTick
		}
		if t.RefreshInterval != nil {
			cfg.Timing.RefreshInterval = *t.RefreshInterval
		}
	}

	if b := raw.Backend; b != nil {
		if b.BaseURL != nil {
			cfg.Backend.BaseURL = strings.TrimSpace(*b.BaseURL)
		}
		if b.Timeout != nil {
			cfg.Backend.Timeout = *b.Timeout
		}
		if b.RateLimit != nil {
			cfg.Backend.RateLimit = *b.RateLimit
		}
		if b.RateBurst != nil {
			cfg.Backend.RateBurst = *b.RateBurst
		}
		if b.MaxRetries != nil {
			cfg.Backend.MaxRetries = *b.MaxRetries
		}
	}

	if a := raw.Access; a != nil {
		if a.Mode != nil {
			cfg.Access.Mode = strings.ToLower(strings.TrimSpace(*a.Mode))
		}
		if a.Passphrase != nil {
			cfg.Access.Passphrase = *a.Passphrase
		}
	}

	for i, p := range raw.Panels {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, &ValidationError{Path: fmt.Sprintf("panels[%d].id", i), Err: fmt.Errorf("panel id must not be empty")}
		}
		idx := -1
		for j := range cfg.Panels {
			if cfg.Panels[j].ID == id {
				idx = j
				break
			}
		}
		if idx < 0 {
			if p.Kind == nil {
				return nil, &ValidationError{Path: "panels." + id + ".kind", Err: fmt.Errorf("new panel %q needs a kind", id)}
			}
			cfg.Panels = append(cfg.Panels, panel.Entry{ID: id, Title: id, Kind: *p.Kind})
			idx = len(cfg.Panels) - 1
		}
		if p.Title != nil {
			cfg.Panels[idx].Title = *p.Title
		}
		if p.Kind != nil {
			cfg.Panels[idx].Kind = *p.Kind
		}
		if p.Elevated != nil {
			cfg.Panels[idx].Elevated = *p.Elevated
		}
	}

	for name, keys := range raw.Hotkeys {
		name = strings.TrimSpace(name)
		keys = strings.TrimSpace(keys)
		if keys == "" {
			delete(cfg.Hotkeys, name)
			continue
		}
		cfg.Hotkeys[name] = keys
	}

	if l := raw.Logging; l != nil && l.Level != nil {
		level := strings.ToLower(strings.TrimSpace(*l.Level))
		if level == "warning" {
			level = "warn"
		}
		cfg.Logging.Level = level
	}

	return cfg, nil
}
