package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	viewport.width
//	viewport.detect
//	windows.cascade
//	timing.notification_expiry
//	backend.base_url
//	access.mode
//	panels
//	panels.<id>
//	hotkeys
//	hotkeys.<action>
//	logging.level
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	// Panel entries live in a sequence; attribute them to the list itself.
	if strings.HasPrefix(path, "panels.") {
		if src, ok := res.Sources["panels"]; ok {
			return value, src, nil
		}
	}
	return value, Source{Kind: SourceDefault, Name: "default"}, nil
}

// Render returns the effective config as YAML, with the passphrase masked.
func Render(cfg *Config) ([]byte, error) {
	out := *cfg
	if out.Access.Passphrase != "" {
		out.Access.Passphrase = "********"
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown path: %s", path)

	if parts[0] == "panels" {
		switch len(parts) {
		case 1:
			return cfg.Panels, nil
		case 2:
			for _, p := range cfg.Panels {
				if p.ID == parts[1] {
					return p, nil
				}
			}
			return nil, fmt.Errorf("unknown panel: %s", parts[1])
		}
		return nil, unknown
	}
	if path == "hotkeys" {
		return cfg.Hotkeys, nil
	}
	// Action names contain dots themselves (open.<panel>).
	if action, ok := strings.CutPrefix(path, "hotkeys."); ok {
		if keys, ok := cfg.Hotkeys[action]; ok {
			return keys, nil
		}
		return nil, fmt.Errorf("no hotkey bound to %s", action)
	}
	if len(parts) != 2 {
		return nil, unknown
	}

	section, key := parts[0], parts[1]
	var fields map[string]any
	switch section {
	case "viewport":
		fields = map[string]any{
			"width":  cfg.Viewport.Width,
			"height": cfg.Viewport.Height,
			"detect": cfg.Viewport.Detect,
		}
	case "windows":
		fields = map[string]any{
			"origin_x":           cfg.Windows.OriginX,
			"origin_y":           cfg.Windows.OriginY,
			"cascade":            cfg.Windows.Cascade,
			"z_base":             cfg.Windows.ZBase,
			"width":              cfg.Windows.Width,
			"height":             cfg.Windows.Height,
			"min_visible_width":  cfg.Windows.MinVisibleWidth,
			"min_visible_height": cfg.Windows.MinVisibleHeight,
			"header_height":      cfg.Windows.HeaderHeight,
		}
	case "timing":
		fields = map[string]any{
			"open_delay":          cfg.Timing.OpenDelay,
			"close_delay":         cfg.Timing.CloseDelay,
			"notification_expiry": cfg.Timing.NotificationExpiry,
			"expiry_tick":         cfg.Timing.ExpiryTick,
			"clock_tick":          cfg.Timing.ClockTick,
			"refresh_interval":    cfg.Timing.RefreshInterval,
		}
	case "backend":
		fields = map[string]any{
			"base_url":    cfg.Backend.BaseURL,
			"timeout":     cfg.Backend.Timeout,
			"rate_limit":  cfg.Backend.RateLimit,
			"rate_burst":  cfg.Backend.RateBurst,
			"max_retries": cfg.Backend.MaxRetries,
		}
	case "access":
		// The passphrase is never echoed.
		fields = map[string]any{
			"mode": cfg.Access.Mode,
		}
	case "logging":
		fields = map[string]any{
			"level": cfg.Logging.Level,
		}
	default:
		return nil, unknown
	}

	v, ok := fields[key]
	if !ok {
		return nil, unknown
	}
	return v, nil
}
