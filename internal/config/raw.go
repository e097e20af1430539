package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/thriveos/internal/panel"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawViewport struct {
	Width  *int    `yaml:"width"`
	Height *int    `yaml:"height"`
	Detect *string `yaml:"detect"`
}

type RawWindows struct {
	OriginX          *int `yaml:"origin_x"`
	OriginY          *int `yaml:"origin_y"`
	Cascade          *int `yaml:"cascade"`
	ZBase            *int `yaml:"z_base"`
	Width            *int `yaml:"width"`
	Height           *int `yaml:"height"`
	MinVisibleWidth  *int `yaml:"min_visible_width"`
	MinVisibleHeight *int `yaml:"min_visible_height"`
	HeaderHeight     *int `yaml:"header_height"`
}

// Durations are written as Go duration strings ("300ms", "7s").
type RawTiming struct {
	OpenDelay          *time.Duration `yaml:"open_delay"`
	CloseDelay         *time.Duration `yaml:"close_delay"`
	NotificationExpiry *time.Duration `yaml:"notification_expiry"`
	ExpiryTick         *time.Duration `yaml:"expiry_tick"`
	ClockTick          *time.Duration `yaml:"clock_tick"`
	RefreshInterval    *time.Duration `yaml:"refresh_interval"`
}

type RawBackend struct {
	BaseURL    *string        `yaml:"base_url"`
	Timeout    *time.Duration `yaml:"timeout"`
	RateLimit  *float64       `yaml:"rate_limit"`
	RateBurst  *int           `yaml:"rate_burst"`
	MaxRetries *int           `yaml:"max_retries"`
}

type RawAccess struct {
	Mode       *string `yaml:"mode"`
	Passphrase *string `yaml:"passphrase"`
}

// RawPanel overrides a catalog entry by id, or adds a new one.
type RawPanel struct {
	ID       string      `yaml:"id"`
	Title    *string     `yaml:"title"`
	Kind     *panel.Kind `yaml:"kind"`
	Elevated *bool       `yaml:"elevated"`
}

type RawLogging struct {
	Level *string `yaml:"level"`
}

type RawConfig struct {
	Include  IncludeList  `yaml:"include"`
	Viewport *RawViewport `yaml:"viewport"`
	Windows  *RawWindows  `yaml:"windows"`
	Timing   *RawTiming   `yaml:"timing"`
	Backend  *RawBackend  `yaml:"backend"`
	Access   *RawAccess   `yaml:"access"`
	Panels   []RawPanel   `yaml:"panels"`
	// Hotkeys entries with an empty key sequence remove a binding.
	Hotkeys map[string]string `yaml:"hotkeys"`
	Logging *RawLogging       `yaml:"logging"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Viewport != nil {
		if out.Viewport == nil {
			out.Viewport = &RawViewport{}
		}
		merged := mergeRawViewport(*out.Viewport, *overlay.Viewport)
		out.Viewport = &merged
	}
	if overlay.Windows != nil {
		if out.Windows == nil {
			out.Windows = &RawWindows{}
		}
		merged := mergeRawWindows(*out.Windows, *overlay.Windows)
		out.Windows = &merged
	}
	if overlay.Timing != nil {
		if out.Timing == nil {
			out.Timing = &RawTiming{}
		}
		merged := mergeRawTiming(*out.Timing, *overlay.Timing)
		out.Timing = &merged
	}
	if overlay.Backend != nil {
		if out.Backend == nil {
			out.Backend = &RawBackend{}
		}
		merged := mergeRawBackend(*out.Backend, *overlay.Backend)
		out.Backend = &merged
	}
	if overlay.Access != nil {
		if out.Access == nil {
			out.Access = &RawAccess{}
		}
		merged := *out.Access
		if overlay.Access.Mode != nil {
			merged.Mode = overlay.Access.Mode
		}
		if overlay.Access.Passphrase != nil {
			merged.Passphrase = overlay.Access.Passphrase
		}
		out.Access = &merged
	}
	if overlay.Panels != nil {
		out.Panels = mergeRawPanels(out.Panels, overlay.Panels)
	}
	if overlay.Hotkeys != nil {
		merged := make(map[string]string, len(out.Hotkeys)+len(overlay.Hotkeys))
		for k, v := range out.Hotkeys {
			merged[k] = v
		}
		for k, v := range overlay.Hotkeys {
			merged[k] = v
		}
		out.Hotkeys = merged
	}
	if overlay.Logging != nil {
		if out.Logging == nil {
			out.Logging = &RawLogging{}
		}
		merged := *out.Logging
		if overlay.Logging.Level != nil {
			merged.Level = overlay.Logging.Level
		}
		out.Logging = &merged
	}

	return out
}

func mergeRawViewport(base RawViewport, overlay RawViewport) RawViewport {
	out := base
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.Detect != nil {
		out.Detect = overlay.Detect
	}
	return out
}

func mergeRawWindows(base RawWindows, overlay RawWindows) RawWindows {
	out := base
	if overlay.OriginX != nil {
		out.OriginX = overlay.OriginX
	}
	if overlay.OriginY != nil {
		out.OriginY = overlay.OriginY
	}
	if overlay.Cascade != nil {
		out.Cascade = overlay.Cascade
	}
	if overlay.ZBase != nil {
		out.ZBase = overlay.ZBase
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.MinVisibleWidth != nil {
		out.MinVisibleWidth = overlay.MinVisibleWidth
	}
	if overlay.MinVisibleHeight != nil {
		out.MinVisibleHeight = overlay.MinVisibleHeight
	}
	if overlay.HeaderHeight != nil {
		out.HeaderHeight = overlay.HeaderHeight
	}
	return out
}

func mergeRawTiming(base RawTiming, overlay RawTiming) RawTiming {
	out := base
	if overlay.OpenDelay != nil {
		out.OpenDelay = overlay.OpenDelay
	}
	if overlay.CloseDelay != nil {
		out.CloseDelay = overlay.CloseDelay
	}
	if overlay.NotificationExpiry != nil {
		out.NotificationExpiry = overlay.NotificationExpiry
	}
	if overlay.ExpiryTick != nil {
		out.ExpiryTick = overlay.ExpiryTick
	}
	if overlay.ClockTick != nil {
		out.ClockTick = overlay.ClockTick
	}
	if overlay.RefreshInterval != nil {
		out.RefreshInterval = overlay.RefreshInterval
	}
	return out
}

func mergeRawBackend(base RawBackend, overlay RawBackend) RawBackend {
	out := base
	if overlay.BaseURL != nil {
		out.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != nil {
		out.Timeout = overlay.Timeout
	}
	if overlay.RateLimit != nil {
		out.RateLimit = overlay.RateLimit
	}
	if overlay.RateBurst != nil {
		out.RateBurst = overlay.RateBurst
	}
	if overlay.MaxRetries != nil {
		out.MaxRetries = overlay.MaxRetries
	}
	return out
}

// mergeRawPanels overlays entries by id, keeping first-seen order.
func mergeRawPanels(base []RawPanel, overlay []RawPanel) []RawPanel {
	out := append([]RawPanel(nil), base...)
	for _, p := range overlay {
		found := false
		for i := range out {
			if out[i].ID != p.ID {
				continue
			}
			found = true
			if p.Title != nil {
				out[i].Title = p.Title
			}
			if p.Kind != nil {
				out[i].Kind = p.Kind
			}
			if p.Elevated != nil {
				out[i].Elevated = p.Elevated
			}
			break
		}
		if !found {
			out = append(out, p)
		}
	}
	return out
}
