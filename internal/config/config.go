package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/hotkeys"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

// Viewport detection strategies.
const (
	DetectAuto  = "auto"
	DetectX11   = "x11"
	DetectFixed = "fixed"
)

const (
	DefaultClockTick       = time.Second
	DefaultRefreshInterval = 30 * time.Second
	DefaultBackendURL      = "http://localhost:8001"
)

type ViewportConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Detect string `yaml:"detect"`
}

type WindowsConfig struct {
	OriginX          int `yaml:"origin_x"`
	OriginY          int `yaml:"origin_y"`
	Cascade          int `yaml:"cascade"`
	ZBase            int `yaml:"z_base"`
	Width            int `yaml:"width"`
	Height           int `yaml:"height"`
	MinVisibleWidth  int `yaml:"min_visible_width"`
	MinVisibleHeight int `yaml:"min_visible_height"`
	HeaderHeight     int `yaml:"header_height"`
}

type TimingConfig struct {
	OpenDelay          time.Duration `yaml:"open_delay"`
	CloseDelay         time.Duration `yaml:"close_delay"`
	NotificationExpiry time.Duration `yaml:"notification_expiry"`
	ExpiryTick         time.Duration `yaml:"expiry_tick"`
	ClockTick          time.Duration `yaml:"clock_tick"`
	// RefreshInterval of 0 disables periodic backend refresh.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type BackendConfig struct {
	// BaseURL of "" runs the desktop without a backend.
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  float64       `yaml:"rate_limit"`
	RateBurst  int           `yaml:"rate_burst"`
	MaxRetries int           `yaml:"max_retries"`
}

type AccessConfig struct {
	Mode       string `yaml:"mode"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// HotkeysConfig maps an action (focus_mode, refresh, dismiss, open.<panel>)
// to an X11 key sequence such as "Mod4-Shift-f".
type HotkeysConfig map[string]string

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config holds the effective settings for a desktop session.
type Config struct {
	Viewport ViewportConfig `yaml:"viewport"`
	Windows  WindowsConfig  `yaml:"windows"`
	Timing   TimingConfig   `yaml:"timing"`
	Backend  BackendConfig  `yaml:"backend"`
	Access   AccessConfig   `yaml:"access"`
	Panels   []panel.Entry  `yaml:"panels"`
	Hotkeys  HotkeysConfig  `yaml:"hotkeys"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	def := desktop.DefaultOptions()
	client := panel.DefaultClientConfig()
	return &Config{
		Viewport: ViewportConfig{
			Width:  def.Viewport.Width,
			Height: def.Viewport.Height,
			Detect: DetectAuto,
		},
		Windows: WindowsConfig{
			OriginX:          def.Origin.X,
			OriginY:          def.Origin.Y,
			Cascade:          def.Cascade,
			ZBase:            def.ZBase,
			Width:            def.WindowSize.Width,
			Height:           def.WindowSize.Height,
			MinVisibleWidth:  def.MinVisible.Width,
			MinVisibleHeight: def.MinVisible.Height,
			HeaderHeight:     def.HeaderHeight,
		},
		Timing: TimingConfig{
			OpenDelay:          def.OpenDelay,
			CloseDelay:         def.CloseDelay,
			NotificationExpiry: notify.DefaultExpiry,
			ExpiryTick:         notify.DefaultTick,
			ClockTick:          DefaultClockTick,
			RefreshInterval:    DefaultRefreshInterval,
		},
		Backend: BackendConfig{
			BaseURL:    DefaultBackendURL,
			Timeout:    client.Timeout,
			RateLimit:  client.RateLimit,
			RateBurst:  client.RateBurst,
			MaxRetries: client.MaxRetries,
		},
		Access: AccessConfig{
			Mode: string(access.ModeDeny),
		},
		Panels: panel.DefaultCatalog(),
		Hotkeys: HotkeysConfig{
			"focus_mode": "Mod4-Shift-f",
			"refresh":    "Mod4-Shift-r",
			"dismiss":    "Mod4-Shift-n",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DesktopOptions maps the window and timing settings onto the window manager.
func (c *Config) DesktopOptions() desktop.Options {
	return desktop.Options{
		Origin:       desktop.Point{X: c.Windows.OriginX, Y: c.Windows.OriginY},
		Cascade:      c.Windows.Cascade,
		ZBase:        c.Windows.ZBase,
		WindowSize:   desktop.Size{Width: c.Windows.Width, Height: c.Windows.Height},
		MinVisible:   desktop.Size{Width: c.Windows.MinVisibleWidth, Height: c.Windows.MinVisibleHeight},
		HeaderHeight: c.Windows.HeaderHeight,
		Viewport:     desktop.Size{Width: c.Viewport.Width, Height: c.Viewport.Height},
		OpenDelay:    c.Timing.OpenDelay,
		CloseDelay:   c.Timing.CloseDelay,
	}
}

// BackendEnabled reports whether a backend URL is configured.
func (c *Config) BackendEnabled() bool {
	return strings.TrimSpace(c.Backend.BaseURL) != ""
}

// ClientConfig returns the backend client settings.
func (c *Config) ClientConfig() panel.ClientConfig {
	maxRetries := c.Backend.MaxRetries
	if maxRetries == 0 {
		// panel.NewClient treats zero as "default"; negative means none.
		maxRetries = -1
	}
	return panel.ClientConfig{
		BaseURL:    c.Backend.BaseURL,
		Timeout:    c.Backend.Timeout,
		MaxRetries: maxRetries,
		RateLimit:  c.Backend.RateLimit,
		RateBurst:  c.Backend.RateBurst,
	}
}

// Checker builds the access checker for elevated panels.
func (c *Config) Checker() (access.Checker, error) {
	mode, err := access.ParseMode(c.Access.Mode)
	if err != nil {
		return nil, err
	}
	return access.New(mode, c.Access.Passphrase)
}

// Catalog returns a copy of the panel catalog.
func (c *Config) Catalog() []panel.Entry {
	return append([]panel.Entry(nil), c.Panels...)
}

// SlogLevel maps logging.level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	if c.Viewport.Width <= 0 {
		return &ValidationError{Path: "viewport.width", Err: fmt.Errorf("width must be > 0")}
	}
	if c.Viewport.Height <= 0 {
		return &ValidationError{Path: "viewport.height", Err: fmt.Errorf("height must be > 0")}
	}
	switch c.Viewport.Detect {
	case DetectAuto, DetectX11, DetectFixed:
	default:
		return &ValidationError{Path: "viewport.detect", Err: fmt.Errorf("detect must be one of: auto, x11, fixed")}
	}

	if c.Windows.Cascade < 0 {
		return &ValidationError{Path: "windows.cascade", Err: fmt.Errorf("cascade must be >= 0")}
	}
	if c.Windows.Width <= 0 || c.Windows.Height <= 0 {
		return &ValidationError{Path: "windows", Err: fmt.Errorf("width and height must be > 0")}
	}
	if c.Windows.MinVisibleWidth < 0 {
		return &ValidationError{Path: "windows.min_visible_width", Err: fmt.Errorf("min_visible_width must be >= 0")}
	}
	if c.Windows.MinVisibleHeight < 0 {
		return &ValidationError{Path: "windows.min_visible_height", Err: fmt.Errorf("min_visible_height must be >= 0")}
	}
	if c.Windows.HeaderHeight <= 0 {
		return &ValidationError{Path: "windows.header_height", Err: fmt.Errorf("header_height must be > 0")}
	}

	if c.Timing.OpenDelay < 0 {
		return &ValidationError{Path: "timing.open_delay", Err: fmt.Errorf("open_delay must be >= 0")}
	}
	if c.Timing.CloseDelay < 0 {
		return &ValidationError{Path: "timing.close_delay", Err: fmt.Errorf("close_delay must be >= 0")}
	}
	if c.Timing.NotificationExpiry <= 0 {
		return &ValidationError{Path: "timing.notification_expiry", Err: fmt.Errorf("notification_expiry must be > 0")}
	}
	if c.Timing.ExpiryTick <= 0 {
		return &ValidationError{Path: "timing.expiry_tick", Err: fmt.Errorf("expiry_tick must be > 0")}
	}
	if c.Timing.ClockTick <= 0 {
		return &ValidationError{Path: "timing.clock_tick", Err: fmt.Errorf("clock_tick must be > 0")}
	}
	if c.Timing.RefreshInterval < 0 {
		return &ValidationError{Path: "timing.refresh_interval", Err: fmt.Errorf("refresh_interval must be >= 0")}
	}

	if c.BackendEnabled() {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Path: "backend.base_url", Err: fmt.Errorf("base_url must be an http(s) URL")}
		}
	}
	if c.Backend.Timeout <= 0 {
		return &ValidationError{Path: "backend.timeout", Err: fmt.Errorf("timeout must be > 0")}
	}
	if c.Backend.RateLimit <= 0 {
		return &ValidationError{Path: "backend.rate_limit", Err: fmt.Errorf("rate_limit must be > 0")}
	}
	if c.Backend.RateBurst <= 0 {
		return &ValidationError{Path: "backend.rate_burst", Err: fmt.Errorf("rate_burst must be > 0")}
	}
	if c.Backend.MaxRetries < 0 {
		return &ValidationError{Path: "backend.max_retries", Err: fmt.Errorf("max_retries must be >= 0")}
	}

	mode, err := access.ParseMode(c.Access.Mode)
	if err != nil {
		return &ValidationError{Path: "access.mode", Err: err}
	}
	if mode == access.ModePassphrase && c.Access.Passphrase == "" {
		return &ValidationError{Path: "access.passphrase", Err: fmt.Errorf("passphrase is required when mode is passphrase")}
	}

	if len(c.Panels) == 0 {
		return &ValidationError{Path: "panels", Err: fmt.Errorf("panels must not be empty")}
	}
	seen := make(map[string]struct{}, len(c.Panels))
	for _, p := range c.Panels {
		if strings.TrimSpace(p.ID) == "" {
			return &ValidationError{Path: "panels", Err: fmt.Errorf("panel id must not be empty")}
		}
		if _, dup := seen[p.ID]; dup {
			return &ValidationError{Path: "panels." + p.ID, Err: fmt.Errorf("duplicate panel id")}
		}
		seen[p.ID] = struct{}{}
		if !p.Kind.Valid() {
			return &ValidationError{Path: "panels." + p.ID + ".kind", Err: fmt.Errorf("kind must be one of: %s", strings.Join(panel.KindNames(), ", "))}
		}
	}

	for name, keys := range c.Hotkeys {
		action, err := hotkeys.ParseAction(name)
		if err != nil {
			return &ValidationError{Path: "hotkeys." + name, Err: err}
		}
		if strings.TrimSpace(keys) == "" {
			return &ValidationError{Path: "hotkeys." + name, Err: fmt.Errorf("key sequence must not be empty")}
		}
		if action.Kind == hotkeys.ActionOpen && !seenPanel(c.Panels, action.Panel) {
			return &ValidationError{Path: "hotkeys." + name, Err: fmt.Errorf("unknown panel %q", action.Panel)}
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	return nil
}

func seenPanel(panels []panel.Entry, id string) bool {
	_, ok := panel.Lookup(panels, id)
	return ok
}
