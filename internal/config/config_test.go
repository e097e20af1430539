package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/panel"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	opts := cfg.DesktopOptions()
	if opts.Origin.X != 50 || opts.Cascade != 40 || opts.ZBase != 1000 {
		t.Fatalf("unexpected desktop defaults: %+v", opts)
	}
	if opts.WindowSize.Width != 900 || opts.WindowSize.Height != 650 {
		t.Fatalf("unexpected window size: %+v", opts.WindowSize)
	}
	if cfg.Timing.NotificationExpiry != 7*time.Second || cfg.Timing.RefreshInterval != 30*time.Second {
		t.Fatalf("unexpected timing defaults: %+v", cfg.Timing)
	}
	if len(cfg.Catalog()) != len(panel.DefaultCatalog()) {
		t.Fatalf("expected default catalog")
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Viewport.Detect != DetectAuto {
		t.Fatalf("expected detect auto, got %q", res.Config.Viewport.Detect)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend.BaseURL != DefaultBackendURL {
		t.Fatalf("expected default backend, got %q", res.Config.Backend.BaseURL)
	}
}

func TestLoadFromPath_Sections(t *testing.T) {
	data := strings.Join([]string{
		"viewport:",
		"  width: 1280",
		"  height: 720",
		"  detect: fixed",
		"windows:",
		"  cascade: 20",
		"timing:",
		"  open_delay: 150ms",
		"  notification_expiry: 10s",
		"  refresh_interval: 0s",
		"backend:",
		"  base_url: \"\"",
		"access:",
		"  mode: passphrase",
		"  passphrase: hunter2",
		"logging:",
		"  level: warning",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Viewport.Width != 1280 || cfg.Viewport.Detect != DetectFixed {
		t.Fatalf("viewport = %+v", cfg.Viewport)
	}
	if cfg.Windows.Cascade != 20 || cfg.Windows.OriginX != 50 {
		t.Fatalf("windows = %+v", cfg.Windows)
	}
	if cfg.Timing.OpenDelay != 150*time.Millisecond || cfg.Timing.CloseDelay != 300*time.Millisecond {
		t.Fatalf("timing = %+v", cfg.Timing)
	}
	if cfg.Timing.NotificationExpiry != 10*time.Second || cfg.Timing.RefreshInterval != 0 {
		t.Fatalf("timing = %+v", cfg.Timing)
	}
	if cfg.BackendEnabled() {
		t.Fatal("empty base_url should disable the backend")
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Fatalf("level = %v", cfg.SlogLevel())
	}
	checker, err := cfg.Checker()
	if err != nil {
		t.Fatalf("checker: %v", err)
	}
	if _, ok := checker.(access.Passphrase); !ok {
		t.Fatalf("checker = %T, want access.Passphrase", checker)
	}

	val, src, err := Explain(res, "timing.open_delay")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 150*time.Millisecond || src.Kind != SourceFile || src.Line == 0 {
		t.Fatalf("explain = %v %+v", val, src)
	}
	if _, src, _ := Explain(res, "timing.close_delay"); src.Kind != SourceDefault {
		t.Fatalf("close_delay source = %+v", src)
	}
}

func TestLoadFromPath_PanelOverrides(t *testing.T) {
	data := strings.Join([]string{
		"panels:",
		"  - id: terminal",
		"    elevated: false",
		"  - id: jobs",
		"    title: Remote Jobs",
		"  - id: budget",
		"    title: Budget",
		"    kind: savings",
		"    elevated: true",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	catalog := res.Config.Catalog()
	if len(catalog) != len(panel.DefaultCatalog())+1 {
		t.Fatalf("catalog size = %d", len(catalog))
	}
	if e, _ := panel.Lookup(catalog, "terminal"); e.Elevated {
		t.Fatal("terminal override should clear elevated")
	}
	if e, _ := panel.Lookup(catalog, "jobs"); e.Title != "Remote Jobs" || e.Kind != panel.KindJobs {
		t.Fatalf("jobs = %+v", e)
	}
	e, ok := panel.Lookup(catalog, "budget")
	if !ok || e.Kind != panel.KindSavings || !e.Elevated {
		t.Fatalf("budget = %+v, %v", e, ok)
	}
}

func TestLoadFromPath_NewPanelNeedsKind(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "panels:\n  - id: budget\n")
	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != "panels.budget.kind" {
		t.Fatalf("expected kind validation error, got %v", err)
	}
}

func TestLoadFromPath_UnknownPanelKind(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "panels:\n  - id: jobs\n    kind: pong\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadFromPath_BadDuration(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "timing:\n  open_delay: soon\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	data := "windows:\n  cascade: -5\n"
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "windows.cascade" {
		t.Fatalf("path = %q", verr.Path)
	}
	if verr.Source.Kind != SourceFile || verr.Source.Line != 2 {
		t.Fatalf("source = %+v", verr.Source)
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, configD, "10-base.yaml", "windows:\n  cascade: 5\n  z_base: 10\n")
	writeConfig(t, configD, "20-override.yaml", "windows:\n  cascade: 6\n")

	main := strings.Join([]string{
		"include:",
		"  - config.d",
		"windows:",
		"  cascade: 7",
		"",
	}, "\n")
	path := writeConfig(t, dir, "config.yaml", main)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Windows.Cascade != 7 {
		t.Fatalf("expected cascade 7, got %d", res.Config.Windows.Cascade)
	}
	if res.Config.Windows.ZBase != 10 {
		t.Fatalf("expected z_base from include, got %d", res.Config.Windows.ZBase)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero viewport", func(c *Config) { c.Viewport.Width = 0 }, "viewport.width"},
		{"bad detect", func(c *Config) { c.Viewport.Detect = "wayland" }, "viewport.detect"},
		{"negative min visible", func(c *Config) { c.Windows.MinVisibleHeight = -1 }, "windows.min_visible_height"},
		{"zero expiry", func(c *Config) { c.Timing.NotificationExpiry = 0 }, "timing.notification_expiry"},
		{"negative refresh", func(c *Config) { c.Timing.RefreshInterval = -time.Second }, "timing.refresh_interval"},
		{"bad url", func(c *Config) { c.Backend.BaseURL = "localhost:8001" }, "backend.base_url"},
		{"bad mode", func(c *Config) { c.Access.Mode = "maybe" }, "access.mode"},
		{"missing passphrase", func(c *Config) { c.Access.Mode = "passphrase" }, "access.passphrase"},
		{"duplicate panel", func(c *Config) { c.Panels = append(c.Panels, c.Panels[0]) }, "panels.dashboard"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"unknown hotkey action", func(c *Config) { c.Hotkeys["tile"] = "Mod4-t" }, "hotkeys.tile"},
		{"hotkey for unknown panel", func(c *Config) { c.Hotkeys["open.pong"] = "Mod4-p" }, "hotkeys.open.pong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestClientConfigMaxRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.MaxRetries = 0
	if got := cfg.ClientConfig().MaxRetries; got != -1 {
		t.Fatalf("zero retries should map to -1, got %d", got)
	}
	cfg.Backend.MaxRetries = 4
	if got := cfg.ClientConfig().MaxRetries; got != 4 {
		t.Fatalf("max retries = %d", got)
	}
}

func TestRenderMasksPassphrase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Access.Mode = "passphrase"
	cfg.Access.Passphrase = "hunter2"
	data, err := Render(cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hunter2") {
		t.Fatalf("passphrase leaked:\n%s", out)
	}
	if !strings.Contains(out, "kind: jobs") || !strings.Contains(out, "open_delay: 300ms") {
		t.Fatalf("unexpected render:\n%s", out)
	}
	if cfg.Access.Passphrase != "hunter2" {
		t.Fatal("Render must not modify the config")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != "/home/tester/.config/thriveos/config.yaml" {
		t.Fatalf("path = %q", path)
	}
}

func TestLoadFromPath_Hotkeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
hotkeys:
  dismiss: ""
  open.terminal: " Mod4-Return "
`)
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	hk := res.Config.Hotkeys
	if _, ok := hk["dismiss"]; ok {
		t.Fatalf("empty key sequence should unbind dismiss: %v", hk)
	}
	if hk["open.terminal"] != "Mod4-Return" || hk["focus_mode"] != "Mod4-Shift-f" {
		t.Fatalf("hotkeys = %v", hk)
	}

	value, _, err := Explain(res, "hotkeys.open.terminal")
	if err != nil || value != "Mod4-Return" {
		t.Fatalf("explain = %v, %v", value, err)
	}
}
