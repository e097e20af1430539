package mcp

// WindowInfo describes one desktop window.
type WindowInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ZIndex    int    `json:"z_index"`
	Lifecycle string `json:"lifecycle"`
	Elevated  bool   `json:"elevated"`
	Focused   bool   `json:"focused"`
}

// NotificationInfo describes one visible notification.
type NotificationInfo struct {
	ID         string `json:"id"`
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	AgeSeconds int64  `json:"age_seconds"`
}

// DesktopStateInput is the input for the desktop_state tool.
type DesktopStateInput struct{}

// DesktopStateOutput is the output for the desktop_state tool.
type DesktopStateOutput struct {
	Windows        []WindowInfo       `json:"windows"`
	Notifications  []NotificationInfo `json:"notifications"`
	FocusMode      bool               `json:"focus_mode"`
	Dragging       string             `json:"dragging,omitempty"`
	ViewportWidth  int                `json:"viewport_width"`
	ViewportHeight int                `json:"viewport_height"`
	BackendOnline  bool               `json:"backend_online"`
	BackendError   string             `json:"backend_error,omitempty"`
	UptimeSeconds  int64              `json:"uptime_seconds"`
}

// PanelInfo describes one launchable catalog entry.
type PanelInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Elevated bool   `json:"elevated"`
	Open     bool   `json:"open"`
}

// ListPanelsInput is the input for the list_panels tool.
type ListPanelsInput struct{}

// ListPanelsOutput is the output for the list_panels tool.
type ListPanelsOutput struct {
	Panels []PanelInfo `json:"panels"`
}

// OpenWindowInput is the input for the open_window tool.
type OpenWindowInput struct {
	ID         string `json:"id" jsonschema:"Panel id from list_panels (e.g. jobs, savings, terminal)"`
	Credential string `json:"credential,omitempty" jsonschema:"Passphrase for elevated panels when the daemon runs in passphrase mode"`
}

// OpenWindowOutput is the output for the open_window tool.
type OpenWindowOutput struct {
	ID     string `json:"id"`
	Result string `json:"result" jsonschema:"created, already_open, revived or denied"`
}

// WindowInput names a window for the close/minimize/restore/focus tools.
type WindowInput struct {
	ID string `json:"id" jsonschema:"Window id"`
}

// WindowOutput reports whether a window command changed anything.
type WindowOutput struct {
	ID      string `json:"id"`
	Changed bool   `json:"changed"`
}

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	ID string `json:"id" jsonschema:"Window id"`
	X  int    `json:"x" jsonschema:"Target left edge in viewport pixels"`
	Y  int    `json:"y" jsonschema:"Target top edge in viewport pixels"`
}

// MoveWindowOutput is the output for the move_window tool.
type MoveWindowOutput struct {
	ID string `json:"id"`
	X  int    `json:"x" jsonschema:"Applied left edge after clamping"`
	Y  int    `json:"y" jsonschema:"Applied top edge after clamping"`
}

// NotifyInput is the input for the notify tool.
type NotifyInput struct {
	Title    string `json:"title" jsonschema:"Notification title"`
	Message  string `json:"message,omitempty" jsonschema:"Body text"`
	Severity string `json:"severity,omitempty" jsonschema:"info, success, warning, error or achievement (default: info)"`
	ID       string `json:"id,omitempty" jsonschema:"Optional id; reuse it to dismiss the notification later"`
}

// NotifyOutput is the output for the notify tool.
type NotifyOutput struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
}

// DismissInput is the input for the dismiss_notification tool.
type DismissInput struct {
	ID string `json:"id" jsonschema:"Notification id"`
}

// PanelActionInput is the input for the panel_action tool.
type PanelActionInput struct {
	Action      string  `json:"action" jsonschema:"Action name, e.g. jobs.refresh, jobs.apply, savings.update, tasks.create, tasks.complete, achievements.unlock, terminal.command"`
	Target      string  `json:"target,omitempty" jsonschema:"Job, task or achievement id"`
	Amount      float64 `json:"amount,omitempty" jsonschema:"Amount for savings.update"`
	Title       string  `json:"title,omitempty" jsonschema:"Title for tasks.create"`
	Description string  `json:"description,omitempty" jsonschema:"Description for tasks.create"`
	Priority    string  `json:"priority,omitempty" jsonschema:"Priority for tasks.create"`
	Category    string  `json:"category,omitempty" jsonschema:"Category for tasks.create"`
	Command     string  `json:"command,omitempty" jsonschema:"Command line for terminal.command"`
}

// PanelActionOutput is the output for the panel_action tool.
type PanelActionOutput struct {
	Action       string   `json:"action"`
	Message      string   `json:"message,omitempty"`
	Output       []string `json:"output,omitempty"`
	Notification string   `json:"notification,omitempty"`
}

// FocusModeInput is the input for the toggle_focus_mode tool.
type FocusModeInput struct{}

// FocusModeOutput is the output for the toggle_focus_mode tool.
type FocusModeOutput struct {
	Enabled bool `json:"enabled"`
}
