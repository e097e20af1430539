package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/thriveos/internal/daemon"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/panel"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetState       CommandType = "GET_STATE"
	CommandOpenWindow     CommandType = "OPEN_WINDOW"
	CommandCloseWindow    CommandType = "CLOSE_WINDOW"
	CommandMinimizeWindow CommandType = "MINIMIZE_WINDOW"
	CommandRestoreWindow  CommandType = "RESTORE_WINDOW"
	CommandFrontWindow    CommandType = "FRONT_WINDOW"
	CommandPointerDown    CommandType = "POINTER_DOWN"
	CommandPointerMove    CommandType = "POINTER_MOVE"
	CommandPointerUp      CommandType = "POINTER_UP"
	CommandNotify         CommandType = "NOTIFY"
	CommandDismiss        CommandType = "DISMISS"
	CommandPanelAction    CommandType = "PANEL_ACTION"
	CommandFocusMode      CommandType = "FOCUS_MODE"
	CommandSetViewport    CommandType = "SET_VIEWPORT"
	CommandReload         CommandType = "RELOAD"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StateData represents the data returned by GET_STATE
type StateData struct {
	daemon.Snapshot
	Catalog       []panel.Entry `json:"catalog"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// WindowPayload addresses one window. Credential is only read by
// OPEN_WINDOW, for elevated panels.
type WindowPayload struct {
	ID         string `json:"id"`
	Credential string `json:"credential,omitempty"`
}

// OpenData reports the outcome of OPEN_WINDOW.
type OpenData struct {
	ID     string `json:"id"`
	Result string `json:"result"`
}

// ChangedData reports whether a command changed anything. Commands on
// unknown ids succeed with Changed false.
type ChangedData struct {
	Changed bool `json:"changed"`
}

// PointerPayload is a viewport coordinate.
type PointerPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PointerData reports what a pointer event hit or where a drag moved to.
type PointerData struct {
	Window   string        `json:"window,omitempty"`
	Region   string        `json:"region,omitempty"`
	Position desktop.Point `json:"position"`
	Moved    bool          `json:"moved,omitempty"`
}

// NotifyPayload is the payload for NOTIFY. An empty id is generated.
type NotifyPayload struct {
	ID       string `json:"id,omitempty"`
	Severity string `json:"severity,omitempty"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
}

// DismissPayload is the payload for DISMISS.
type DismissPayload struct {
	ID string `json:"id"`
}

// FocusData is the focus mode state after FOCUS_MODE.
type FocusData struct {
	Enabled bool `json:"enabled"`
}

// ViewportPayload is the payload for SET_VIEWPORT.
type ViewportPayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
