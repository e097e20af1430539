package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
	"github.com/1broseidon/thriveos/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// WithTimeout returns a copy of the client using timeout per request.
// Elevated opens and panel actions may need longer than the default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	out := *c
	out.timeout = timeout
	return &out
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with payload and decodes the response data into out.
// payload and out may be nil.
func (c *Client) call(command CommandType, payload any, out any) error {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// GetState retrieves the full desktop state
func (c *Client) GetState() (*StateData, error) {
	var state StateData
	if err := c.call(CommandGetState, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Open asks the daemon to open a catalog panel. credential is only used by
// elevated panels.
func (c *Client) Open(id, credential string) (*OpenData, error) {
	var data OpenData
	if err := c.call(CommandOpenWindow, WindowPayload{ID: id, Credential: credential}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) windowCommand(command CommandType, id string) (bool, error) {
	var data ChangedData
	if err := c.call(command, WindowPayload{ID: id}, &data); err != nil {
		return false, err
	}
	return data.Changed, nil
}

// Close starts closing a window. It reports whether the window existed.
func (c *Client) Close(id string) (bool, error) {
	return c.windowCommand(CommandCloseWindow, id)
}

// Minimize toggles a window's minimized state.
func (c *Client) Minimize(id string) (bool, error) {
	return c.windowCommand(CommandMinimizeWindow, id)
}

// Restore un-minimizes a window and raises it.
func (c *Client) Restore(id string) (bool, error) {
	return c.windowCommand(CommandRestoreWindow, id)
}

// Front raises a window.
func (c *Client) Front(id string) (bool, error) {
	return c.windowCommand(CommandFrontWindow, id)
}

// PointerDown presses the pointer at (x, y).
func (c *Client) PointerDown(x, y int) (*PointerData, error) {
	var data PointerData
	if err := c.call(CommandPointerDown, PointerPayload{X: x, Y: y}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PointerMove moves the pointer to (x, y), dragging any grabbed window.
func (c *Client) PointerMove(x, y int) (*PointerData, error) {
	var data PointerData
	if err := c.call(CommandPointerMove, PointerPayload{X: x, Y: y}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PointerUp releases the pointer.
func (c *Client) PointerUp() error {
	return c.call(CommandPointerUp, nil, nil)
}

// Notify enqueues a notification and returns the stored copy.
func (c *Client) Notify(p NotifyPayload) (*notify.Notification, error) {
	var n notify.Notification
	if err := c.call(CommandNotify, p, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Dismiss removes notifications by id.
func (c *Client) Dismiss(id string) (bool, error) {
	var data ChangedData
	if err := c.call(CommandDismiss, DismissPayload{ID: id}, &data); err != nil {
		return false, err
	}
	return data.Changed, nil
}

// Action runs a panel action through the daemon's backend client.
func (c *Client) Action(req panel.ActionRequest) (*panel.ActionResult, error) {
	var res panel.ActionResult
	if err := c.call(CommandPanelAction, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ToggleFocus flips focus mode and returns the new state.
func (c *Client) ToggleFocus() (bool, error) {
	var data FocusData
	if err := c.call(CommandFocusMode, nil, &data); err != nil {
		return false, err
	}
	return data.Enabled, nil
}

// SetViewport resizes the daemon's desktop surface.
func (c *Client) SetViewport(width, height int) error {
	return c.call(CommandSetViewport, ViewportPayload{Width: width, Height: height}, nil)
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetState()
	return err
}
