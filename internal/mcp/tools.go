package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/ipc"
	"github.com/1broseidon/thriveos/internal/panel"
)

// grabInset is where move_window presses inside the title bar, relative to
// the window origin.
const grabInset = 10

func (s *Server) handleDesktopState(_ context.Context, _ *mcpsdk.CallToolRequest, _ DesktopStateInput) (*mcpsdk.CallToolResult, DesktopStateOutput, error) {
	state, err := s.desktop.GetState()
	if err != nil {
		return nil, DesktopStateOutput{}, err
	}

	out := DesktopStateOutput{
		Windows:        make([]WindowInfo, 0, len(state.Windows)),
		Notifications:  make([]NotificationInfo, 0, len(state.Notifications)),
		FocusMode:      state.FocusMode,
		Dragging:       state.Dragging,
		ViewportWidth:  state.Viewport.Width,
		ViewportHeight: state.Viewport.Height,
		BackendOnline:  state.Backend.Online,
		BackendError:   state.Backend.LastError,
		UptimeSeconds:  state.UptimeSeconds,
	}
	for _, w := range state.Windows {
		out.Windows = append(out.Windows, windowInfo(w, state.Focused))
	}
	for _, n := range state.Notifications {
		out.Notifications = append(out.Notifications, NotificationInfo{
			ID:         n.ID,
			Severity:   string(n.Severity),
			Title:      n.Title,
			Message:    n.Message,
			AgeSeconds: int64(n.Age(state.Now).Seconds()),
		})
	}
	return nil, out, nil
}

func windowInfo(w desktop.Window, focused string) WindowInfo {
	return WindowInfo{
		ID:        w.ID,
		Title:     w.Title,
		Kind:      w.Kind.String(),
		X:         w.Position.X,
		Y:         w.Position.Y,
		Width:     w.Size.Width,
		Height:    w.Size.Height,
		ZIndex:    w.ZIndex,
		Lifecycle: w.Lifecycle.String(),
		Elevated:  w.Elevated,
		Focused:   w.ID == focused,
	}
}

func (s *Server) handleListPanels(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListPanelsInput) (*mcpsdk.CallToolResult, ListPanelsOutput, error) {
	state, err := s.desktop.GetState()
	if err != nil {
		return nil, ListPanelsOutput{}, err
	}

	open := make(map[string]bool, len(state.Windows))
	for _, w := range state.Windows {
		open[w.ID] = w.Lifecycle != desktop.LifecycleClosing
	}
	out := ListPanelsOutput{Panels: make([]PanelInfo, 0, len(state.Catalog))}
	for _, e := range state.Catalog {
		out.Panels = append(out.Panels, PanelInfo{
			ID:       e.ID,
			Title:    e.Title,
			Kind:     e.Kind.String(),
			Elevated: e.Elevated,
			Open:     open[e.ID],
		})
	}
	return nil, out, nil
}

func (s *Server) handleOpenWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenWindowInput) (*mcpsdk.CallToolResult, OpenWindowOutput, error) {
	id := strings.TrimSpace(args.ID)
	if id == "" {
		return nil, OpenWindowOutput{}, fmt.Errorf("id is required")
	}
	res, err := s.desktop.Open(id, args.Credential)
	if err != nil {
		s.logger.Warn("open_window failed", "id", id, "error", err)
		return nil, OpenWindowOutput{}, err
	}
	s.logger.Info("open_window", "id", id, "result", res.Result)
	return nil, OpenWindowOutput{ID: res.ID, Result: res.Result}, nil
}

// windowTool builds the handler shared by the single-id window commands.
func (s *Server) windowTool(name string, op func(id string) (bool, error)) mcpsdk.ToolHandlerFor[WindowInput, WindowOutput] {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
		id := strings.TrimSpace(args.ID)
		if id == "" {
			return nil, WindowOutput{}, fmt.Errorf("id is required")
		}
		changed, err := op(id)
		if err != nil {
			s.logger.Warn(name+" failed", "id", id, "error", err)
			return nil, WindowOutput{}, err
		}
		if !changed {
			return nil, WindowOutput{ID: id}, fmt.Errorf("no window %q", id)
		}
		s.logger.Info(name, "id", id)
		return nil, WindowOutput{ID: id, Changed: true}, nil
	}
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, MoveWindowOutput, error) {
	pos, err := MoveWindow(s.desktop, args.ID, args.X, args.Y)
	if err != nil {
		s.logger.Warn("move_window failed", "id", args.ID, "error", err)
		return nil, MoveWindowOutput{}, err
	}
	s.logger.Info("move_window", "id", args.ID, "x", pos.X, "y", pos.Y)
	return nil, MoveWindowOutput{ID: args.ID, X: pos.X, Y: pos.Y}, nil
}

// MoveWindow replays a title-bar drag on d: press just inside the header,
// move to the target, release. It returns the position the daemon applied
// after clamping.
func MoveWindow(d Desktop, id string, x, y int) (desktop.Point, error) {
	state, err := d.GetState()
	if err != nil {
		return desktop.Point{}, err
	}
	var target *desktop.Window
	for i := range state.Windows {
		if state.Windows[i].ID == id {
			target = &state.Windows[i]
			break
		}
	}
	if target == nil {
		return desktop.Point{}, fmt.Errorf("no window %q", id)
	}
	if !target.ContentVisible() || target.Lifecycle == desktop.LifecycleClosing {
		return desktop.Point{}, fmt.Errorf("window %q is %s", id, target.Lifecycle)
	}

	// Raise first so the press cannot land on a window stacked above.
	if _, err := d.Front(id); err != nil {
		return desktop.Point{}, err
	}
	grab := target.Position.Add(desktop.Point{X: grabInset, Y: grabInset})
	down, err := d.PointerDown(grab.X, grab.Y)
	if err != nil {
		return desktop.Point{}, err
	}
	if down.Window != id || down.Region != "header" {
		_ = d.PointerUp()
		return desktop.Point{}, fmt.Errorf("could not grab %q title bar (hit %q %s)", id, down.Window, down.Region)
	}

	move, err := d.PointerMove(x+grabInset, y+grabInset)
	if upErr := d.PointerUp(); err == nil {
		err = upErr
	}
	if err != nil {
		return desktop.Point{}, err
	}
	if !move.Moved {
		return desktop.Point{}, fmt.Errorf("window %q went away during the move", id)
	}
	return move.Position, nil
}

func (s *Server) handleNotify(_ context.Context, _ *mcpsdk.CallToolRequest, args NotifyInput) (*mcpsdk.CallToolResult, NotifyOutput, error) {
	n, err := s.desktop.Notify(ipc.NotifyPayload{
		ID:       args.ID,
		Severity: args.Severity,
		Title:    args.Title,
		Message:  args.Message,
	})
	if err != nil {
		return nil, NotifyOutput{}, err
	}
	return nil, NotifyOutput{ID: n.ID, Severity: string(n.Severity)}, nil
}

func (s *Server) handleDismiss(_ context.Context, _ *mcpsdk.CallToolRequest, args DismissInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	changed, err := s.desktop.Dismiss(args.ID)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, WindowOutput{ID: args.ID, Changed: changed}, nil
}

func (s *Server) handlePanelAction(_ context.Context, _ *mcpsdk.CallToolRequest, args PanelActionInput) (*mcpsdk.CallToolResult, PanelActionOutput, error) {
	req := panel.ActionRequest{
		Action:      panel.Action(strings.TrimSpace(args.Action)),
		Target:      args.Target,
		Amount:      args.Amount,
		Title:       args.Title,
		Description: args.Description,
		Priority:    args.Priority,
		Category:    args.Category,
		Command:     args.Command,
	}
	if req.Action.Kind() == panel.KindUnknown {
		return nil, PanelActionOutput{}, fmt.Errorf("unknown action %q (valid: %s)", args.Action, strings.Join(panel.Actions(), ", "))
	}

	res, err := s.desktop.Action(req)
	if err != nil {
		s.logger.Warn("panel_action failed", "action", args.Action, "error", err)
		return nil, PanelActionOutput{}, err
	}
	s.logger.Info("panel_action", "action", args.Action)
	return nil, PanelActionOutput{
		Action:       string(res.Action),
		Message:      res.Message,
		Output:       res.Output,
		Notification: res.Notification,
	}, nil
}

func (s *Server) handleToggleFocus(_ context.Context, _ *mcpsdk.CallToolRequest, _ FocusModeInput) (*mcpsdk.CallToolResult, FocusModeOutput, error) {
	on, err := s.desktop.ToggleFocus()
	if err != nil {
		return nil, FocusModeOutput{}, err
	}
	return nil, FocusModeOutput{Enabled: on}, nil
}
