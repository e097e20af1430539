// Package mcp exposes a running thriveos daemon to agents as MCP tools.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/thriveos/internal/ipc"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
)

const (
	ServerName    = "thriveos"
	ServerVersion = "0.1.0"
)

// Desktop is the daemon surface the tools drive. *ipc.Client implements it.
type Desktop interface {
	GetState() (*ipc.StateData, error)
	Open(id, credential string) (*ipc.OpenData, error)
	Close(id string) (bool, error)
	Minimize(id string) (bool, error)
	Restore(id string) (bool, error)
	Front(id string) (bool, error)
	PointerDown(x, y int) (*ipc.PointerData, error)
	PointerMove(x, y int) (*ipc.PointerData, error)
	PointerUp() error
	Notify(p ipc.NotifyPayload) (*notify.Notification, error)
	Dismiss(id string) (bool, error)
	Action(req panel.ActionRequest) (*panel.ActionResult, error)
	ToggleFocus() (bool, error)
}

// Server is the MCP server for desktop control.
type Server struct {
	mcpServer *mcpsdk.Server
	desktop   Desktop
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to desktop.
// logger may be nil.
func NewServer(desktop Desktop, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		desktop: desktop,
		logger:  logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "desktop_state",
		Description: "Return the open windows (in taskbar order), visible notifications, focus mode and backend status of the running thriveos desktop.",
	}, s.handleDesktopState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_panels",
		Description: "List the launchable panels (desktop icons). Elevated panels need access confirmation before they open.",
	}, s.handleListPanels)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_window",
		Description: "Open a panel window by id. Opening an already open panel changes nothing. Elevated panels may be denied by the daemon's access mode; pass credential in passphrase mode.",
	}, s.handleOpenWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a window. It is removed after its closing animation.",
	}, s.windowTool("close_window", s.desktop.Close))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "minimize_window",
		Description: "Toggle a window between minimized (taskbar only) and visible.",
	}, s.windowTool("minimize_window", s.desktop.Minimize))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "restore_window",
		Description: "Un-minimize a window and bring it to the front.",
	}, s.windowTool("restore_window", s.desktop.Restore))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Bring a window to the front of the stack.",
	}, s.windowTool("focus_window", s.desktop.Front))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Drag a window by its title bar so its top-left corner lands at (x, y). The position is clamped so part of the window stays on screen.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "notify",
		Description: "Show a transient notification on the desktop. It expires on its own after a few seconds.",
	}, s.handleNotify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "dismiss_notification",
		Description: "Dismiss every visible notification with the given id.",
	}, s.handleDismiss)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "panel_action",
		Description: "Run a panel action against the thriveos backend (refresh jobs, apply to a job, update savings, create or complete tasks, unlock achievements, run a terminal command).",
	}, s.handlePanelAction)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_focus_mode",
		Description: "Toggle focus mode. Enabling it minimizes every window.",
	}, s.handleToggleFocus)
}
