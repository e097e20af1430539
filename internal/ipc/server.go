package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/1broseidon/thriveos/internal/config"
	"github.com/1broseidon/thriveos/internal/daemon"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/notify"
	"github.com/1broseidon/thriveos/internal/panel"
	"github.com/1broseidon/thriveos/internal/runtimepath"
)

// commandTimeout bounds commands that wait on the access checker or the
// backend.
const commandTimeout = 30 * time.Second

// Session is the desktop the server drives.
type Session interface {
	Snapshot() daemon.Snapshot
	Catalog() []panel.Entry
	Open(ctx context.Context, id, credential string) (desktop.OpenResult, error)
	Close(id string) bool
	Minimize(id string) bool
	Restore(id string) bool
	BringToFront(id string) bool
	PointerDown(p desktop.Point) (desktop.Window, desktop.Region)
	PointerMove(p desktop.Point) (desktop.Point, bool)
	PointerUp()
	Notify(n notify.Notification) notify.Notification
	Dismiss(id string) bool
	RunAction(ctx context.Context, req panel.ActionRequest) (panel.ActionResult, error)
	ToggleFocus() bool
	SetViewport(size desktop.Size)
	Reload(cfg *config.Config) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	session      Session
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex

	// LoadConfig reads the configuration for RELOAD. Defaults to config.Load.
	LoadConfig func() (*config.Config, error)
}

// NewServer creates a new IPC server
func NewServer(session Session, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		session:    session,
		startTime:  time.Now(),
		reloadChan: reloadChan,
		LoadConfig: config.Load,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetState:
		return s.handleGetState()
	case CommandOpenWindow:
		return s.handleOpenWindow(req.Payload)
	case CommandCloseWindow:
		return s.handleWindow(req.Payload, s.session.Close)
	case CommandMinimizeWindow:
		return s.handleWindow(req.Payload, s.session.Minimize)
	case CommandRestoreWindow:
		return s.handleWindow(req.Payload, s.session.Restore)
	case CommandFrontWindow:
		return s.handleWindow(req.Payload, s.session.BringToFront)
	case CommandPointerDown:
		return s.handlePointerDown(req.Payload)
	case CommandPointerMove:
		return s.handlePointerMove(req.Payload)
	case CommandPointerUp:
		s.session.PointerUp()
		return okResponse(nil)
	case CommandNotify:
		return s.handleNotify(req.Payload)
	case CommandDismiss:
		return s.handleDismiss(req.Payload)
	case CommandPanelAction:
		return s.handlePanelAction(req.Payload)
	case CommandFocusMode:
		return okResponse(FocusData{Enabled: s.session.ToggleFocus()})
	case CommandSetViewport:
		return s.handleSetViewport(req.Payload)
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetState() *Response {
	return okResponse(StateData{
		Snapshot:      s.session.Snapshot(),
		Catalog:       s.session.Catalog(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleOpenWindow(payload json.RawMessage) *Response {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid open payload: %v", err))
	}
	if req.ID == "" {
		return NewErrorResponse("id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := s.session.Open(ctx, req.ID, req.Credential)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	log.Printf("IPC: open %s: %s", req.ID, res)
	return okResponse(OpenData{ID: req.ID, Result: res.String()})
}

// handleWindow runs a single-id window command.
func (s *Server) handleWindow(payload json.RawMessage, op func(id string) bool) *Response {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid window payload: %v", err))
	}
	if req.ID == "" {
		return NewErrorResponse("id is required")
	}
	return okResponse(ChangedData{Changed: op(req.ID)})
}

func (s *Server) handlePointerDown(payload json.RawMessage) *Response {
	var req PointerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid pointer payload: %v", err))
	}
	w, region := s.session.PointerDown(desktop.Point{X: req.X, Y: req.Y})
	return okResponse(PointerData{Window: w.ID, Region: region.String(), Position: w.Position})
}

func (s *Server) handlePointerMove(payload json.RawMessage) *Response {
	var req PointerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid pointer payload: %v", err))
	}
	pos, moved := s.session.PointerMove(desktop.Point{X: req.X, Y: req.Y})
	data := PointerData{Position: pos, Moved: moved}
	if moved {
		data.Window = s.session.Snapshot().Dragging
	}
	return okResponse(data)
}

func (s *Server) handleNotify(payload json.RawMessage) *Response {
	var req NotifyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid notify payload: %v", err))
	}
	if strings.TrimSpace(req.Title) == "" {
		return NewErrorResponse("title is required")
	}
	sev := notify.SeverityInfo
	if req.Severity != "" {
		sev = notify.Severity(strings.ToLower(req.Severity))
		if !sev.Valid() {
			return NewErrorResponse(fmt.Sprintf("Unknown severity: %s", req.Severity))
		}
	}
	n := s.session.Notify(notify.Notification{
		ID:       req.ID,
		Severity: sev,
		Title:    req.Title,
		Message:  req.Message,
	})
	return okResponse(n)
}

func (s *Server) handleDismiss(payload json.RawMessage) *Response {
	var req DismissPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid dismiss payload: %v", err))
	}
	if req.ID == "" {
		return NewErrorResponse("id is required")
	}
	return okResponse(ChangedData{Changed: s.session.Dismiss(req.ID)})
}

func (s *Server) handlePanelAction(payload json.RawMessage) *Response {
	var req panel.ActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid action payload: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := s.session.RunAction(ctx, req)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Action %s failed: %v", req.Action, err))
	}
	return okResponse(res)
}

func (s *Server) handleSetViewport(payload json.RawMessage) *Response {
	var req ViewportPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid viewport payload: %v", err))
	}
	if req.Width <= 0 || req.Height <= 0 {
		return NewErrorResponse("width and height must be > 0")
	}
	s.session.SetViewport(desktop.Size{Width: req.Width, Height: req.Height})
	return okResponse(nil)
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	newCfg, err := s.LoadConfig()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	if err := s.session.Reload(newCfg); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to apply config: %v", err))
	}

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	log.Println("IPC: Config reloaded successfully")
	return okResponse(nil)
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
