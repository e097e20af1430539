package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/config"
	"github.com/1broseidon/thriveos/internal/daemon"
	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/hotkeys"
	"github.com/1broseidon/thriveos/internal/ipc"
	"github.com/1broseidon/thriveos/internal/platform"
	"github.com/1broseidon/thriveos/internal/tui"
	"github.com/1broseidon/thriveos/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "open":
		os.Exit(runOpen(os.Args[2:]))
	case "launch":
		os.Exit(runLaunch(os.Args[2:]))
	case "close", "minimize", "restore", "front":
		os.Exit(runWindowCommand(os.Args[1], os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "focus":
		os.Exit(runFocus(os.Args[2:]))
	case "viewport":
		os.Exit(runViewport(os.Args[2:]))
	case "notify":
		os.Exit(runNotify(os.Args[2:]))
	case "notifications":
		os.Exit(runNotifications(os.Args[2:]))
	case "dismiss":
		os.Exit(runDismiss(os.Args[2:]))
	case "action":
		os.Exit(runAction(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: thriveos <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the thriveos daemon (foreground)")
	fmt.Fprintln(w, "  tui                 Run the desktop in this terminal")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  windows             List open windows")
	fmt.Fprintln(w, "  open                Open a panel window")
	fmt.Fprintln(w, "  launch              Pick a panel from a menu and open it")
	fmt.Fprintln(w, "  close               Close a window")
	fmt.Fprintln(w, "  minimize            Toggle a window minimized")
	fmt.Fprintln(w, "  restore             Restore a minimized window")
	fmt.Fprintln(w, "  front               Bring a window to the front")
	fmt.Fprintln(w, "  move                Drag a window to a position")
	fmt.Fprintln(w, "  focus               Toggle focus mode")
	fmt.Fprintln(w, "  viewport            Set the desktop size")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  notify              Show a notification")
	fmt.Fprintln(w, "  notifications       List visible notifications")
	fmt.Fprintln(w, "  dismiss             Dismiss a notification")
	fmt.Fprintln(w, "  action              Run a panel action against the backend")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'thriveos <command> --help' for command-specific options.")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

// resolveViewport replaces the configured size with the detected display
// size when viewport.detect asks for it.
func resolveViewport(cfg *config.Config, logger *slog.Logger) error {
	fallback := desktop.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height}
	vp, err := platform.DetectViewport(cfg.Viewport.Detect, fallback, platform.Open)
	if err != nil {
		return fmt.Errorf("viewport detection: %w", err)
	}
	cfg.Viewport.Width = vp.Size.Width
	cfg.Viewport.Height = vp.Size.Height
	logger.Info("viewport resolved", "width", vp.Size.Width, "height", vp.Size.Height, "source", vp.Source)
	return nil
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/thriveos/config.yaml)")
	noHotkeys := fs.Bool("no-hotkeys", false, "Do not grab global X11 hotkeys")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos daemon [--path PATH] [--no-hotkeys]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the desktop session in the foreground and serve it over IPC.")
		fmt.Fprintln(os.Stderr, "SIGHUP reloads the configuration.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	logger := newLogger(cfg)
	if err := resolveViewport(cfg, logger); err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	session, err := daemon.New(daemon.Options{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	reloadChan := make(chan struct{}, 1)
	ipcServer, err := ipc.NewServer(session, reloadChan)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if *path != "" {
		ipcServer.LoadConfig = func() (*config.Config, error) { return loadConfig(*path) }
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	if !*noHotkeys && len(cfg.Hotkeys) > 0 {
		startHotkeys(ctx, cfg, session, logger)
	}

	logger.Info("thriveos daemon started", "socket", ipcServer.SocketPath(), "access", cfg.Access.Mode)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading config")
				newCfg, err := ipcServer.LoadConfig()
				if err != nil {
					logger.Warn("config reload failed", "error", err)
					continue
				}
				if err := session.Reload(newCfg); err != nil {
					logger.Warn("config reload failed", "error", err)
					continue
				}
				logger.Info("config reloaded")
				continue
			}
			logger.Info("shutting down thriveos daemon")
			cancel()
			<-done
			return 0

		case <-reloadChan:
			logger.Debug("config reloaded via IPC")

		case err := <-done:
			if err != nil {
				logger.Error("session stopped", "error", err)
				return 1
			}
			return 0
		}
	}
}

// startHotkeys grabs the configured key sequences on the X display. Without
// a display the daemon runs on without them.
func startHotkeys(ctx context.Context, cfg *config.Config, session *daemon.Session, logger *slog.Logger) {
	conn, err := x11.NewConnection()
	if err != nil {
		logger.Warn("hotkeys disabled", "error", err)
		return
	}
	h := hotkeys.NewHandler(conn)
	if err := hotkeys.Bind(ctx, h, cfg.Hotkeys, session, logger); err != nil {
		logger.Warn("some hotkeys were not registered", "error", err)
	}
	go h.Run(ctx)
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/thriveos/config.yaml)")
	serve := fs.Bool("serve", false, "Also serve the session over IPC so other commands can drive it")

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: thriveos tui [--path PATH] [--serve]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the desktop in this terminal. Click icons to open panels, drag")
		fmt.Fprintln(os.Stderr, "title bars to move windows, click taskbar tabs to switch.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  1-9       Open the matching desktop icon")
		fmt.Fprintln(os.Stderr, "  Tab       Cycle windows")
		fmt.Fprintln(os.Stderr, "  x / m     Close / minimize the focused window")
		fmt.Fprintln(os.Stderr, "  f         Toggle focus mode")
		fmt.Fprintln(os.Stderr, "  r / u     Refresh backend data / refresh jobs")
		fmt.Fprintln(os.Stderr, "  :         Type a command into a focused terminal window")
		fmt.Fprintln(os.Stderr, "  Esc       Dismiss the newest notification")
		fmt.Fprintln(os.Stderr, "  L         Forget granted elevated access")
		fmt.Fprintln(os.Stderr, "  q         Quit")
		fmt.Fprintln(os.Stderr, "  Ctrl+C    Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	// The screen belongs to the TUI; logs only go out when asked for.
	logger := slog.New(slog.DiscardHandler)
	if cfg.Logging.Level == "debug" {
		logger = newLogger(cfg)
	}
	if err := resolveViewport(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	opts, checker, err := tuiAccess(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	session, err := daemon.New(daemon.Options{Config: cfg, Logger: logger, Checker: checker})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *serve {
		ipcServer, err := ipc.NewServer(session, make(chan struct{}, 1))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := ipcServer.Start(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer ipcServer.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := tui.Run(ctx, session, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// tuiAccess routes elevated-access requests to the in-terminal modal. In
// passphrase mode the typed secret is checked against the configured one and
// a grant lasts until the lock key; allow and deny keep the configured
// checker.
func tuiAccess(cfg *config.Config) (tui.Options, access.Checker, error) {
	mode, err := access.ParseMode(cfg.Access.Mode)
	if err != nil {
		return tui.Options{}, nil, err
	}
	if mode != access.ModePassphrase {
		return tui.Options{}, nil, nil
	}
	verify, err := cfg.Checker()
	if err != nil {
		return tui.Options{}, nil, err
	}
	broker := access.NewBroker(1)
	grant := access.NewSession(broker)
	return tui.Options{Prompts: broker, Verify: verify, Grant: grant}, grant, nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	state, err := ipc.NewClient().GetState()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printStatus(os.Stdout, state)
	return 0
}

func runReload(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: thriveos reload")
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config: reloaded")
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
