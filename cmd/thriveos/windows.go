package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/ipc"
	"github.com/1broseidon/thriveos/internal/mcp"
	"github.com/1broseidon/thriveos/internal/panel"
)

// slowTimeout covers commands that wait on an access prompt or the backend.
const slowTimeout = 45 * time.Second

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printStatus(w io.Writer, state *ipc.StateData) {
	fmt.Fprintf(w, "daemon_running: true\n")
	fmt.Fprintf(w, "uptime:         %s\n", (time.Duration(state.UptimeSeconds) * time.Second).String())
	fmt.Fprintf(w, "viewport:       %dx%d\n", state.Viewport.Width, state.Viewport.Height)
	fmt.Fprintf(w, "windows:        %d\n", len(state.Windows))
	fmt.Fprintf(w, "focused:        %s\n", orDash(state.Focused))
	fmt.Fprintf(w, "focus_mode:     %v\n", state.FocusMode)
	fmt.Fprintf(w, "notifications:  %d\n", len(state.Notifications))

	b := state.Backend
	switch {
	case !b.Configured:
		fmt.Fprintf(w, "backend:        not configured\n")
	case b.Online:
		fmt.Fprintf(w, "backend:        online (refreshed %s)\n", humanize.Time(b.LastRefresh))
	default:
		fmt.Fprintf(w, "backend:        offline: %s\n", orDash(b.LastError))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos windows [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List open windows in taskbar order.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	state, err := ipc.NewClient().GetState()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(state.Windows)
	}
	if len(state.Windows) == 0 {
		fmt.Println("no windows open")
		return 0
	}
	fmt.Printf("%-14s %-18s %-10s %-11s %-11s %s\n", "ID", "TITLE", "STATE", "POSITION", "SIZE", "Z")
	for _, w := range state.Windows {
		id := w.ID
		if w.ID == state.Focused {
			id += "*"
		}
		fmt.Printf("%-14s %-18s %-10s %-11s %-11s %d\n",
			id, w.Title, w.Lifecycle,
			fmt.Sprintf("%d,%d", w.Position.X, w.Position.Y),
			fmt.Sprintf("%dx%d", w.Size.Width, w.Size.Height),
			w.ZIndex)
	}
	return 0
}

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	credential := fs.String("credential", "", "Passphrase for elevated panels")
	ask := fs.Bool("ask", false, "Prompt for the passphrase when an elevated panel is denied")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos open [--credential SECRET] [--ask] <panel-id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a panel window. Prints created, already_open, revived or denied.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id := fs.Arg(0)

	client := ipc.NewClient().WithTimeout(slowTimeout)
	res, err := client.Open(id, *credential)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res.Result == "denied" && *ask && *credential == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		res, err = openWithPrompt(client, id)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	fmt.Println(res.Result)
	if res.Result == "denied" {
		return 1
	}
	return 0
}

// openWithPrompt asks for the passphrase on the terminal and retries the
// open with it.
func openWithPrompt(client *ipc.Client, id string) (*ipc.OpenData, error) {
	title := id
	if state, err := client.GetState(); err == nil {
		if e, ok := panel.Lookup(state.Catalog, id); ok {
			title = e.Title
		}
	}

	var last *ipc.OpenData
	prompt := access.Prompt{
		Credential: true,
		Verify: access.CheckerFunc(func(_ context.Context, req access.Request) (bool, error) {
			res, err := client.Open(req.WindowID, req.Credential)
			if err != nil {
				return false, err
			}
			last = res
			return res.Result != "denied", nil
		}),
	}
	if _, err := prompt.Confirm(context.Background(), access.Request{WindowID: id, Title: title}); err != nil {
		return nil, err
	}
	if last == nil {
		return &ipc.OpenData{ID: id, Result: "denied"}, nil
	}
	return last, nil
}

func runWindowCommand(name string, args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: thriveos %s <window-id>\n", name)
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	ops := map[string]func(string) (bool, error){
		"close":    client.Close,
		"minimize": client.Minimize,
		"restore":  client.Restore,
		"front":    client.Front,
	}
	changed, err := ops[name](fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !changed {
		fmt.Fprintf(os.Stderr, "%s: no change for %q\n", name, fs.Arg(0))
		return 1
	}
	return 0
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos move <window-id> <x> <y>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Drag a window by its title bar. The result is clamped to the viewport.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 2
	}
	x, errX := strconv.Atoi(fs.Arg(1))
	y, errY := strconv.Atoi(fs.Arg(2))
	if errX != nil || errY != nil {
		fmt.Fprintln(os.Stderr, "x and y must be integers")
		return 2
	}

	pos, err := mcp.MoveWindow(ipc.NewClient(), fs.Arg(0), x, y)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("%d,%d\n", pos.X, pos.Y)
	return 0
}

func runFocus(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: thriveos focus")
		return 2
	}
	on, err := ipc.NewClient().ToggleFocus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if on {
		fmt.Println("focus mode: on")
	} else {
		fmt.Println("focus mode: off")
	}
	return 0
}

func runViewport(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: thriveos viewport <width>x<height>")
		return 2
	}
	w, h, ok := strings.Cut(strings.ToLower(args[0]), "x")
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if !ok || errW != nil || errH != nil || width <= 0 || height <= 0 {
		fmt.Fprintf(os.Stderr, "invalid viewport %q (want e.g. 1920x1080)\n", args[0])
		return 2
	}
	if err := ipc.NewClient().SetViewport(width, height); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runNotify(args []string) int {
	fs := flag.NewFlagSet("notify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	severity := fs.String("severity", "info", "info, success, warning, error or achievement")
	id := fs.String("id", "", "Notification id (default: generated)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos notify [--severity S] [--id ID] <title> [message]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return 2
	}

	n, err := ipc.NewClient().Notify(ipc.NotifyPayload{
		ID:       *id,
		Severity: *severity,
		Title:    fs.Arg(0),
		Message:  fs.Arg(1),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(n.ID)
	return 0
}

func runNotifications(args []string) int {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	state, err := ipc.NewClient().GetState()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(state.Notifications)
	}
	if len(state.Notifications) == 0 {
		fmt.Println("no notifications")
		return 0
	}
	for _, n := range state.Notifications {
		age := humanize.RelTime(n.CreatedAt, state.Now, "ago", "from now")
		fmt.Printf("%-12s %-11s %-24s %s (%s)\n", n.ID, n.Severity, n.Title, n.Message, age)
	}
	return 0
}

func runDismiss(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: thriveos dismiss <notification-id>")
		return 2
	}
	changed, err := ipc.NewClient().Dismiss(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !changed {
		fmt.Fprintf(os.Stderr, "no notification %q\n", args[0])
		return 1
	}
	return 0
}

func runAction(args []string) int {
	fs := flag.NewFlagSet("action", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var req panel.ActionRequest
	fs.StringVar(&req.Target, "target", "", "Job, task or achievement id")
	fs.Float64Var(&req.Amount, "amount", 0, "Amount for savings.update")
	fs.StringVar(&req.Title, "title", "", "Title for tasks.create")
	fs.StringVar(&req.Description, "description", "", "Description for tasks.create")
	fs.StringVar(&req.Priority, "priority", "", "Priority for tasks.create")
	fs.StringVar(&req.Category, "category", "", "Category for tasks.create")
	fs.StringVar(&req.Command, "command", "", "Command line for terminal.command")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos action [flags] <action>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintf(os.Stderr, "Actions: %s\n", strings.Join(panel.Actions(), ", "))
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	req.Action = panel.Action(fs.Arg(0))

	res, err := ipc.NewClient().WithTimeout(slowTimeout).Action(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	for _, line := range res.Output {
		fmt.Println(line)
	}
	return 0
}
