// Package tui renders a desktop session in the terminal: draggable windows,
// desktop icons, a taskbar and the notification stack, all driven by mouse
// and keyboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/thriveos/internal/access"
	"github.com/1broseidon/thriveos/internal/daemon"
)

// Options wires the access modal.
type Options struct {
	// Prompts delivers elevated-access requests to answer in a modal. Nil
	// means the session's checker never asks.
	Prompts *access.Broker
	// Verify checks what was typed into the modal. Nil turns the modal into
	// a plain confirmation.
	Verify access.Checker
	// Grant is forgotten by the lock key.
	Grant *access.Session
}

// Run drives session and shows it until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, session *daemon.Session, opts Options) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	p := tea.NewProgram(newModel(ctx, session, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	interrupted := ctx.Err() != nil

	cancel()
	if opts.Prompts != nil {
		opts.Prompts.DenyAll()
	}
	if runErr := <-done; runErr != nil && err == nil {
		err = runErr
	}
	if interrupted && errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, tea.ErrProgramPanic) {
		return nil
	}
	return err
}
