package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// Prompt asks on the controlling terminal. When Credential is set the user is
// asked for a passphrase which is then checked by Verify; otherwise a yes/no
// confirmation decides.
type Prompt struct {
	Credential bool
	Verify     Checker
}

// Confirm implements Checker.
func (p Prompt) Confirm(ctx context.Context, req Request) (bool, error) {
	title := req.Title
	if title == "" {
		title = req.WindowID
	}

	if p.Credential {
		var secret string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s requires elevated access", title)).
				Description("Enter the desktop passphrase").
				EchoMode(huh.EchoModePassword).
				Value(&secret),
		))
		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return false, nil
			}
			return false, fmt.Errorf("passphrase prompt: %w", err)
		}
		if p.Verify == nil {
			return secret != "", nil
		}
		req.Credential = secret
		return p.Verify.Confirm(ctx, req)
	}

	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Open %s with elevated access?", title)).
			Affirmative("Open").
			Negative("Cancel").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return ok, nil
}
