package palette

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

// menu drives any of the dmenu-compatible programs. Rofi and fuzzel print
// the row index; wofi and dmenu print the row text.
type menu struct {
	command string
}

func newMenu(command string) *menu {
	return &menu{command: command}
}

func (m *menu) Name() string { return m.command }

func (m *menu) indexOutput() bool {
	return m.command == "rofi" || m.command == "fuzzel"
}

func (m *menu) Show(ctx context.Context, prompt string, items []Item) (Item, error) {
	if len(items) == 0 {
		return Item{}, fmt.Errorf("palette: no items to show")
	}
	rows := m.labels(items)

	cmd := exec.CommandContext(ctx, m.command, m.args(prompt, items)...)
	cmd.Stdin = strings.NewReader(m.input(rows, items))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	selection := strings.TrimSpace(string(out))
	if err != nil {
		if selection == "" && isCancelExit(err) {
			return Item{}, ErrCancelled
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Item{}, fmt.Errorf("%s failed: %s", m.command, msg)
		}
		return Item{}, fmt.Errorf("%s failed: %w", m.command, err)
	}
	if selection == "" {
		return Item{}, ErrCancelled
	}
	return m.parse(selection, rows, items)
}

func (m *menu) args(prompt string, items []Item) []string {
	var args []string
	switch m.command {
	case "rofi":
		args = []string{"-dmenu", "-i", "-format", "i", "-no-custom", "-markup-rows", "-show-icons"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		var active, urgent []string
		for i, it := range items {
			if it.Active {
				active = append(active, strconv.Itoa(i))
			}
			if it.Urgent {
				urgent = append(urgent, strconv.Itoa(i))
			}
		}
		if len(active) > 0 {
			args = append(args, "-a", strings.Join(active, ","))
		}
		if len(urgent) > 0 {
			args = append(args, "-u", strings.Join(urgent, ","))
		}
	case "fuzzel":
		args = []string{"--dmenu", "--index"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
	case "wofi":
		args = []string{"--dmenu"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
	default:
		args = []string{"-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
	}
	return args
}

// labels returns the visible row text. Text-matching menus get duplicate
// labels numbered so every row stays addressable.
func (m *menu) labels(items []Item) []string {
	rows := make([]string, len(items))
	seen := make(map[string]int)
	for i, it := range items {
		label := sanitize(it.Label)
		if !m.indexOutput() {
			if n := seen[label]; n > 0 {
				seen[label]++
				label = fmt.Sprintf("%s (%d)", label, n+1)
			} else {
				seen[label] = 1
			}
		}
		rows[i] = label
	}
	return rows
}

func (m *menu) input(rows []string, items []Item) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		if m.command != "rofi" {
			lines[i] = row
			continue
		}
		// Rofi row properties: one NUL, then key\x1fvalue pairs.
		line := html.EscapeString(row)
		var attrs []string
		if items[i].Icon != "" {
			attrs = append(attrs, "icon", sanitize(items[i].Icon))
		}
		if items[i].Info != "" {
			attrs = append(attrs, "info", sanitize(items[i].Info))
		}
		if len(attrs) > 0 {
			line += "\x00" + strings.Join(attrs, "\x1f")
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m *menu) parse(selection string, rows []string, items []Item) (Item, error) {
	if m.indexOutput() {
		if idx, err := strconv.Atoi(selection); err == nil {
			if idx < 0 || idx >= len(items) {
				return Item{}, fmt.Errorf("palette: index %d out of range", idx)
			}
			return items[idx], nil
		}
	}
	for i, row := range rows {
		if row == selection {
			return items[i], nil
		}
	}
	return Item{}, fmt.Errorf("palette: unknown selection %q", selection)
}

func sanitize(s string) string {
	s = strings.NewReplacer("\x00", " ", "\x1f", " ", "\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}

// isCancelExit matches the "no selection" (1) and Ctrl+C (130) exits.
func isCancelExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	code := exitErr.ExitCode()
	return code == 1 || code == 130
}
