package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// paint is the style class of one canvas cell.
type paint uint8

const (
	paintDesk paint = iota
	paintIcon
	paintIconElevated
	paintFrame
	paintFrameFocused
	paintTitle
	paintTitleFocused
	paintBody
	paintDim
	paintBar
	paintTab
	paintTabActive
	paintTabMinimized
	paintInfo
	paintSuccess
	paintWarning
	paintError
	paintAchievement
)

var paintStyles = map[paint]lipgloss.Style{
	paintDesk:         lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	paintIcon:         lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	paintIconElevated: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	paintFrame:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	paintFrameFocused: lipgloss.NewStyle().Foreground(lipgloss.Color("62")),
	paintTitle:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	paintTitleFocused: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")),
	paintBody:         lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	paintDim:          lipgloss.NewStyle().Foreground(lipgloss.Color("239")),
	paintBar:          lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("235")),
	paintTab:          lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236")),
	paintTabActive:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")),
	paintTabMinimized: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")),
	paintInfo:         lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	paintSuccess:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	paintWarning:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	paintError:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	paintAchievement:  lipgloss.NewStyle().Foreground(lipgloss.Color("177")),
}

// canvas is a grid of runes with a parallel grid of styles. Later draws
// overwrite earlier ones, so callers paint bottom to top.
type canvas struct {
	w, h   int
	cells  [][]rune
	styles [][]paint
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]rune, h), styles: make([][]paint, h)}
	for y := range c.cells {
		c.cells[y] = []rune(strings.Repeat(" ", w))
		c.styles[y] = make([]paint, w)
	}
	return c
}

func (c *canvas) set(x, y int, r rune, p paint) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y][x] = r
	c.styles[y][x] = p
}

// fill paints every cell of r.
func (c *canvas) fill(r rect, ch rune, p paint) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			c.set(x, y, ch, p)
		}
	}
}

// text writes s from (x, y), stopping at limit columns. Wide runes are
// replaced so every rune maps to one cell.
func (c *canvas) text(x, y int, s string, limit int, p paint) {
	i := 0
	for _, r := range s {
		if i >= limit {
			return
		}
		if runewidth.RuneWidth(r) != 1 {
			r = '?'
		}
		c.set(x+i, y, r, p)
		i++
	}
}

// box draws a single-line border around r.
func (c *canvas) box(r rect, p paint) {
	if r.W < 2 || r.H < 2 {
		return
	}
	x2, y2 := r.right(), r.bottom()
	for x := r.X; x <= x2; x++ {
		c.set(x, r.Y, '─', p)
		c.set(x, y2, '─', p)
	}
	for y := r.Y; y <= y2; y++ {
		c.set(r.X, y, '│', p)
		c.set(x2, y, '│', p)
	}
	c.set(r.X, r.Y, '┌', p)
	c.set(x2, r.Y, '┐', p)
	c.set(r.X, y2, '└', p)
	c.set(x2, y2, '┘', p)
}

// plain returns the canvas text without styling.
func (c *canvas) plain() []string {
	lines := make([]string, c.h)
	for y, row := range c.cells {
		lines[y] = string(row)
	}
	return lines
}

// render styles runs of equal paint and joins the rows.
func (c *canvas) render() string {
	var b strings.Builder
	for y, row := range c.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && c.styles[y][x] == c.styles[y][start] {
				continue
			}
			b.WriteString(paintStyles[c.styles[y][start]].Render(string(row[start:x])))
			start = x
		}
	}
	return b.String()
}
