package ui

import (
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/sttts/kubexp/internal/overlay"
)

const (
	// used until the first WindowSizeMsg arrives
	defaultWidth  = 80
	defaultHeight = 24

	margin       = 2
	helpHeight   = 1
	inputHeight  = 3
	minBoxHeight = 3
	minBoxWidth  = 3
	tabWidth     = 8
)

type rect struct{ x, y, w, h int }

// screenLayout is the fixed vertical split: help line, input box, output box.
type screenLayout struct {
	help, input, output rect
}

func (a *App) layout() screenLayout {
	w, h := a.width, a.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	innerW := max(minBoxWidth, w-2*margin)
	innerH := h - 2*margin
	outH := max(minBoxHeight, innerH-helpHeight-inputHeight)
	return screenLayout{
		help:   rect{x: margin, y: margin, w: innerW, h: helpHeight},
		input:  rect{x: margin, y: margin + helpHeight, w: innerW, h: inputHeight},
		output: rect{x: margin, y: margin + helpHeight + inputHeight, w: innerW, h: outH},
	}
}

// View renders the three panes and places the cursor after the input text.
// It does not modify the model.
func (a *App) View() (string, *tea.Cursor) {
	l := a.layout()
	pad := strings.Repeat(" ", margin)

	body := []string{a.renderHelp(l.help.w)}
	body = append(body, a.renderInput(l.input)...)
	body = append(body, a.renderOutput(l.output)...)

	rows := make([]string, 0, len(body)+2*margin)
	for i := 0; i < margin; i++ {
		rows = append(rows, "")
	}
	for _, r := range body {
		rows = append(rows, pad+r)
	}
	for i := 0; i < margin; i++ {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n"), a.cursor(l)
}

// cursor sits one cell past the input text on the first line inside the box.
// Width is measured in terminal cells, not bytes.
func (a *App) cursor(l screenLayout) *tea.Cursor {
	return tea.NewCursor(l.input.x+ansi.StringWidth(string(a.input))+1, l.input.y+1)
}

type helpSegment struct {
	text string
	key  bool
}

func (a *App) renderHelp(width int) string {
	var segs []helpSegment
	base := HelpStyle
	switch a.mode {
	case ModeNormal:
		base = HelpNormalStyle
		segs = []helpSegment{
			{text: "Press "}, {text: "q", key: true}, {text: " to exit, "},
			{text: "i", key: true}, {text: " to start editing."},
		}
	case ModeEditing:
		segs = []helpSegment{
			{text: "Press "}, {text: "Esc", key: true}, {text: " to stop editing, "},
			{text: "Enter", key: true}, {text: " to explain the input."},
		}
	}
	if a.pending != 0 {
		segs = append(segs, helpSegment{text: "  Running " + a.pendingLabel + ", "}, helpSegment{text: "Ctrl+C", key: true}, helpSegment{text: " cancels."})
	}

	var b strings.Builder
	for _, s := range segs {
		b.WriteString(base.Bold(s.key).Render(s.text))
	}
	return ansi.Truncate(b.String(), width, "")
}

func (a *App) renderInput(r rect) []string {
	style := InputNormalStyle
	if a.mode == ModeEditing {
		style = InputEditingStyle
	}
	return frame("Input", []string{string(a.input)}, r.w, r.h, style)
}

func (a *App) renderOutput(r rect) []string {
	visible := r.h - 2
	all := outputLines(a.output)
	start := clampScroll(a.scroll, a.output, visible)
	end := min(len(all), start+visible)
	box := frame(a.outputTitle(), all[start:end], r.w, r.h, lipgloss.NewStyle())

	if a.pending != 0 && a.busyVisible {
		composed := overlay.Composite(a.renderBusyOverlay(r.w-2), strings.Join(box, "\n"), overlay.Center, overlay.Center, 0, 0)
		box = strings.Split(composed, "\n")
	}
	return box
}

func (a *App) outputTitle() string {
	if t := a.kubeCtx.Title(); t != "" {
		return "kubexp (" + t + ")"
	}
	return "kubexp"
}

// frame draws a w×h box with title on the top border and content inside,
// clipped to the interior.
func frame(title string, content []string, w, h int, textStyle lipgloss.Style) []string {
	border := lipgloss.NormalBorder()
	inner := max(0, w-2)
	side := FrameBorderStyle.Render(border.Left)
	sideRight := FrameBorderStyle.Render(border.Right)

	title = ansi.Truncate(title, inner, "")
	titleWidth := ansi.StringWidth(title)
	top := FrameBorderStyle.Render(border.TopLeft) +
		FrameTitleStyle.Render(title) +
		FrameBorderStyle.Render(strings.Repeat(border.Top, inner-titleWidth)+border.TopRight)

	rows := make([]string, 0, h)
	rows = append(rows, top)
	for i := 0; i < h-2; i++ {
		line := ""
		if i < len(content) {
			line = content[i]
		}
		rows = append(rows, side+fit(line, inner, textStyle)+sideRight)
	}
	rows = append(rows, FrameBorderStyle.Render(border.BottomLeft+strings.Repeat(border.Bottom, inner)+border.BottomRight))
	return rows
}

// fit clips s to width cells, styles it, and pads with plain spaces.
func fit(s string, width int, style lipgloss.Style) string {
	s = ansi.Truncate(s, width, "")
	w := ansi.StringWidth(s)
	if s != "" {
		s = style.Render(s)
	}
	return s + strings.Repeat(" ", width-w)
}

func truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}

// outputLines splits the output for display. One trailing newline does not
// produce an empty last line; tabs are expanded to fixed stops. Escape
// sequences and other control characters are removed so they cannot move the
// terminal cursor out of the box.
func outputLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		ln = stripControls(ln)
		if strings.Contains(ln, "\t") {
			ln = expandTabs(ln)
		}
		lines[i] = ln
	}
	return lines
}

func stripControls(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s)
}

func isControl(r rune) bool {
	return r != '\t' && unicode.IsControl(r)
}

func expandTabs(s string) string {
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += ansi.StringWidth(string(r))
	}
	return b.String()
}

// clampScroll keeps offset within the lines of output that can scroll into
// a window of visible lines.
func clampScroll(offset int, output string, visible int) int {
	maxOffset := max(0, len(outputLines(output))-max(1, visible))
	return min(max(offset, 0), maxOffset)
}
