// Package overlay places a small rendered block on top of a larger one.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// Position anchors a foreground inside its background.
type Position int

const (
	Top Position = iota + 1
	Right
	Bottom
	Left
	Center
)

// Composite draws fg over bg at the given position plus offsets. The result
// has the size of bg; fg is clamped so it never spills over the edges.
// Widths are measured in visible cells, so ANSI-styled input is fine.
func Composite(fg, bg string, xPos, yPos Position, xOff, yOff int) string {
	fgWidth, fgHeight := lipgloss.Width(fg), lipgloss.Height(fg)
	bgWidth, bgHeight := lipgloss.Width(bg), lipgloss.Height(bg)
	if fgWidth >= bgWidth && fgHeight >= bgHeight {
		return fg
	}

	x, y := offsets(fg, bg, xPos, yPos, xOff, yOff)
	x = clamp(x, 0, bgWidth-fgWidth)
	y = clamp(y, 0, bgHeight-fgHeight)

	fgLines := lines(fg)
	bgLines := lines(bg)
	var sb strings.Builder
	for i, bgLine := range bgLines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if i < y || i >= y+fgHeight {
			sb.WriteString(bgLine)
			continue
		}

		pos := 0
		if x > 0 {
			left := ansi.Truncate(bgLine, x, "")
			pos = ansi.StringWidth(left)
			sb.WriteString(left)
			if pos < x {
				sb.WriteString(strings.Repeat(" ", x-pos))
				pos = x
			}
		}

		fgLine := fgLines[i-y]
		sb.WriteString(fgLine)
		pos += ansi.StringWidth(fgLine)

		right := ansi.TruncateLeft(bgLine, pos, "")
		lineWidth := ansi.StringWidth(bgLine)
		rightWidth := ansi.StringWidth(right)
		if rightWidth <= lineWidth-pos {
			sb.WriteString(strings.Repeat(" ", lineWidth-rightWidth-pos))
		}
		sb.WriteString(right)
	}
	return sb.String()
}

// offsets centers by halving both sizes separately, so odd remainders push
// the foreground left and up.
func offsets(fg, bg string, xPos, yPos Position, xOff, yOff int) (int, int) {
	var x, y int
	switch xPos {
	case Center:
		x = lipgloss.Width(bg)/2 - lipgloss.Width(fg)/2
	case Right:
		x = lipgloss.Width(bg) - lipgloss.Width(fg)
	}
	switch yPos {
	case Center:
		y = lipgloss.Height(bg)/2 - lipgloss.Height(fg)/2
	case Bottom:
		y = lipgloss.Height(bg) - lipgloss.Height(fg)
	}
	return x + xOff, y + yOff
}

func clamp(v, lower, upper int) int {
	if upper < lower {
		return v
	}
	return min(max(v, lower), upper)
}

func lines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
