package reflexion

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ThoughtRenderer renders accepted thoughts for human display. Rendering is
// fire-and-forget: implementations must not fail the call or feed anything
// back into handler state.
type ThoughtRenderer interface {
	RenderThought(t Thought, round int)
}

type nopRenderer struct{}

func (nopRenderer) RenderThought(Thought, int) {}

// NopRenderer returns a renderer that discards everything. It is the
// default for constructed trackers.
func NopRenderer() ThoughtRenderer {
	return nopRenderer{}
}

type consoleRenderer struct {
	out io.Writer
}

// NewConsoleRenderer returns a renderer that draws each thought as a boxed,
// role-colored block on the given writer. The writer must not be the MCP
// transport's stdout.
func NewConsoleRenderer(out io.Writer) ThoughtRenderer {
	return &consoleRenderer{out: out}
}

func (r *consoleRenderer) RenderThought(t Thought, round int) {
	var roleLabel string
	switch t.Role {
	case RoleActor:
		roleLabel = color.New(color.FgBlue, color.Bold).Sprint("🎭 Actor")
	case RoleCritic:
		roleLabel = color.New(color.FgYellow, color.Bold).Sprint("🔍 Critic")
	}

	header := fmt.Sprintf("%s %d/%d (round %d)", roleLabel, t.ThoughtNumber, t.TotalThoughts, round)

	width := displayWidth(header)
	lines := strings.Split(t.Content, "\n")
	for _, line := range lines {
		if w := displayWidth(line); w > width {
			width = w
		}
	}

	border := strings.Repeat("─", width+2)
	fmt.Fprintf(r.out, "\n┌%s┐\n", border)
	fmt.Fprintf(r.out, "│ %s%s │\n", header, pad(header, width))
	fmt.Fprintf(r.out, "├%s┤\n", border)
	for _, line := range lines {
		fmt.Fprintf(r.out, "│ %s%s │\n", line, pad(line, width))
	}
	fmt.Fprintf(r.out, "└%s┘\n", border)
}

// displayWidth counts runes, skipping ANSI color sequences so colored
// headers line up with the box borders.
func displayWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			width++
		}
	}
	return width
}

func pad(s string, width int) string {
	if n := width - displayWidth(s); n > 0 {
		return strings.Repeat(" ", n)
	}
	return ""
}
