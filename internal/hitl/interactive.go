package hitl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"warden/internal/decision"
)

var (
	pauseTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	pauseMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	promptStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// Interactive prompts a terminal user for each pause. Reads y/yes/c/continue
// as CONTINUE and n/no/s/stop as STOP; anything else re-prompts.
type Interactive struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractive creates an interactive resolver over the given streams.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Resolve implements Resolver.
func (i *Interactive) Resolve(ctx context.Context, p Pause) (decision.Resolution, error) {
	fmt.Fprintln(i.out, pauseTitleStyle.Render("⏸ HITL pause"))
	fmt.Fprintln(i.out, pauseMetaStyle.Render(fmt.Sprintf("  task: %s  layer: %s  reason: %s", p.TaskID, p.Layer, p.ReasonCode)))
	if p.Excerpt != "" {
		fmt.Fprintln(i.out, pauseMetaStyle.Render("  excerpt: "+p.Excerpt))
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fmt.Fprint(i.out, promptStyle.Render("  continue? [y/n] "))
		line, err := i.in.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read resolution: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "c", "continue":
			return decision.Continue, nil
		case "n", "no", "s", "stop":
			return decision.Stop, nil
		default:
			fmt.Fprintln(i.out, pauseMetaStyle.Render("  answer y or n"))
		}
	}
}
