package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
)

// ConsoleNotifier renders messages to a terminal instead of sending them. It is used
// for dry runs.
type ConsoleNotifier struct {
	Out io.Writer
	// Style is a glamour standard style name; "notty" gives plain output.
	Style string
}

// NewConsoleNotifier creates a ConsoleNotifier writing to stdout.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{Out: os.Stdout, Style: "auto"}
}

func (c *ConsoleNotifier) Name() string { return "console" }

// Deliver renders the message as Markdown. Rendering failures fall back to the raw text.
func (c *ConsoleNotifier) Deliver(_ context.Context, msg Message) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(100)}
	if c.Style == "" || c.Style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(c.Style))
	}

	text := msg.Text()
	rendered := text
	if renderer, err := glamour.NewTermRenderer(opts...); err == nil {
		if r, err := renderer.Render(text); err == nil {
			rendered = r
		}
	}

	if _, err := fmt.Fprintf(out, "[%s] %s", msg.Channel, rendered); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}
