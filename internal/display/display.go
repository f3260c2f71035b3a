// Package display renders graft output to the terminal: styled status
// lines, markdown replies, diff previews, and the confirmation prompt.
// It implements the sink interfaces consumed by the apply engine and the
// agent loop so neither has to know about terminals.
package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"graft/internal/diffview"
	"graft/internal/tokens"

	"github.com/charmbracelet/glamour"
)

// Display writes styled output to a terminal or any writer.
type Display struct {
	out      io.Writer
	in       *bufio.Reader
	styles   Styles
	renderer *glamour.TermRenderer
}

// Option configures a Display.
type Option func(*Display)

// WithWriter redirects output, used by tests and pipes.
func WithWriter(w io.Writer) Option {
	return func(d *Display) {
		d.out = w
		d.styles = PlainStyles()
	}
}

// WithInput sets the reader answering confirmation prompts.
func WithInput(r io.Reader) Option {
	return func(d *Display) { d.in = bufio.NewReader(r) }
}

// New creates a Display writing to stdout with markdown rendering.
func New(opts ...Option) *Display {
	d := &Display{
		out:    os.Stdout,
		in:     bufio.NewReader(os.Stdin),
		styles: DefaultStyles(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.out == os.Stdout {
		d.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}
	return d
}

// Welcome prints the startup banner.
func (d *Display) Welcome(version, model string, contextWindow int) {
	fmt.Fprintf(d.out, "\n  %s | Model: %s\n", d.styles.Title.Render("graft v"+version), model)
	fmt.Fprintf(d.out, "  Context: 0 / %s tokens\n", formatInt(contextWindow))
	fmt.Fprintln(d.out, "  Type /help for commands, /quit to exit")
	fmt.Fprintln(d.out)
}

// Message prints a chat message. Assistant messages render as markdown
// when a terminal renderer is available.
func (d *Display) Message(content, role string) {
	if role != "assistant" {
		fmt.Fprintf(d.out, "%s %s\n", d.styles.Bold.Render("You>"), content)
		return
	}
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(content); err == nil {
			fmt.Fprintln(d.out, rendered)
			return
		}
	}
	fmt.Fprintf(d.out, "\n%s\n\n", content)
}

// Info prints an indented informational line.
func (d *Display) Info(msg string) {
	fmt.Fprintf(d.out, "  %s\n", msg)
}

// Success prints a checkmarked success line.
func (d *Display) Success(msg string) {
	fmt.Fprintf(d.out, "%s %s\n", d.styles.Success.Render("✓"), msg)
}

// Warning prints a warning line.
func (d *Display) Warning(msg string) {
	fmt.Fprintf(d.out, "%s %s\n", d.styles.Warning.Render("Warning:"), msg)
}

// Error prints an error line.
func (d *Display) Error(msg string) {
	fmt.Fprintf(d.out, "%s %s\n", d.styles.Error.Render("Error:"), msg)
}

// Diff prints a colorized unified diff between two content versions.
func (d *Display) Diff(path, before, after string) {
	result := diffview.Compute(path, before, after)
	if result.Empty() {
		return
	}
	for _, raw := range strings.Split(strings.TrimRight(result.Unified(), "\n"), "\n") {
		switch {
		case strings.HasPrefix(raw, "+++"), strings.HasPrefix(raw, "---"):
			fmt.Fprintln(d.out, d.styles.Bold.Render(raw))
		case strings.HasPrefix(raw, "+"):
			fmt.Fprintln(d.out, d.styles.DiffAdd.Render(raw))
		case strings.HasPrefix(raw, "-"):
			fmt.Fprintln(d.out, d.styles.DiffRemove.Render(raw))
		case strings.HasPrefix(raw, "@@"):
			fmt.Fprintln(d.out, d.styles.DiffHunk.Render(raw))
		default:
			fmt.Fprintln(d.out, raw)
		}
	}
}

// Confirm asks a [Y/n] question. Empty, "y" and "yes" accept; anything
// else declines. A read failure declines so a closed stdin never applies
// edits.
func (d *Display) Confirm(prompt string) bool {
	fmt.Fprintf(d.out, "%s [Y/n]: ", prompt)
	line, err := d.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

// TokenStatus prints context usage colored by how close it is to the
// window limit.
func (d *Display) TokenStatus(u tokens.Usage) {
	ratio := 0.0
	if u.ContextWindow > 0 {
		ratio = float64(u.Consumed) / float64(u.ContextWindow)
	}
	line := fmt.Sprintf("%s / %s tokens (%.0f%%)",
		formatInt(u.Consumed), formatInt(u.ContextWindow), ratio*100)
	switch {
	case ratio >= 0.95:
		line = d.styles.Error.Render(line)
	case ratio >= 0.80:
		line = d.styles.Warning.Render(line)
	default:
		line = d.styles.Success.Render(line)
	}
	fmt.Fprintf(d.out, "  Context: %s\n", line)
}

// BundleSummary prints one queued-bundle line.
func (d *Display) BundleSummary(fileType string, count, estimatedTokens int) {
	plural := "s"
	if count == 1 {
		plural = ""
	}
	fmt.Fprintf(d.out, "%s Queued %d %s file%s (~%s tokens)\n",
		d.styles.Success.Render("✓"), count, fileType, plural, formatInt(estimatedTokens))
}

// FileList prints an indented list of paths.
func (d *Display) FileList(paths []string) {
	for _, p := range paths {
		fmt.Fprintf(d.out, "    %s\n", p)
	}
}

// formatInt renders n with thousands separators.
func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
