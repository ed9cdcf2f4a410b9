package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RunnerConfig holds configuration for a single command execution
type RunnerConfig struct {
	Title   string            // Command title (e.g., "Resolve")
	Command string            // Full command (e.g., "mdns-discover resolve")
	Params  map[string]string // Parameters to display in header
	Hosts   []string          // Hosts to track, one row each
	Tips    []string          // Troubleshooting tips on failure (default: DiscoveryTroubleshooting)
	Output  io.Writer         // Output writer (default: os.Stdout)
	Width   int               // Render width (default: terminal width)
}

// Runner orchestrates the header, step list and result box of a command.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *HostProgress
	output   io.Writer
	width    int
	now      func() time.Time
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Tips == nil {
		config.Tips = DiscoveryTroubleshooting
	}

	width := config.Width
	if width == 0 {
		width = GetTerminalWidth()
	}

	var progress *HostProgress
	if len(config.Hosts) > 0 {
		progress = NewHostProgress(config.Hosts).SetWidth(width)
	}

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: progress,
		output:   config.Output,
		width:    width,
		now:      time.Now,
	}
}

// Operation is the work a Runner wraps. It reports per-host progress through
// onHost and returns the details shown in the success box.
type Operation func(ctx context.Context, onHost HostCallback) (map[string]string, error)

// Run prints the header, executes op and prints the result box.
func (r *Runner) Run(ctx context.Context, op Operation) (map[string]string, error) {
	start := r.now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := op(ctx, r.hostCallback())
	duration := r.now().Sub(start)

	_, _ = fmt.Fprintln(r.output)
	if r.progress != nil {
		_, _ = fmt.Fprintln(r.output, r.progress.Bar())
		_, _ = fmt.Fprintln(r.output)
	}
	if err != nil {
		result := NewFailureResult(r.config.Title+" failed", err, r.config.Tips)
		_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
		return details, err
	}

	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	result := NewSuccessResult(r.config.Title+" complete", details)
	if r.progress != nil && !r.progress.AllResolved() {
		result.Type = ResultWarning
		result.Title = r.config.Title + " incomplete"
	}
	_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
	return details, nil
}

func (r *Runner) hostCallback() HostCallback {
	return func(host string, state HostState, note string) {
		if r.progress == nil {
			return
		}
		line, ok := r.progress.Set(host, state, note)
		if !ok {
			return
		}
		switch state {
		case HostResolved, HostMissing:
			_, _ = fmt.Fprintln(r.output, line)
		case HostWaiting:
			// Overwritten once the host finishes
			_, _ = fmt.Fprint(r.output, line+"\r")
		}
	}
}

// PrintPleaseWait prints a styled "please wait" message for long-running operations.
// The duration hint helps set user expectations, e.g., "up to 10s".
func PrintPleaseWait(w io.Writer, message string, durationHint string) {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	hintStyle := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hintStyle.Render("("+durationHint+")")
	}
	line += style.Render("...")

	_, _ = fmt.Fprintln(w, line)
	_, _ = fmt.Fprintln(w)
}
