package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/mdns/internal/discovery"
	"github.com/muurk/mdns/response"
)

// Printer provides methods for printing UI components to a writer.
// This is the primary way commands should output styled content.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// WithWidth overrides the render width.
func (p *Printer) WithWidth(width int) *Printer {
	p.width = width
	return p
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintResponse prints a response card
func (p *Printer) PrintResponse(resp *response.Response, iface string, received time.Time) {
	p.Println(NewCard(resp, iface, received).SetWidth(p.width).Render())
}

// PrintDevices prints a compact device table.
func (p *Printer) PrintDevices(devices []*discovery.Device) {
	p.Println(RenderDeviceTable(devices, p.width))
}

// RenderDeviceTable renders devices as aligned rows of name, address and instance.
func RenderDeviceTable(devices []*discovery.Device, width int) string {
	if len(devices) == 0 {
		return StepPendingStyle.Render("  No devices found")
	}

	nameWidth, addrWidth := len("NAME"), len("ADDRESS")
	for _, d := range devices {
		nameWidth = max(nameWidth, lipgloss.Width(d.Name()))
		addrWidth = max(addrWidth, len(d.Address()))
	}

	row := func(name, addr, instance string) string {
		line := fmt.Sprintf("  %-*s  %-*s  %s", nameWidth, name, addrWidth, addr, instance)
		if width > 0 && lipgloss.Width(line) > width {
			line = truncate(line, width)
		}
		return line
	}

	lines := []string{CardSectionStyle.Render(row("NAME", "ADDRESS", "INSTANCE"))}
	for _, d := range devices {
		addr := d.Address()
		if addr == "" {
			addr = "-"
		}
		lines = append(lines, row(d.Name(), addr, d.Instance))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
