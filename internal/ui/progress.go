package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// HostState is how far resolution of one host has got.
type HostState int

const (
	HostPending  HostState = iota // not queried yet
	HostWaiting                   // query sent, no answer
	HostResolved                  // answered
	HostMissing                   // timed out without an answer
)

func (s HostState) finished() bool {
	return s == HostResolved || s == HostMissing
}

// marker returns the glyph and style a row in state s is drawn with.
func (s HostState) marker() (string, lipgloss.Style) {
	switch s {
	case HostResolved:
		return StepMarkerComplete, StepCompleteStyle
	case HostWaiting:
		return StepMarkerRunning, StepRunningStyle
	case HostMissing:
		return FailureMarker, ErrorTitleStyle
	}
	return StepMarkerPending, StepPendingStyle
}

// HostCallback reports a state change for one host. The note is shown next
// to the host, e.g. "192.168.1.40:8009".
type HostCallback func(host string, state HostState, note string)

type hostRow struct {
	name  string
	state HostState
	note  string
}

// HostProgress tracks a fixed set of hosts through resolution. Rows keep
// the order the hosts were given in; duplicates collapse onto the first.
type HostProgress struct {
	rows      []hostRow
	index     map[string]int
	nameWidth int
	bar       progress.Model
}

// NewHostProgress creates a tracker with every host pending.
func NewHostProgress(hosts []string) *HostProgress {
	p := &HostProgress{
		index: make(map[string]int, len(hosts)),
		bar:   newBar(GetTerminalWidth()),
	}
	for _, h := range hosts {
		if _, dup := p.index[h]; dup {
			continue
		}
		p.index[h] = len(p.rows)
		p.rows = append(p.rows, hostRow{name: h})
		p.nameWidth = max(p.nameWidth, lipgloss.Width(h))
	}
	return p
}

func newBar(width int) progress.Model {
	return progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(min(max(width-30, 20), 50)),
	)
}

// SetWidth sizes the bar for a terminal of the given width.
func (p *HostProgress) SetWidth(width int) *HostProgress {
	p.bar = newBar(width)
	return p
}

// Set moves host to state and returns its rendered row. ok is false when
// host is not tracked.
func (p *HostProgress) Set(host string, state HostState, note string) (string, bool) {
	i, ok := p.index[host]
	if !ok {
		return "", false
	}
	p.rows[i].state = state
	p.rows[i].note = note
	return p.row(i), true
}

// State returns the current state of host.
func (p *HostProgress) State(host string) (HostState, bool) {
	i, ok := p.index[host]
	if !ok {
		return HostPending, false
	}
	return p.rows[i].state, true
}

func (p *HostProgress) counts() (resolved, finished int) {
	for _, r := range p.rows {
		if r.state == HostResolved {
			resolved++
		}
		if r.state.finished() {
			finished++
		}
	}
	return resolved, finished
}

// Done reports whether every host has either resolved or gone missing.
func (p *HostProgress) Done() bool {
	_, finished := p.counts()
	return finished == len(p.rows)
}

// AllResolved reports whether every host answered.
func (p *HostProgress) AllResolved() bool {
	resolved, _ := p.counts()
	return resolved == len(p.rows)
}

// Fraction is the share of hosts that resolved, 0 when nothing is tracked.
func (p *HostProgress) Fraction() float64 {
	if len(p.rows) == 0 {
		return 0
	}
	resolved, _ := p.counts()
	return float64(resolved) / float64(len(p.rows))
}

// Bar renders the bar with a resolved count, e.g. "███░░  2/3 resolved".
func (p *HostProgress) Bar() string {
	resolved, _ := p.counts()
	return fmt.Sprintf("  %s  %d/%d resolved", p.bar.ViewAs(p.Fraction()), resolved, len(p.rows))
}

// Render draws the bar above one row per host.
func (p *HostProgress) Render() string {
	lines := make([]string, 0, len(p.rows)+2)
	lines = append(lines, p.Bar(), "")
	for i := range p.rows {
		lines = append(lines, p.row(i))
	}
	return strings.Join(lines, "\n")
}

// row lays out one host as "  2/3 name   ✓  (note)" with markers aligned
// on the widest host name.
func (p *HostProgress) row(i int) string {
	r := p.rows[i]
	glyph, style := r.state.marker()

	var b strings.Builder
	b.WriteString(StepNoteStyle.Render(fmt.Sprintf("  %d/%d ", i+1, len(p.rows))))
	b.WriteString(style.Render(r.name))
	b.WriteString(strings.Repeat(" ", p.nameWidth-lipgloss.Width(r.name)+2))
	b.WriteString(style.Render(glyph))
	if r.note != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + r.note + ")"))
	}
	return b.String()
}
