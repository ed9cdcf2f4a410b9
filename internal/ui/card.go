package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/miekg/dns"

	"github.com/muurk/mdns/response"
)

// Card renders one response as a boxed record table.
type Card struct {
	Response  *response.Response
	Interface string    // Interface the response arrived on
	Received  time.Time // Zero hides the timestamp
	Width     int
}

// NewCard creates a card for resp
func NewCard(resp *response.Response, iface string, received time.Time) *Card {
	return &Card{
		Response:  resp,
		Interface: iface,
		Received:  received,
		Width:     GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (c *Card) SetWidth(width int) *Card {
	c.Width = width
	return c
}

// Render returns the styled card as a string
func (c *Card) Render() string {
	width := c.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string
	lines = append(lines, CardTitleStyle.Render(c.title()))

	if c.Response == nil || c.Response.IsEmpty() {
		lines = append(lines, RecordDataStyle.Render("(no records)"))
	} else {
		lines = append(lines, section("Answers", c.Response.Answers)...)
		lines = append(lines, section("Authority", c.Response.Nameservers)...)
		lines = append(lines, section("Additional", c.Response.Additional)...)
	}

	return CardBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func (c *Card) title() string {
	var parts []string
	if c.Response != nil {
		if host, ok := c.Response.FirstHostname(); ok {
			parts = append(parts, host)
		}
		if addr, ok := c.Response.SocketAddr(); ok {
			parts = append(parts, addr.String())
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "response")
	}
	if c.Interface != "" {
		parts = append(parts, "via "+c.Interface)
	}
	if !c.Received.IsZero() {
		parts = append(parts, c.Received.Format("15:04:05.000"))
	}
	return strings.Join(parts, "  ")
}

func section(title string, records []response.Record) []string {
	if len(records) == 0 {
		return nil
	}
	lines := []string{"", CardSectionStyle.Render(title)}
	for _, rec := range records {
		lines = append(lines, RenderRecord(rec))
	}
	return lines
}

// RenderRecord renders one record as "TYPE name data (ttl)".
func RenderRecord(rec response.Record) string {
	typ, data := "?", ""
	if rec.Kind != nil {
		typ = recordType(rec.Kind.Type())
		data = recordData(rec.Kind)
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		RecordTypeStyle.Render(typ),
		" ",
		RecordNameStyle.Render(rec.Name),
	)
	if data != "" {
		line += "  " + RecordDataStyle.Render(data)
	}
	note := fmt.Sprintf("ttl %d", rec.TTL)
	if rec.CacheFlush {
		note += ", flush"
	}
	return line + "  " + StepNoteStyle.Render("("+note+")")
}

func recordType(t uint16) string {
	if name, ok := dns.TypeToString[t]; ok {
		return name
	}
	return "TYPE" + strconv.Itoa(int(t))
}

func recordData(kind response.RecordKind) string {
	switch k := kind.(type) {
	case response.A:
		return k.Addr.String()
	case response.AAAA:
		return k.Addr.String()
	case response.CNAME:
		return k.Target
	case response.NS:
		return k.Host
	case response.PTR:
		return k.Target
	case response.MX:
		return fmt.Sprintf("%d %s", k.Preference, k.Exchange)
	case response.SRV:
		return fmt.Sprintf("%s:%d (priority %d, weight %d)", k.Target, k.Port, k.Priority, k.Weight)
	case response.TXT:
		return strings.Join(k.Values, " | ")
	case response.Unimplemented:
		return fmt.Sprintf("%d bytes", len(k.Data))
	default:
		return kind.String()
	}
}

// String implements fmt.Stringer
func (c *Card) String() string {
	return c.Render()
}
