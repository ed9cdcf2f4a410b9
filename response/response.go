package response

import (
	"iter"
	"net/netip"
	"strings"
)

// Response is one decoded mDNS message. The zero value is an empty response.
type Response struct {
	Answers     []Record
	Nameservers []Record
	Additional  []Record
}

// IsEmpty reports whether all three record sections are empty.
func (r *Response) IsEmpty() bool {
	return len(r.Answers) == 0 && len(r.Nameservers) == 0 && len(r.Additional) == 0
}

// Records yields every record in answers, nameservers, additional order.
func (r *Response) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, section := range [][]Record{r.Answers, r.Nameservers, r.Additional} {
			for _, rec := range section {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// FirstIPAddr returns the address of the first A or AAAA record.
func (r *Response) FirstIPAddr() (netip.Addr, bool) {
	for rec := range r.Records() {
		switch k := rec.Kind.(type) {
		case A:
			return k.Addr, true
		case AAAA:
			return k.Addr, true
		}
	}
	return netip.Addr{}, false
}

// FirstHostname returns the target of the first PTR record. For a DNS-SD
// browse reply this is the service instance name.
func (r *Response) FirstHostname() (string, bool) {
	for rec := range r.Records() {
		if k, ok := rec.Kind.(PTR); ok {
			return k.Target, true
		}
	}
	return "", false
}

// FirstPort returns the port of the first SRV record.
func (r *Response) FirstPort() (uint16, bool) {
	for rec := range r.Records() {
		if k, ok := rec.Kind.(SRV); ok {
			return k.Port, true
		}
	}
	return 0, false
}

// SocketAddr combines FirstIPAddr and FirstPort. It is absent when either is.
func (r *Response) SocketAddr() (netip.AddrPort, bool) {
	addr, ok := r.FirstIPAddr()
	if !ok {
		return netip.AddrPort{}, false
	}
	port, ok := r.FirstPort()
	if !ok {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(addr, port), true
}

// TXTValues returns the strings of every TXT record, flattened in order.
func (r *Response) TXTValues() []string {
	var values []string
	for rec := range r.Records() {
		if k, ok := rec.Kind.(TXT); ok {
			values = append(values, k.Values...)
		}
	}
	return values
}

// HasAnswerFor reports whether any answer record is owned by name. The
// comparison ignores case and a trailing dot on either side.
func (r *Response) HasAnswerFor(name string) bool {
	want := strings.TrimSuffix(name, ".")
	for _, rec := range r.Answers {
		if strings.EqualFold(rec.Name, want) {
			return true
		}
	}
	return false
}

// String renders the response one record per line, grouped by section.
func (r *Response) String() string {
	var b strings.Builder
	writeSection(&b, "ANSWER", r.Answers)
	writeSection(&b, "AUTHORITY", r.Nameservers)
	writeSection(&b, "ADDITIONAL", r.Additional)
	return b.String()
}

func writeSection(b *strings.Builder, title string, records []Record) {
	if len(records) == 0 {
		return
	}
	b.WriteString(";; ")
	b.WriteString(title)
	b.WriteString(" SECTION:\n")
	for _, rec := range records {
		b.WriteString(rec.String())
		b.WriteByte('\n')
	}
}
