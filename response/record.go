package response

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// RecordKind is the decoded payload of a Record. The set of implementations
// is closed: A, AAAA, CNAME, NS, PTR, MX, SRV, TXT and Unimplemented.
type RecordKind interface {
	// Type returns the DNS RR type code of the payload.
	Type() uint16
	String() string

	isRecordKind()
}

// A is an IPv4 address record.
type A struct {
	Addr netip.Addr
}

// AAAA is an IPv6 address record.
type AAAA struct {
	Addr netip.Addr
}

// CNAME is a canonical name record.
type CNAME struct {
	Target string
}

// NS is a name server record.
type NS struct {
	Host string
}

// PTR is a pointer record. In DNS-SD it maps a service type to an instance name.
type PTR struct {
	Target string
}

// MX is a mail exchange record.
type MX struct {
	Preference uint16
	Exchange   string
}

// SRV is a service location record (RFC 2782).
type SRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// TXT holds the character strings of a text record, in wire order.
type TXT struct {
	Values []string
}

// Unimplemented carries the raw RDATA of a record type the model does not
// decode (SOA, NSEC, HINFO, private types, ...).
type Unimplemented struct {
	TypeCode uint16
	Data     []byte
}

func (A) isRecordKind()             {}
func (AAAA) isRecordKind()          {}
func (CNAME) isRecordKind()         {}
func (NS) isRecordKind()            {}
func (PTR) isRecordKind()           {}
func (MX) isRecordKind()            {}
func (SRV) isRecordKind()           {}
func (TXT) isRecordKind()           {}
func (Unimplemented) isRecordKind() {}

func (A) Type() uint16               { return dns.TypeA }
func (AAAA) Type() uint16            { return dns.TypeAAAA }
func (CNAME) Type() uint16           { return dns.TypeCNAME }
func (NS) Type() uint16              { return dns.TypeNS }
func (PTR) Type() uint16             { return dns.TypePTR }
func (MX) Type() uint16              { return dns.TypeMX }
func (SRV) Type() uint16             { return dns.TypeSRV }
func (TXT) Type() uint16             { return dns.TypeTXT }
func (u Unimplemented) Type() uint16 { return u.TypeCode }

func (k A) String() string     { return "A " + k.Addr.String() }
func (k AAAA) String() string  { return "AAAA " + k.Addr.String() }
func (k CNAME) String() string { return "CNAME " + k.Target }
func (k NS) String() string    { return "NS " + k.Host }
func (k PTR) String() string   { return "PTR " + k.Target }

func (k MX) String() string {
	return fmt.Sprintf("MX %d %s", k.Preference, k.Exchange)
}

func (k SRV) String() string {
	return fmt.Sprintf("SRV %d %d %d %s", k.Priority, k.Weight, k.Port, k.Target)
}

func (k TXT) String() string {
	quoted := make([]string, len(k.Values))
	for i, v := range k.Values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "TXT " + strings.Join(quoted, " ")
}

func (k Unimplemented) String() string {
	return fmt.Sprintf("%s \\# %d %x", typeName(k.TypeCode), len(k.Data), k.Data)
}

// Record is a single resource record from a Response.
type Record struct {
	// Name is the owner name, without the trailing root dot.
	Name string

	// Class is the record class with the mDNS cache-flush bit cleared.
	Class dns.Class

	// CacheFlush reports whether the responder set the mDNS cache-flush bit
	// (RFC 6762 §10.2) on this record.
	CacheFlush bool

	// TTL is the time-to-live in seconds. A TTL of zero announces removal.
	TTL uint32

	// Kind is the decoded payload.
	Kind RecordKind
}

// String renders the record in a dig-like single line.
func (r Record) String() string {
	kind := "<nil>"
	if r.Kind != nil {
		kind = r.Kind.String()
	}
	return fmt.Sprintf("%s\t%d\t%s\t%s", r.Name, r.TTL, r.Class, kind)
}

func typeName(t uint16) string {
	if name, ok := dns.TypeToString[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE%d", t)
}
