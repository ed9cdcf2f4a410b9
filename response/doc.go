// Package response provides the record model produced by mDNS discovery.
//
// A Response is an immutable snapshot of one decoded DNS message: three
// ordered record sections (answers, nameservers, additional) kept in wire
// order. Each Record carries a RecordKind, a closed set of payload variants
// for the record types the engine understands (A, AAAA, CNAME, NS, PTR, MX,
// SRV, TXT). Any other record type, including SOA, decodes to Unimplemented
// with the raw RDATA bytes rather than failing.
//
// # Derived Queries
//
// Response offers total lookup helpers that scan answers, then nameservers,
// then additional records, and return the first match:
//
//	resp, err := response.Decode(packet)
//	if err != nil {
//	    return err
//	}
//
//	if host, ok := resp.FirstHostname(); ok {
//	    fmt.Println("instance:", host)
//	}
//	if addr, ok := resp.SocketAddr(); ok {
//	    fmt.Println("reachable at", addr)
//	}
//
// # Names
//
// Domain names are reported in text form without the trailing root dot and
// with presentation-format escapes removed, e.g. "My TV._googlecast._tcp.local".
//
// # Thread Safety
//
// Responses are never mutated after decoding and may be shared between
// goroutines.
package response
