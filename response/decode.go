package response

import (
	"encoding/binary"
	"encoding/hex"
	"net/netip"
	"strings"

	"github.com/miekg/dns"

	"github.com/muurk/mdns/internal/mdnserr"
)

// cacheFlushBit is the top bit of the class field in mDNS answers (RFC 6762 §10.2).
const cacheFlushBit = 1 << 15

// headerLen is the size of the fixed DNS message header.
const headerLen = 12

// Decode parses a raw DNS message. It fails only when the message envelope
// cannot be parsed; unknown record types decode to Unimplemented.
//
// A record whose RDATA does not match its type (an A record with three bytes
// of data, say) is kept as Unimplemented with its raw RDATA instead of
// failing the whole message.
func Decode(raw []byte) (*Response, error) {
	msg := new(dns.Msg)
	err := msg.Unpack(raw)
	if err == nil {
		return FromMsg(msg), nil
	}
	resp, lerr := decodeRecords(raw)
	if lerr != nil {
		return nil, mdnserr.Decode("", err)
	}
	return resp, nil
}

// decodeRecords walks the message one record at a time. Only errors in the
// header, the question section, or a record's fixed header are fatal.
func decodeRecords(raw []byte) (*Response, error) {
	if len(raw) < headerLen {
		return nil, dns.ErrShortRead
	}
	counts := [4]int{}
	for i := range counts {
		counts[i] = int(binary.BigEndian.Uint16(raw[4+2*i:]))
	}

	off := headerLen
	for range counts[0] {
		_, next, err := dns.UnpackDomainName(raw, off)
		if err != nil {
			return nil, err
		}
		// qtype and qclass
		if next+4 > len(raw) {
			return nil, dns.ErrShortRead
		}
		off = next + 4
	}

	var sections [3][]dns.RR
	for i := range sections {
		rrs := make([]dns.RR, 0, counts[i+1])
		for range counts[i+1] {
			rr, next, err := unpackRecord(raw, off)
			if err != nil {
				return nil, err
			}
			rrs = append(rrs, rr)
			off = next
		}
		sections[i] = rrs
	}
	return &Response{
		Answers:     mapRecords(sections[0]),
		Nameservers: mapRecords(sections[1]),
		Additional:  mapRecords(sections[2]),
	}, nil
}

// unpackRecord decodes the record at off. When the RDATA is malformed the
// record comes back as RFC3597 carrying the bytes its rdlength covers.
func unpackRecord(raw []byte, off int) (dns.RR, int, error) {
	if rr, next, err := dns.UnpackRR(raw, off); err == nil {
		return rr, next, nil
	}
	name, hdrStart, err := dns.UnpackDomainName(raw, off)
	if err != nil {
		return nil, 0, err
	}
	// type, class, ttl, rdlength
	if hdrStart+10 > len(raw) {
		return nil, 0, dns.ErrShortRead
	}
	h := dns.RR_Header{
		Name:     name,
		Rrtype:   binary.BigEndian.Uint16(raw[hdrStart:]),
		Class:    binary.BigEndian.Uint16(raw[hdrStart+2:]),
		Ttl:      binary.BigEndian.Uint32(raw[hdrStart+4:]),
		Rdlength: binary.BigEndian.Uint16(raw[hdrStart+8:]),
	}
	start := hdrStart + 10
	end := start + int(h.Rdlength)
	if end > len(raw) {
		return nil, 0, dns.ErrShortRead
	}
	return &dns.RFC3597{Hdr: h, Rdata: hex.EncodeToString(raw[start:end])}, end, nil
}

// FromMsg maps an already unpacked message into a Response.
func FromMsg(msg *dns.Msg) *Response {
	return &Response{
		Answers:     mapRecords(msg.Answer),
		Nameservers: mapRecords(msg.Ns),
		Additional:  mapRecords(msg.Extra),
	}
}

func mapRecords(rrs []dns.RR) []Record {
	if len(rrs) == 0 {
		return nil
	}
	out := make([]Record, 0, len(rrs))
	for _, rr := range rrs {
		// OPT pseudo-records live in the additional section but carry no data.
		if _, ok := rr.(*dns.OPT); ok {
			continue
		}
		out = append(out, recordFromRR(rr))
	}
	return out
}

func recordFromRR(rr dns.RR) Record {
	h := rr.Header()
	return Record{
		Name:       nameText(h.Name),
		Class:      dns.Class(h.Class &^ cacheFlushBit),
		CacheFlush: h.Class&cacheFlushBit != 0,
		TTL:        h.Ttl,
		Kind:       kindFromRR(rr),
	}
}

func kindFromRR(rr dns.RR) RecordKind {
	switch v := rr.(type) {
	case *dns.A:
		if addr, ok := netip.AddrFromSlice(v.A.To4()); ok {
			return A{Addr: addr}
		}
	case *dns.AAAA:
		if addr, ok := netip.AddrFromSlice(v.AAAA.To16()); ok {
			return AAAA{Addr: addr}
		}
	case *dns.CNAME:
		return CNAME{Target: nameText(v.Target)}
	case *dns.NS:
		return NS{Host: nameText(v.Ns)}
	case *dns.PTR:
		return PTR{Target: nameText(v.Ptr)}
	case *dns.MX:
		return MX{Preference: v.Preference, Exchange: nameText(v.Mx)}
	case *dns.SRV:
		return SRV{Priority: v.Priority, Weight: v.Weight, Port: v.Port, Target: nameText(v.Target)}
	case *dns.TXT:
		values := make([]string, len(v.Txt))
		for i, s := range v.Txt {
			values[i] = unescape(s)
		}
		return TXT{Values: values}
	case *dns.RFC3597:
		data, err := hex.DecodeString(v.Rdata)
		if err == nil {
			return Unimplemented{TypeCode: v.Hdr.Rrtype, Data: data}
		}
	}
	return Unimplemented{TypeCode: rr.Header().Rrtype, Data: rawRdata(rr)}
}

// rawRdata re-packs rr without compression and returns the bytes after the
// fixed RR header. The length comes from the repacked rdlength field, since
// the one read off the wire covers the compressed form.
func rawRdata(rr dns.RR) []byte {
	buf := make([]byte, dns.Len(rr)+64)
	off, err := dns.PackRR(rr, buf, 0, nil, false)
	if err != nil {
		return nil
	}
	nameEnd, err := dns.PackDomainName(rr.Header().Name, buf, 0, nil, false)
	if err != nil {
		return nil
	}
	headerEnd := nameEnd + 10
	if headerEnd > off {
		return nil
	}
	rdlen := int(binary.BigEndian.Uint16(buf[headerEnd-2:]))
	if headerEnd+rdlen != off {
		return nil
	}
	return append([]byte(nil), buf[headerEnd:off]...)
}

// nameText converts a presentation-format domain name into plain text
// without the trailing root dot.
func nameText(name string) string {
	return unescape(strings.TrimSuffix(name, "."))
}

// unescape resolves the \X and \DDD escapes the codec emits for names and
// character strings.
func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b = append(b, c)
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			n := int(s[i+1]-'0')*100 + int(s[i+2]-'0')*10 + int(s[i+3]-'0')
			b = append(b, byte(n))
			i += 3
			continue
		}
		b = append(b, s[i+1])
		i++
	}
	return string(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
