package transport

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/muurk/mdns/internal/mdnserr"
)

// unicastResponseBit is the QU bit in the question class (RFC 6762 §5.4).
const unicastResponseBit = 1 << 15

// Question is a decoded entry of a query's question section.
type Question struct {
	Name    string
	Type    uint16
	Class   uint16
	Unicast bool
}

// BuildQuery encodes a one-question PTR query for service: class IN, QU bit
// clear, message ID 0 and recursion not desired, as multicast queriers send.
func BuildQuery(service string) ([]byte, error) {
	if strings.TrimSpace(service) == "" {
		return nil, mdnserr.Config("service name is empty")
	}
	if _, ok := dns.IsDomainName(service); !ok {
		return nil, mdnserr.Config("invalid service name %q", service)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(service), dns.TypePTR)
	msg.Id = 0
	msg.RecursionDesired = false

	raw, err := msg.Pack()
	if err != nil {
		return nil, mdnserr.Config("encode query for %q: %v", service, err)
	}
	return raw, nil
}

// ParseQuestions decodes the question section of a raw message.
func ParseQuestions(raw []byte) ([]Question, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return nil, mdnserr.Decode("", err)
	}

	out := make([]Question, len(msg.Question))
	for i, q := range msg.Question {
		out[i] = Question{
			Name:    strings.TrimSuffix(q.Name, "."),
			Type:    q.Qtype,
			Class:   q.Qclass &^ unicastResponseBit,
			Unicast: q.Qclass&unicastResponseBit != 0,
		}
	}
	return out, nil
}
