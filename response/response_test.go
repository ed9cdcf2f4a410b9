package response

import (
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"slices"
	"strings"
	"testing"

	"github.com/miekg/dns"

	"github.com/muurk/mdns/internal/mdnserr"
)

func hdr(name string, rrtype uint16, class uint16) dns.RR_Header {
	return dns.RR_Header{Name: name, Rrtype: rrtype, Class: class, Ttl: 120}
}

func pack(t *testing.T, answers, ns, extra []dns.RR) []byte {
	t.Helper()
	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true
	msg.Answer = answers
	msg.Ns = ns
	msg.Extra = extra
	raw, err := msg.Pack()
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	return raw
}

func TestDecode_KnownKinds(t *testing.T) {
	raw := pack(t,
		[]dns.RR{
			&dns.PTR{Hdr: hdr("_googlecast._tcp.local.", dns.TypePTR, dns.ClassINET), Ptr: "dev1._googlecast._tcp.local."},
		},
		nil,
		[]dns.RR{
			&dns.SRV{Hdr: hdr("dev1._googlecast._tcp.local.", dns.TypeSRV, dns.ClassINET|cacheFlushBit), Priority: 0, Weight: 0, Port: 8009, Target: "dev1.local."},
			&dns.TXT{Hdr: hdr("dev1._googlecast._tcp.local.", dns.TypeTXT, dns.ClassINET|cacheFlushBit), Txt: []string{"id=abc", "fn=Living Room"}},
			&dns.A{Hdr: hdr("dev1.local.", dns.TypeA, dns.ClassINET|cacheFlushBit), A: net.ParseIP("192.168.1.50")},
			&dns.AAAA{Hdr: hdr("dev1.local.", dns.TypeAAAA, dns.ClassINET), AAAA: net.ParseIP("fe80::1")},
			&dns.CNAME{Hdr: hdr("alias.local.", dns.TypeCNAME, dns.ClassINET), Target: "dev1.local."},
			&dns.NS{Hdr: hdr("local.", dns.TypeNS, dns.ClassINET), Ns: "ns.local."},
			&dns.MX{Hdr: hdr("local.", dns.TypeMX, dns.ClassINET), Preference: 10, Mx: "mail.local."},
		},
	)

	resp, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(resp.Answers) != 1 {
		t.Fatalf("len(Answers) = %d, want 1", len(resp.Answers))
	}
	if got := resp.Answers[0]; got.Name != "_googlecast._tcp.local" {
		t.Errorf("Answers[0].Name = %q, want %q", got.Name, "_googlecast._tcp.local")
	}

	want := []RecordKind{
		SRV{Port: 8009, Target: "dev1.local"},
		TXT{Values: []string{"id=abc", "fn=Living Room"}},
		A{Addr: netip.MustParseAddr("192.168.1.50")},
		AAAA{Addr: netip.MustParseAddr("fe80::1")},
		CNAME{Target: "dev1.local"},
		NS{Host: "ns.local"},
		MX{Preference: 10, Exchange: "mail.local"},
	}
	if len(resp.Additional) != len(want) {
		t.Fatalf("len(Additional) = %d, want %d", len(resp.Additional), len(want))
	}
	for i, w := range want {
		got := resp.Additional[i].Kind
		if got.String() != w.String() {
			t.Errorf("Additional[%d].Kind = %v, want %v", i, got, w)
		}
	}

	srv := resp.Additional[0]
	if !srv.CacheFlush {
		t.Error("SRV CacheFlush = false, want true")
	}
	if srv.Class != dns.ClassINET {
		t.Errorf("SRV Class = %v, want IN", srv.Class)
	}
	if resp.Additional[3].CacheFlush {
		t.Error("AAAA CacheFlush = true, want false")
	}
}

func TestDecode_UnimplementedKinds(t *testing.T) {
	soa, err := dns.NewRR("local. 60 IN SOA ns.local. admin.local. 1 2 3 4 5")
	if err != nil {
		t.Fatalf("NewRR(SOA) error = %v", err)
	}
	private, err := dns.NewRR(`x.local. 60 IN TYPE65400 \# 3 abcdef`)
	if err != nil {
		t.Fatalf("NewRR(TYPE65400) error = %v", err)
	}

	resp, err := Decode(pack(t, []dns.RR{soa, private}, nil, nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(resp.Answers) != 2 {
		t.Fatalf("len(Answers) = %d, want 2", len(resp.Answers))
	}

	got, ok := resp.Answers[0].Kind.(Unimplemented)
	if !ok {
		t.Fatalf("SOA Kind = %T, want Unimplemented", resp.Answers[0].Kind)
	}
	if got.Type() != dns.TypeSOA {
		t.Errorf("SOA Type() = %d, want %d", got.Type(), dns.TypeSOA)
	}
	// ns.local. (10) + admin.local. (13) + five uint32 fields (20)
	if len(got.Data) != 43 {
		t.Errorf("len(SOA Data) = %d, want 43", len(got.Data))
	}

	got, ok = resp.Answers[1].Kind.(Unimplemented)
	if !ok {
		t.Fatalf("TYPE65400 Kind = %T, want Unimplemented", resp.Answers[1].Kind)
	}
	if got.Type() != 65400 {
		t.Errorf("Type() = %d, want 65400", got.Type())
	}
	if want := []byte{0xab, 0xcd, 0xef}; !slices.Equal(got.Data, want) {
		t.Errorf("Data = %x, want %x", got.Data, want)
	}
}

func TestDecode_CompressedUnimplementedData(t *testing.T) {
	soa, err := dns.NewRR("local. 60 IN SOA ns.local. admin.local. 1 2 3 4 5")
	if err != nil {
		t.Fatalf("NewRR(SOA) error = %v", err)
	}
	msg := new(dns.Msg)
	msg.Response = true
	msg.Compress = true
	msg.Answer = []dns.RR{soa}
	raw, err := msg.Pack()
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	resp, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got, ok := resp.Answers[0].Kind.(Unimplemented)
	if !ok {
		t.Fatalf("Kind = %T, want Unimplemented", resp.Answers[0].Kind)
	}
	want := make([]byte, dns.Len(soa))
	off, err := dns.PackRR(soa, want, 0, nil, false)
	if err != nil {
		t.Fatalf("PackRR() error = %v", err)
	}
	// "local." is 7 bytes, then type, class, ttl and rdlength.
	want = want[7+10 : off]
	if !slices.Equal(got.Data, want) {
		t.Errorf("Data = %x, want %x", got.Data, want)
	}
}

func TestDecode_MalformedRecordKept(t *testing.T) {
	raw := pack(t, []dns.RR{
		&dns.PTR{Hdr: hdr("_googlecast._tcp.local.", dns.TypePTR, dns.ClassINET), Ptr: "dev1._googlecast._tcp.local."},
		&dns.A{Hdr: hdr("dev1.local.", dns.TypeA, dns.ClassINET|cacheFlushBit), A: net.IPv4(192, 168, 1, 10)},
	}, nil, nil)
	// Shrink the trailing A record to three bytes of RDATA.
	raw[len(raw)-5] = 3
	raw = raw[:len(raw)-1]

	resp, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(resp.Answers) != 2 {
		t.Fatalf("len(Answers) = %d, want 2", len(resp.Answers))
	}
	ptr, ok := resp.Answers[0].Kind.(PTR)
	if !ok {
		t.Fatalf("Answers[0].Kind = %T, want PTR", resp.Answers[0].Kind)
	}
	if ptr.Target != "dev1._googlecast._tcp.local" {
		t.Errorf("PTR Target = %q, want %q", ptr.Target, "dev1._googlecast._tcp.local")
	}

	rec := resp.Answers[1]
	got, ok := rec.Kind.(Unimplemented)
	if !ok {
		t.Fatalf("Answers[1].Kind = %T, want Unimplemented", rec.Kind)
	}
	if got.Type() != dns.TypeA {
		t.Errorf("Type() = %d, want %d", got.Type(), dns.TypeA)
	}
	if want := []byte{192, 168, 1}; !slices.Equal(got.Data, want) {
		t.Errorf("Data = %v, want %v", got.Data, want)
	}
	if rec.Name != "dev1.local" || !rec.CacheFlush {
		t.Errorf("record = %q flush=%v, want %q flush=true", rec.Name, rec.CacheFlush, "dev1.local")
	}
}

func TestDecode_TruncatedRecordHeader(t *testing.T) {
	raw := pack(t, []dns.RR{
		&dns.A{Hdr: hdr("dev1.local.", dns.TypeA, dns.ClassINET), A: net.IPv4(192, 168, 1, 10)},
	}, nil, nil)
	// Cut into the fixed header of the only answer.
	raw = raw[:len(raw)-10]

	_, err := Decode(raw)
	if !errors.Is(err, mdnserr.ErrDecode) {
		t.Errorf("Decode() error = %v, want kind %v", err, mdnserr.KindDecode)
	}
}

func TestDecode_EscapedNames(t *testing.T) {
	raw := pack(t, []dns.RR{
		&dns.PTR{Hdr: hdr("_googlecast._tcp.local.", dns.TypePTR, dns.ClassINET), Ptr: "My TV._googlecast._tcp.local."},
	}, nil, nil)

	resp, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	host, ok := resp.FirstHostname()
	if !ok {
		t.Fatal("FirstHostname() ok = false")
	}
	if host != "My TV._googlecast._tcp.local" {
		t.Errorf("FirstHostname() = %q, want %q", host, "My TV._googlecast._tcp.local")
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
	if !errors.Is(err, mdnserr.ErrDecode) {
		t.Errorf("Decode() error = %v, want kind %v", err, mdnserr.KindDecode)
	}
}

func TestDecode_EmptyMessage(t *testing.T) {
	resp, err := Decode(pack(t, nil, nil, nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !resp.IsEmpty() {
		t.Error("IsEmpty() = false, want true")
	}
}

func TestIsEmpty(t *testing.T) {
	rec := Record{Name: "x.local", Kind: PTR{Target: "y"}}
	tests := []struct {
		name string
		resp Response
		want bool
	}{
		{"zero", Response{}, true},
		{"answer", Response{Answers: []Record{rec}}, false},
		{"nameserver", Response{Nameservers: []Record{rec}}, false},
		{"additional", Response{Additional: []Record{rec}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDerivedQueries(t *testing.T) {
	ip4 := netip.MustParseAddr("10.0.0.7")
	ip6 := netip.MustParseAddr("fd00::7")

	tests := []struct {
		name     string
		resp     Response
		wantHost string
		wantIP   netip.Addr
		wantPort uint16
		wantSock bool
	}{
		{
			name: "answers win over additional",
			resp: Response{
				Answers:    []Record{{Kind: PTR{Target: "first"}}},
				Additional: []Record{{Kind: PTR{Target: "second"}}, {Kind: A{Addr: ip4}}, {Kind: SRV{Port: 80}}},
			},
			wantHost: "first",
			wantIP:   ip4,
			wantPort: 80,
			wantSock: true,
		},
		{
			name: "nameservers before additional",
			resp: Response{
				Nameservers: []Record{{Kind: AAAA{Addr: ip6}}},
				Additional:  []Record{{Kind: A{Addr: ip4}}},
			},
			wantIP: ip6,
		},
		{
			name: "port without address",
			resp: Response{
				Answers: []Record{{Kind: SRV{Port: 8009}}},
			},
			wantPort: 8009,
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, ok := tt.resp.FirstHostname()
			if host != tt.wantHost || ok != (tt.wantHost != "") {
				t.Errorf("FirstHostname() = %q, %v, want %q", host, ok, tt.wantHost)
			}

			ip, ok := tt.resp.FirstIPAddr()
			if ip != tt.wantIP || ok != tt.wantIP.IsValid() {
				t.Errorf("FirstIPAddr() = %v, %v, want %v", ip, ok, tt.wantIP)
			}

			port, ok := tt.resp.FirstPort()
			if port != tt.wantPort || ok != (tt.wantPort != 0) {
				t.Errorf("FirstPort() = %d, %v, want %d", port, ok, tt.wantPort)
			}

			sock, ok := tt.resp.SocketAddr()
			if ok != tt.wantSock {
				t.Errorf("SocketAddr() ok = %v, want %v", ok, tt.wantSock)
			}
			if ok && sock != netip.AddrPortFrom(tt.wantIP, tt.wantPort) {
				t.Errorf("SocketAddr() = %v, want %v:%d", sock, tt.wantIP, tt.wantPort)
			}
		})
	}
}

func TestTXTValues_Flattened(t *testing.T) {
	resp := Response{
		Answers:    []Record{{Kind: TXT{Values: []string{"a=1", "b=2"}}}},
		Additional: []Record{{Kind: PTR{Target: "x"}}, {Kind: TXT{Values: []string{"c=3"}}}},
	}

	want := []string{"a=1", "b=2", "c=3"}
	if got := resp.TXTValues(); !slices.Equal(got, want) {
		t.Errorf("TXTValues() = %v, want %v", got, want)
	}

	if got := (&Response{}).TXTValues(); len(got) != 0 {
		t.Errorf("TXTValues() on empty = %v, want none", got)
	}
}

func TestRecords_Order(t *testing.T) {
	resp := Response{
		Answers:     []Record{{Name: "a"}},
		Nameservers: []Record{{Name: "n"}},
		Additional:  []Record{{Name: "x1"}, {Name: "x2"}},
	}

	var names []string
	for rec := range resp.Records() {
		names = append(names, rec.Name)
	}
	if want := []string{"a", "n", "x1", "x2"}; !slices.Equal(names, want) {
		t.Errorf("Records() = %v, want %v", names, want)
	}

	count := 0
	for range resp.Records() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("early break visited %d records, want 2", count)
	}
}

func TestHasAnswerFor(t *testing.T) {
	resp := Response{Answers: []Record{{Name: "_Googlecast._tcp.local", Kind: PTR{Target: "x"}}}}

	tests := []struct {
		name string
		want bool
	}{
		{"_googlecast._tcp.local", true},
		{"_googlecast._tcp.local.", true},
		{"_airplay._tcp.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resp.HasAnswerFor(tt.name); got != tt.want {
				t.Errorf("HasAnswerFor(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	resp := &Response{
		Answers: []Record{
			{Name: "_http._tcp.local", Class: dns.ClassINET, TTL: 120, Kind: PTR{Target: "web._http._tcp.local"}},
		},
		Additional: []Record{
			{Name: "web._http._tcp.local", Class: dns.ClassINET, CacheFlush: true, TTL: 120, Kind: SRV{Port: 8080, Target: "web.local"}},
		},
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Answers    []map[string]any `json:"answers"`
		Additional []map[string]any `json:"additional"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got := decoded.Answers[0]["type"]; got != "PTR" {
		t.Errorf("answers[0].type = %v, want PTR", got)
	}
	if got := decoded.Answers[0]["data"]; got != "web._http._tcp.local" {
		t.Errorf("answers[0].data = %v, want web._http._tcp.local", got)
	}
	srv, ok := decoded.Additional[0]["data"].(map[string]any)
	if !ok {
		t.Fatalf("additional[0].data = %T, want object", decoded.Additional[0]["data"])
	}
	if srv["port"] != float64(8080) {
		t.Errorf("srv port = %v, want 8080", srv["port"])
	}
	if !strings.Contains(string(raw), `"cache_flush":true`) {
		t.Errorf("JSON = %s, want cache_flush flag", raw)
	}
}

func TestResponse_String(t *testing.T) {
	resp := &Response{
		Answers: []Record{{Name: "_http._tcp.local", Class: dns.ClassINET, TTL: 120, Kind: PTR{Target: "web._http._tcp.local"}}},
	}
	got := resp.String()
	for _, want := range []string{"ANSWER SECTION", "_http._tcp.local", "PTR web._http._tcp.local", "IN"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, want it to contain %q", got, want)
		}
	}
}
