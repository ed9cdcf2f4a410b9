package response

import (
	"encoding/json"
)

// View is the serialisable form of a Response used by the CLI and the
// gateway.
type View struct {
	Answers     []RecordView `json:"answers" yaml:"answers"`
	Nameservers []RecordView `json:"nameservers,omitempty" yaml:"nameservers,omitempty"`
	Additional  []RecordView `json:"additional,omitempty" yaml:"additional,omitempty"`
}

// RecordView is the serialisable form of a Record.
type RecordView struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Class      string `json:"class" yaml:"class"`
	CacheFlush bool   `json:"cache_flush,omitempty" yaml:"cache_flush,omitempty"`
	TTL        uint32 `json:"ttl" yaml:"ttl"`
	Data       any    `json:"data" yaml:"data"`
}

type srvView struct {
	Priority uint16 `json:"priority" yaml:"priority"`
	Weight   uint16 `json:"weight" yaml:"weight"`
	Port     uint16 `json:"port" yaml:"port"`
	Target   string `json:"target" yaml:"target"`
}

type mxView struct {
	Preference uint16 `json:"preference" yaml:"preference"`
	Exchange   string `json:"exchange" yaml:"exchange"`
}

// View converts r into its serialisable form.
func (r *Response) View() View {
	answers := viewRecords(r.Answers)
	if answers == nil {
		answers = []RecordView{}
	}
	return View{
		Answers:     answers,
		Nameservers: viewRecords(r.Nameservers),
		Additional:  viewRecords(r.Additional),
	}
}

// MarshalJSON implements json.Marshaler.
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.View())
}

// MarshalYAML implements yaml.Marshaler.
func (r *Response) MarshalYAML() (any, error) {
	return r.View(), nil
}

func viewRecords(records []Record) []RecordView {
	if len(records) == 0 {
		return nil
	}
	out := make([]RecordView, len(records))
	for i, rec := range records {
		out[i] = RecordView{
			Name:       rec.Name,
			Class:      rec.Class.String(),
			CacheFlush: rec.CacheFlush,
			TTL:        rec.TTL,
		}
		if rec.Kind != nil {
			out[i].Type = typeName(rec.Kind.Type())
			out[i].Data = kindData(rec.Kind)
		}
	}
	return out
}

func kindData(k RecordKind) any {
	switch v := k.(type) {
	case A:
		return v.Addr.String()
	case AAAA:
		return v.Addr.String()
	case CNAME:
		return v.Target
	case NS:
		return v.Host
	case PTR:
		return v.Target
	case MX:
		return mxView{Preference: v.Preference, Exchange: v.Exchange}
	case SRV:
		return srvView{Priority: v.Priority, Weight: v.Weight, Port: v.Port, Target: v.Target}
	case TXT:
		return v.Values
	case Unimplemented:
		return v.Data
	}
	return nil
}
