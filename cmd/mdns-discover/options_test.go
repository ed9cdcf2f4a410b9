package main

import (
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/muurk/mdns/internal/config"
	"github.com/muurk/mdns/internal/transport"
	"github.com/muurk/mdns/response"
)

func TestResolveSettings(t *testing.T) {
	defaults := config.NewRegistry().Defaults

	tests := []struct {
		name     string
		defaults func(*config.Defaults)
		args     []string
		want     settings
		wantErr  bool
	}{
		{
			name: "config defaults",
			want: settings{Interval: time.Second, Timeout: 10 * time.Second, IgnoreEmpty: true},
		},
		{
			name: "flags override config",
			args: []string{"--interval", "3s", "--timeout", "0", "--include-empty", "--match-service", "-i", "10.0.0.2"},
			want: settings{
				Interface:    netip.MustParseAddr("10.0.0.2"),
				Interval:     3 * time.Second,
				Timeout:      0,
				IgnoreEmpty:  false,
				MatchService: true,
			},
		},
		{
			name: "interface from config",
			defaults: func(d *config.Defaults) {
				d.Interface = "192.168.1.20"
				d.MatchService = true
			},
			want: settings{
				Interface:    netip.MustParseAddr("192.168.1.20"),
				Interval:     time.Second,
				Timeout:      10 * time.Second,
				IgnoreEmpty:  true,
				MatchService: true,
			},
		},
		{
			name: "unset flags keep config values",
			defaults: func(d *config.Defaults) {
				d.IgnoreEmpty = false
				d.Timeout = time.Minute
			},
			args: []string{"--interval", "2s"},
			want: settings{Interval: 2 * time.Second, Timeout: time.Minute},
		},
		{
			name:    "ipv6 interface rejected",
			args:    []string{"-i", "fe80::1"},
			wantErr: true,
		},
		{
			name:    "zero interval rejected",
			args:    []string{"--interval", "0s"},
			wantErr: true,
		},
		{
			name:    "negative timeout rejected",
			args:    []string{"--timeout", "-1s"},
			wantErr: true,
		},
		{
			name:     "bad interface in config",
			defaults: func(d *config.Defaults) { d.Interface = "eth0" },
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := defaults
			if tt.defaults != nil {
				tt.defaults(&d)
			}

			var f discoveryFlags
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f.register(fs, 10*time.Second)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			got, err := resolveSettings(fs, &f, d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("resolveSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSettingsOptionsAndParams(t *testing.T) {
	s := settings{Interval: time.Second, IgnoreEmpty: true}
	if got := len(s.options()); got != 3 {
		t.Errorf("len(options()) = %d, want 3", got)
	}
	params := s.params()
	if params["Interface"] != "all" || params["Timeout"] != "none" {
		t.Errorf("params() = %v", params)
	}

	s.Interface = netip.MustParseAddr("10.0.0.2")
	s.Timeout = 5 * time.Second
	if got := len(s.options()); got != 4 {
		t.Errorf("len(options()) with interface = %d, want 4", got)
	}
	params = s.params()
	if params["Interface"] != "10.0.0.2" || params["Timeout"] != "5s" {
		t.Errorf("params() = %v", params)
	}
}

func TestResolveReport(t *testing.T) {
	found := []*response.Response{
		{Answers: []response.Record{{Name: "_svc._tcp.local", Kind: response.PTR{Target: "a._svc._tcp.local"}}}},
	}
	hosts := []string{"a._svc._tcp.local", "b._svc._tcp.local", "b._svc._tcp.local"}

	got := resolveReport("_svc._tcp.local", hosts, found)
	if _, ok := got.Found["a._svc._tcp.local"]; !ok || len(got.Found) != 1 {
		t.Errorf("Found = %v, want only a._svc._tcp.local", got.Found)
	}
	if len(got.Missing) != 1 || got.Missing[0] != "b._svc._tcp.local" {
		t.Errorf("Missing = %v, want [b._svc._tcp.local]", got.Missing)
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml"} {
		if err := validateFormat(f); err != nil {
			t.Errorf("validateFormat(%q) = %v", f, err)
		}
	}
	if err := validateFormat("xml"); err == nil {
		t.Error("validateFormat(xml) = nil, want error")
	}
}

func TestRenderInterfaces(t *testing.T) {
	out := renderInterfaces(nil)
	if !strings.Contains(out, "No usable interfaces") {
		t.Errorf("renderInterfaces(nil) = %q", out)
	}

	out = renderInterfaces([]transport.Interface{
		{Name: "wlan0", Index: 3, Addr: netip.MustParseAddr("192.168.1.20")},
		{Name: "eth0", Index: 2, Addr: netip.MustParseAddr("10.0.0.2")},
	})
	for _, want := range []string{"INDEX", "eth0", "10.0.0.2", "wlan0", "192.168.1.20"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderInterfaces() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "eth0") > strings.Index(out, "wlan0") {
		t.Errorf("interfaces not sorted by index:\n%s", out)
	}
}
