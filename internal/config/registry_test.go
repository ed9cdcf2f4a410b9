package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if filepath.Base(configDir) != "mdns" {
		t.Errorf("GetConfigDir() = %v, should end in 'mdns'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg", "mdns") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/mdns", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}

	t.Setenv(PathEnvVar, "/etc/mdns/custom.yaml")
	configPath, err = GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if configPath != "/etc/mdns/custom.yaml" {
		t.Errorf("GetConfigPath() = %v, want override", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Hosts == nil {
		t.Error("NewRegistry().Hosts should not be nil")
	}
	if !reg.Defaults.IgnoreEmpty {
		t.Error("NewRegistry().Defaults.IgnoreEmpty should be true by default")
	}
	if reg.Defaults.MatchService {
		t.Error("NewRegistry().Defaults.MatchService should be false by default")
	}
	if reg.Defaults.QueryInterval != time.Second {
		t.Errorf("NewRegistry().Defaults.QueryInterval = %v, want 1s", reg.Defaults.QueryInterval)
	}
	if err := reg.Validate(); err != nil {
		t.Errorf("NewRegistry().Validate() error = %v", err)
	}

	// Mutating one registry must not leak into the package defaults.
	reg.Services["googlecast"] = "_other._tcp.local"
	if DefaultServices["googlecast"] != "_googlecast._tcp.local" {
		t.Error("NewRegistry() shares its alias map with DefaultServices")
	}
}

func TestRegistryResolveService(t *testing.T) {
	reg := NewRegistry()
	if err := reg.SetAlias("Printer", "_ipps._tcp.local"); err != nil {
		t.Fatalf("SetAlias() error = %v", err)
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"googlecast", "_googlecast._tcp.local"},
		{"GoogleCast", "_googlecast._tcp.local"},
		{"printer", "_ipps._tcp.local"},
		{"_custom._udp.local", "_custom._udp.local"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := reg.ResolveService(tt.input); got != tt.expected {
				t.Errorf("ResolveService(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRegistrySetAlias_Invalid(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		alias   string
		service string
	}{
		{"empty alias", "  ", "_http._tcp.local"},
		{"empty service", "web", ""},
		{"bad service", "web", "bad..name.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.SetAlias(tt.alias, tt.service); err == nil {
				t.Errorf("SetAlias(%q, %q) error = nil, want error", tt.alias, tt.service)
			}
		})
	}

	if !reg.RemoveAlias("http") {
		t.Error("RemoveAlias(http) = false, want true")
	}
	if reg.RemoveAlias("http") {
		t.Error("second RemoveAlias(http) = true, want false")
	}
}

func TestRegistryEnsureHost(t *testing.T) {
	reg := NewRegistry()

	host1 := reg.EnsureHost("a._http._tcp.local")
	if host1 == nil {
		t.Fatal("EnsureHost() returned nil")
	}

	host2 := reg.EnsureHost("a._http._tcp.local")
	if host1 != host2 {
		t.Error("EnsureHost() should return same instance for same hostname")
	}

	host3 := reg.EnsureHost("b._http._tcp.local")
	if host1 == host3 {
		t.Error("EnsureHost() should create new instance for different hostname")
	}
}

func TestRegistryRecordHostSeen(t *testing.T) {
	reg := NewRegistry()
	seen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	reg.RecordHostSeen("a._http._tcp.local", "192.168.1.100", seen)
	reg.RecordHostSeen("a._http._tcp.local", "", seen.Add(time.Minute))

	host := reg.GetHost("a._http._tcp.local")
	if host == nil {
		t.Fatal("Host should exist after RecordHostSeen()")
	}
	if host.LastIP != "192.168.1.100" {
		t.Errorf("LastIP = %v, want 192.168.1.100", host.LastIP)
	}
	if !host.LastSeen.Equal(seen.Add(time.Minute)) {
		t.Errorf("LastSeen = %v, want %v", host.LastSeen, seen.Add(time.Minute))
	}
}

func TestRegistryNickname(t *testing.T) {
	reg := NewRegistry()

	if got := reg.Nickname("a.local"); got != "" {
		t.Errorf("Nickname() = %q before SetNickname, want empty", got)
	}
	reg.SetNickname("a.local", "Kitchen")
	if got := reg.Nickname("a.local"); got != "Kitchen" {
		t.Errorf("Nickname() = %q, want Kitchen", got)
	}
}

func TestDefaultsInterfaceAddr(t *testing.T) {
	tests := []struct {
		iface   string
		wantOK  bool
		wantErr bool
	}{
		{"", false, false},
		{"192.168.1.20", true, false},
		{"fe80::1", false, true},
		{"eth0", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.iface, func(t *testing.T) {
			addr, ok, err := Defaults{Interface: tt.iface}.InterfaceAddr()
			if (err != nil) != tt.wantErr {
				t.Fatalf("InterfaceAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("InterfaceAddr() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && addr.String() != tt.iface {
				t.Errorf("InterfaceAddr() = %v, want %v", addr, tt.iface)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
		check   func(t *testing.T, reg *Registry)
	}{
		{
			name: "partial defaults keep the rest",
			doc: `version: 1
defaults:
  timeout: 30s
services:
  tv: _androidtvremote2._tcp.local
`,
			check: func(t *testing.T, reg *Registry) {
				if reg.Defaults.Timeout != 30*time.Second {
					t.Errorf("Timeout = %v, want 30s", reg.Defaults.Timeout)
				}
				if reg.Defaults.QueryInterval != time.Second {
					t.Errorf("QueryInterval = %v, want default 1s", reg.Defaults.QueryInterval)
				}
				if !reg.Defaults.IgnoreEmpty {
					t.Error("IgnoreEmpty should keep its default")
				}
				if len(reg.Services) != 1 || reg.ResolveService("tv") != "_androidtvremote2._tcp.local" {
					t.Errorf("Services = %v, want only the tv alias", reg.Services)
				}
				if reg.Hosts == nil {
					t.Error("Hosts should be initialized")
				}
			},
		},
		{
			name:    "unsupported version",
			doc:     "version: 2\n",
			wantErr: "unsupported config version",
		},
		{
			name:    "bad interval",
			doc:     "version: 1\ndefaults:\n  query_interval: 0s\n",
			wantErr: "query_interval",
		},
		{
			name:    "bad log level",
			doc:     "version: 1\ndefaults:\n  log_level: loud\n",
			wantErr: "log_level",
		},
		{
			name:    "bad alias",
			doc:     "version: 1\nservices:\n  x: \"a..b\"\n",
			wantErr: "services.x",
		},
		{
			name:    "not yaml",
			doc:     "version: [",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Parse([]byte(tt.doc))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want error containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.check(t, reg)
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	testConfigPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.Defaults.Interface = "192.168.1.20"
	reg.Defaults.QueryInterval = 2 * time.Second
	reg.SetNickname("a._http._tcp.local", "Test Device")
	reg.RecordHostSeen("a._http._tcp.local", "192.168.1.100", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	if err := reg.SaveFile(testConfigPath); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	data, err := os.ReadFile(testConfigPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "query_interval: 2s") {
		t.Errorf("saved config should write durations as strings:\n%s", data)
	}
	if _, err := os.Stat(testConfigPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := LoadFile(testConfigPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if loaded.Defaults.Interface != "192.168.1.20" {
		t.Errorf("Loaded interface = %v, want 192.168.1.20", loaded.Defaults.Interface)
	}
	if loaded.Defaults.QueryInterval != 2*time.Second {
		t.Errorf("Loaded query interval = %v, want 2s", loaded.Defaults.QueryInterval)
	}
	host := loaded.GetHost("a._http._tcp.local")
	if host == nil {
		t.Fatal("Host should exist in loaded registry")
	}
	if host.Nickname != "Test Device" {
		t.Errorf("Loaded nickname = %v, want 'Test Device'", host.Nickname)
	}
	if host.LastIP != "192.168.1.100" {
		t.Errorf("Loaded last IP = %v, want 192.168.1.100", host.LastIP)
	}
	if loaded.ResolveService("googlecast") != "_googlecast._tcp.local" {
		t.Error("Loaded registry lost the default aliases")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	reg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if reg.Defaults.Timeout != 10*time.Second {
		t.Errorf("missing file should yield defaults, got timeout %v", reg.Defaults.Timeout)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(PathEnvVar, path)

	got, err := CreateDefaultConfig(false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if got != path {
		t.Errorf("CreateDefaultConfig() path = %v, want %v", got, path)
	}

	if _, err := CreateDefaultConfig(false); err == nil {
		t.Error("CreateDefaultConfig() over an existing file should fail without overwrite")
	}
	if _, err := CreateDefaultConfig(true); err != nil {
		t.Errorf("CreateDefaultConfig(overwrite) error = %v", err)
	}
}

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

func BenchmarkResolveService(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.ResolveService("googlecast")
	}
}
