// Package config provides user configuration management for the mdns tools.
//
// This package manages a YAML-based configuration file that stores discovery
// defaults, service-name aliases and metadata for hosts that have been seen.
// Command-line flags always override values from the file.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/mdns/config.yaml or $HOME/.config/mdns/config.yaml
//   - macOS: $HOME/.config/mdns/config.yaml
//   - Windows: %LOCALAPPDATA%\mdns\config.yaml
//
// MDNS_CONFIG overrides the location.
//
// # File Format
//
//	version: 1
//	defaults:
//	    query_interval: 1s
//	    timeout: 10s
//	    ignore_empty: true
//	    match_service: false
//	services:
//	    googlecast: _googlecast._tcp.local
//	hosts:
//	    Kitchen._googlecast._tcp.local:
//	        nickname: kitchen speaker
//	        last_ip: 192.168.1.40
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	service := registry.ResolveService("googlecast")
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes. A Registry
// value itself is not safe for concurrent mutation.
package config
