// Package urls provides centralized constants for the reference URLs shown
// in help text and troubleshooting output.
//
// Usage:
//
//	import "github.com/muurk/mdns/internal/urls"
//
//	fmt.Printf("Service names are listed at: %s\n", urls.ServiceNameRegistry)
package urls
