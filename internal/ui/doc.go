// Package ui renders styled terminal output for the mdns command-line tools.
//
// This package uses Lipgloss (and the Bubbles progress bar) to render
// one-shot output. The live, interactive view lives in package tui; these
// components print once and return.
//
// # Components
//
//   - Header: command banner showing the operation and its parameters
//   - Card: one mDNS response as a record table, grouped by section
//   - HostProgress: one row per host under a progress bar
//   - Result: success, warning and failure boxes with troubleshooting tips
//   - Printer: writes any of the above to an io.Writer
//
// # Usage Pattern
//
// The resolve command wraps its work in a Runner:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:   "Resolve",
//	    Command: "mdns-discover resolve",
//	    Params:  map[string]string{"Service": service},
//	    Hosts:   hosts,
//	})
//
//	_, err := runner.Run(ctx, func(ctx context.Context, onHost ui.HostCallback) (map[string]string, error) {
//	    onHost(host, ui.HostResolved, "192.168.1.40:8009")
//	    return map[string]string{"Found": "1"}, nil
//	})
//
// # Logging Integration
//
// Logging is controlled via the MDNS_LOG_LEVEL environment variable. When
// unset, zap logging is silent so the styled output is displayed cleanly.
package ui
