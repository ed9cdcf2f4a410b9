// Package logging provides structured logging for the discovery tools.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the engine, the CLI and the gateway.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Per-packet detail (queries sent, responses decoded, hex dumps of dropped datagrams)
//   - Info: Session lifecycle (sockets opened, gateway clients connected)
//   - Warn: Non-fatal issues (an interface failed to bind, a receiver stopped)
//   - Error: Fatal issues (startup failures)
//
// # Silent by Default
//
// Nothing is written until Initialize is called with a level or the
// MDNS_LOG_LEVEL environment variable is set. The CLI keeps stdout for
// results, so log output goes to stderr.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Component Loggers
//
// Library packages accept a *zap.Logger option and fall back to a named child
// of the global logger:
//
//	log := logging.Named("transport").With(zap.String("interface", "192.168.1.20"))
//	logging.LogQuery(log, "192.168.1.20", "_googlecast._tcp.local")
package logging
