// Package server implements the mDNS gateway: an HTTP server that runs
// discoveries on behalf of remote clients.
//
// # Endpoints
//
//	GET /ws?service=NAME[&timeout=30s][&include_empty=true][&match_service=true]
//	GET /resolve?service=NAME&host=HOST[&host=HOST...][&timeout=5s]
//	GET /healthz
//	GET /metrics
//
// /ws upgrades to a websocket and streams one JSON StreamMessage per
// discovery result. A final message of type "end" is sent when the
// discovery finishes, followed by a normal close frame. Clients may send
// {"type":"solicit"} to request an immediate query round.
//
// /resolve waits for the named hosts to announce themselves and returns
// the responses found before the timeout, plus the hosts still missing.
//
// Query parameters are validated before any socket is opened; invalid
// values are rejected with 400 and a JSON error body.
//
// # TLS
//
// When a certificate and key are configured the gateway serves HTTPS
// (TLS 1.2 or newer).
//
// # Shutdown
//
// Run and Start stop accepting requests when their context ends, send a
// going-away close frame to every websocket client and wait for the
// streams to finish, bounded by Config.ShutdownTimeout.
package server
