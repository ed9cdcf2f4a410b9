// Package mdnserr defines the error taxonomy shared by the discovery engine.
//
// Every failure the engine reports to a caller is an *Error carrying a Kind,
// the operation that failed and (where known) the local interface address the
// failing socket was bound to. Callers normally use errors.Is with the Err*
// sentinels rather than inspecting the struct.
package mdnserr

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindIO indicates a socket-level failure (bind, multicast join, send, receive)
	KindIO Kind = iota
	// KindDecode indicates the DNS codec rejected a received message envelope
	KindDecode
	// KindTimeout indicates a deadline elapsed
	KindTimeout
	// KindConfig indicates invalid caller-supplied options
	KindConfig
	// KindClosed indicates the operation ran against a closed session or socket
	KindClosed
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindDecode:
		return "decode error"
	case KindTimeout:
		return "timeout"
	case KindConfig:
		return "configuration error"
	case KindClosed:
		return "closed"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrIO      = &Error{Kind: KindIO}
	ErrDecode  = &Error{Kind: KindDecode}
	ErrTimeout = &Error{Kind: KindTimeout}
	ErrConfig  = &Error{Kind: KindConfig}
	ErrClosed  = &Error{Kind: KindClosed}
)

// Error is the error type returned by the engine.
type Error struct {
	Kind      Kind   // Category of error
	Op        string // Operation that failed, e.g. "join group"
	Interface string // Local interface address, empty when not socket-specific
	Err       error  // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Interface != "" {
		msg = fmt.Sprintf("%s (interface %s)", msg, e.Interface)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with
// an Op only matches errors for that operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// IO wraps err as a KindIO error. Timeouts reported by the network stack are
// reclassified as KindTimeout.
func IO(op, iface string, err error) *Error {
	kind := KindIO
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Interface: iface, Err: err}
}

// Decode wraps a codec failure.
func Decode(iface string, err error) *Error {
	return &Error{Kind: KindDecode, Op: "decode", Interface: iface, Err: err}
}

// Config creates a configuration error with the given message.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: "configure", Err: fmt.Errorf(format, args...)}
}

// Closed creates a KindClosed error for op.
func Closed(op string) *Error {
	return &Error{Kind: KindClosed, Op: op}
}

// KindOf returns the kind of err, and false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Classify maps an arbitrary error to a Kind. *Error values keep their own
// kind, network timeouts become KindTimeout and everything else is KindIO.
func Classify(err error) Kind {
	if kind, ok := KindOf(err); ok {
		return kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindIO
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
