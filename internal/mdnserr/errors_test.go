package mdnserr

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() == true
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIO_ClassifiesTimeout(t *testing.T) {
	err := IO("receive", "192.168.1.2", &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}})

	if err.Kind != KindTimeout {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTimeout)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) = false, want true")
	}
	if errors.Is(err, ErrIO) {
		t.Error("errors.Is(err, ErrIO) = true, want false")
	}
}

func TestIO_PlainError(t *testing.T) {
	cause := &net.OpError{Op: "write", Net: "udp", Err: syscall.ENETUNREACH}
	err := IO("send query", "10.0.0.1", cause)

	if err.Kind != KindIO {
		t.Errorf("Kind = %v, want %v", err.Kind, KindIO)
	}
	if !errors.Is(err, syscall.ENETUNREACH) {
		t.Error("expected error chain to contain ENETUNREACH")
	}
	if !errors.Is(err, &Error{Kind: KindIO, Op: "send query"}) {
		t.Error("expected match on kind and op")
	}
	if errors.Is(err, &Error{Kind: KindIO, Op: "join group"}) {
		t.Error("unexpected match on different op")
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{
			name: "full",
			err:  &Error{Kind: KindIO, Op: "bind", Interface: "192.168.1.2", Err: io.ErrClosedPipe},
			want: []string{"bind", "I/O error", "192.168.1.2", io.ErrClosedPipe.Error()},
		},
		{
			name: "kind only",
			err:  &Error{Kind: KindClosed},
			want: []string{"closed"},
		},
		{
			name: "decode",
			err:  Decode("0.0.0.0", fmt.Errorf("dns: overflow unpacking uint16")),
			want: []string{"decode", "decode error", "overflow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("Error() = %q, want it to contain %q", msg, w)
				}
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("discovery: %w", Config("query interval must be positive"))

	kind, ok := KindOf(wrapped)
	if !ok {
		t.Fatal("KindOf() ok = false, want true")
	}
	if kind != KindConfig {
		t.Errorf("KindOf() = %v, want %v", kind, KindConfig)
	}

	if _, ok := KindOf(io.EOF); ok {
		t.Error("KindOf(io.EOF) ok = true, want false")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindIO, "I/O error"},
		{KindDecode, "decode error"},
		{KindTimeout, "timeout"},
		{KindConfig, "configuration error"},
		{KindClosed, "closed"},
		{Kind(42), "Kind(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"timeout", &net.OpError{Op: "read", Err: timeoutError{}}, KindTimeout},
		{"closed conn", net.ErrClosed, KindIO},
		{"typed", Decode("", io.ErrUnexpectedEOF), KindDecode},
		{"wrapped typed", fmt.Errorf("x: %w", Closed("next")), KindClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
