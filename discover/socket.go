package discover

import (
	"context"

	"go.uber.org/multierr"

	"github.com/muurk/mdns/internal/transport"
	"github.com/muurk/mdns/response"
)

// socket is what a Discovery needs from one interface socket.
type socket interface {
	Interface() string
	SendQuery(ctx context.Context, service string) error
	Receive(ctx context.Context) (*response.Response, error)
	Close() error
}

// connSocket drives a transport.Conn through its two roles.
type connSocket struct {
	conn *transport.Conn
}

func (s connSocket) Interface() string {
	return s.conn.Interface()
}

func (s connSocket) SendQuery(ctx context.Context, service string) error {
	return s.conn.Sender().SendQuery(ctx, service)
}

func (s connSocket) Receive(ctx context.Context) (*response.Response, error) {
	return s.conn.Listener().Receive(ctx)
}

func (s connSocket) Close() error {
	return multierr.Combine(
		s.conn.Sender().Release(),
		s.conn.Listener().Release(),
	)
}
