package transport

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/mdnserr"
	"github.com/muurk/mdns/internal/metrics"
	"github.com/muurk/mdns/response"
)

const (
	// MulticastAddr is the IPv4 mDNS group (RFC 6762 §3).
	MulticastAddr = "224.0.0.251"

	// Port is the mDNS UDP port.
	Port = 5353

	// headerLen is the size of the fixed DNS message header.
	headerLen = 12

	// multicastTTL is the IP TTL mDNS packets are sent with (RFC 6762 §11).
	multicastTTL = 255
)

// aLongTimeAgo is a non-zero time in the past, used to unblock a pending read.
var aLongTimeAgo = time.Unix(1, 0)

// packetConn is the subset of net.PacketConn a Conn uses.
type packetConn interface {
	ReadFrom(p []byte) (int, net.Addr, error)
	WriteTo(p []byte, addr net.Addr) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Option configures a Conn.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// WithLogger sets the logger. Defaults to logging.Named("transport").
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Conn is one UDP socket bound to the mDNS port and joined to the multicast
// group on a single interface. It is shared by a Sender and a Listener role;
// the socket closes once both roles are released or Close is called.
type Conn struct {
	name    string
	pc      packetConn
	dst     net.Addr
	log     *zap.Logger
	metrics *metrics.Metrics

	sender   *Sender
	listener *Listener

	refs      atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// InterfaceName renders addr for logs, metrics and errors. The zero address
// is reported as the wildcard.
func InterfaceName(addr netip.Addr) string {
	if !addr.IsValid() {
		return "0.0.0.0"
	}
	return addr.String()
}

// Listen opens the mDNS socket for the interface owning ifaceAddr. The
// unspecified (or zero) address joins the group on the system default
// interface.
func Listen(ifaceAddr netip.Addr, opts ...Option) (*Conn, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	name := InterfaceName(ifaceAddr)
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(Port)))
	if err != nil {
		return nil, mdnserr.IO("bind", name, err)
	}

	if err := joinGroup(pc, ifaceAddr, name); err != nil {
		_ = pc.Close()
		return nil, err
	}

	dst := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: Port}
	c := newConn(pc, name, dst, o)
	c.log.Debug("Socket opened", zap.String("group", dst.String()))
	return c, nil
}

func joinGroup(pc net.PacketConn, ifaceAddr netip.Addr, name string) error {
	p := ipv4.NewPacketConn(pc)

	var ifi *net.Interface
	if ifaceAddr.IsValid() && !ifaceAddr.IsUnspecified() {
		var err error
		ifi, err = interfaceByAddr(ifaceAddr)
		if err != nil {
			return mdnserr.IO("lookup interface", name, err)
		}
		if err := p.SetMulticastInterface(ifi); err != nil {
			return mdnserr.IO("set multicast interface", name, err)
		}
	}

	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: net.ParseIP(MulticastAddr)}); err != nil {
		return mdnserr.IO("join group", name, err)
	}
	if err := p.SetMulticastLoopback(false); err != nil {
		return mdnserr.IO("disable multicast loopback", name, err)
	}
	if err := p.SetMulticastTTL(multicastTTL); err != nil {
		return mdnserr.IO("set multicast ttl", name, err)
	}
	return nil
}

func newConn(pc packetConn, name string, dst net.Addr, o options) *Conn {
	log := o.logger
	if log == nil {
		log = logging.Named("transport")
	}

	c := &Conn{
		name:    name,
		pc:      pc,
		dst:     dst,
		log:     log.With(zap.String("interface", name)),
		metrics: o.metrics,
	}
	c.refs.Store(2)
	c.sender = &Sender{conn: c}
	c.listener = &Listener{conn: c}
	c.metrics.SocketOpened()
	return c
}

// Interface returns the interface address the socket was opened for.
func (c *Conn) Interface() string {
	return c.name
}

// Sender returns the sending role of the socket.
func (c *Conn) Sender() *Sender {
	return c.sender
}

// Listener returns the receiving role of the socket.
func (c *Conn) Listener() *Listener {
	return c.listener
}

// Close closes the socket regardless of outstanding roles. It is safe to call
// more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if err := c.pc.Close(); err != nil {
			c.closeErr = mdnserr.IO("close", c.name, err)
		}
		c.metrics.SocketClosed()
		c.log.Debug("Socket closed")
	})
	return c.closeErr
}

func (c *Conn) release() error {
	if c.refs.Add(-1) == 0 {
		return c.Close()
	}
	return nil
}

// SendQuery writes a PTR query for service to the multicast group. Failures
// are reported, never retried.
func (c *Conn) SendQuery(ctx context.Context, service string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return mdnserr.Closed("send query")
	}

	query, err := BuildQuery(service)
	if err != nil {
		return err
	}

	if _, err := c.pc.WriteTo(query, c.dst); err != nil {
		if c.closed.Load() || errors.Is(err, net.ErrClosed) {
			return mdnserr.Closed("send query")
		}
		return mdnserr.IO("send query", c.name, err)
	}

	c.metrics.QuerySent(c.name)
	logging.LogQuery(c.log, c.name, service)
	return nil
}

// Receive blocks until a datagram decodes or ctx is done. Datagrams shorter
// than a DNS header are dropped and the wait continues. A datagram whose
// envelope fails to decode is reported as a KindDecode error; the socket stays
// usable.
func (c *Conn) Receive(ctx context.Context) (*response.Response, error) {
	bufp := getBuffer()
	defer putBuffer(bufp)
	buf := *bufp

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.closed.Load() {
			return nil, mdnserr.Closed("receive")
		}

		n, src, err := c.readFrom(ctx, buf)
		if err != nil {
			return nil, err
		}

		if n < headerLen {
			c.metrics.DatagramDropped(c.name)
			logging.LogRawBytes(c.log, "Dropped short datagram", buf[:n])
			continue
		}

		resp, err := response.Decode(buf[:n])
		if err != nil {
			c.metrics.DecodeError(c.name)
			c.log.Debug("Failed to decode datagram", zap.Stringer("source", src), zap.Error(err))
			var derr *mdnserr.Error
			if errors.As(err, &derr) {
				derr.Interface = c.name
			}
			return nil, err
		}

		c.metrics.ResponseReceived(c.name)
		host, _ := resp.FirstHostname()
		logging.LogResponse(c.log, c.name, len(resp.Answers)+len(resp.Nameservers)+len(resp.Additional), host)
		return resp, nil
	}
}

func (c *Conn) readFrom(ctx context.Context, buf []byte) (int, net.Addr, error) {
	deadline, _ := ctx.Deadline()
	if err := c.pc.SetReadDeadline(deadline); err != nil {
		if c.closed.Load() || errors.Is(err, net.ErrClosed) {
			return 0, nil, mdnserr.Closed("receive")
		}
		return 0, nil, mdnserr.IO("set read deadline", c.name, err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.pc.SetReadDeadline(aLongTimeAgo)
	})
	n, src, err := c.pc.ReadFrom(buf)
	stop()

	if err == nil {
		return n, src, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, nil, ctxErr
	}
	if c.closed.Load() || errors.Is(err, net.ErrClosed) {
		return 0, nil, mdnserr.Closed("receive")
	}
	if !deadline.IsZero() && mdnserr.Classify(err) == mdnserr.KindTimeout && !time.Now().Before(deadline) {
		return 0, nil, context.DeadlineExceeded
	}
	return 0, nil, mdnserr.IO("receive", c.name, err)
}

// Sender is the query-emitting role of a Conn.
type Sender struct {
	conn     *Conn
	released atomic.Bool
}

// Interface returns the interface address of the underlying socket.
func (s *Sender) Interface() string {
	return s.conn.name
}

// SendQuery emits one query on the underlying socket.
func (s *Sender) SendQuery(ctx context.Context, service string) error {
	if s.released.Load() {
		return mdnserr.Closed("send query")
	}
	return s.conn.SendQuery(ctx, service)
}

// Release gives up the role. The socket closes when both roles are released.
func (s *Sender) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.release()
}

// Listener is the receiving role of a Conn.
type Listener struct {
	conn     *Conn
	released atomic.Bool
}

// Interface returns the interface address of the underlying socket.
func (l *Listener) Interface() string {
	return l.conn.name
}

// Receive waits for the next decodable datagram.
func (l *Listener) Receive(ctx context.Context) (*response.Response, error) {
	if l.released.Load() {
		return nil, mdnserr.Closed("receive")
	}
	return l.conn.Receive(ctx)
}

// Release gives up the role. The socket closes when both roles are released.
func (l *Listener) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	return l.conn.release()
}
