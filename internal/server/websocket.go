package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/mdnserr"
	"github.com/muurk/mdns/response"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Stream message types sent to websocket clients.
const (
	MessageResponse = "response"
	MessageError    = "error"
	MessageEnd      = "end"
)

// StreamMessage is one frame of the /ws stream.
type StreamMessage struct {
	Type      string             `json:"type"`
	Interface string             `json:"interface,omitempty"`
	Response  *response.Response `json:"response,omitempty"`
	Error     string             `json:"error,omitempty"`
	Kind      string             `json:"kind,omitempty"`
	Time      time.Time          `json:"time"`
}

// ClientMessage is a command sent by a websocket client. The only command
// is {"type":"solicit"}, which requests an immediate query round.
type ClientMessage struct {
	Type string `json:"type"`
}

func newStreamMessage(res discover.Result) StreamMessage {
	msg := StreamMessage{
		Type:      MessageResponse,
		Interface: res.Interface,
		Response:  res.Response,
		Time:      time.Now(),
	}
	if res.Err != nil {
		msg.Type = MessageError
		msg.Response = nil
		msg.Error = res.Err.Error()
		msg.Kind = mdnserr.Classify(res.Err).String()
	}
	return msg
}

// handleStream upgrades the request and forwards every discovery result to
// the client as JSON until the discovery ends or either side disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service, err := serviceParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	timeout, err := durationParam(q, "timeout", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := s.discoveryOptions(q)
	if timeout > 0 {
		opts = append(opts, discover.WithTimeout(timeout))
	}
	stream, err := s.open(service, opts...)
	if err != nil {
		s.log.Warn("Failed to start discovery", zap.String("service", service), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.log.Debug("Failed to close discovery", zap.Error(err))
		}
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		s.log.Debug("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	remoteAddr := r.RemoteAddr
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.wg.Add(1)
	defer s.wg.Done()
	s.track(remoteAddr, cancel)
	defer s.untrack(remoteAddr)

	logging.LogConnection(remoteAddr, "websocket_opened")
	defer logging.LogConnection(remoteAddr, "websocket_closed")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		s.readCommands(conn, remoteAddr, stream)
	}()

	s.writeResults(ctx, conn, remoteAddr, stream.Results())

	_ = conn.Close()
	<-readDone
}

// readCommands handles client commands and pongs. It returns when the
// connection fails or the client closes it.
func (s *Server) readCommands(conn *websocket.Conn, remoteAddr string, stream Stream) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("Websocket read failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
			}
			return
		}

		var cmd ClientMessage
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.log.Debug("Ignoring malformed client message", zap.String("remote_addr", remoteAddr), zap.Error(err))
			continue
		}
		switch cmd.Type {
		case "solicit":
			s.log.Debug("Client requested query round", zap.String("remote_addr", remoteAddr))
			stream.Solicit()
		default:
			s.log.Debug("Ignoring unknown client message", zap.String("remote_addr", remoteAddr), zap.String("type", cmd.Type))
		}
	}
}

// writeResults is the connection's only writer.
func (s *Server) writeResults(ctx context.Context, conn *websocket.Conn, remoteAddr string, results <-chan discover.Result) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeConn(conn, websocket.CloseGoingAway, "server closing")
			return

		case res, ok := <-results:
			if !ok {
				if err := s.writeMessage(conn, StreamMessage{Type: MessageEnd, Time: time.Now()}); err == nil {
					s.closeConn(conn, websocket.CloseNormalClosure, "discovery finished")
				}
				return
			}
			if err := s.writeMessage(conn, newStreamMessage(res)); err != nil {
				s.log.Debug("Websocket write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("Websocket ping failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (s *Server) closeConn(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait))
}
