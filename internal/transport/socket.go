package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"handoff/internal/faults"
	"handoff/internal/logging"
)

// Disconnect reasons, matching the strings Socket.IO clients report.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
	ReasonPingTimeout      = "ping timeout"
)

const (
	defaultPath             = "/socket.io/"
	defaultHandshakeTimeout = 20 * time.Second
	writeWait               = 2 * time.Second
)

// ErrNotConnected is returned by Emit before the handshake completes or after Close.
var ErrNotConnected = errors.New("socket not connected")

// Handlers receives socket signals. Nil handlers are skipped.
type Handlers struct {
	Connect        func()
	Disconnect     func(reason string, err error)
	ConnectError   func(err error)
	ConnectTimeout func(err error)
	Error          func(err error)
	Event          func(name string, args []json.RawMessage)
}

// Options configures a Socket.
type Options struct {
	// Path is the Socket.IO mount path. Defaults to /socket.io/.
	Path string
	// Timeout bounds the dial plus handshake. Defaults to 20s.
	Timeout time.Duration
	Dialer  *websocket.Dialer
	Header  http.Header
	Logger  *slog.Logger
}

type socketState int

const (
	stateIdle socketState = iota
	stateOpening
	stateConnected
	stateClosed
)

// Socket is a single-use Socket.IO connection.
type Socket struct {
	endpoint string
	opts     Options
	logger   *slog.Logger

	mu     sync.Mutex
	state  socketState
	conn   *websocket.Conn
	cancel context.CancelFunc

	writeMu sync.Mutex
	done    chan struct{}
}

// New prepares a socket for the daemon at rawURL. The scheme may be http,
// https, ws, or wss.
func New(rawURL string, opts Options) (*Socket, error) {
	endpoint, err := websocketURL(rawURL, opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHandshakeTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Socket{
		endpoint: endpoint,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "transport"),
		done:     make(chan struct{}),
	}, nil
}

func websocketURL(rawURL, path string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: parse daemon url: %w", faults.ErrConfiguration, err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported daemon url scheme %q", faults.ErrConfiguration, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: daemon url %q has no host", faults.ErrConfiguration, rawURL)
	}
	if strings.TrimSpace(path) == "" {
		path = defaultPath
	}
	parsed.Path = path
	query := parsed.Query()
	query.Set("EIO", "4")
	query.Set("transport", "websocket")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Endpoint returns the WebSocket URL the socket dials.
func (s *Socket) Endpoint() string {
	return s.endpoint
}

// Done is closed once the reader goroutine has exited and no further handlers will run.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Open dials the daemon in the background and reports progress through h.
// It returns immediately; a socket can be opened once.
func (s *Socket) Open(ctx context.Context, h Handlers) error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return errors.New("socket already opened")
	}
	s.state = stateOpening
	dialCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(dialCtx, cancel, h)
	return nil
}

// Emit sends a named event with args to the daemon.
func (s *Socket) Emit(event string, args ...any) error {
	frame, err := encodeEvent(event, args)
	if err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	ready := s.state == stateConnected
	s.mu.Unlock()
	if !ready || conn == nil {
		return ErrNotConnected
	}
	if err := s.write(conn, frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	s.logger.Debug("event emitted", logging.String(logging.FieldEvent, event))
	return nil
}

// Close disconnects from the daemon. It is safe to call from handlers, from
// other goroutines, and more than once. When the socket had connected, the
// reader goroutine reports an "io client disconnect".
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	wasIdle := s.state == stateIdle
	wasConnected := s.state == stateConnected
	s.state = stateClosed
	conn := s.conn
	cancel := s.cancel
	s.mu.Unlock()

	if wasIdle {
		close(s.done)
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}
	if wasConnected {
		_ = s.write(conn, encodeDisconnect())
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return conn.Close()
}

func (s *Socket) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}

func (s *Socket) write(conn *websocket.Conn, frame string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (s *Socket) run(ctx context.Context, cancel context.CancelFunc, h Handlers) {
	defer close(s.done)
	defer cancel()

	s.logger.Debug("dialing daemon", logging.String(logging.FieldURL, s.endpoint))
	conn, resp, err := s.opts.Dialer.DialContext(ctx, s.endpoint, s.opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if s.closing() {
			return
		}
		if isTimeout(ctx, err) {
			call1(h.ConnectTimeout, faults.Wrap(faults.ErrConnectTimeout, "dial", s.endpoint, err))
			return
		}
		call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "dial", s.endpoint, err))
		return
	}

	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	heartbeat, ok := s.handshake(ctx, conn, h)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	s.state = stateConnected
	s.mu.Unlock()

	s.logger.Debug("connected", logging.String(logging.FieldURL, s.endpoint))
	if h.Connect != nil {
		h.Connect()
	}
	s.readLoop(conn, heartbeat, h)
}

// handshake waits for the Engine.IO open packet, joins the default namespace,
// and waits for the CONNECT acknowledgement. It returns the heartbeat window.
func (s *Socket) handshake(ctx context.Context, conn *websocket.Conn, h Handlers) (time.Duration, bool) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	var heartbeat time.Duration
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closing() {
				return 0, false
			}
			if isTimeout(ctx, err) {
				call1(h.ConnectTimeout, faults.Wrap(faults.ErrConnectTimeout, "handshake", s.endpoint, err))
				return 0, false
			}
			call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "handshake", s.endpoint, err))
			return 0, false
		}
		if len(message) == 0 {
			continue
		}

		switch message[0] {
		case eioOpen:
			var open openPayload
			if err := json.Unmarshal(message[1:], &open); err != nil {
				call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "handshake", "invalid open packet", err))
				return 0, false
			}
			heartbeat = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
			s.logger.Debug("engine.io open", logging.Any("session", open), logging.Duration("heartbeat", heartbeat))
			if err := s.write(conn, encodeConnect()); err != nil {
				call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "handshake", "send connect", err))
				return 0, false
			}
		case eioPing:
			if err := s.write(conn, string(eioPong)); err != nil {
				call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "handshake", "send pong", err))
				return 0, false
			}
		case eioClose:
			call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "handshake", "server closed the connection", nil))
			return 0, false
		case eioMessage:
			pkt, err := decodeSocketPacket(string(message[1:]))
			if err != nil {
				continue
			}
			switch pkt.kind {
			case sioConnect:
				return heartbeat, true
			case sioConnectError:
				call1(h.ConnectError, faults.Wrap(faults.ErrConnect, "handshake", decodeConnectError(pkt.data), nil))
				return 0, false
			}
		}
	}
}

func (s *Socket) readLoop(conn *websocket.Conn, heartbeat time.Duration, h Handlers) {
	for {
		if heartbeat > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(heartbeat))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			s.finish(err, h)
			return
		}
		if len(message) == 0 {
			continue
		}

		switch message[0] {
		case eioPing:
			if err := s.write(conn, string(eioPong)); err != nil && !s.closing() {
				call1(h.Error, faults.Wrap(faults.ErrTransport, "heartbeat", "send pong", err))
			}
		case eioClose:
			s.disconnect(h, ReasonTransportClose, nil)
			return
		case eioMessage:
			if s.closing() {
				continue
			}
			pkt, err := decodeSocketPacket(string(message[1:]))
			if err != nil {
				continue
			}
			switch pkt.kind {
			case sioEvent:
				name, args, err := decodeEvent(pkt.data)
				if err != nil {
					call1(h.Error, faults.Wrap(faults.ErrTransport, "read event", "", err))
					continue
				}
				s.logger.Debug("event received", logging.String(logging.FieldEvent, name))
				if h.Event != nil {
					h.Event(name, args)
				}
			case sioDisconnect:
				s.disconnect(h, ReasonServerDisconnect, nil)
				return
			case sioConnectError:
				call1(h.Error, faults.Wrap(faults.ErrTransport, "read", decodeConnectError(pkt.data), nil))
			}
		}
	}
}

// finish reports how the read loop ended after a read error.
func (s *Socket) finish(err error, h Handlers) {
	if s.closing() {
		s.disconnect(h, ReasonClientDisconnect, nil)
		return
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		s.disconnect(h, ReasonPingTimeout, err)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.disconnect(h, ReasonTransportClose, err)
	default:
		call1(h.Error, faults.Wrap(faults.ErrTransport, "read", s.endpoint, err))
		s.disconnect(h, ReasonTransportError, err)
	}
}

func (s *Socket) disconnect(h Handlers, reason string, err error) {
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
	s.logger.Debug("disconnected", logging.String("reason", reason))
	if h.Disconnect != nil {
		h.Disconnect(reason, err)
	}
}

func call1(fn func(error), err error) {
	if fn != nil {
		fn(err)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
