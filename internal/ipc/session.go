package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"handoff/internal/clock"
	"handoff/internal/envelope"
	"handoff/internal/faults"
	"handoff/internal/logging"
	"handoff/internal/transport"
)

// Conn is the transport surface a Session drives. *transport.Socket satisfies it.
type Conn interface {
	Open(ctx context.Context, h transport.Handlers) error
	Emit(event string, args ...any) error
	Close() error
}

// Outcome is the single result of a session. It succeeded iff Err is nil.
type Outcome struct {
	Payload string
	Err     error
}

// Session performs one liveness probe or one event exchange over conn.
type Session struct {
	conn    Conn
	request *envelope.Request
	timeout time.Duration
	clock   clock.Clock
	logger  *slog.Logger

	settled  atomic.Bool
	watchdog atomic.Pointer[clock.Timer]
	done     chan Outcome
}

// NewSession prepares a session. A nil request makes it a liveness probe.
func NewSession(conn Conn, request *envelope.Request, timeout time.Duration, clk clock.Clock, logger *slog.Logger) *Session {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		conn:    conn,
		request: request,
		timeout: timeout,
		clock:   clk,
		logger:  logger,
		done:    make(chan Outcome, 1),
	}
}

// Start arms the watchdog and opens the connection. It does not block.
func (s *Session) Start(ctx context.Context) {
	timer := s.clock.AfterFunc(s.timeout, func() {
		s.fail(faults.Wrap(faults.ErrLocalTimeout, "session", fmt.Sprintf("no outcome within %s", s.timeout), nil))
	})
	s.watchdog.Store(timer)
	if s.settled.Load() {
		timer.Stop()
		return
	}

	err := s.conn.Open(ctx, transport.Handlers{
		Connect:        s.onConnect,
		Disconnect:     s.onDisconnect,
		ConnectError:   s.fail,
		ConnectTimeout: s.fail,
		Error:          s.fail,
		Event:          s.onEvent,
	})
	if err != nil {
		s.fail(faults.Wrap(faults.ErrTransport, "open connection", "", err))
	}
}

// Wait blocks until the session settles or ctx is done. Cancelling ctx settles
// the session as failed.
func (s *Session) Wait(ctx context.Context) Outcome {
	select {
	case out := <-s.done:
		return out
	case <-ctx.Done():
		s.fail(fmt.Errorf("%s: %w", s.describe(), ctx.Err()))
		return <-s.done
	}
}

// Settled reports whether an outcome has been recorded.
func (s *Session) Settled() bool {
	return s.settled.Load()
}

func (s *Session) describe() string {
	if s.request == nil {
		return "liveness probe"
	}
	return s.request.Event + " exchange"
}

func (s *Session) onConnect() {
	if s.request == nil {
		s.logger.Debug("connected")
		s.succeed("")
		return
	}
	encoded, err := s.request.Encode()
	if err != nil {
		s.fail(faults.Wrap(faults.ErrTransport, "encode request", s.request.Event, err))
		return
	}
	if err := s.conn.Emit(s.request.Event, encoded); err != nil {
		s.fail(faults.Wrap(faults.ErrTransport, "emit", s.request.Event, err))
		return
	}
	s.logger.Debug("request sent")
}

func (s *Session) onEvent(name string, args []json.RawMessage) {
	if s.request == nil || name != s.request.Event {
		s.logger.Debug("ignoring unexpected event", logging.String("received", name))
		return
	}
	s.succeed(payloadText(args))
}

// onDisconnect only logs. Before settlement the watchdog stays the decider.
func (s *Session) onDisconnect(reason string, err error) {
	attrs := []logging.Attr{logging.String("reason", reason), logging.Bool("settled", s.settled.Load())}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	s.logger.Debug("disconnected", logging.Args(attrs...)...)
}

func (s *Session) succeed(payload string) {
	s.settle(Outcome{Payload: payload})
}

func (s *Session) fail(err error) {
	if faults.Reason(err) == "" && !isContextErr(err) {
		err = faults.Wrap(faults.ErrTransport, s.describe(), "", err)
	}
	if s.settle(Outcome{Err: err}) {
		s.logger.Debug("session failed", logging.Error(err))
	}
}

// settle records out if nothing has settled yet. Only the first caller wins.
func (s *Session) settle(out Outcome) bool {
	if !s.settled.CompareAndSwap(false, true) {
		return false
	}
	if timer := s.watchdog.Load(); timer != nil {
		timer.Stop()
	}
	_ = s.conn.Close()
	s.done <- out
	return true
}

func payloadText(args []json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(args[0], &text); err == nil {
		return text
	}
	return string(args[0])
}

func isContextErr(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
