package ipc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"handoff/internal/clock"
	"handoff/internal/config"
	"handoff/internal/envelope"
	"handoff/internal/logging"
	"handoff/internal/transport"
)

// Daemon events.
const (
	EventVersion = "VERSION"
	EventStop    = "STOP"
	EventEcho    = "ECHO"
)

const defaultTimeout = 5 * time.Second

// Dialer creates a fresh, unopened connection to url for one session.
type Dialer func(url string) (Conn, error)

// Options configures a Client. The zero value of every field except URL has a default.
type Options struct {
	URL     string
	Path    string
	Timeout time.Duration
	Dialer  Dialer
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Client exposes the daemon operations. Each call runs its own Session.
type Client struct {
	opts   Options
	logger *slog.Logger
}

// NewClient builds a client from opts.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	logger := logging.NewComponentLogger(opts.Logger, "ipc")
	if opts.Dialer == nil {
		opts.Dialer = socketDialer(opts.Path, opts.Timeout, opts.Logger)
	}
	return &Client{opts: opts, logger: logger}
}

// NewClientFromConfig builds a client for the daemon described by cfg.
func NewClientFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(Options{
		URL:     cfg.DaemonURL(),
		Path:    cfg.Daemon.Path,
		Timeout: cfg.Timeout(),
		Logger:  logger,
	})
}

func socketDialer(path string, timeout time.Duration, logger *slog.Logger) Dialer {
	return func(url string) (Conn, error) {
		sock, err := transport.New(url, transport.Options{Path: path, Timeout: timeout, Logger: logger})
		if err != nil {
			return nil, err
		}
		logging.NewComponentLogger(logger, "ipc").Debug("socket endpoint", logging.String(logging.FieldURL, sock.Endpoint()))
		return sock, nil
	}
}

// URL returns the daemon address the client targets.
func (c *Client) URL() string {
	return c.opts.URL
}

// ProbeLiveness reports whether the daemon accepts a connection.
func (c *Client) ProbeLiveness(ctx context.Context) bool {
	c.logger.Debug("probing daemon", logging.String(logging.FieldURL, c.opts.URL))
	out := c.run(ctx, nil)
	if out.Err != nil {
		c.logger.Debug("daemon not reachable", logging.String(logging.FieldURL, c.opts.URL), logging.Error(out.Err))
		return false
	}
	return true
}

// FetchVersion asks the daemon for its version and returns the raw response payload.
func (c *Client) FetchVersion(ctx context.Context) (string, error) {
	req := envelope.NewRequest(EventVersion)
	out := c.run(ctx, &req)
	return out.Payload, out.Err
}

// Echo sends args joined by single spaces and returns the raw response payload.
func (c *Client) Echo(ctx context.Context, args []string) (string, error) {
	req := envelope.NewRequest(EventEcho, strings.TrimSpace(strings.Join(args, " ")))
	out := c.run(ctx, &req)
	return out.Payload, out.Err
}

// RequestStop asks the daemon to shut down and returns the raw response payload.
func (c *Client) RequestStop(ctx context.Context) (string, error) {
	req := envelope.NewRequest(EventStop)
	out := c.run(ctx, &req)
	return out.Payload, out.Err
}

func (c *Client) run(ctx context.Context, req *envelope.Request) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.logger
	if req != nil {
		ctx = logging.WithExchange(ctx, req.ID, req.Event)
		logger = logging.WithContext(ctx, c.logger)
	}

	conn, err := c.opts.Dialer(c.opts.URL)
	if err != nil {
		return Outcome{Err: err}
	}
	session := NewSession(conn, req, c.opts.Timeout, c.opts.Clock, logger)
	session.Start(ctx)
	return session.Wait(ctx)
}
