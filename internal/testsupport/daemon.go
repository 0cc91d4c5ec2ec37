package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Responder builds the reply for one event. Returning ok=false sends nothing.
type Responder func(payload string) (reply string, ok bool)

// Message is an event received by the fake daemon.
type Message struct {
	Event   string
	Payload string
}

// DaemonOption customizes a fake daemon.
type DaemonOption func(*Daemon)

// Daemon is an in-process Socket.IO v4 server speaking just enough of the
// protocol for client tests.
type Daemon struct {
	URL    string
	server *httptest.Server

	upgrader websocket.Upgrader

	mu         sync.Mutex
	responders map[string]Responder
	received   []Message
	connects   int
	disconnect int

	silent        bool
	rejectConnect string
	pingInterval  time.Duration
}

// WithoutConnectAck makes the daemon accept the WebSocket but never acknowledge
// the Socket.IO CONNECT, so clients stall in the handshake.
func WithoutConnectAck() DaemonOption {
	return func(d *Daemon) { d.silent = true }
}

// WithConnectError makes the daemon answer CONNECT with a CONNECT_ERROR.
func WithConnectError(message string) DaemonOption {
	return func(d *Daemon) { d.rejectConnect = message }
}

// WithPingInterval advertises the given heartbeat interval and sends pings at it.
func WithPingInterval(interval time.Duration) DaemonOption {
	return func(d *Daemon) { d.pingInterval = interval }
}

// NewDaemon starts a fake daemon that is shut down when the test finishes.
func NewDaemon(t testing.TB, opts ...DaemonOption) *Daemon {
	t.Helper()

	d := &Daemon{
		responders:   make(map[string]Responder),
		pingInterval: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/socket.io/", d.serve)
	d.server = httptest.NewServer(mux)
	d.URL = d.server.URL
	t.Cleanup(d.server.Close)
	return d
}

// Handle registers a responder for event.
func (d *Daemon) Handle(event string, fn Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responders[event] = fn
}

// Reply registers a responder that always returns reply.
func (d *Daemon) Reply(event, reply string) {
	d.Handle(event, func(string) (string, bool) { return reply, true })
}

// Received returns the events received so far.
func (d *Daemon) Received() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.received...)
}

// Connections returns how many Socket.IO CONNECT packets were acknowledged.
func (d *Daemon) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// Disconnects returns how many clients sent a Socket.IO DISCONNECT.
func (d *Daemon) Disconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnect
}

// Close stops the server early.
func (d *Daemon) Close() {
	d.server.CloseClientConnections()
	d.server.Close()
}

func (d *Daemon) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(frame string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, []byte(frame))
	}

	open, _ := json.Marshal(map[string]any{
		"sid":          uuid.NewString(),
		"upgrades":     []string{},
		"pingInterval": d.pingInterval.Milliseconds(),
		"pingTimeout":  d.pingInterval.Milliseconds(),
		"maxPayload":   1000000,
	})
	if err := write("0" + string(open)); err != nil {
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(d.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if write("2") != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame := string(data)
		switch {
		case frame == "40" || strings.HasPrefix(frame, "40{"):
			if d.silent {
				continue
			}
			if d.rejectConnect != "" {
				reply, _ := json.Marshal(map[string]string{"message": d.rejectConnect})
				_ = write("44" + string(reply))
				continue
			}
			d.mu.Lock()
			d.connects++
			d.mu.Unlock()
			_ = write(`40{"sid":"` + uuid.NewString() + `"}`)
		case frame == "41":
			d.mu.Lock()
			d.disconnect++
			d.mu.Unlock()
			return
		case strings.HasPrefix(frame, "42"):
			d.handleEvent(frame[2:], write)
		}
	}
}

func (d *Daemon) handleEvent(body string, write func(string) error) {
	var args []json.RawMessage
	if err := json.Unmarshal([]byte(body), &args); err != nil || len(args) == 0 {
		return
	}
	var event string
	if err := json.Unmarshal(args[0], &event); err != nil {
		return
	}
	var payload string
	if len(args) > 1 {
		if err := json.Unmarshal(args[1], &payload); err != nil {
			payload = string(args[1])
		}
	}

	d.mu.Lock()
	d.received = append(d.received, Message{Event: event, Payload: payload})
	responder := d.responders[event]
	d.mu.Unlock()

	if responder == nil {
		return
	}
	reply, ok := responder(payload)
	if !ok {
		return
	}
	frame, _ := json.Marshal([]string{event, reply})
	_ = write("42" + string(frame))
}

// Response renders a daemon response envelope answering request.
func Response(request, code string, content any) string {
	var req struct {
		ID    string `json:"id"`
		Event string `json:"event"`
	}
	_ = json.Unmarshal([]byte(request), &req)
	envelope := map[string]any{
		"type":      "Response",
		"id":        uuid.NewString(),
		"requestId": req.ID,
		"sessionId": "test-session",
		"dateTime":  time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"event":     req.Event,
		"code":      code,
	}
	if content != nil {
		envelope["content"] = content
	}
	data, _ := json.Marshal(envelope)
	return string(data)
}
