package ipc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"handoff/internal/faults"
	"handoff/internal/ipc"
	"handoff/internal/testsupport"
)

func newClient(url string, timeout time.Duration) *ipc.Client {
	return ipc.NewClient(ipc.Options{URL: url, Timeout: timeout})
}

func unusedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return "http://" + addr
}

func TestProbeLivenessUnreachableIsIdempotent(t *testing.T) {
	client := newClient(unusedAddress(t), time.Second)
	for i := 0; i < 3; i++ {
		if client.ProbeLiveness(context.Background()) {
			t.Fatalf("probe %d reported an unreachable daemon as alive", i)
		}
	}
}

func TestProbeLivenessSilentPeer(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	client := newClient(daemon.URL, 2*time.Second)
	for i := 0; i < 3; i++ {
		if !client.ProbeLiveness(context.Background()) {
			t.Fatalf("probe %d failed against a reachable daemon", i)
		}
	}
	if len(daemon.Received()) != 0 {
		t.Fatalf("probe must not emit events, got %v", daemon.Received())
	}
}

func TestProbeLivenessStalledHandshake(t *testing.T) {
	daemon := testsupport.NewDaemon(t, testsupport.WithoutConnectAck())
	client := newClient(daemon.URL, 150*time.Millisecond)
	if client.ProbeLiveness(context.Background()) {
		t.Fatal("probe should fail when the handshake never completes")
	}
}

func TestEchoRoundTrip(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.Handle(ipc.EventEcho, func(payload string) (string, bool) {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", false
		}
		return req.Content, true
	})

	client := newClient(daemon.URL, 2*time.Second)
	got, err := client.Echo(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("Echo = %q, want %q", got, "hello world")
	}

	received := daemon.Received()
	if len(received) != 1 || received[0].Event != ipc.EventEcho {
		t.Fatalf("unexpected received events %v", received)
	}
	var req map[string]any
	if err := json.Unmarshal([]byte(received[0].Payload), &req); err != nil {
		t.Fatalf("request is not JSON: %v", err)
	}
	if req["content"] != "hello world" || req["type"] != "Request" || req["event"] != ipc.EventEcho {
		t.Fatalf("unexpected request envelope %v", req)
	}
}

func TestEchoTrimsJoinedArgs(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.Handle(ipc.EventEcho, func(payload string) (string, bool) { return payload, true })

	client := newClient(daemon.URL, 2*time.Second)
	if _, err := client.Echo(context.Background(), []string{" ", "spaced ", ""}); err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(daemon.Received()[0].Payload), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Content != "spaced" {
		t.Fatalf("expected trimmed content, got %q", req.Content)
	}
}

func TestRequestStopDecodes(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.Handle(ipc.EventStop, func(payload string) (string, bool) {
		return testsupport.Response(payload, "OK", map[string]any{"message": "Handoff daemon stopping", "pid": 1234}), true
	})

	client := newClient(daemon.URL, 2*time.Second)
	raw, err := client.RequestStop(context.Background())
	if err != nil {
		t.Fatalf("RequestStop returned error: %v", err)
	}
	result, err := ipc.DecodeStop(raw)
	if err != nil {
		t.Fatalf("DecodeStop returned error: %v", err)
	}
	if !result.OK() || result.PID != 1234 || !result.HasPID || result.Message != "Handoff daemon stopping" {
		t.Fatalf("unexpected stop result %+v", result)
	}
	if result.Response.RequestID == "" {
		t.Fatal("expected request id to be echoed by the daemon")
	}
}

func TestFetchVersionTimesOutWithoutReply(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	client := newClient(daemon.URL, 200*time.Millisecond)

	start := time.Now()
	_, err := client.FetchVersion(context.Background())
	if !errors.Is(err, faults.ErrLocalTimeout) {
		t.Fatalf("expected local timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Fatalf("timed out early after %s", elapsed)
	}
}

func TestFetchVersionConnectError(t *testing.T) {
	client := newClient(unusedAddress(t), time.Second)
	if _, err := client.FetchVersion(context.Background()); !errors.Is(err, faults.ErrConnect) {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestClientRejectsBadURL(t *testing.T) {
	client := newClient("gopher://localhost:70", time.Second)
	if _, err := client.FetchVersion(context.Background()); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDecodeStopVariants(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantPID int
		hasPID  bool
		wantMsg string
		wantErr error
	}{
		{name: "string pid", raw: `{"code":"OK","content":{"message":"stopping","pid":"4321"}}`, wantPID: 4321, hasPID: true, wantMsg: "stopping"},
		{name: "non ok with pid", raw: `{"code":"BUSY","content":{"message":"busy","pid":99}}`, wantPID: 99, hasPID: true, wantMsg: "busy"},
		{name: "non ok without content", raw: `{"code":"BUSY"}`},
		{name: "non ok text content", raw: `{"code":"BUSY","content":"try later"}`, wantMsg: "try later"},
		{name: "ok without content", raw: `{"code":"OK"}`, wantErr: faults.ErrMalformedResponse},
		{name: "not json", raw: `Local timeout`, wantErr: faults.ErrMalformedResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ipc.DecodeStop(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeStop returned error: %v", err)
			}
			if result.PID != tc.wantPID || result.HasPID != tc.hasPID || result.Message != tc.wantMsg {
				t.Fatalf("unexpected result %+v", result)
			}
		})
	}
}

func TestDecodeVersion(t *testing.T) {
	info, err := ipc.DecodeVersion(`{"code":"OK","content":{"version":"0.5.0"}}`)
	if err != nil || info.Version != "0.5.0" {
		t.Fatalf("unexpected version %+v (%v)", info, err)
	}
	info, err = ipc.DecodeVersion(`{"code":"OK","content":"Handoff daemon 0.6.1"}`)
	if err != nil || info.Version != "Handoff daemon 0.6.1" {
		t.Fatalf("unexpected version %+v (%v)", info, err)
	}
	if _, err := ipc.DecodeVersion(`{"code":"ERROR"}`); !errors.Is(err, faults.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestDecodeEcho(t *testing.T) {
	text, _, err := ipc.DecodeEcho(`{"code":"OK","content":"hello world"}`)
	if err != nil || text != "hello world" {
		t.Fatalf("unexpected echo %q (%v)", text, err)
	}
}
