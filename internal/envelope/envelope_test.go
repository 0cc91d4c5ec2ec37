package envelope_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"handoff/internal/envelope"
	"handoff/internal/faults"
)

func TestNewRequestOmitsAbsentContent(t *testing.T) {
	req := envelope.NewRequest("VERSION")
	raw, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("request is not valid JSON: %v", err)
	}
	if _, ok := fields["content"]; ok {
		t.Fatalf("content should be omitted: %s", raw)
	}
	if fields["type"] != "Request" || fields["event"] != "VERSION" {
		t.Fatalf("unexpected envelope: %s", raw)
	}
	if req.HasContent() {
		t.Fatal("HasContent should be false without content")
	}
	stamp, ok := fields["dateTime"].(string)
	if !ok || !strings.HasSuffix(stamp, "Z") {
		t.Fatalf("expected UTC timestamp, got %v", fields["dateTime"])
	}
	if _, err := time.Parse(time.RFC3339Nano, stamp); err != nil {
		t.Fatalf("timestamp not RFC 3339: %v", err)
	}
}

func TestNewRequestCarriesContentAndUniqueIDs(t *testing.T) {
	a := envelope.NewRequest("ECHO", "hello world")
	b := envelope.NewRequest("ECHO", "hello world")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	raw, err := a.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(raw, `"content":"hello world"`) {
		t.Fatalf("expected content in %s", raw)
	}
}

func TestNewRequestKeepsEmptyStringContent(t *testing.T) {
	raw, err := envelope.NewRequest("ECHO", "").Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(raw, `"content":""`) {
		t.Fatalf("empty string content should be sent, got %s", raw)
	}
}

func TestDecodeResponse(t *testing.T) {
	raw := `{"type":"Response","id":"r1","requestId":"q1","sessionId":"s1",` +
		`"dateTime":"2024-04-18T12:30:00.000Z","event":"STOP","code":"OK",` +
		`"content":{"message":"Handoff daemon stopped","pid":1234},"trace":"abc"}`
	resp, err := envelope.Decode(raw)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !resp.OK() || resp.Event != "STOP" || resp.RequestID != "q1" || resp.SessionID != "s1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	var content struct {
		Message string `json:"message"`
		PID     int    `json:"pid"`
	}
	if err := resp.DecodeContent(&content); err != nil {
		t.Fatalf("DecodeContent returned error: %v", err)
	}
	if content.PID != 1234 || content.Message != "Handoff daemon stopped" {
		t.Fatalf("unexpected content %+v", content)
	}
	if got := string(resp.Extra["trace"]); got != `"abc"` {
		t.Fatalf("expected unknown field to be retained, got %q", got)
	}
	want := time.Date(2024, 4, 18, 12, 30, 0, 0, time.UTC)
	if !resp.Time().Equal(want) || !resp.LocalTime().Equal(want) {
		t.Fatalf("unexpected time %v", resp.Time())
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"", "Local timeout", "[1,2]", `{"code":`, `{"code":7}`} {
		_, err := envelope.Decode(raw)
		if !errors.Is(err, faults.ErrMalformedResponse) {
			t.Fatalf("Decode(%q) = %v, want malformed response", raw, err)
		}
	}
}

func TestContentText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: `{"code":"OK","content":"hello world"}`, want: "hello world"},
		{raw: `{"code":"OK","content":{"version":"1.2.0"}}`, want: `{"version":"1.2.0"}`},
		{raw: `{"code":"OK","content":null}`, want: ""},
		{raw: `{"code":"OK"}`, want: ""},
	}
	for _, tc := range tests {
		resp, err := envelope.Decode(tc.raw)
		if err != nil {
			t.Fatalf("Decode(%q): %v", tc.raw, err)
		}
		if got := resp.ContentText(); got != tc.want {
			t.Fatalf("ContentText(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDecodeContentWithoutContent(t *testing.T) {
	resp, err := envelope.Decode(`{"code":"NOT_RUNNING","event":"STOP"}`)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	var v map[string]any
	if err := resp.DecodeContent(&v); !errors.Is(err, faults.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestTableListsFields(t *testing.T) {
	resp, err := envelope.Decode(`{"type":"Response","id":"r1","requestId":"q1","sessionId":"s1",` +
		`"dateTime":"2024-04-18T12:30:00.000Z","event":"VERSION","code":"OK","content":"0.5.0","zeta":1}`)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	out := envelope.Table(resp)
	for _, fragment := range []string{"request id", "session id", "q1", "s1", "VERSION", "0.5.0", "2024-04-18T12:30:00.000Z (", "zeta"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in table:\n%s", fragment, out)
		}
	}
}
