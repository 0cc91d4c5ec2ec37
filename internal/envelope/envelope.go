package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"handoff/internal/faults"
)

// TypeRequest is the envelope type of every message the client sends.
const TypeRequest = "Request"

// CodeOK is the status code the daemon uses for success.
const CodeOK = "OK"

// dateTimeLayout matches the millisecond ISO-8601 form the daemon writes.
const dateTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var now = time.Now

// Request is an outgoing envelope. It is immutable once built.
type Request struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	DateTime string `json:"dateTime"`
	Event    string `json:"event"`
	Content  any    `json:"content,omitempty"`

	hasContent bool
}

// NewRequest builds a request for event. Content is attached only when supplied;
// only the first value is used, and a nil value is omitted from the wire.
func NewRequest(event string, content ...any) Request {
	req := Request{
		Type:     TypeRequest,
		ID:       uuid.NewString(),
		DateTime: now().UTC().Format(dateTimeLayout),
		Event:    event,
	}
	if len(content) > 0 {
		req.Content = content[0]
		req.hasContent = true
	}
	return req
}

// HasContent reports whether content was supplied to NewRequest.
func (r Request) HasContent() bool {
	return r.hasContent
}

// Encode renders the request as JSON text.
func (r Request) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", r.Event, err)
	}
	return string(data), nil
}

// Response is an envelope produced by the daemon.
type Response struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	RequestID string          `json:"requestId"`
	SessionID string          `json:"sessionId"`
	DateTime  string          `json:"dateTime"`
	Event     string          `json:"event"`
	Code      string          `json:"code"`
	Content   json.RawMessage `json:"content,omitempty"`

	// Extra holds top-level fields the client does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownFields = map[string]struct{}{
	"type": {}, "id": {}, "requestId": {}, "sessionId": {},
	"dateTime": {}, "event": {}, "code": {}, "content": {},
}

// Decode parses a raw response payload. Anything other than a JSON object fails
// with faults.ErrMalformedResponse.
func Decode(raw string) (Response, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Response{}, faults.Wrap(faults.ErrMalformedResponse, "decode response", "payload is not a JSON object", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return Response{}, faults.Wrap(faults.ErrMalformedResponse, "decode response", "", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return Response{}, faults.Wrap(faults.ErrMalformedResponse, "decode response", "", err)
	}
	for key, value := range fields {
		if _, ok := knownFields[key]; ok {
			continue
		}
		if resp.Extra == nil {
			resp.Extra = make(map[string]json.RawMessage)
		}
		resp.Extra[key] = value
	}
	return resp, nil
}

// OK reports whether the daemon signalled success.
func (r Response) OK() bool {
	return r.Code == CodeOK
}

// HasContent reports whether the response carried a non-null content value.
func (r Response) HasContent() bool {
	trimmed := bytes.TrimSpace(r.Content)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeContent unmarshals the content into v.
func (r Response) DecodeContent(v any) error {
	if !r.HasContent() {
		return faults.Wrap(faults.ErrMalformedResponse, "decode content", fmt.Sprintf("%s response has no content", r.Event), nil)
	}
	if err := json.Unmarshal(r.Content, v); err != nil {
		return faults.Wrap(faults.ErrMalformedResponse, "decode content", r.Event, err)
	}
	return nil
}

// ContentText returns string content unquoted and any other content as raw JSON text.
func (r Response) ContentText() string {
	if !r.HasContent() {
		return ""
	}
	var text string
	if err := json.Unmarshal(r.Content, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(r.Content))
}

// Time parses the response timestamp. The zero time is returned when it is absent or invalid.
func (r Response) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.DateTime))
	if err != nil {
		return time.Time{}
	}
	return t
}

// LocalTime returns the response timestamp in the local time zone.
func (r Response) LocalTime() time.Time {
	t := r.Time()
	if t.IsZero() {
		return t
	}
	return t.Local()
}
