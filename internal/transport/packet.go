package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioUpgrade = '5'
	eioNoop    = '6'
)

// Socket.IO packet types carried inside Engine.IO messages.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

var errEmptyPacket = errors.New("empty packet")

type openPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

type connectErrorPayload struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// packet is one decoded Socket.IO message.
type packet struct {
	kind byte
	data string
}

func encodeConnect() string {
	return string([]byte{eioMessage, sioConnect})
}

func encodeDisconnect() string {
	return string([]byte{eioMessage, sioDisconnect})
}

func encodeEvent(event string, args []any) (string, error) {
	frame := make([]any, 0, len(args)+1)
	frame = append(frame, event)
	frame = append(frame, args...)
	data, err := json.Marshal(frame)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", event, err)
	}
	return string([]byte{eioMessage, sioEvent}) + string(data), nil
}

// decodeSocketPacket parses the payload of an Engine.IO message packet. The
// namespace prefix and acknowledgement id are skipped.
func decodeSocketPacket(payload string) (packet, error) {
	if payload == "" {
		return packet{}, errEmptyPacket
	}
	p := packet{kind: payload[0]}
	rest := payload[1:]
	if strings.HasPrefix(rest, "/") {
		if idx := strings.IndexByte(rest, ','); idx >= 0 {
			rest = rest[idx+1:]
		} else {
			rest = ""
		}
	}
	rest = strings.TrimLeft(rest, "0123456789")
	p.data = rest
	return p, nil
}

func decodeEvent(data string) (string, []json.RawMessage, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		return "", nil, fmt.Errorf("decode event frame: %w", err)
	}
	if len(frame) == 0 {
		return "", nil, errors.New("decode event frame: missing event name")
	}
	var name string
	if err := json.Unmarshal(frame[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	return name, frame[1:], nil
}

func decodeConnectError(data string) string {
	var payload connectErrorPayload
	if err := json.Unmarshal([]byte(data), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if trimmed := strings.TrimSpace(data); trimmed != "" {
		return trimmed
	}
	return "connection refused by server"
}
