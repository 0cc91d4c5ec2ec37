package ipc

import (
	"encoding/json"
	"strconv"
	"strings"

	"handoff/internal/envelope"
	"handoff/internal/faults"
)

// StopResult is the decoded reply to a STOP request.
type StopResult struct {
	Code    string
	Message string
	PID     int
	HasPID  bool
	// Response is the full envelope, kept for debug output.
	Response envelope.Response
}

// OK reports whether the daemon acknowledged the stop.
func (r StopResult) OK() bool {
	return r.Code == envelope.CodeOK
}

// VersionInfo is the decoded reply to a VERSION request.
type VersionInfo struct {
	Code     string
	Version  string
	Response envelope.Response
}

type stopContent struct {
	Message string          `json:"message"`
	PID     json.RawMessage `json:"pid"`
}

// DecodeStop parses a STOP response payload. Content is optional for non-OK
// codes; an OK reply must carry a message or a pid.
func DecodeStop(raw string) (StopResult, error) {
	resp, err := envelope.Decode(raw)
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{Code: resp.Code, Response: resp}
	if !resp.HasContent() {
		if resp.OK() {
			return StopResult{}, faults.Wrap(faults.ErrMalformedResponse, "decode stop", "OK reply without content", nil)
		}
		return result, nil
	}

	var content stopContent
	if err := json.Unmarshal(resp.Content, &content); err != nil {
		if resp.OK() {
			return StopResult{}, faults.Wrap(faults.ErrMalformedResponse, "decode stop", "", err)
		}
		result.Message = resp.ContentText()
		return result, nil
	}
	result.Message = content.Message
	if pid, ok := parsePID(content.PID); ok {
		result.PID = pid
		result.HasPID = true
	}
	return result, nil
}

// parsePID accepts a pid sent as a JSON number or a numeric string.
func parsePID(raw json.RawMessage) (int, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	if unquoted, err := strconv.Unquote(trimmed); err == nil {
		trimmed = strings.TrimSpace(unquoted)
	}
	pid, err := strconv.Atoi(trimmed)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// DecodeVersion parses a VERSION response payload. Content may be a plain
// string or an object with a "version" field.
func DecodeVersion(raw string) (VersionInfo, error) {
	resp, err := envelope.Decode(raw)
	if err != nil {
		return VersionInfo{}, err
	}
	info := VersionInfo{Code: resp.Code, Response: resp, Version: resp.ContentText()}
	var content struct {
		Version string `json:"version"`
	}
	if json.Unmarshal(resp.Content, &content) == nil && content.Version != "" {
		info.Version = content.Version
	}
	if !resp.OK() {
		return info, faults.Wrap(faults.ErrRemote, "version", "'"+resp.Code+"' returned from server", nil)
	}
	return info, nil
}

// DecodeEcho parses an ECHO response payload and returns the echoed text.
func DecodeEcho(raw string) (string, envelope.Response, error) {
	resp, err := envelope.Decode(raw)
	if err != nil {
		return "", envelope.Response{}, err
	}
	if !resp.OK() {
		return "", resp, faults.Wrap(faults.ErrRemote, "echo", "'"+resp.Code+"' returned from server", nil)
	}
	return resp.ContentText(), resp, nil
}
