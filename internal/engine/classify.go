package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	permissionMarkers = []string{
		"-1743",
		"not authorized to send apple events",
		"not allowed to send apple events",
		"not allowed to send events",
	}
	notRunningMarkers = []string{
		"(-600)",
		"isn't running",
		"is not running",
		"connection is invalid",
	}
)

// ClassifyMessage maps a raw host or process message onto a kind. It
// returns Internal when nothing matches.
func ClassifyMessage(raw string) Kind {
	msg := strings.ToLower(raw)
	for _, m := range permissionMarkers {
		if strings.Contains(msg, m) {
			return KindPermissionDenied
		}
	}
	for _, m := range notRunningMarkers {
		if strings.Contains(msg, m) {
			return KindHostNotRunning
		}
	}
	return KindInternal
}

// Observation is everything the engine saw of one subprocess run.
type Observation struct {
	RequestID string
	Stdout    []byte
	Stderr    []byte
	// Err is the process error (non-zero exit, failed start), if any.
	Err      error
	TimedOut bool
}

// reply is the document every generated script prints.
type reply struct {
	OK        bool            `json:"ok"`
	RequestID string          `json:"requestId"`
	Result    json.RawMessage `json:"result"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
}

// Classify turns an observation into the script result or a classified
// error. It is the only code that inspects raw host output.
func Classify(o Observation) (json.RawMessage, *Error) {
	if o.TimedOut {
		return nil, NewError(KindScriptTimeout, "script did not finish before the timeout", strings.TrimSpace(string(o.Stderr)))
	}
	if o.Err != nil {
		raw := strings.TrimSpace(string(o.Stderr))
		if raw == "" {
			raw = o.Err.Error()
		}
		kind := ClassifyMessage(raw)
		return nil, NewError(kind, processMessage(kind), raw)
	}

	trimmed := bytes.TrimSpace(o.Stdout)
	if len(trimmed) == 0 {
		return nil, NewError(KindMalformedOutput, "host produced no output", strings.TrimSpace(string(o.Stderr)))
	}
	r, err := decodeSingle(trimmed)
	if err != nil {
		return nil, NewError(KindMalformedOutput, err.Error(), truncate(string(trimmed), 512))
	}
	if r.RequestID != o.RequestID {
		return nil, NewError(KindMalformedOutput,
			fmt.Sprintf("reply belongs to request %q, expected %q", r.RequestID, o.RequestID),
			truncate(string(trimmed), 512))
	}
	if !r.OK {
		raw := r.Message
		if kind := ClassifyMessage(raw); kind != KindInternal {
			return nil, NewError(kind, processMessage(kind), raw)
		}
		e := NewError(KindHostReportedError, r.Message, raw)
		if r.Code != "" {
			e.WithDetail("code", r.Code)
		}
		if r.Code == "not_found" {
			e.Recoverable = true
		}
		return nil, e
	}
	if len(r.Result) == 0 {
		return nil, NewError(KindMalformedOutput, "reply has no result", truncate(string(trimmed), 512))
	}
	return r.Result, nil
}

func decodeSingle(data []byte) (*reply, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var r reply
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("output is not a result document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("output holds more than one document")
	}
	return &r, nil
}

func processMessage(kind Kind) string {
	switch kind {
	case KindPermissionDenied:
		return "not permitted to send automation events to the host"
	case KindHostNotRunning:
		return "host application is not running"
	default:
		return "host automation process failed"
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
