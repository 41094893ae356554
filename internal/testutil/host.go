package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/script"
)

// Reply is one canned host response. Exactly one shape applies, checked
// in this order: Timeout, Stderr (process failure), Raw (verbatim
// stdout), Message or Code (ok:false), otherwise ok:true with Result.
type Reply struct {
	Result  any           `yaml:"result,omitempty" json:"result,omitempty"`
	Message string        `yaml:"message,omitempty" json:"message,omitempty"`
	Code    string        `yaml:"code,omitempty" json:"code,omitempty"`
	Stderr  string        `yaml:"stderr,omitempty" json:"stderr,omitempty"`
	Timeout bool          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Raw     string        `yaml:"raw,omitempty" json:"raw,omitempty"`
	Delay   time.Duration `yaml:"-" json:"-"`
}

// Call records one invocation seen by a FakeHost.
type Call struct {
	Invocation engine.Invocation
	Source     string
	Params     map[string]any
	ViaStdin   bool
}

// RequestID returns the requestId carried in the call's parameters.
func (c Call) RequestID() string {
	id, _ := c.Params["requestId"].(string)
	return id
}

// FakeHost implements engine.Runner by replaying queued replies. It reads
// the staged script the way the real host would, so every call exercises
// the parameter block end to end.
type FakeHost struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// NewFakeHost queues replies in order.
func NewFakeHost(replies ...Reply) *FakeHost {
	return &FakeHost{replies: replies}
}

// Enqueue appends replies.
func (h *FakeHost) Enqueue(replies ...Reply) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replies = append(h.replies, replies...)
}

// Calls returns a copy of the recorded calls.
func (h *FakeHost) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// Pending reports how many replies are still queued.
func (h *FakeHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.replies)
}

// Drain discards queued replies and reports how many there were.
func (h *FakeHost) Drain() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.replies)
	h.replies = nil
	return n
}

// Run implements engine.Runner.
func (h *FakeHost) Run(ctx context.Context, inv engine.Invocation) ([]byte, []byte, error) {
	call, err := readCall(inv)
	if err != nil {
		return nil, []byte(err.Error()), err
	}

	h.mu.Lock()
	h.calls = append(h.calls, call)
	if len(h.replies) == 0 {
		h.mu.Unlock()
		return nil, []byte("fake host: no reply queued"), errors.New("exit status 1")
	}
	r := h.replies[0]
	h.replies = h.replies[1:]
	h.mu.Unlock()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	switch {
	case r.Timeout:
		<-ctx.Done()
		return nil, nil, errors.New("signal: killed")
	case r.Stderr != "":
		return nil, []byte(r.Stderr), errors.New("exit status 1")
	case r.Raw != "":
		return []byte(r.Raw), nil, nil
	}

	doc := map[string]any{"requestId": call.RequestID()}
	if r.Message != "" || r.Code != "" {
		doc["ok"] = false
		doc["message"] = r.Message
		if r.Code != "" {
			doc["code"] = r.Code
		}
	} else {
		doc["ok"] = true
		doc["result"] = r.Result
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("fake host: encode reply: %w", err)
	}
	return out, nil, nil
}

func readCall(inv engine.Invocation) (Call, error) {
	call := Call{Invocation: inv}
	if inv.Stdin != nil {
		call.Source = string(inv.Stdin)
		call.ViaStdin = true
	} else {
		if len(inv.Args) == 0 {
			return call, errors.New("fake host: no script argument")
		}
		data, err := os.ReadFile(inv.Args[len(inv.Args)-1])
		if err != nil {
			return call, fmt.Errorf("fake host: %w", err)
		}
		call.Source = string(data)
	}

	raw, err := script.ExtractParams(call.Source)
	if err != nil {
		return call, fmt.Errorf("fake host: %w", err)
	}
	if err := json.Unmarshal(raw, &call.Params); err != nil {
		return call, fmt.Errorf("fake host: %w", err)
	}
	return call, nil
}
