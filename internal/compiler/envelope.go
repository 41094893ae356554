package compiler

import (
	"fmt"
	"time"

	"github.com/roach88/focusql/internal/engine"
)

// Envelope is the response to one request. Metadata always carries
// operation, timestamp, fromCache, queryTimeMs and requestId.
type Envelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data"`
	Error    *engine.Error  `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

func newEnvelope(operation string, start time.Time, requestID string) *Envelope {
	return &Envelope{
		Metadata: map[string]any{
			"operation": operation,
			"timestamp": start.UTC().Format(time.RFC3339),
			"fromCache": false,
			"requestId": requestID,
		},
	}
}

func (c *Compiler) finish(env *Envelope, start time.Time) *Envelope {
	env.Metadata["queryTimeMs"] = c.now().Sub(start).Milliseconds()
	return env
}

func (c *Compiler) succeed(env *Envelope, start time.Time, data any) *Envelope {
	env.Success = true
	env.Data = data
	return c.finish(env, start)
}

func (c *Compiler) fail(env *Envelope, start time.Time, err *engine.Error) *Envelope {
	env.Success = false
	env.Error = err
	return c.finish(env, start)
}

func validationf(format string, args ...any) *engine.Error {
	return engine.NewError(engine.KindValidation, fmt.Sprintf(format, args...), "")
}

func asValidation(err error) *engine.Error {
	e := engine.AsError(err)
	if e.Kind == engine.KindInternal {
		return engine.NewError(engine.KindValidation, err.Error(), "")
	}
	return e
}
