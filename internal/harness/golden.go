package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/focusql/internal/ir"
)

// Snapshot is the deterministic view of a result that golden files pin.
// Timing metadata and request ids are left out.
func Snapshot(name string, r *Result) ([]byte, error) {
	steps := make([]any, len(r.Steps))
	for i, sr := range r.Steps {
		env := sr.Envelope
		step := map[string]any{
			"step":      sr.Name,
			"success":   env.Success,
			"hostCalls": sr.HostCalls,
			"fromCache": env.Metadata["fromCache"],
		}
		if env.Error != nil {
			step["error"] = string(env.Error.Kind)
		}
		if s, ok := env.Metadata["strategy"]; ok {
			step["strategy"] = s
		}
		if ids, ok := recordIDs(env.Data); ok {
			step["ids"] = ids
		}
		if cols, ok := env.Metadata["invalidated"]; ok {
			step["invalidated"] = cols
		}
		steps[i] = step
	}
	v, err := ir.FromAny(map[string]any{"scenario": name, "steps": steps})
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// RunWithGolden runs a scenario, fails t on any unmet expectation and
// compares the snapshot with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(s, opts...)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
