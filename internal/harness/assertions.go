package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/focusql/internal/postprocess"
)

// checkExpect returns one message per mismatch. outcome is the journal
// outcome of the step's last entry.
func checkExpect(exp *Expect, sr StepResult, outcome string) []string {
	var errs []string
	env := sr.Envelope

	if exp.Success != nil && env.Success != *exp.Success {
		msg := fmt.Sprintf("expected success=%v, got %v", *exp.Success, env.Success)
		if env.Error != nil {
			msg += fmt.Sprintf(" (%s: %s)", env.Error.Kind, env.Error.Message)
		}
		errs = append(errs, msg)
	}
	if exp.ErrorKind != "" {
		switch {
		case env.Error == nil:
			errs = append(errs, fmt.Sprintf("expected error %s, got none", exp.ErrorKind))
		case string(env.Error.Kind) != exp.ErrorKind:
			errs = append(errs, fmt.Sprintf("expected error %s, got %s: %s", exp.ErrorKind, env.Error.Kind, env.Error.Message))
		}
	}
	if exp.Strategy != "" {
		if got, _ := env.Metadata["strategy"].(string); got != exp.Strategy {
			errs = append(errs, fmt.Sprintf("expected strategy %s, got %q", exp.Strategy, got))
		}
	}
	if exp.FromCache != nil {
		if got, _ := env.Metadata["fromCache"].(bool); got != *exp.FromCache {
			errs = append(errs, fmt.Sprintf("expected fromCache=%v, got %v", *exp.FromCache, got))
		}
	}
	if exp.HostCalls != nil && sr.HostCalls != *exp.HostCalls {
		errs = append(errs, fmt.Sprintf("expected %d host calls, got %d", *exp.HostCalls, sr.HostCalls))
	}
	if exp.IDs != nil {
		got, ok := recordIDs(env.Data)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("expected records, data is %T", env.Data))
		case !slices.Equal(got, exp.IDs):
			errs = append(errs, fmt.Sprintf("expected ids %v, got %v", exp.IDs, got))
		}
	}
	for _, key := range sortedKeys(exp.Metadata) {
		got, ok := env.Metadata[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("metadata %q missing", key))
			continue
		}
		if !sameJSON(exp.Metadata[key], got) {
			errs = append(errs, fmt.Sprintf("metadata %q: expected %v, got %v", key, exp.Metadata[key], got))
		}
	}
	if exp.Outcome != "" && outcome != exp.Outcome {
		errs = append(errs, fmt.Sprintf("expected journal outcome %s, got %q", exp.Outcome, outcome))
	}
	return errs
}

// recordIDs lists the id of every record when data is a record list.
func recordIDs(data any) ([]string, bool) {
	recs, ok := data.([]postprocess.Record)
	if !ok {
		return nil, false
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i], _ = r[postprocess.IDField].(string)
	}
	return ids, true
}

// sameJSON compares values after a JSON round trip, which erases the
// int/float64 and []string/[]any distinctions between YAML and Go values.
func sameJSON(want, got any) bool {
	a, errA := roundTrip(want)
	b, errB := roundTrip(got)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func roundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
