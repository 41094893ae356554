// Package strategy decides which automation dialect executes a request.
//
// Selection is a pure function of the request shape and the field
// registry. It never looks at runtime state or the cache, so the same
// request always selects the same strategy.
package strategy

import (
	"fmt"

	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
)

// Strategy is an execution plan for one request.
type Strategy int

const (
	// DirectRead reads through the direct dialect.
	DirectRead Strategy = iota
	// DirectWrite writes scalar fields through the direct dialect.
	DirectWrite
	// BridgeEvaluation writes an existing entity through the bridge dialect.
	BridgeEvaluation
	// Hybrid creates through the direct dialect, then sets bridge-only
	// fields with one bridge call.
	Hybrid
)

var names = [...]string{
	DirectRead:       "DirectRead",
	DirectWrite:      "DirectWrite",
	BridgeEvaluation: "BridgeEvaluation",
	Hybrid:           "Hybrid",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(names) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return names[s]
}

// MarshalText encodes the strategy by name.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Parse accepts a strategy name.
func Parse(name string) (Strategy, error) {
	for i, n := range names {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// UsesBridge reports whether the strategy issues a bridge call.
func (s Strategy) UsesBridge() bool {
	return s == BridgeEvaluation || s == Hybrid
}

// IsWrite reports whether the strategy mutates the host.
func (s Strategy) IsWrite() bool {
	return s != DirectRead
}

// rank orders strategies by cost for batch selection.
func (s Strategy) rank() int {
	switch s {
	case DirectRead:
		return 0
	case DirectWrite:
		return 1
	case BridgeEvaluation:
		return 2
	default:
		return 3
	}
}

// Select picks the strategy for a request.
//
// Reads are always DirectRead. create and update touching only
// direct-writable fields are DirectWrite; a create touching a bridge
// field is Hybrid and an update touching one is BridgeEvaluation.
// complete and delete are DirectWrite. A batch takes the most expensive
// strategy among its items. Fields unknown to the registry count as
// scalar; validation rejects them before execution.
func Select(req query.Request, reg *registry.Registry) Strategy {
	switch r := req.(type) {
	case *query.QueryRequest:
		return DirectRead
	case *query.MutationRequest:
		return selectMutation(r, reg)
	default:
		panic(fmt.Sprintf("strategy: unknown request type %T", req))
	}
}

func selectMutation(m *query.MutationRequest, reg *registry.Registry) Strategy {
	switch m.Operation {
	case query.OpCreate:
		if touchesBridge(m, reg) {
			return Hybrid
		}
		return DirectWrite
	case query.OpUpdate:
		if touchesBridge(m, reg) {
			return BridgeEvaluation
		}
		return DirectWrite
	case query.OpBatch:
		best := DirectWrite
		for _, item := range m.Items {
			if s := selectMutation(item, reg); s.rank() > best.rank() {
				best = s
			}
		}
		return best
	default:
		return DirectWrite
	}
}

// BridgeFields returns the payload fields only the bridge dialect can set.
func BridgeFields(m *query.MutationRequest, reg *registry.Registry) []string {
	entity, err := reg.Entity(m.EntityType)
	if err != nil {
		return nil
	}
	var out []string
	for _, name := range entity.FieldNames() {
		if _, ok := m.Payload()[name]; !ok {
			continue
		}
		if f, _ := entity.Field(name); f.Bridge {
			out = append(out, name)
		}
	}
	return out
}

func touchesBridge(m *query.MutationRequest, reg *registry.Registry) bool {
	return len(BridgeFields(m, reg)) > 0
}
