// Package registry holds the fixed per-entity field registry.
//
// The registry is authored in CUE (fields.cue, embedded) and compiled
// through the CUE Go API at first use. Every other component asks the
// registry whether a field exists, how the host exposes it, and whether
// the direct dialect can write it.
package registry

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed fields.cue
var fieldsCUE []byte

// Kind is the value shape of a field.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
	KindNumber Kind = "number"
	KindEnum   Kind = "enum"
	KindTags   Kind = "tags"
)

// Scalar reports whether the kind holds a single value (everything but tags).
func (k Kind) Scalar() bool { return k != KindTags }

// Ordered reports whether LT/GT/BETWEEN comparisons are meaningful.
func (k Kind) Ordered() bool {
	return k == KindString || k == KindDate || k == KindNumber
}

// Field describes one entity attribute.
type Field struct {
	Name       string   `json:"-"`
	Kind       Kind     `json:"kind"`
	Host       string   `json:"host,omitempty"`
	Derive     string   `json:"derive,omitempty"`
	Default    bool     `json:"default"`
	Sortable   bool     `json:"sortable"`
	Filterable bool     `json:"filterable"`
	Readable   bool     `json:"readable"`
	Writable   bool     `json:"writable"`
	Bridge     bool     `json:"bridge"`
	Values     []string `json:"values,omitempty"`
}

// Entity is the registry entry for one entity type.
type Entity struct {
	Name       string           `json:"-"`
	Collection string           `json:"collection"`
	Container  string           `json:"container"`
	Operations []string         `json:"operations"`
	FieldMap   map[string]Field `json:"fields"`

	names []string
}

// Field looks up a field by name.
func (e *Entity) Field(name string) (Field, bool) {
	f, ok := e.FieldMap[name]
	return f, ok
}

// FieldNames returns all field names in sorted order.
func (e *Entity) FieldNames() []string {
	return slices.Clone(e.names)
}

// DefaultFields returns the fields projected when a request names none.
func (e *Entity) DefaultFields() []string {
	var out []string
	for _, n := range e.names {
		if e.FieldMap[n].Default {
			out = append(out, n)
		}
	}
	return out
}

// Supports reports whether the entity accepts the operation.
func (e *Entity) Supports(op string) bool {
	return slices.Contains(e.Operations, op)
}

// Registry maps entity names to their entries.
type Registry struct {
	entities map[string]*Entity
	names    []string
}

// Entity returns the named entity or an error naming the known ones.
func (r *Registry) Entity(name string) (*Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q (known: %v)", name, r.names)
	}
	return e, nil
}

// Entities returns the entity names in sorted order.
func (r *Registry) Entities() []string {
	return slices.Clone(r.names)
}

// Load compiles a CUE registry document, validates it against the
// #Entity/#Field schema and decodes it.
func Load(src []byte) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("fields.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile registry: %s", errors.Details(err, nil))
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate registry: %s", errors.Details(err, nil))
	}

	var raw map[string]*Entity
	if err := v.LookupPath(cue.ParsePath("entities")).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("registry defines no entities")
	}

	r := &Registry{entities: raw}
	for name, e := range raw {
		e.Name = name
		for fname, f := range e.FieldMap {
			f.Name = fname
			if f.Readable && f.Host == "" && f.Derive == "" {
				return nil, fmt.Errorf("entity %s field %s: readable field needs host or derive", name, fname)
			}
			if f.Bridge && !f.Writable {
				return nil, fmt.Errorf("entity %s field %s: bridge flag requires writable", name, fname)
			}
			e.FieldMap[fname] = f
			e.names = append(e.names, fname)
		}
		if _, ok := e.FieldMap["id"]; !ok {
			return nil, fmt.Errorf("entity %s: missing id field", name)
		}
		sort.Strings(e.names)
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry compiled from the embedded fields.cue.
// The embedded document is static, so a failure here is a build defect.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Load(fieldsCUE)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultReg
}
