// Package script renders requests into host automation scripts.
//
// Every script is a fixed template plus one parameter block. All dynamic
// data (filter literals, payload fields, identifiers) is gathered into a
// params value, encoded with a single json.Marshal call and spliced into
// the template at Placeholder. Nothing else is ever interpolated, so a
// caller-supplied string can only appear inside a JSON string literal.
package script

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/focusql/internal/filter"
	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
	"github.com/roach88/focusql/internal/strategy"
)

// DefaultApplication is the host application scripts address.
const DefaultApplication = "OmniFocus"

// Artifact is a rendered script ready for the engine.
type Artifact struct {
	Source    string
	Strategy  strategy.Strategy
	Template  Template
	RequestID string
	// Params is the exact parameter block embedded in Source.
	Params []byte
	// Cacheable is true for reads.
	Cacheable bool
	// AllowAlternate permits one retry on the alternate invocation
	// channel after a permission failure.
	AllowAlternate bool
}

// Digest identifies the script text in the execution journal.
func (a *Artifact) Digest() string {
	return ir.ScriptDigest(a.Source)
}

// fieldSpec tells the script how to read or write one field.
type fieldSpec struct {
	Kind   registry.Kind `json:"kind"`
	Host   string        `json:"host,omitempty"`
	Derive string        `json:"derive,omitempty"`
}

type bridgePayload struct {
	Entity  string                   `json:"entity"`
	Changes ir.Object                `json:"changes"`
	Kinds   map[string]registry.Kind `json:"kinds"`
}

type params struct {
	RequestID   string               `json:"requestId"`
	Application string               `json:"application"`
	Entity      string               `json:"entity"`
	Container   string               `json:"container"`
	Scope       string               `json:"scope,omitempty"`
	Fields      map[string]fieldSpec `json:"fields,omitempty"`
	Filter      ir.Value             `json:"filter,omitempty"`
	Search      string               `json:"search,omitempty"`
	Limit       int                  `json:"limit,omitempty"`
	Offset      int                  `json:"offset,omitempty"`
	ID          string               `json:"id,omitempty"`
	Data        ir.Object            `json:"data,omitempty"`
	Bridge      *bridgePayload       `json:"bridge,omitempty"`
}

// Generator renders artifacts against a field registry.
type Generator struct {
	reg         *registry.Registry
	application string
}

// Option configures a Generator.
type Option func(*Generator)

// WithApplication overrides the host application name.
func WithApplication(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.application = name
		}
	}
}

// New creates a Generator.
func New(reg *registry.Registry, opts ...Option) *Generator {
	g := &Generator{reg: reg, application: DefaultApplication}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ReadInput is everything a read script needs. Fields lists every field
// the script must return, including those only needed for client-side
// sorting or scoring. Limit 0 disables in-host truncation.
type ReadInput struct {
	RequestID string
	Entity    string
	Inbox     bool
	Filter    filter.Expression
	Search    string
	Fields    []string
	Limit     int
	Offset    int
}

// Read renders a DirectRead artifact.
func (g *Generator) Read(in ReadInput) (*Artifact, error) {
	entity, err := g.reg.Entity(in.Entity)
	if err != nil {
		return nil, err
	}
	if !entity.Supports(OpRead) {
		return nil, fmt.Errorf("entity %s does not support read", in.Entity)
	}
	specs, err := specsFor(entity, in.Fields, readable)
	if err != nil {
		return nil, err
	}
	p := &params{
		RequestID:   in.RequestID,
		Application: g.application,
		Entity:      entity.Name,
		Container:   entity.Container,
		Fields:      specs,
		Filter:      filter.ToIR(in.Filter),
		Search:      in.Search,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Inbox {
		p.Scope = "inbox"
	}
	return g.render(TemplateRead, strategy.DirectRead, p, true, false)
}

// Mutation renders the artifact for a single (non-batch) mutation.
func (g *Generator) Mutation(requestID string, m *query.MutationRequest, s strategy.Strategy) (*Artifact, error) {
	entity, err := g.reg.Entity(m.EntityType)
	if err != nil {
		return nil, err
	}
	if !entity.Supports(string(m.Operation)) {
		return nil, fmt.Errorf("entity %s does not support %s", entity.Name, m.Operation)
	}
	tmpl, err := Lookup(string(m.Operation), s)
	if err != nil {
		return nil, err
	}

	p := &params{
		RequestID:   requestID,
		Application: g.application,
		Entity:      entity.Name,
		Container:   entity.Container,
		ID:          m.ID,
	}

	payload, err := toObject(m.Payload())
	if err != nil {
		return nil, err
	}
	direct, bridged := ir.Object{}, ir.Object{}
	for name, v := range payload {
		f, ok := entity.Field(name)
		if !ok || !f.Writable {
			return nil, fmt.Errorf("field %s of %s is not writable", name, entity.Name)
		}
		switch {
		case s == strategy.BridgeEvaluation:
			bridged[name] = v
		case f.Bridge && s == strategy.Hybrid:
			bridged[name] = v
		case f.Bridge:
			return nil, fmt.Errorf("field %s of %s needs the bridge dialect, not %s", name, entity.Name, s)
		default:
			direct[name] = v
		}
	}

	if len(direct) > 0 {
		p.Data = direct
		p.Fields, err = specsFor(entity, keys(direct), writable)
		if err != nil {
			return nil, err
		}
	}
	if len(bridged) > 0 {
		kinds := make(map[string]registry.Kind, len(bridged))
		for name := range bridged {
			f, _ := entity.Field(name)
			kinds[name] = f.Kind
		}
		p.Bridge = &bridgePayload{Entity: entity.Name, Changes: bridged, Kinds: kinds}
	}
	if s.UsesBridge() && p.Bridge == nil {
		return nil, fmt.Errorf("%s selected without bridge fields", s)
	}

	return g.render(tmpl, s, p, false, m.Destructive())
}

func (g *Generator) render(t Template, s strategy.Strategy, p *params, cacheable, alternate bool) (*Artifact, error) {
	tmpl, err := Source(t)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode script params: %w", err)
	}
	return &Artifact{
		Source:         strings.Replace(tmpl, Placeholder, string(data), 1),
		Strategy:       s,
		Template:       t,
		RequestID:      p.RequestID,
		Params:         data,
		Cacheable:      cacheable,
		AllowAlternate: alternate,
	}, nil
}

type access int

const (
	readable access = iota
	writable
)

func specsFor(entity *registry.Entity, names []string, mode access) (map[string]fieldSpec, error) {
	specs := make(map[string]fieldSpec, len(names))
	for _, name := range names {
		f, ok := entity.Field(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %s for entity %s", name, entity.Name)
		}
		if mode == readable && !f.Readable {
			return nil, fmt.Errorf("field %s of %s cannot be read", name, entity.Name)
		}
		specs[name] = fieldSpec{Kind: f.Kind, Host: f.Host, Derive: f.Derive}
	}
	return specs, nil
}

func toObject(m map[string]any) (ir.Object, error) {
	out := make(ir.Object, len(m))
	for k, v := range m {
		conv, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = conv
	}
	return out, nil
}

func keys(o ir.Object) []string {
	out := make([]string, 0, len(o))
	for k := range o {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

const paramsPrefix = "var params = "

// ExtractParams recovers the parameter block from rendered source. The
// block is always a single line because JSON encoding escapes newlines.
func ExtractParams(source string) ([]byte, error) {
	i := strings.Index(source, paramsPrefix)
	if i < 0 {
		return nil, fmt.Errorf("script has no parameter block")
	}
	rest := source[i+len(paramsPrefix):]
	line, _, ok := strings.Cut(rest, "\n")
	if !ok {
		return nil, fmt.Errorf("unterminated parameter block")
	}
	line = strings.TrimSuffix(strings.TrimRight(line, "\r"), ";")
	if !json.Valid([]byte(line)) {
		return nil, fmt.Errorf("parameter block is not valid JSON")
	}
	return []byte(line), nil
}
