package filter

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/focusql/internal/ir"
)

// MaxDepth bounds nesting of logical nodes.
const MaxDepth = 16

// Node type tags of the canonical document.
const (
	TypeComparison = "comparison"
	TypeSet        = "set"
	TypeLogical    = "logical"
)

// Parse decodes a canonical filter document. raw may be a decoded
// map[string]any, JSON bytes, a json.RawMessage, an ir.Object or an
// Expression (returned unchanged). A nil raw yields a nil Expression.
func Parse(raw any) (Expression, error) {
	switch r := raw.(type) {
	case nil:
		return nil, nil
	case Expression:
		return r, nil
	case json.RawMessage:
		return parseBytes(r)
	case []byte:
		return parseBytes(r)
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, ValidationErrors{{Code: ErrMalformedNode, Path: "filter", Message: err.Error()}}
	}
	if _, isNull := v.(ir.Null); isNull {
		return nil, nil
	}
	p := &parser{}
	e := p.node(v, "filter", 1)
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return e, nil
}

func parseBytes(data []byte) (Expression, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	v, err := ir.Decode(data)
	if err != nil {
		return nil, ValidationErrors{{Code: ErrMalformedNode, Path: "filter", Message: err.Error()}}
	}
	return Parse(v)
}

type parser struct {
	errs ValidationErrors
}

func (p *parser) fail(code, path, field, format string, args ...any) {
	p.errs = append(p.errs, ValidationError{
		Code:    code,
		Field:   field,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) node(v ir.Value, path string, depth int) Expression {
	if depth > MaxDepth {
		p.fail(ErrDepthExceeded, path, "", "filter nested deeper than %d levels", MaxDepth)
		return nil
	}
	obj, ok := v.(ir.Object)
	if !ok {
		p.fail(ErrMalformedNode, path, "", "expected an object, got %s", describe(v))
		return nil
	}
	typ, _ := obj["type"].(ir.String)
	switch string(typ) {
	case TypeComparison:
		return p.comparison(obj, path)
	case TypeSet:
		return p.set(obj, path)
	case TypeLogical:
		return p.logical(obj, path, depth)
	default:
		p.fail(ErrMalformedNode, path, "", "type must be one of %q, %q, %q", TypeComparison, TypeSet, TypeLogical)
		return nil
	}
}

func (p *parser) field(obj ir.Object, path string) (string, bool) {
	f, ok := obj["field"].(ir.String)
	if !ok || f == "" {
		p.fail(ErrMalformedNode, path, "", "field must be a non-empty string")
		return "", false
	}
	return string(f), true
}

func (p *parser) comparison(obj ir.Object, path string) Expression {
	field, ok := p.field(obj, path)
	if !ok {
		return nil
	}
	rawOp, _ := obj["operator"].(ir.String)
	op := Operator(strings.ToUpper(string(rawOp)))
	if !slices.Contains(operators, op) {
		p.fail(ErrUnknownOperator, path, field, "unknown operator %q", rawOp)
		return nil
	}
	value, ok := obj["value"]
	if !ok {
		p.fail(ErrMalformedNode, path, field, "value is required (use null to match unset fields)")
		return nil
	}
	c := &Comparison{Field: field, Operator: op, Value: value}
	if ub, ok := obj["upperBound"]; ok {
		if _, isNull := ub.(ir.Null); !isNull {
			c.UpperBound = ub
		}
	}
	return c
}

func (p *parser) set(obj ir.Object, path string) Expression {
	field, ok := p.field(obj, path)
	if !ok {
		return nil
	}
	rawMode, _ := obj["mode"].(ir.String)
	mode := SetMode(strings.ToUpper(string(rawMode)))
	if !slices.Contains(setModes, mode) {
		p.fail(ErrUnknownOperator, path, field, "unknown set mode %q", rawMode)
		return nil
	}
	values, ok := obj["values"].(ir.Array)
	if !ok {
		p.fail(ErrMalformedNode, path, field, "values must be an array")
		return nil
	}
	return &SetMembership{Field: field, Mode: mode, Values: slices.Clone(values)}
}

func (p *parser) logical(obj ir.Object, path string, depth int) Expression {
	rawOp, _ := obj["op"].(ir.String)
	op := LogicalOp(strings.ToUpper(string(rawOp)))
	if !slices.Contains(logicalOps, op) {
		p.fail(ErrUnknownOperator, path, "", "unknown logical op %q", rawOp)
		return nil
	}
	children, ok := obj["children"].(ir.Array)
	if !ok {
		p.fail(ErrMalformedNode, path, "", "children must be an array")
		return nil
	}
	l := &Logical{Op: op, Children: make([]Expression, 0, len(children))}
	for i, c := range children {
		if e := p.node(c, fmt.Sprintf("%s.children[%d]", path, i), depth+1); e != nil {
			l.Children = append(l.Children, e)
		}
	}
	return l
}

func describe(v ir.Value) string {
	switch v.(type) {
	case ir.Null:
		return "null"
	case ir.String:
		return "string"
	case ir.Int:
		return "number"
	case ir.Bool:
		return "bool"
	case ir.Array:
		return "array"
	case ir.Object:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// ToIR encodes the tree in its canonical document form. A nil tree
// encodes as Null. The encoding is stable, so its canonical bytes can be
// hashed into cache keys.
func ToIR(e Expression) ir.Value {
	switch n := e.(type) {
	case nil:
		return ir.Null{}
	case *Comparison:
		obj := ir.Object{
			"type":     ir.String(TypeComparison),
			"field":    ir.String(n.Field),
			"operator": ir.String(n.Operator),
			"value":    orNull(n.Value),
		}
		if n.UpperBound != nil {
			obj["upperBound"] = n.UpperBound
		}
		return obj
	case *SetMembership:
		return ir.Object{
			"type":   ir.String(TypeSet),
			"field":  ir.String(n.Field),
			"mode":   ir.String(n.Mode),
			"values": slices.Clone(n.Values),
		}
	case *Logical:
		children := make(ir.Array, len(n.Children))
		for i, c := range n.Children {
			children[i] = ToIR(c)
		}
		return ir.Object{
			"type":     ir.String(TypeLogical),
			"op":       ir.String(n.Op),
			"children": children,
		}
	default:
		panic(fmt.Sprintf("filter: unknown expression type %T", e))
	}
}

func orNull(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}
