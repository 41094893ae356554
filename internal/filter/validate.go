package filter

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/registry"
)

// Validate checks the tree against the entity's fields. It returns nil or
// a ValidationErrors holding every problem found. A nil tree is valid.
func Validate(entity *registry.Entity, e Expression) error {
	v := &validator{entity: entity}
	v.expr(e, "filter", 1)
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

type validator struct {
	entity *registry.Entity
	errs   ValidationErrors
}

func (v *validator) fail(code, path, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Code:    code,
		Field:   field,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) expr(e Expression, path string, depth int) {
	if depth > MaxDepth {
		v.fail(ErrDepthExceeded, path, "", "filter nested deeper than %d levels", MaxDepth)
		return
	}
	switch n := e.(type) {
	case nil:
	case *Comparison:
		v.comparison(n, path)
	case *SetMembership:
		v.set(n, path)
	case *Logical:
		v.logical(n, path, depth)
	default:
		v.fail(ErrMalformedNode, path, "", "unsupported expression type %T", e)
	}
}

func (v *validator) lookup(name, path string) (registry.Field, bool) {
	f, ok := v.entity.Field(name)
	if !ok {
		v.fail(ErrUnknownField, path, name, "unknown field for entity %s", v.entity.Name)
		return f, false
	}
	if !f.Filterable {
		v.fail(ErrFieldNotFilterable, path, name, "field cannot be used in a filter")
		return f, false
	}
	return f, true
}

func (v *validator) comparison(c *Comparison, path string) {
	if !slices.Contains(operators, c.Operator) {
		v.fail(ErrUnknownOperator, path, c.Field, "unknown operator %q", c.Operator)
		return
	}
	if c.Operator == OpBetween && c.UpperBound == nil {
		v.fail(ErrMissingUpperBound, path, c.Field, "BETWEEN requires upperBound")
	}
	if c.Operator != OpBetween && c.UpperBound != nil {
		v.fail(ErrMissingUpperBound, path, c.Field, "upperBound is only allowed with BETWEEN")
	}
	f, ok := v.lookup(c.Field, path)
	if !ok {
		return
	}

	switch {
	case f.Kind == registry.KindTags:
		v.fail(ErrOperatorKind, path, c.Field, "tags fields take set predicates (ANY, ALL, NONE), not %s", c.Operator)
		return
	case c.Operator.ordering() && !f.Kind.Ordered():
		v.fail(ErrOperatorKind, path, c.Field, "%s needs a string, date or number field, not %s", c.Operator, f.Kind)
		return
	case c.Operator.textual() && f.Kind != registry.KindString:
		v.fail(ErrOperatorKind, path, c.Field, "%s needs a string field, not %s", c.Operator, f.Kind)
		return
	}

	nullable := c.Operator == OpEQ || c.Operator == OpNEQ
	v.literal(f, c.Value, nullable, path+".value", c.Field)
	if c.Operator == OpBetween && c.UpperBound != nil {
		v.literal(f, c.UpperBound, false, path+".upperBound", c.Field)
	}
}

func (v *validator) set(s *SetMembership, path string) {
	if !slices.Contains(setModes, s.Mode) {
		v.fail(ErrUnknownOperator, path, s.Field, "unknown set mode %q", s.Mode)
		return
	}
	if len(s.Values) == 0 {
		v.fail(ErrEmptySetValues, path, s.Field, "%s requires at least one value", s.Mode)
	}
	f, ok := v.lookup(s.Field, path)
	if !ok {
		return
	}
	if s.Mode.multi() != (f.Kind == registry.KindTags) {
		if s.Mode.multi() {
			v.fail(ErrSetModeKind, path, s.Field, "%s needs a tags field; use IN or NOT_IN for %s", s.Mode, f.Kind)
		} else {
			v.fail(ErrSetModeKind, path, s.Field, "%s needs a scalar field; use ANY, ALL or NONE for tags", s.Mode)
		}
		return
	}
	for i, val := range s.Values {
		p := fmt.Sprintf("%s.values[%d]", path, i)
		if f.Kind == registry.KindTags {
			if _, ok := val.(ir.String); !ok {
				v.fail(ErrValueKind, p, s.Field, "tag values must be strings, got %s", describe(val))
			}
			continue
		}
		v.literal(f, val, false, p, s.Field)
	}
}

func (v *validator) logical(l *Logical, path string, depth int) {
	switch l.Op {
	case Not:
		if len(l.Children) != 1 {
			v.fail(ErrNotArity, path, "", "NOT requires exactly one child, got %d", len(l.Children))
		}
	case And, Or:
		if len(l.Children) == 0 {
			v.fail(ErrEmptyLogical, path, "", "%s requires at least one child", l.Op)
		}
	default:
		v.fail(ErrUnknownOperator, path, "", "unknown logical op %q", l.Op)
		return
	}
	for i, c := range l.Children {
		v.expr(c, fmt.Sprintf("%s.children[%d]", path, i), depth+1)
	}
}

// literal checks that a value fits the field kind.
func (v *validator) literal(f registry.Field, val ir.Value, nullable bool, path, field string) {
	if val == nil {
		val = ir.Null{}
	}
	if _, isNull := val.(ir.Null); isNull {
		if !nullable {
			v.fail(ErrValueKind, path, field, "null is only allowed with EQ or NEQ")
		}
		return
	}
	switch f.Kind {
	case registry.KindString:
		if _, ok := val.(ir.String); !ok {
			v.fail(ErrValueKind, path, field, "expected a string, got %s", describe(val))
		}
	case registry.KindBool:
		if _, ok := val.(ir.Bool); !ok {
			v.fail(ErrValueKind, path, field, "expected a bool, got %s", describe(val))
		}
	case registry.KindNumber:
		if _, ok := val.(ir.Int); !ok {
			v.fail(ErrValueKind, path, field, "expected a whole number, got %s", describe(val))
		}
	case registry.KindDate:
		s, ok := val.(ir.String)
		if !ok {
			v.fail(ErrValueKind, path, field, "expected an RFC 3339 date string, got %s", describe(val))
			return
		}
		if _, err := time.Parse(time.RFC3339, string(s)); err != nil {
			v.fail(ErrValueKind, path, field, "invalid RFC 3339 date %q", s)
		}
	case registry.KindEnum:
		s, ok := val.(ir.String)
		if !ok || !slices.Contains(f.Values, string(s)) {
			v.fail(ErrValueKind, path, field, "expected one of %v", f.Values)
		}
	}
}
