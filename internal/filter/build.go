package filter

import (
	"slices"

	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/registry"
)

// Build normalizes the canonical document and the shorthand map into one
// validated tree.
//
// Shorthand entries become leaves in field-name order: a scalar becomes
// EQ, an array becomes ANY on a tags field or IN on a scalar field. Every
// canonical leaf on a shorthand field is pruned. The result is
// AND(shorthand..., canonical) when both contribute, the single
// contributing tree otherwise, or nil when neither does.
func Build(entity *registry.Entity, canonical any, shorthand map[string]any) (Expression, error) {
	base, err := Parse(canonical)
	if err != nil {
		return nil, err
	}
	leaves, err := expandShorthand(entity, shorthand)
	if err != nil {
		return nil, err
	}

	var out Expression
	switch {
	case len(leaves) == 0:
		out = base
	default:
		drop := make(map[string]bool, len(shorthand))
		for f := range shorthand {
			drop[f] = true
		}
		children := leaves
		if rest := Prune(base, drop); rest != nil {
			children = append(children, rest)
		}
		if len(children) == 1 {
			out = children[0]
		} else {
			out = &Logical{Op: And, Children: children}
		}
	}

	if err := Validate(entity, out); err != nil {
		return nil, err
	}
	return out, nil
}

func expandShorthand(entity *registry.Entity, shorthand map[string]any) ([]Expression, error) {
	if len(shorthand) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(shorthand))
	for k := range shorthand {
		names = append(names, k)
	}
	slices.Sort(names)

	var errs ValidationErrors
	leaves := make([]Expression, 0, len(names))
	for _, name := range names {
		path := "where." + name
		v, err := ir.FromAny(shorthand[name])
		if err != nil {
			errs = append(errs, ValidationError{Code: ErrShorthandValue, Field: name, Path: path, Message: err.Error()})
			continue
		}
		switch val := v.(type) {
		case ir.Object:
			errs = append(errs, ValidationError{
				Code:    ErrShorthandValue,
				Field:   name,
				Path:    path,
				Message: "shorthand values must be a scalar or an array; use the canonical filter for nested predicates",
			})
		case ir.Array:
			mode := SetIn
			if f, ok := entity.Field(name); ok && f.Kind == registry.KindTags {
				mode = SetAny
			}
			leaves = append(leaves, &SetMembership{Field: name, Mode: mode, Values: val})
		default:
			leaves = append(leaves, &Comparison{Field: name, Operator: OpEQ, Value: val})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return leaves, nil
}
