package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/focusql/internal/ir"
)

// Expression is a node of the predicate tree.
//
// This is a sealed interface; switch over *Comparison, *SetMembership and
// *Logical exhaustively.
type Expression interface {
	exprNode()
}

// Operator is a Comparison operator.
type Operator string

const (
	OpEQ         Operator = "EQ"
	OpNEQ        Operator = "NEQ"
	OpLT         Operator = "LT"
	OpLTE        Operator = "LTE"
	OpGT         Operator = "GT"
	OpGTE        Operator = "GTE"
	OpBetween    Operator = "BETWEEN"
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
	OpEndsWith   Operator = "ENDS_WITH"
)

var operators = []Operator{
	OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE, OpBetween, OpContains, OpStartsWith, OpEndsWith,
}

// ordering reports whether the operator compares by order.
func (o Operator) ordering() bool {
	switch o {
	case OpLT, OpLTE, OpGT, OpGTE, OpBetween:
		return true
	}
	return false
}

// textual reports whether the operator is a substring match.
func (o Operator) textual() bool {
	return o == OpContains || o == OpStartsWith || o == OpEndsWith
}

// SetMode is a SetMembership mode.
//
// ANY, ALL and NONE test a multi-valued field against the values; IN and
// NOT_IN test a scalar field for membership in the values.
type SetMode string

const (
	SetAny   SetMode = "ANY"
	SetAll   SetMode = "ALL"
	SetNone  SetMode = "NONE"
	SetIn    SetMode = "IN"
	SetNotIn SetMode = "NOT_IN"
)

var setModes = []SetMode{SetAny, SetAll, SetNone, SetIn, SetNotIn}

// multi reports whether the mode applies to multi-valued fields.
func (m SetMode) multi() bool {
	return m == SetAny || m == SetAll || m == SetNone
}

// LogicalOp combines child expressions.
type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
	Not LogicalOp = "NOT"
)

var logicalOps = []LogicalOp{And, Or, Not}

// Comparison compares one field against a literal. UpperBound is set only
// for BETWEEN, which is inclusive on both ends.
type Comparison struct {
	Field      string
	Operator   Operator
	Value      ir.Value
	UpperBound ir.Value
}

func (*Comparison) exprNode() {}

// SetMembership tests a field against a set of literals.
type SetMembership struct {
	Field  string
	Mode   SetMode
	Values ir.Array
}

func (*SetMembership) exprNode() {}

// Logical combines children. NOT has exactly one child; AND and OR have
// at least one.
type Logical struct {
	Op       LogicalOp
	Children []Expression
}

func (*Logical) exprNode() {}

// Compare builds a Comparison.
func Compare(field string, op Operator, value ir.Value) *Comparison {
	return &Comparison{Field: field, Operator: op, Value: value}
}

// Eq builds field = value.
func Eq(field string, value ir.Value) *Comparison {
	return Compare(field, OpEQ, value)
}

// Between builds lo <= field <= hi.
func Between(field string, lo, hi ir.Value) *Comparison {
	return &Comparison{Field: field, Operator: OpBetween, Value: lo, UpperBound: hi}
}

// Set builds a SetMembership. The values slice is copied.
func Set(field string, mode SetMode, values ...ir.Value) *SetMembership {
	return &SetMembership{Field: field, Mode: mode, Values: slices.Clone(ir.Array(values))}
}

// AllOf builds AND(children...). The children slice is copied.
func AllOf(children ...Expression) *Logical {
	return &Logical{Op: And, Children: slices.Clone(children)}
}

// AnyOf builds OR(children...).
func AnyOf(children ...Expression) *Logical {
	return &Logical{Op: Or, Children: slices.Clone(children)}
}

// Negate builds NOT(child).
func Negate(child Expression) *Logical {
	return &Logical{Op: Not, Children: []Expression{child}}
}

// Walk calls fn for every node in depth-first order. Returning false
// skips the node's children.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	if l, ok := e.(*Logical); ok {
		for _, c := range l.Children {
			Walk(c, fn)
		}
	}
}

// Fields returns the distinct fields referenced by the tree, sorted.
func Fields(e Expression) []string {
	seen := map[string]bool{}
	Walk(e, func(n Expression) bool {
		switch n := n.(type) {
		case *Comparison:
			seen[n.Field] = true
		case *SetMembership:
			seen[n.Field] = true
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// References reports whether any leaf of the tree tests field.
func References(e Expression, field string) bool {
	return slices.Contains(Fields(e), field)
}

// Prune returns a new tree without the leaves whose field is in drop.
// Logical nodes left without children are removed; nil means nothing
// remains.
func Prune(e Expression, drop map[string]bool) Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *Comparison:
		if drop[n.Field] {
			return nil
		}
		return n
	case *SetMembership:
		if drop[n.Field] {
			return nil
		}
		return n
	case *Logical:
		var kept []Expression
		for _, c := range n.Children {
			if p := Prune(c, drop); p != nil {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return nil
		}
		return &Logical{Op: n.Op, Children: kept}
	default:
		panic(fmt.Sprintf("filter: unknown expression type %T", e))
	}
}

// String renders a compact human-readable form, used in logs and the CLI.
func String(e Expression) string {
	var b strings.Builder
	writeString(&b, e)
	return b.String()
}

func writeString(b *strings.Builder, e Expression) {
	switch n := e.(type) {
	case nil:
		b.WriteString("TRUE")
	case *Comparison:
		fmt.Fprintf(b, "%s %s %s", n.Field, n.Operator, literal(n.Value))
		if n.Operator == OpBetween {
			fmt.Fprintf(b, " AND %s", literal(n.UpperBound))
		}
	case *SetMembership:
		fmt.Fprintf(b, "%s %s %s", n.Field, n.Mode, literal(n.Values))
	case *Logical:
		if n.Op == Not && len(n.Children) == 1 {
			b.WriteString("NOT ")
			writeString(b, n.Children[0])
			return
		}
		b.WriteString("(")
		for i, c := range n.Children {
			if i > 0 {
				fmt.Fprintf(b, " %s ", n.Op)
			}
			writeString(b, c)
		}
		b.WriteString(")")
	}
}

func literal(v ir.Value) string {
	if v == nil {
		return "null"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
