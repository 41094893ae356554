// Package filter implements the predicate tree every read is compiled from.
//
// Expression is a sealed interface implemented by *Comparison,
// *SetMembership and *Logical. Trees are built once, by Build or the
// constructors, and never modified afterwards; functions that need a
// different tree (Prune, the mode augmenter) construct new nodes.
//
// Build accepts two inputs side by side:
//
//   - the canonical document: nested {"type": "comparison"|"set"|"logical"}
//     nodes, exactly the shape ToIR produces;
//   - the shorthand map: field -> scalar (EQ) or field -> []string (ANY).
//
// Shorthand is normalized into canonical leaves before anything else sees
// it. When both inputs name the same field, the shorthand leaf wins and
// every canonical leaf on that field is pruned.
//
// Validate checks a tree against the entity's field registry and returns
// every problem found rather than stopping at the first.
package filter
