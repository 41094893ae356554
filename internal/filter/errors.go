package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes (E200-E299)
const (
	ErrMalformedNode      = "E200" // node is not a well-formed object
	ErrUnknownField       = "E201" // field not in the entity registry
	ErrFieldNotFilterable = "E202" // field exists but cannot be filtered
	ErrMissingUpperBound  = "E203" // BETWEEN without upperBound, or upperBound elsewhere
	ErrEmptySetValues     = "E204" // SetMembership with no values
	ErrNotArity           = "E205" // NOT with other than one child
	ErrEmptyLogical       = "E206" // AND/OR with no children
	ErrOperatorKind       = "E207" // operator not applicable to the field kind
	ErrSetModeKind        = "E208" // set mode not applicable to the field kind
	ErrValueKind          = "E209" // literal does not match the field kind
	ErrDepthExceeded      = "E210" // tree deeper than MaxDepth
	ErrUnknownOperator    = "E211" // unknown operator, set mode or logical op
	ErrShorthandValue     = "E212" // shorthand value has an unsupported shape
)

// ValidationError is one problem found in a filter. Path locates the node
// in the canonical document ("filter.children[1]") or the shorthand map
// ("where.flagged").
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", e.Code, e.Path, e.Field, e.Message)
}

// ValidationErrors collects every problem found in one filter.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return "invalid filter: " + strings.Join(parts, "; ")
}

// AsValidationErrors extracts validation errors from an error chain.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return errs, true
	}
	var one ValidationError
	if errors.As(err, &one) {
		return ValidationErrors{one}, true
	}
	return nil, false
}

// HasCode reports whether err carries a validation error with code.
func HasCode(err error, code string) bool {
	errs, ok := AsValidationErrors(err)
	if !ok {
		return false
	}
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}
