package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/focusql/internal/filter"
)

// Kind is the stable category of a failure. Callers branch on it instead
// of inspecting messages.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindScriptTimeout     Kind = "ScriptTimeout"
	KindHostNotRunning    Kind = "HostNotRunning"
	KindHostReportedError Kind = "HostReportedError"
	KindMalformedOutput   Kind = "MalformedOutput"
	KindInternal          Kind = "Internal"
)

// Severity grades a failure for the caller.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Descriptor is the static guidance attached to every error of a kind.
type Descriptor struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	Recoverable bool     `json:"recoverable"`
	Remediation string   `json:"remediation"`
}

var descriptors = map[Kind]Descriptor{
	KindValidation: {
		Kind:        KindValidation,
		Severity:    SeverityLow,
		Recoverable: true,
		Remediation: "Fix the request fields named in the message and send it again.",
	},
	KindPermissionDenied: {
		Kind:        KindPermissionDenied,
		Severity:    SeverityHigh,
		Recoverable: true,
		Remediation: "Allow automation of OmniFocus in System Settings > Privacy & Security > Automation for the calling application, then retry.",
	},
	KindScriptTimeout: {
		Kind:        KindScriptTimeout,
		Severity:    SeverityMedium,
		Recoverable: true,
		Remediation: "Narrow the request with a lower limit or more filter predicates. A timed-out write may still have been applied; query before retrying it.",
	},
	KindHostNotRunning: {
		Kind:        KindHostNotRunning,
		Severity:    SeverityHigh,
		Recoverable: true,
		Remediation: "Launch OmniFocus and retry.",
	},
	KindHostReportedError: {
		Kind:        KindHostReportedError,
		Severity:    SeverityMedium,
		Recoverable: false,
		Remediation: "OmniFocus rejected the operation; check the host message and the referenced identifiers.",
	},
	KindMalformedOutput: {
		Kind:        KindMalformedOutput,
		Severity:    SeverityHigh,
		Recoverable: false,
		Remediation: "The host returned output that is not a single result document. Check the OmniFocus version and report the raw message.",
	},
	KindInternal: {
		Kind:        KindInternal,
		Severity:    SeverityCritical,
		Recoverable: false,
		Remediation: "Unexpected failure. Check the logs and report the raw message.",
	},
}

// Kinds returns every kind in taxonomy order.
func Kinds() []Kind {
	return []Kind{
		KindValidation, KindPermissionDenied, KindScriptTimeout, KindHostNotRunning,
		KindHostReportedError, KindMalformedOutput, KindInternal,
	}
}

// Describe returns the descriptor for a kind; unknown kinds describe as
// Internal.
func Describe(k Kind) Descriptor {
	if d, ok := descriptors[k]; ok {
		return d
	}
	return descriptors[KindInternal]
}

// Error is a classified failure.
type Error struct {
	Kind        Kind           `json:"kind"`
	Message     string         `json:"message"`
	RawMessage  string         `json:"rawMessage,omitempty"`
	Severity    Severity       `json:"severity"`
	Recoverable bool           `json:"recoverable"`
	Remediation string         `json:"remediation"`
	Details     map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RawMessage != "" && e.RawMessage != e.Message {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.RawMessage)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error carrying the kind's descriptor.
func NewError(kind Kind, message, raw string) *Error {
	d := Describe(kind)
	return &Error{
		Kind:        d.Kind,
		Message:     message,
		RawMessage:  raw,
		Severity:    d.Severity,
		Recoverable: d.Recoverable,
		Remediation: d.Remediation,
	}
}

// WithDetail sets one detail and returns the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// AsError converts any error into an *Error. Filter validation errors
// become ValidationError; anything unclassified becomes Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errs, ok := filter.AsValidationErrors(err); ok {
		return NewError(KindValidation, errs.Error(), "").WithDetail("errors", []filter.ValidationError(errs))
	}
	return NewError(KindInternal, err.Error(), "")
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
