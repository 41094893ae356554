package query

import (
	"fmt"
	"slices"
	"strings"
)

// Limit bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
	MaxBatch     = 50
	MaxDaysAhead = 365
)

// Request is a sealed interface: only *QueryRequest and *MutationRequest
// implement it.
type Request interface {
	requestNode()
	Entity() string
}

// Mode is a named semantic preset that expands into a filter and a
// default sort.
type Mode string

const (
	ModeAll          Mode = "all"
	ModeInbox        Mode = "inbox"
	ModeSearch       Mode = "search"
	ModeOverdue      Mode = "overdue"
	ModeToday        Mode = "today"
	ModeUpcoming     Mode = "upcoming"
	ModeAvailable    Mode = "available"
	ModeBlocked      Mode = "blocked"
	ModeFlagged      Mode = "flagged"
	ModeSmartSuggest Mode = "smart_suggest"
)

var allModes = []Mode{
	ModeAll, ModeInbox, ModeSearch, ModeOverdue, ModeToday,
	ModeUpcoming, ModeAvailable, ModeBlocked, ModeFlagged, ModeSmartSuggest,
}

// Modes returns every known mode.
func Modes() []Mode { return slices.Clone(allModes) }

// ParseMode accepts a mode name; the empty string means no mode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return "", nil
	}
	m := Mode(strings.ToLower(s))
	if !slices.Contains(allModes, m) {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// TaskOnly reports whether the mode's predicates only make sense for tasks.
func (m Mode) TaskOnly() bool {
	switch m {
	case "", ModeAll, ModeSearch:
		return false
	}
	return true
}

// ModeOptions tunes a mode. DaysAhead is nil when the caller did not set it.
type ModeOptions struct {
	DaysAhead  *int   `json:"daysAhead,omitempty" yaml:"days_ahead,omitempty"`
	SearchText string `json:"searchText,omitempty" yaml:"search_text,omitempty"`
}

// Direction of a sort key.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec is one key of a stable multi-key sort, applied left to right.
type SortSpec struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// ParseSort parses "field:asc,other:desc". A missing direction means asc.
func ParseSort(s string) ([]SortSpec, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var specs []SortSpec
	for _, part := range strings.Split(s, ",") {
		field, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		if field == "" {
			return nil, fmt.Errorf("empty sort field in %q", s)
		}
		d := Direction(strings.ToLower(dir))
		if d == "" {
			d = Asc
		}
		if d != Asc && d != Desc {
			return nil, fmt.Errorf("invalid sort direction %q for %s", dir, field)
		}
		specs = append(specs, SortSpec{Field: field, Direction: d})
	}
	return specs, nil
}

// QueryRequest is a read against one entity collection.
//
// Filter holds the canonical filter document (see filter.Build) and Where
// the backward-compatible shorthand; shorthand wins on shared fields.
type QueryRequest struct {
	EntityType  string         `json:"entityType" yaml:"entity"`
	Filter      any            `json:"filter,omitempty" yaml:"filter,omitempty"`
	Where       map[string]any `json:"where,omitempty" yaml:"where,omitempty"`
	Mode        Mode           `json:"mode,omitempty" yaml:"mode,omitempty"`
	ModeOptions ModeOptions    `json:"modeOptions,omitempty" yaml:"mode_options,omitempty"`
	Fields      []string       `json:"fields,omitempty" yaml:"fields,omitempty"`
	Sort        []SortSpec     `json:"sort,omitempty" yaml:"sort,omitempty"`
	Limit       int            `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset      int            `json:"offset,omitempty" yaml:"offset,omitempty"`
}

func (*QueryRequest) requestNode() {}

// Entity returns the entity type.
func (q *QueryRequest) Entity() string { return q.EntityType }

// Limits bounds the page size of a query.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are the built-in page size bounds.
var DefaultLimits = Limits{Default: DefaultLimit, Max: MaxLimit}

// Normalize applies the default limit and checks the pagination bounds.
func (q *QueryRequest) Normalize() error {
	return q.NormalizeWith(DefaultLimits)
}

// NormalizeWith is Normalize with configured bounds.
func (q *QueryRequest) NormalizeWith(l Limits) error {
	if q.Limit == 0 {
		q.Limit = l.Default
	}
	if q.Limit < 1 || q.Limit > l.Max {
		return fmt.Errorf("limit %d out of range 1-%d", q.Limit, l.Max)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset %d must be >= 0", q.Offset)
	}
	if d := q.ModeOptions.DaysAhead; d != nil && (*d < 0 || *d > MaxDaysAhead) {
		return fmt.Errorf("daysAhead %d out of range 0-%d", *d, MaxDaysAhead)
	}
	return nil
}

// Operation is the kind of mutation.
type Operation string

const (
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpComplete Operation = "complete"
	OpDelete   Operation = "delete"
	OpBatch    Operation = "batch"
)

// ParseOperation accepts an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(s)); op {
	case OpCreate, OpUpdate, OpComplete, OpDelete, OpBatch:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// MutationRequest is a write. Data carries create fields, Changes carries
// update fields, Items carries the members of a batch. Confirmed is the
// caller's acknowledgement required by delete.
type MutationRequest struct {
	Operation  Operation          `json:"operation" yaml:"operation"`
	EntityType string             `json:"entityType" yaml:"entity"`
	ID         string             `json:"id,omitempty" yaml:"id,omitempty"`
	Data       map[string]any     `json:"data,omitempty" yaml:"data,omitempty"`
	Changes    map[string]any     `json:"changes,omitempty" yaml:"changes,omitempty"`
	Items      []*MutationRequest `json:"items,omitempty" yaml:"items,omitempty"`
	Confirmed  bool               `json:"confirmed,omitempty" yaml:"confirmed,omitempty"`
}

func (*MutationRequest) requestNode() {}

// Entity returns the entity type.
func (m *MutationRequest) Entity() string { return m.EntityType }

// Payload returns the field map the operation writes (Data for create,
// Changes for update, nil otherwise).
func (m *MutationRequest) Payload() map[string]any {
	switch m.Operation {
	case OpCreate:
		return m.Data
	case OpUpdate:
		return m.Changes
	}
	return nil
}

// Destructive reports whether the operation removes or closes an entity.
func (m *MutationRequest) Destructive() bool {
	return m.Operation == OpDelete || m.Operation == OpComplete
}
