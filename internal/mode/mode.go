// Package mode expands named query presets into filter predicates and
// default sort orders.
//
// Augment is pure: it reads the clock value it is handed, never the wall
// clock, and never modifies the base tree. Callers pass the time of
// augmentation, not a time captured earlier in the request.
package mode

import (
	"time"

	"github.com/roach88/focusql/internal/filter"
	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/query"
)

// Default look-ahead windows, in days.
const (
	DefaultTodayDays    = 3
	DefaultUpcomingDays = 7
)

// DaysAhead returns the effective look-ahead window for the mode: the
// caller's option when set, otherwise the mode default. Modes without a
// window return 0.
func DaysAhead(m query.Mode, opts query.ModeOptions) int {
	var def int
	switch m {
	case query.ModeToday:
		def = DefaultTodayDays
	case query.ModeUpcoming:
		def = DefaultUpcomingDays
	default:
		return 0
	}
	if opts.DaysAhead != nil {
		return *opts.DaysAhead
	}
	return def
}

// Augment returns the filter for mode m combined with base. For all,
// inbox, search and the empty mode it returns base itself.
func Augment(m query.Mode, base filter.Expression, opts query.ModeOptions, now time.Time) filter.Expression {
	var preds []filter.Expression
	switch m {
	case query.ModeOverdue:
		preds = []filter.Expression{
			notCompleted(),
			filter.Compare("dueDate", filter.OpLT, date(now)),
		}
	case query.ModeToday:
		bound := startOfDay(now).AddDate(0, 0, DaysAhead(m, opts))
		preds = []filter.Expression{
			notCompleted(),
			filter.Eq("dropped", ir.Bool(false)),
			filter.Eq("tagStatus", ir.String("valid")),
			filter.Compare("dueDate", filter.OpLT, date(bound)),
		}
	case query.ModeUpcoming:
		end := now.AddDate(0, 0, DaysAhead(m, opts))
		preds = []filter.Expression{
			notCompleted(),
			filter.Between("dueDate", date(now), date(end)),
		}
	case query.ModeAvailable:
		preds = []filter.Expression{notCompleted(), filter.Eq("available", ir.Bool(true))}
	case query.ModeBlocked:
		preds = []filter.Expression{notCompleted(), filter.Eq("blocked", ir.Bool(true))}
	case query.ModeFlagged:
		preds = []filter.Expression{filter.Eq("flagged", ir.Bool(true))}
		if !filter.References(base, "completed") {
			preds = append(preds, notCompleted())
		}
	case query.ModeSmartSuggest:
		preds = []filter.Expression{notCompleted()}
	default:
		return base
	}
	if base != nil {
		preds = append(preds, base)
	}
	return filter.AllOf(preds...)
}

// DefaultSort returns the sort applied when the caller supplies none, or
// nil when the mode has no default.
func DefaultSort(m query.Mode) []query.SortSpec {
	switch m {
	case query.ModeOverdue, query.ModeUpcoming:
		return []query.SortSpec{{Field: "dueDate", Direction: query.Asc}}
	case query.ModeToday:
		return []query.SortSpec{{Field: "modified", Direction: query.Desc}}
	}
	return nil
}

// DueSoonBoundary is the instant before which a due date counts as "due
// soon" in today mode.
func DueSoonBoundary(now time.Time, days int) time.Time {
	return startOfDay(now).AddDate(0, 0, days)
}

func notCompleted() filter.Expression {
	return filter.Eq("completed", ir.Bool(false))
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// date encodes an instant the way date fields travel: RFC 3339 in UTC.
func date(t time.Time) ir.String {
	return ir.String(t.UTC().Format(time.RFC3339))
}
