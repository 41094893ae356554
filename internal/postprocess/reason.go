package postprocess

import "time"

// ReasonField carries the category attached by Categorize.
const ReasonField = "reason"

// Reasons, in priority order.
const (
	ReasonOverdue = "overdue"
	ReasonDueSoon = "due_soon"
	ReasonFlagged = "flagged"
)

// Categorize attaches a reason to each record: overdue when due before
// now, due_soon when due before dueSoonBoundary, flagged otherwise when
// flagged. Records matching none get no reason.
func Categorize(records []Record, now, dueSoonBoundary time.Time) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		c := cloneRecord(r)
		if reason := reasonOf(r, now, dueSoonBoundary); reason != "" {
			c[ReasonField] = reason
		}
		out[i] = c
	}
	return out
}

func reasonOf(r Record, now, dueSoonBoundary time.Time) string {
	if due, ok := toTime(r["dueDate"]); ok {
		if due.Before(now) {
			return ReasonOverdue
		}
		if due.Before(dueSoonBoundary) {
			return ReasonDueSoon
		}
	}
	if r["flagged"] == true {
		return ReasonFlagged
	}
	return ""
}

// ReasonCounts tallies categorized records.
type ReasonCounts struct {
	Overdue int `json:"overdueCount"`
	DueSoon int `json:"dueSoonCount"`
	Flagged int `json:"flaggedCount"`
}

// CountByReason tallies records by their attached reason.
func CountByReason(records []Record) ReasonCounts {
	var c ReasonCounts
	for _, r := range records {
		switch r[ReasonField] {
		case ReasonOverdue:
			c.Overdue++
		case ReasonDueSoon:
			c.DueSoon++
		case ReasonFlagged:
			c.Flagged++
		}
	}
	return c
}
