package postprocess

import (
	"slices"
	"time"
)

// Smart-suggest weights.
const (
	WeightOverdue       = 100
	WeightDueToday      = 50
	WeightFlagged       = 30
	WeightAvailable     = 20
	WeightShortEstimate = 10

	// ShortEstimateMinutes is the largest estimate that earns the bonus.
	ShortEstimateMinutes = 15
)

// ScoreOf computes the additive suggestion score of one record.
func ScoreOf(r Record, now time.Time) int {
	score := 0
	if due, ok := toTime(r["dueDate"]); ok {
		endOfToday := startOfDay(now).AddDate(0, 0, 1)
		switch {
		case due.Before(now):
			score += WeightOverdue
		case due.Before(endOfToday):
			score += WeightDueToday
		}
	}
	if r["flagged"] == true {
		score += WeightFlagged
	}
	if r["available"] == true {
		score += WeightAvailable
	}
	if est, ok := toFloat(r["estimatedMinutes"]); ok && est > 0 && est <= ShortEstimateMinutes {
		score += WeightShortEstimate
	}
	return score
}

// Score orders records by descending score, drops zero-score records and
// truncates to limit (0 keeps all). Ties keep their input order. The score
// never appears in the returned records.
func Score(records []Record, limit int, now time.Time) []Record {
	type scored struct {
		rec   Record
		score int
	}
	candidates := make([]scored, 0, len(records))
	for _, r := range records {
		if s := ScoreOf(r, now); s > 0 {
			candidates = append(candidates, scored{rec: r, score: s})
		}
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		return b.score - a.score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Record, len(candidates))
	for i, c := range candidates {
		out[i] = cloneRecord(c.rec)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
