package postprocess

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/focusql/internal/query"
)

// Sort returns records ordered by specs. The sort is stable; missing and
// null values sort last in either direction, and booleans order true
// before false when ascending. Date strings compare as instants and other
// strings use locale-aware collation.
func Sort(records []Record, specs []query.SortSpec) []Record {
	out := slices.Clone(records)
	if len(specs) == 0 || len(out) < 2 {
		return out
	}
	col := collate.New(language.Und, collate.IgnoreCase)

	slices.SortStableFunc(out, func(a, b Record) int {
		for _, spec := range specs {
			av, bv := a[spec.Field], b[spec.Field]
			aNil, bNil := av == nil, bv == nil
			switch {
			case aNil && bNil:
				continue
			case aNil:
				return 1
			case bNil:
				return -1
			}
			c := compareValues(col, av, bv)
			if c == 0 {
				continue
			}
			if spec.Direction == query.Desc {
				return -c
			}
			return c
		}
		return 0
	})
	return out
}

// typeRank orders values of different dynamic types against each other.
func typeRank(v any) int {
	switch v.(type) {
	case bool:
		return 0
	case float64, float32, int, int64, json.Number:
		return 1
	case string:
		return 2
	default:
		return 3
	}
}

func compareValues(col *collate.Collator, a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case av:
			return -1
		default:
			return 1
		}
	case string:
		return compareStrings(col, av, b.(string))
	}
	if ra == 1 {
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	}
	return 0
}

func compareStrings(col *collate.Collator, a, b string) int {
	if ta, err := time.Parse(time.RFC3339, a); err == nil {
		if tb, err := time.Parse(time.RFC3339, b); err == nil {
			return ta.Compare(tb)
		}
	}
	if c := col.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}
