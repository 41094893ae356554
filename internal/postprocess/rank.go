package postprocess

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// rankSource adapts records to fuzzy.Source over name and note.
type rankSource []Record

func (s rankSource) String(i int) string {
	name, _ := s[i]["name"].(string)
	note, _ := s[i]["note"].(string)
	if note == "" {
		return name
	}
	return name + " " + note
}

func (s rankSource) Len() int { return len(s) }

// RankByText orders records by fuzzy relevance to text over name and
// note. Exact name matches come first; records with no fuzzy match keep
// their relative order after all matches. Empty text returns a copy.
func RankByText(records []Record, text string) []Record {
	text = strings.TrimSpace(text)
	out := make([]Record, 0, len(records))
	if text == "" {
		return append(out, records...)
	}

	matches := fuzzy.FindFrom(text, rankSource(records))
	seen := make([]bool, len(records))
	for _, m := range matches {
		if name, _ := records[m.Index]["name"].(string); strings.EqualFold(name, text) {
			out = append(out, records[m.Index])
			seen[m.Index] = true
		}
	}
	for _, m := range matches {
		if !seen[m.Index] {
			out = append(out, records[m.Index])
			seen[m.Index] = true
		}
	}
	for i, r := range records {
		if !seen[i] {
			out = append(out, r)
		}
	}
	return out
}
