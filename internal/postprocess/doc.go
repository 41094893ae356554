// Package postprocess shapes decoded host records before they reach the
// response envelope: sorting, projection, smart-suggest scoring, reason
// categorization, pagination and text ranking.
//
// Every function returns new slices and new record maps. Inputs are never
// modified, so records coming out of the cache can be processed freely.
package postprocess

// Record is one decoded host record.
type Record = map[string]any

// IDField is always kept by Project.
const IDField = "id"

func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
