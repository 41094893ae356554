package postprocess

// Project keeps only the requested fields of each record, plus the id.
// No fields means every record is returned whole. Fields absent from a
// record stay absent.
func Project(records []Record, fields []string) []Record {
	out := make([]Record, len(records))
	if len(fields) == 0 {
		for i, r := range records {
			out[i] = cloneRecord(r)
		}
		return out
	}
	for i, r := range records {
		p := make(Record, len(fields)+1)
		if v, ok := r[IDField]; ok {
			p[IDField] = v
		}
		for _, f := range fields {
			if v, ok := r[f]; ok {
				p[f] = v
			}
		}
		out[i] = p
	}
	return out
}

// Paginate returns the window [offset, offset+limit). A zero limit means
// no upper bound. The second result reports whether records were left
// past the window.
func Paginate(records []Record, offset, limit int) ([]Record, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []Record{}, false
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]Record, end-offset)
	copy(page, records[offset:end])
	return page, end < len(records)
}
