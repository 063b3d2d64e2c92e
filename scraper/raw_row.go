// backend/scraper/raw_row.go
package scraper

// RawRow is one spreadsheet row keyed by header, in header order.
type RawRow struct {
	keys   []string
	values map[string]string
}

// NewRawRow zips headers with values. Extra values are dropped and missing
// ones are simply absent; a repeated header keeps the later column.
func NewRawRow(headers, values []string) RawRow {
	r := RawRow{values: make(map[string]string, len(headers))}
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		if _, seen := r.values[h]; !seen {
			r.keys = append(r.keys, h)
		}
		r.values[h] = values[i]
	}
	return r
}

// RowFromMap builds a row from a plain map. Key order follows iteration
// order, so it is only meant for tests and ad-hoc callers.
func RowFromMap(m map[string]string) RawRow {
	r := RawRow{values: make(map[string]string, len(m))}
	for k, v := range m {
		r.keys = append(r.keys, k)
		r.values[k] = v
	}
	return r
}

// Get returns the value under header and whether the column was present.
func (r RawRow) Get(header string) (string, bool) {
	v, ok := r.values[header]
	return v, ok
}

// Keys returns the headers present in this row.
func (r RawRow) Keys() []string { return r.keys }

// Len is the number of columns present.
func (r RawRow) Len() int { return len(r.keys) }
