package conciliation

import (
	"encoding/json"
	"fmt"
)

// Row is one record keyed by canonical field name. Values are restricted to
// string, float64 or nil so that every row is JSON-serializable as-is.
type Row map[string]any

// Table is an ordered set of rows produced by one pipeline stage. Stages are
// pure: each consumes a Table and returns a new one, never mutating shared
// state in place.
type Table struct {
	Columns []string
	Rows    []Row
}

// Clone returns a shallow copy of the row. Stage functions clone before
// writing so the previous stage's output stays intact.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// safeJSON serializes v for persistence. Rows are sanitized before they reach
// this point, so failures are unexpected; rather than aborting a whole run
// over one unserializable value, it degrades to an error stub.
func safeJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		stub, _ := json.Marshal(map[string]string{"error": fmt.Sprintf("serialization failed: %v", err)})
		return stub
	}
	return b
}
