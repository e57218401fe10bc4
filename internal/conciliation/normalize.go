package conciliation

import "strings"

// NormalizeColumns renames source headers to canonical field names for the
// detected layout and guarantees the fixed output schema: every canonical
// field present (nil when the source lacks it), unmapped source columns
// dropped, layout_version stamped on every row.
func NormalizeColumns(raw *RawTable, layout LayoutVersion, cfg *LayoutConfig) *Table {
	// Source headers are matched case-insensitively after trimming.
	headerBySource := make(map[string]string, len(raw.Headers))
	for _, h := range raw.Headers {
		headerBySource[strings.ToLower(strings.TrimSpace(h))] = h
	}

	mapping := cfg.Mapping(layout)
	columns := cfg.FinalColumns(layout)

	rows := make([]Row, 0, len(raw.Rows))
	for _, src := range raw.Rows {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = nil
		}
		for _, m := range mapping {
			orig, ok := headerBySource[m.Source]
			if !ok {
				continue
			}
			if v, ok := src[orig]; ok && strings.TrimSpace(v) != "" {
				row[m.Canonical] = v
			}
		}
		row[FieldLayoutVersion] = string(layout)
		rows = append(rows, row)
	}
	return &Table{Columns: columns, Rows: rows}
}

// HeaderSet returns the normalized (trimmed, lower-cased) source column set,
// the form layout detection operates on.
func HeaderSet(headers []string) map[string]bool {
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			set[h] = true
		}
	}
	return set
}
