package conciliation

import "testing"

func TestPersistedColumns(t *testing.T) {
	cols := persistedColumns

	wantFirst := []string{FieldID, FieldAccountID, FieldReceivedFileID, FieldNaturalHash, FieldRawData}
	for i, w := range wantFirst {
		if cols[i] != w {
			t.Errorf("column %d = %q, want %q", i, cols[i], w)
		}
	}
	if cols[len(cols)-1] != FieldLayoutVersion {
		t.Errorf("last column = %q, want %q", cols[len(cols)-1], FieldLayoutVersion)
	}

	seen := make(map[string]bool)
	for _, c := range cols {
		if seen[c] {
			t.Errorf("duplicate persisted column %q", c)
		}
		seen[c] = true
	}
	// Every natural-key field must be persisted or the replacement scoping
	// could not be audited afterwards.
	for _, f := range naturalKeyFields {
		if !seen[f] {
			t.Errorf("natural key field %q not persisted", f)
		}
	}
}
