package conciliation

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleRow() Row {
	return Row{
		"competence_date":     "2024-02-01T00:00:00",
		"transaction_type":    "venda",
		"gross_value":         1234.56,
		"ifood_order_id":      "ABC-123",
		"title":               "Fatura 42",
		"layout_version":      "legacy",
		"sales_channel":       "app",
		"cancellation_reason": nil,
	}
}

func TestEntryIDDeterministic(t *testing.T) {
	a := EntryID("acct-1", sampleRow(), 0)
	b := EntryID("acct-1", sampleRow(), 0)
	if a != b {
		t.Errorf("same input produced different ids: %s vs %s", a, b)
	}

	if EntryID("acct-2", sampleRow(), 0) == a {
		t.Error("different accounts must produce different ids")
	}
	if EntryID("acct-1", sampleRow(), 1) == a {
		t.Error("different ordinals must produce different ids")
	}

	changed := sampleRow()
	changed["gross_value"] = 999.0
	if EntryID("acct-1", changed, 0) == a {
		t.Error("different natural-key values must produce different ids")
	}

	// Fields outside the natural key never influence the id.
	decorated := sampleRow()
	decorated["sales_channel"] = "site"
	decorated["event_trigger"] = "extra"
	if EntryID("acct-1", decorated, 0) != a {
		t.Error("non-key fields leaked into the id")
	}
}

func TestNaturalHashIgnoresOrdinal(t *testing.T) {
	h := NaturalHash(sampleRow())
	if len(h) != 32 {
		t.Errorf("hash length = %d, want 32 hex chars", len(h))
	}
	if NaturalHash(sampleRow()) != h {
		t.Error("hash is not deterministic")
	}

	changed := sampleRow()
	changed["title"] = "Fatura 43"
	if NaturalHash(changed) == h {
		t.Error("different content must hash differently")
	}
}

func TestBuildEntries(t *testing.T) {
	table := &Table{Rows: []Row{sampleRow(), sampleRow(), sampleRow()}}

	entries, skipped := BuildEntries(table, "acct-1", "file-1")
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	ids := make(map[string]bool)
	hashes := make(map[string]bool)
	for _, e := range entries {
		if e[FieldAccountID] != "acct-1" || e[FieldReceivedFileID] != "file-1" {
			t.Errorf("metadata missing: %v %v", e[FieldAccountID], e[FieldReceivedFileID])
		}
		ids[e[FieldID].(string)] = true
		hashes[e[FieldNaturalHash].(string)] = true
	}
	// Identical business rows: unique ids via the ordinal, one shared hash.
	if len(ids) != 3 {
		t.Errorf("distinct ids = %d, want 3", len(ids))
	}
	if len(hashes) != 1 {
		t.Errorf("distinct hashes = %d, want 1", len(hashes))
	}
}

func TestBuildEntriesRawDataRoundTrip(t *testing.T) {
	src := sampleRow()
	table := &Table{Rows: []Row{src}}

	entries, _ := BuildEntries(table, "acct-1", "file-1")
	raw, ok := entries[0][FieldRawData].(string)
	if !ok {
		t.Fatalf("raw_data is %T, want string", entries[0][FieldRawData])
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("raw_data is not valid JSON: %v", err)
	}
	if decoded["title"] != "Fatura 42" || decoded["gross_value"] != 1234.56 {
		t.Errorf("raw_data lost content: %v", decoded)
	}
	// raw_data captures the row before metadata attachment.
	if _, ok := decoded[FieldID]; ok {
		t.Error("raw_data must not contain the generated id")
	}
	if _, ok := decoded[FieldAccountID]; ok {
		t.Error("raw_data must not contain account metadata")
	}
}

func TestBuildEntriesDoesNotMutateInput(t *testing.T) {
	src := sampleRow()
	want := src.Clone()
	table := &Table{Rows: []Row{src}}

	BuildEntries(table, "acct-1", "file-1")
	if !reflect.DeepEqual(src, want) {
		t.Errorf("input row mutated: %v", src)
	}
}

func TestPeriodKeys(t *testing.T) {
	entries := []Row{
		{"competence_date": "2024-02-10T00:00:00"},
		{"competence_date": "2024-02-20T00:00:00"},
		{"competence_date": "2023-12-01T00:00:00"},
		{"competence_date": nil},
		{"competence_date": "bad"},
	}

	got := periodKeys(entries)
	want := []string{"2023-12", "2024-02"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("periodKeys = %v, want %v", got, want)
	}
}

func TestPeriodRange(t *testing.T) {
	start, next, err := periodRange("2023-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Format("2006-01-02") != "2023-12-01" {
		t.Errorf("start = %s", start.Format("2006-01-02"))
	}
	// December rolls over into the next year.
	if next.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("next = %s", next.Format("2006-01-02"))
	}

	if _, _, err := periodRange("garbage"); err == nil {
		t.Error("expected error for malformed period key")
	}
}
