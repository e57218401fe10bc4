package conciliation

import (
	"os"
	"path/filepath"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Log(level, message string, context map[string]any) {}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestReadTableSemicolonCSV(t *testing.T) {
	path := writeTempFile(t, "file.csv",
		"competencia;valor;titulo\n"+
			"01/02/2024;1.234,56;Fatura 1\n"+
			"02/02/2024;2,00;Fatura 2\n")

	table, err := ReadTable(path, "", nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Headers) != 3 {
		t.Fatalf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if table.Rows[0]["valor"] != "1.234,56" {
		t.Errorf("valor = %q", table.Rows[0]["valor"])
	}
}

func TestReadTableCommaFallback(t *testing.T) {
	path := writeTempFile(t, "file.csv",
		"competencia,valor,titulo\n"+
			"01/02/2024,1234.56,Fatura 1\n")

	table, err := ReadTable(path, "", nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Headers) != 3 {
		t.Fatalf("comma fallback did not split headers: %v", table.Headers)
	}
	if table.Rows[0]["titulo"] != "Fatura 1" {
		t.Errorf("titulo = %q", table.Rows[0]["titulo"])
	}
}

func TestReadTableSkipsBlankRows(t *testing.T) {
	path := writeTempFile(t, "file.csv",
		"competencia;valor\n"+
			"01/02/2024;1,00\n"+
			";\n"+
			"   ;  \n"+
			"02/02/2024;2,00\n")

	table, err := ReadTable(path, "", nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows = %d, want 2 (blank rows skipped)", len(table.Rows))
	}
}

func TestReadTablePadsShortRows(t *testing.T) {
	path := writeTempFile(t, "file.csv",
		"competencia;valor;titulo\n"+
			"01/02/2024;1,00\n")

	table, err := ReadTable(path, "", nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := table.Rows[0]["titulo"]; !ok || got != "" {
		t.Errorf("short row cell = %q (present=%v), want empty string", got, ok)
	}
}

func TestReadTableMissingFile(t *testing.T) {
	if _, err := ReadTable(filepath.Join(t.TempDir(), "missing.csv"), "", nopLogger{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRecordsToTableEmptyInput(t *testing.T) {
	table := recordsToTable(nil)
	if len(table.Headers) != 0 || len(table.Rows) != 0 {
		t.Errorf("empty input produced %v", table)
	}
}
