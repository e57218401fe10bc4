package conciliation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrNoWorksheets reports a workbook with an empty worksheet list, which is a
// fatal input error.
var ErrNoWorksheets = errors.New("workbook has no worksheets")

// RawTable is the file as read: original headers plus untyped text cells.
// Cells absent from a short row are empty strings.
type RawTable struct {
	Headers []string
	Rows    []map[string]string
}

// ReadTable reads a conciliation file from disk. Delimited text is parsed
// with a semicolon first (the marketplace default), falling back to comma;
// workbooks go through worksheet selection based on the layout hint.
func ReadTable(path string, layoutHint string, logg RunLogger) (*RawTable, error) {
	ext := strings.ToLower(filepath.Ext(path))
	logg.Log("info", "reading conciliation file", map[string]any{"path": path, "extension": ext})

	if ext == ".csv" || ext == ".txt" {
		return readCSV(path, logg)
	}
	return readWorkbook(path, ext, layoutHint, logg)
}

func readCSV(path string, logg RunLogger) (*RawTable, error) {
	records, err := readCSVWithDelimiter(path, ';')
	if err == nil && singleColumnWithCommas(records) {
		// A bare-comma file parses "successfully" as one wide column; treat
		// that the same as a parse failure and retry.
		err = errors.New("semicolon parse produced a single comma-joined column")
	}
	if err != nil {
		logg.Log("warning", "semicolon-delimited parse failed, retrying with comma", map[string]any{"error": err.Error()})
		records, err = readCSVWithDelimiter(path, ',')
		if err != nil {
			return nil, fmt.Errorf("csv parse failed with both delimiters: %w", err)
		}
	}
	return recordsToTable(records), nil
}

func readCSVWithDelimiter(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func singleColumnWithCommas(records [][]string) bool {
	return len(records) > 0 && len(records[0]) == 1 && strings.Contains(records[0][0], ",")
}

func readWorkbook(path, ext, layoutHint string, logg RunLogger) (*RawTable, error) {
	var sheets []string
	var readSheet func(index int) ([][]string, error)

	if ext == ".xls" {
		wb, err := xls.Open(path, "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls workbook: %w", err)
		}
		for i := 0; i < wb.NumSheets(); i++ {
			sheets = append(sheets, wb.GetSheet(i).Name)
		}
		readSheet = func(index int) ([][]string, error) { return readXLSSheet(wb, index) }
	} else {
		wb, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer wb.Close()
		sheets = wb.GetSheetList()
		readSheet = func(index int) ([][]string, error) { return wb.GetRows(sheets[index]) }
	}

	index, err := selectWorksheet(sheets, layoutHint)
	if err != nil {
		return nil, err
	}
	logg.Log("info", "worksheet selected", map[string]any{"sheets": sheets, "selected": sheets[index]})

	records, err := readSheet(index)
	if err != nil && index != 0 {
		logg.Log("warning", "selected worksheet failed to parse, falling back to the first", map[string]any{
			"worksheet": sheets[index], "error": err.Error(),
		})
		records, err = readSheet(0)
	}
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	return recordsToTable(records), nil
}

// selectWorksheet picks which worksheet holds the data. An explicit legacy
// hint selects the second sheet (the legacy template keeps a cover sheet
// first); an explicit v3 hint selects the first. Without a hint, multiple
// sheets default to the second.
func selectWorksheet(sheets []string, layoutHint string) (int, error) {
	if len(sheets) == 0 {
		return 0, ErrNoWorksheets
	}
	hint, ok := NormalizeLayoutHint(layoutHint)
	if ok && hint == LayoutLegacy && len(sheets) > 1 {
		return 1, nil
	}
	if ok && hint == LayoutV3 {
		return 0, nil
	}
	if len(sheets) > 1 {
		return 1, nil
	}
	return 0, nil
}

func readXLSSheet(wb *xls.WorkBook, index int) ([][]string, error) {
	sheet := wb.GetSheet(index)
	if sheet == nil {
		return nil, fmt.Errorf("worksheet %d not found", index)
	}
	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		records = append(records, cells)
	}
	return records, nil
}

func recordsToTable(records [][]string) *RawTable {
	if len(records) == 0 {
		return &RawTable{}
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return &RawTable{Headers: headers, Rows: rows}
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
