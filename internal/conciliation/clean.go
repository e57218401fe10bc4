package conciliation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field classes drive per-field coercion independently of layout.
var (
	dateFields = []string{
		"competence_date", "event_date", "order_creation_date", "expected_payment_date",
		"billing_date", "settlement_start_date", "settlement_end_date",
	}
	identifierFields = []string{
		"ifood_order_id", "ifood_order_id_short", "external_order_id",
		"store_id", "store_id_short", "store_id_external", "cnpj",
		"balance_id",
	}
	numericFields = []string{
		"gross_value", "calculation_base_value", "tax_percentage", "transaction_value",
		"initial_basket_value", "final_basket_value",
	}
)

// isoDateTime is the serialized form of every date field: date-time text
// rather than a date value, so records stay JSON-compatible downstream.
const isoDateTime = "2006-01-02T15:04:05"

var dateLayouts = []string{
	isoDateTime,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02-Jan-2006",
}

// CleanTable applies the per-field-class coercions and returns a new table.
// Cell-level failures degrade to nil; rows are never dropped here. The whole
// stage is idempotent: cleaning already-clean data is a no-op.
func CleanTable(t *Table) *Table {
	rows := make([]Row, 0, len(t.Rows))
	for _, src := range t.Rows {
		row := src.Clone()
		for _, f := range dateFields {
			if _, ok := row[f]; ok {
				row[f] = cleanDate(row[f])
			}
		}
		for _, f := range identifierFields {
			if _, ok := row[f]; ok {
				row[f] = cleanIdentifier(row[f])
			}
		}
		for _, f := range numericFields {
			if _, ok := row[f]; ok {
				row[f] = cleanNumeric(row[f])
			}
		}
		for k, v := range row {
			row[k] = sanitizeValue(v)
		}
		rows = append(rows, row)
	}
	return &Table{Columns: t.Columns, Rows: rows}
}

// cleanDate parses tolerant date input and serializes it as ISO-8601
// date-time text. Unparseable values become nil.
func cleanDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDateTime)
		}
	}
	// Timestamps with sub-second precision or timezone suffixes still carry
	// a parseable date prefix.
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format(isoDateTime)
		}
	}
	return nil
}

// cleanIdentifier coerces identifier-like fields to stripped string form.
// Numeric-typed spreadsheet cells leave a trailing ".0" artifact; the literal
// "None" is a null sentinel.
func cleanIdentifier(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimSuffix(s, ".0")
		if s == "" || s == "None" {
			return nil
		}
		return s
	default:
		return nil
	}
}

// cleanNumeric coerces monetary/numeric fields to float64. String input is
// locale-corrected first: everything but digits and separators is stripped,
// and a comma decimal separator ("1.234,56") is converted to period form.
// Unparseable and non-finite values become nil; IEEE-754 infinities and
// NaNs are not valid JSON.
func cleanNumeric(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case string:
		var b strings.Builder
		for _, r := range t {
			if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
				b.WriteRune(r)
			}
		}
		s := b.String()
		if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
		if s == "" || s == "-" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		f, _ := d.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return nil
	}
}

// sanitizeValue funnels any residual non-finite number to an explicit nil so
// nothing JSON-incompatible leaves the cleaning stage.
func sanitizeValue(v any) any {
	if f, ok := v.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}
	return v
}
