package conciliation

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// naturalKeyFields is the fixed ordered set of business fields that together
// identify a conceptually unique conciliation entry, spanning both layouts
// (balance_id only carries data on v3 files).
var naturalKeyFields = []string{
	"competence_date",
	"event_date",
	"transaction_type",
	"transaction_description",
	"gross_value",
	"transaction_value",
	"ifood_order_id",
	"external_order_id",
	"store_id",
	"title",
	"billing_date",
	"settlement_start_date",
	"settlement_end_date",
	"payment_installment",
	"balance_id",
}

// rowIndexKey is the reserved basis key holding the row's ordinal position,
// which disambiguates rows whose business content is byte-identical.
const rowIndexKey = "_row_index"

// FieldID, FieldNaturalHash and friends are the metadata fields the identity
// stage and persister attach to every record.
const (
	FieldID             = "id"
	FieldNaturalHash    = "natural_hash"
	FieldAccountID      = "account_id"
	FieldReceivedFileID = "received_file_id"
	FieldRawData        = "raw_data"
)

// dedupeBasis extracts the natural-key subset of a row, optionally tagged
// with the ordinal position.
func dedupeBasis(row Row, ordinal int, withOrdinal bool) map[string]any {
	basis := make(map[string]any, len(naturalKeyFields)+1)
	for _, f := range naturalKeyFields {
		if v, ok := row[f]; ok {
			basis[f] = v
		}
	}
	if withOrdinal {
		basis[rowIndexKey] = ordinal
	}
	return basis
}

// encodeBasis serializes a basis deterministically: encoding/json emits map
// keys in sorted order, which is the key-order invariance the id scheme
// relies on.
func encodeBasis(basis map[string]any) string {
	b, _ := json.Marshal(basis)
	return string(b)
}

// EntryID derives the deterministic row id: a name-based (SHA-1) UUID over
// the account, the natural-key values and the row's ordinal position. The
// same account processing an identical file always reproduces the same ids.
func EntryID(accountID string, row Row, ordinal int) string {
	payload := encodeBasis(dedupeBasis(row, ordinal, true))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(accountID+"|"+payload)).String()
}

// NaturalHash digests the natural-key values without the ordinal. Two rows
// with identical business content hash identically regardless of position;
// the hash is audit-only and never enforces uniqueness.
func NaturalHash(row Row) string {
	payload := encodeBasis(dedupeBasis(row, 0, false))
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// BuildEntries turns cleaned rows into persistable entries: attaches the
// account and file metadata, the deterministic id, the audit hash and the
// sanitized raw JSON dump. Should two ids ever collide within one run the
// first occurrence wins; the return value reports how many rows were dropped
// that way.
func BuildEntries(t *Table, accountID, fileID string) ([]Row, int) {
	entries := make([]Row, 0, len(t.Rows))
	seen := make(map[string]bool, len(t.Rows))
	skipped := 0

	for i, src := range t.Rows {
		row := src.Clone()
		row[FieldAccountID] = accountID
		row[FieldReceivedFileID] = fileID
		row[FieldID] = EntryID(accountID, row, i)
		row[FieldNaturalHash] = NaturalHash(row)
		row[FieldRawData] = string(safeJSON(src))

		id := row[FieldID].(string)
		if seen[id] {
			skipped++
			continue
		}
		seen[id] = true
		entries = append(entries, row)
	}
	return entries, skipped
}
