package conciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableConciliation = "ifood_conciliation"
	tableFiles        = "received_files"
)

// EntryStore is the narrow persistence contract the pipeline needs:
// delete-by-filter (file-scoped and period-scoped) and upsert-many keyed by
// the deterministic id.
type EntryStore interface {
	DeleteByReceivedFile(ctx context.Context, fileID string) (int64, error)
	DeleteAccountPeriod(ctx context.Context, accountID string, periodStart, nextPeriodStart time.Time) (int64, error)
	UpsertEntries(ctx context.Context, entries []Row) error
}

// persistedColumns is the full column list of the conciliation table, in
// insert order: metadata first, then the canonical business fields ending
// with layout_version. Both layouts normalize to this same set.
var persistedColumns = buildPersistedColumns()

func buildPersistedColumns() []string {
	cols := []string{FieldID, FieldAccountID, FieldReceivedFileID, FieldNaturalHash, FieldRawData}
	return append(cols, NewLayoutConfig().FinalColumns(LayoutV3)...)
}

// PgStore persists conciliation entries and file statuses to the shared
// Postgres database through a pgx pool.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) DeleteByReceivedFile(ctx context.Context, fileID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE received_file_id = $1`, tableConciliation), fileID)
	if err != nil {
		return 0, fmt.Errorf("delete by received_file_id: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) DeleteAccountPeriod(ctx context.Context, accountID string, periodStart, nextPeriodStart time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1 AND competence_date >= $2 AND competence_date < $3`, tableConciliation),
		accountID, periodStart.Format("2006-01-02"), nextPeriodStart.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("delete account period: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertEntries writes one batch with insert-or-replace semantics keyed by
// id. Callers batch; this sends a single multi-row INSERT ... ON CONFLICT.
func (s *PgStore) UpsertEntries(ctx context.Context, entries []Row) error {
	if len(entries) == 0 {
		return nil
	}

	cols := persistedColumns
	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*len(cols))
	for i, row := range entries {
		marks := make([]string, len(cols))
		for j, col := range cols {
			marks[j] = fmt.Sprintf("$%d", i*len(cols)+j+1)
			args = append(args, row[col])
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
	}

	assignments := make([]string, 0, len(cols)-1)
	for _, col := range cols {
		if col == FieldID {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	sql := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES %s ON CONFLICT (id) DO UPDATE SET %s`,
		tableConciliation,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(assignments, ", "),
	)
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert batch of %d entries: %w", len(entries), err)
	}
	return nil
}

// UpdateFileStatus merges a status update into the file's record. A set
// Status writes the full state-machine column group; ContentSHA256 is merged
// independently.
func (s *PgStore) UpdateFileStatus(ctx context.Context, fileID string, update StatusUpdate) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)

	if update.Status != "" {
		args = append(args, string(update.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
		args = append(args, update.ProcessedAt)
		sets = append(sets, fmt.Sprintf("processed_at = $%d", len(args)))
		args = append(args, update.ErrorMessage)
		sets = append(sets, fmt.Sprintf("error_message = $%d", len(args)))
		args = append(args, update.ErrorDetails)
		sets = append(sets, fmt.Sprintf("error_details = $%d", len(args)))
	}
	if update.ContentSHA256 != nil {
		args = append(args, *update.ContentSHA256)
		sets = append(sets, fmt.Sprintf("content_sha256 = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, fileID)
	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, tableFiles, strings.Join(sets, ", "), len(args))
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	return nil
}
