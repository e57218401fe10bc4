package conciliation

import (
	"context"
	"fmt"
	"runtime/debug"

	"DexRecon/internal/checksum"
	"DexRecon/internal/config"
)

// rowSampleSize caps how many rows of each file the processor echoes into the
// run log for inspection.
const rowSampleSize = 10

// Processor runs the full pipeline for one received file: read, detect the
// layout, normalize, clean, build identities, replace prior data and persist,
// reporting the file's lifecycle status along the way.
type Processor struct {
	store    EntryStore
	reporter *StatusReporter
	layout   *LayoutConfig
	logg     RunLogger
}

func NewProcessor(store EntryStore, sink StatusSink, logg RunLogger) *Processor {
	return &Processor{
		store:    store,
		reporter: NewStatusReporter(sink, logg),
		layout:   NewLayoutConfig(),
		logg:     logg,
	}
}

// ProcessFile ingests one file and always leaves it in a terminal status:
// processed on success, error on any failure, panics included. The returned
// error mirrors the error status for callers that want it.
func (p *Processor) ProcessFile(ctx context.Context, path, fileID, accountID, layoutHint string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during processing: %v", r)
			p.logg.Log("error", "processing panicked", map[string]any{
				"file_id": fileID, "panic": fmt.Sprint(r), "stack": string(debug.Stack()),
			})
			p.reporter.Transition(ctx, fileID, StatusError, err.Error()+"\n"+string(debug.Stack()))
		}
	}()

	p.reporter.Transition(ctx, fileID, StatusProcessing, "")

	if sha, hashErr := checksum.FileSHA256(path); hashErr != nil {
		p.logg.Log("warning", "could not fingerprint file", map[string]any{"file_id": fileID, "error": hashErr.Error()})
	} else {
		p.reporter.RecordContentHash(ctx, fileID, sha)
	}

	table, err := p.prepare(path, layoutHint)
	if err != nil {
		p.reporter.Transition(ctx, fileID, StatusError, err.Error())
		return err
	}
	if len(table.Rows) == 0 {
		err = fmt.Errorf("file produced no data rows")
		p.reporter.Transition(ctx, fileID, StatusError, err.Error())
		return err
	}

	entries, skipped := BuildEntries(table, accountID, fileID)
	if skipped > 0 {
		p.logg.Log("warning", "dropped rows with colliding ids", map[string]any{"file_id": fileID, "skipped": skipped})
	}
	p.logRowSample(entries)

	if err = p.replaceAndPersist(ctx, fileID, accountID, entries); err != nil {
		p.reporter.Transition(ctx, fileID, StatusError, err.Error())
		return err
	}

	p.reporter.Transition(ctx, fileID, StatusProcessed, "")
	p.logg.Log("info", "file processed", map[string]any{"file_id": fileID, "entries": len(entries)})
	return nil
}

// prepare runs the read-side stages: parse the file, detect the layout from
// its headers, normalize columns and clean values.
func (p *Processor) prepare(path, layoutHint string) (*Table, error) {
	raw, err := ReadTable(path, layoutHint, p.logg)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	layout := p.layout.Detect(HeaderSet(raw.Headers), layoutHint)
	p.logg.Log("info", "layout detected", map[string]any{"layout": string(layout), "columns": len(raw.Headers)})

	normalized := NormalizeColumns(raw, layout, p.layout)
	return CleanTable(normalized), nil
}

// replaceAndPersist deletes the file's prior entries and every touched
// accounting period for the account, then writes the new entries in fixed
// size batches. The deletes are best effort; a failed batch write aborts.
func (p *Processor) replaceAndPersist(ctx context.Context, fileID, accountID string, entries []Row) error {
	if n, err := p.store.DeleteByReceivedFile(ctx, fileID); err != nil {
		p.logg.Log("warning", "file-scoped delete failed, continuing", map[string]any{"file_id": fileID, "error": err.Error()})
	} else if n > 0 {
		p.logg.Log("info", "removed prior entries for file", map[string]any{"file_id": fileID, "deleted": n})
	}

	for _, key := range periodKeys(entries) {
		start, next, err := periodRange(key)
		if err != nil {
			p.logg.Log("warning", "skipping malformed period", map[string]any{"period": key, "error": err.Error()})
			continue
		}
		if n, err := p.store.DeleteAccountPeriod(ctx, accountID, start, next); err != nil {
			p.logg.Log("warning", "period-scoped delete failed, continuing", map[string]any{"period": key, "error": err.Error()})
		} else if n > 0 {
			p.logg.Log("info", "replaced accounting period", map[string]any{"period": key, "deleted": n})
		}
	}

	batches := batchEntries(entries, config.ConciliationBatchSize)
	for i, batch := range batches {
		if err := p.store.UpsertEntries(ctx, batch); err != nil {
			return fmt.Errorf("persist batch %d of %d: %w", i+1, len(batches), err)
		}
	}
	p.logg.Log("info", "entries persisted", map[string]any{"entries": len(entries), "batches": len(batches)})
	return nil
}

func (p *Processor) logRowSample(entries []Row) {
	n := len(entries)
	if n > rowSampleSize {
		n = rowSampleSize
	}
	for i := 0; i < n; i++ {
		p.logg.Log("debug", "row sample", map[string]any{
			"index": i, "row": string(safeJSON(entries[i])),
		})
	}
}

func batchEntries(entries []Row, size int) [][]Row {
	if size <= 0 {
		size = config.ConciliationBatchSize
	}
	var batches [][]Row
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		batches = append(batches, entries[start:end])
	}
	return batches
}
