package conciliation

import (
	"context"
	"strings"
	"time"

	"DexRecon/internal/config"
)

// Status is the lifecycle state of a received file. The caller sets pending
// before the core is invoked; the pipeline owns every later transition.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
)

// StatusUpdate is a partial merge against the file's status record. When
// Status is set, processed_at and both error fields are written together
// (nil pointers clear them). ContentSHA256 is merged only when non-nil; an
// empty Status leaves the state machine fields untouched.
type StatusUpdate struct {
	Status        Status
	ProcessedAt   *time.Time
	ErrorMessage  *string
	ErrorDetails  *string
	ContentSHA256 *string
}

// StatusSink is the collaborator that persists FileStatus records, keyed by
// file identifier, with partial-merge semantics.
type StatusSink interface {
	UpdateFileStatus(ctx context.Context, fileID string, update StatusUpdate) error
}

// StatusReporter drives the status state machine for one file. A failed
// status write is logged and swallowed: it must never mask the processing
// outcome it was reporting.
type StatusReporter struct {
	sink StatusSink
	logg RunLogger
	now  func() time.Time
}

func NewStatusReporter(sink StatusSink, logg RunLogger) *StatusReporter {
	return &StatusReporter{sink: sink, logg: logg, now: time.Now}
}

// Transition moves the file to the given status.
//   - pending/processing clear processed_at and the error fields
//   - processed stamps processed_at and clears the error fields
//   - error keeps processed_at null, stores the first line of details
//     (truncated) as the short message and the full text as details
func (r *StatusReporter) Transition(ctx context.Context, fileID string, status Status, details string) {
	update := StatusUpdate{Status: status}

	switch status {
	case StatusProcessed:
		now := r.now().UTC()
		update.ProcessedAt = &now
	case StatusError:
		short := firstLine(details)
		if len(short) > config.ErrorMessageLimit {
			short = short[:config.ErrorMessageLimit]
		}
		update.ErrorMessage = &short
		update.ErrorDetails = &details
	}

	if err := r.sink.UpdateFileStatus(ctx, fileID, update); err != nil {
		r.logg.Log("error", "failed to update file status", map[string]any{
			"file_id": fileID, "status": string(status), "error": err.Error(),
		})
		return
	}
	r.logg.Log("info", "file status updated", map[string]any{"file_id": fileID, "status": string(status)})
}

// RecordContentHash attaches the source file's sha256 to the status record.
// Audit-only: failures are logged and ignored.
func (r *StatusReporter) RecordContentHash(ctx context.Context, fileID, sha string) {
	if sha == "" {
		return
	}
	update := StatusUpdate{ContentSHA256: &sha}
	if err := r.sink.UpdateFileStatus(ctx, fileID, update); err != nil {
		r.logg.Log("warning", "failed to record content hash", map[string]any{
			"file_id": fileID, "error": err.Error(),
		})
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
