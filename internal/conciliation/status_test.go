package conciliation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"DexRecon/internal/config"
)

type recordingSink struct {
	updates []statusRecord
	err     error
}

func (s *recordingSink) UpdateFileStatus(ctx context.Context, fileID string, update StatusUpdate) error {
	s.updates = append(s.updates, statusRecord{fileID, update})
	return s.err
}

func TestTransitionProcessed(t *testing.T) {
	sink := &recordingSink{}
	r := NewStatusReporter(sink, nopLogger{})
	fixed := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Transition(context.Background(), "file-1", StatusProcessed, "")

	if len(sink.updates) != 1 {
		t.Fatalf("updates = %d", len(sink.updates))
	}
	u := sink.updates[0].update
	if u.Status != StatusProcessed {
		t.Errorf("status = %q", u.Status)
	}
	if u.ProcessedAt == nil || !u.ProcessedAt.Equal(fixed) {
		t.Errorf("processed_at = %v, want %v", u.ProcessedAt, fixed)
	}
	if u.ErrorMessage != nil || u.ErrorDetails != nil {
		t.Error("processed transition must clear error fields")
	}
}

func TestTransitionErrorTruncation(t *testing.T) {
	sink := &recordingSink{}
	r := NewStatusReporter(sink, nopLogger{})

	longLine := strings.Repeat("x", 400)
	details := longLine + "\nstack frame 1\nstack frame 2"
	r.Transition(context.Background(), "file-1", StatusError, details)

	u := sink.updates[0].update
	if u.ErrorMessage == nil {
		t.Fatal("error message missing")
	}
	if len(*u.ErrorMessage) != config.ErrorMessageLimit {
		t.Errorf("message length = %d, want %d", len(*u.ErrorMessage), config.ErrorMessageLimit)
	}
	if strings.Contains(*u.ErrorMessage, "\n") {
		t.Error("message must be a single line")
	}
	if u.ErrorDetails == nil || *u.ErrorDetails != details {
		t.Error("details must keep the full text")
	}
	if u.ProcessedAt != nil {
		t.Error("error transition must not stamp processed_at")
	}
}

func TestTransitionShortErrorKeptWhole(t *testing.T) {
	sink := &recordingSink{}
	r := NewStatusReporter(sink, nopLogger{})

	r.Transition(context.Background(), "file-1", StatusError, "boom")
	if got := *sink.updates[0].update.ErrorMessage; got != "boom" {
		t.Errorf("message = %q", got)
	}
}

func TestTransitionSinkFailureSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	r := NewStatusReporter(sink, nopLogger{})

	// Must not panic or propagate; the outcome it reports already happened.
	r.Transition(context.Background(), "file-1", StatusProcessed, "")
}

func TestRecordContentHash(t *testing.T) {
	sink := &recordingSink{}
	r := NewStatusReporter(sink, nopLogger{})

	r.RecordContentHash(context.Background(), "file-1", "abc123")
	if len(sink.updates) != 1 {
		t.Fatalf("updates = %d", len(sink.updates))
	}
	u := sink.updates[0].update
	if u.Status != "" {
		t.Error("hash record must not touch the status machine")
	}
	if u.ContentSHA256 == nil || *u.ContentSHA256 != "abc123" {
		t.Errorf("content sha = %v", u.ContentSHA256)
	}

	r.RecordContentHash(context.Background(), "file-1", "")
	if len(sink.updates) != 1 {
		t.Error("empty hash must not be recorded")
	}
}

func TestFirstLine(t *testing.T) {
	if firstLine("a\nb") != "a" {
		t.Error("firstLine failed on multi-line input")
	}
	if firstLine("single") != "single" {
		t.Error("firstLine failed on single-line input")
	}
}
