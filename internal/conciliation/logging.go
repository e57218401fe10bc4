package conciliation

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// RunLogger is the observability capability each pipeline component receives:
// log a leveled message with structured context. Implementations must never
// let a logging failure escape into the pipeline.
type RunLogger interface {
	Log(level string, message string, context map[string]any)
}

const logSource = "conciliation"

// DBLogger writes run logs to the shared `logs` table and mirrors them to
// stdout as structured JSON. The file/account context is bound once per run.
type DBLogger struct {
	db        *sql.DB
	out       *logrus.Logger
	fileID    string
	accountID string
}

// NewDBLogger builds a run logger backed by the given log database. db may be
// nil, in which case only the stdout mirror is active.
func NewDBLogger(db *sql.DB) *DBLogger {
	out := logrus.New()
	out.SetFormatter(&logrus.JSONFormatter{})
	out.SetOutput(os.Stdout)
	out.SetLevel(logrus.DebugLevel)
	return &DBLogger{db: db, out: out}
}

// SetContext binds the current run's file and account to every subsequent
// log row.
func (l *DBLogger) SetContext(fileID, accountID string) {
	l.fileID = fileID
	l.accountID = accountID
}

func (l *DBLogger) Log(level string, message string, context map[string]any) {
	entry := l.out.WithFields(logrus.Fields{
		"source":     logSource,
		"file_id":    l.fileID,
		"account_id": l.accountID,
	})
	if len(context) > 0 {
		entry = entry.WithField("context", context)
	}
	switch strings.ToLower(level) {
	case "debug":
		entry.Debug(message)
	case "warning":
		entry.Warn(message)
	case "error", "critical":
		entry.Error(message)
	default:
		entry.Info(message)
	}

	if l.db == nil {
		return
	}
	ctxJSON := safeJSON(context)
	_, err := l.db.Exec(
		`INSERT INTO logs (level, message, file_id, account_id, context, source) VALUES ($1, $2, $3, $4, $5, $6)`,
		strings.ToUpper(level), message, nullIfEmpty(l.fileID), nullIfEmpty(l.accountID), ctxJSON, logSource,
	)
	if err != nil {
		// A broken log sink must never take the run down with it.
		fmt.Fprintf(os.Stderr, "[conciliation] failed to persist log row: %v\n", err)
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
