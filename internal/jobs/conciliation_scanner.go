package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"DexRecon/internal/conciliation"
	"DexRecon/internal/config"
	"DexRecon/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// ScannerConfig holds configuration for the pending-file scanner
type ScannerConfig struct {
	Schedule   string // Cron schedule (default: every minute)
	ClaimLimit int    // Max files claimed per tick
	TimeZone   string // Timezone for scheduling
}

// pendingFile is one claimable row from received_files
type pendingFile struct {
	ID         string
	AccountID  string
	LocalPath  string
	LayoutHint string
}

// NewDefaultScannerConfig creates a ScannerConfig from environment variables
// with sensible defaults
func NewDefaultScannerConfig() *ScannerConfig {
	schedule := os.Getenv("CONCILIATION_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultScannerSchedule
	}

	claimLimit := config.ScannerClaimLimit
	if cl := os.Getenv("CONCILIATION_CLAIM_LIMIT"); cl != "" {
		if parsed, err := parseInt(cl); err == nil && parsed > 0 {
			claimLimit = parsed
		}
	}

	return &ScannerConfig{
		Schedule:   schedule,
		ClaimLimit: claimLimit,
		TimeZone:   config.DefaultTimeZone,
	}
}

// RunConciliationScanner starts the cron job that picks up pending received
// files and runs each through the conciliation pipeline. Ticks never overlap:
// a tick that fires while the previous one is still draining is skipped.
func RunConciliationScanner(cfg *ScannerConfig, pool *pgxpool.Pool, sqlDB *sql.DB) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultScannerSchedule
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = config.ScannerClaimLimit
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Invalid timezone %s, falling back to UTC: %v", cfg.TimeZone, err))
	}

	var tickMu sync.Mutex
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Schedule, func() {
		if !tickMu.TryLock() {
			log.Println("[AUDIT] Previous scanner tick still running, skipping")
			return
		}
		defer tickMu.Unlock()

		if err := scanPendingFiles(pool, sqlDB, cfg.ClaimLimit); err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Conciliation scanner tick failed: %v", err))
			log.Printf("ERROR: conciliation scanner tick failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule conciliation scanner: %v", err)
	}

	c.Start()
	logger.GlobalLogger.LogAudit(fmt.Sprintf("Conciliation scanner started with schedule: %s (timezone: %s)", cfg.Schedule, cfg.TimeZone))
	log.Printf("[AUDIT] Conciliation scanner started: %s (%s)", cfg.Schedule, cfg.TimeZone)

	return c, nil
}

// scanPendingFiles claims up to claimLimit pending files and processes them
// one at a time. A failed file never blocks the rest of the batch; the
// pipeline itself records the terminal status.
func scanPendingFiles(pool *pgxpool.Pool, sqlDB *sql.DB, claimLimit int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	files, err := claimPendingFiles(ctx, pool, claimLimit)
	if err != nil {
		return fmt.Errorf("failed to list pending files: %w", err)
	}
	if len(files) == 0 {
		return nil
	}

	log.Printf("[AUDIT] Claimed %d pending conciliation files", len(files))
	logger.GlobalLogger.LogAudit(fmt.Sprintf("Claimed %d pending conciliation files", len(files)))

	store := conciliation.NewPgStore(pool)
	for _, f := range files {
		logg := conciliation.NewDBLogger(sqlDB)
		logg.SetContext(f.ID, f.AccountID)

		processor := conciliation.NewProcessor(store, store, logg)
		if err := processor.ProcessFile(ctx, f.LocalPath, f.ID, f.AccountID, f.LayoutHint); err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("File %s failed: %v", f.ID, err))
		}

		// Processed or failed, the staged copy is no longer needed.
		if err := os.Remove(f.LocalPath); err != nil && !os.IsNotExist(err) {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Could not remove staged file %s: %v", f.LocalPath, err))
		}
	}
	return nil
}

func claimPendingFiles(ctx context.Context, pool *pgxpool.Pool, limit int) ([]pendingFile, error) {
	query := `
		SELECT id, account_id, local_path, COALESCE(layout_hint, '')
		FROM received_files
		WHERE status = 'pending' AND local_path IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []pendingFile
	for rows.Next() {
		var f pendingFile
		if err := rows.Scan(&f.ID, &f.AccountID, &f.LocalPath, &f.LayoutHint); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// parseInt is a helper to parse int from string
func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}
