package jobs

import (
	"database/sql"
	"fmt"
	"log"

	"DexRecon/internal/logger"
	"DexRecon/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

type CronService struct {
	config map[string]interface{}
	db     *pgxpool.Pool
	sqlDB  *sql.DB
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}, db *pgxpool.Pool, sqlDB *sql.DB) serviceiface.Service {
	return &CronService{
		config: cfg,
		db:     db,
		sqlDB:  sqlDB,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("🚀 Starting cron service...")

	scannerConfig := NewDefaultScannerConfig()

	// Override scanner config from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["scanner_schedule"].(string); ok && schedule != "" {
			scannerConfig.Schedule = schedule
		}
		if claimLimit, ok := s.config["scanner_claim_limit"].(int); ok && claimLimit > 0 {
			scannerConfig.ClaimLimit = claimLimit
		}
		if tz, ok := s.config["timezone"].(string); ok && tz != "" {
			scannerConfig.TimeZone = tz
		}
	}

	c, err := RunConciliationScanner(scannerConfig, s.db, s.sqlDB)
	if err != nil {
		return fmt.Errorf("failed to start conciliation scanner: %v", err)
	}
	s.cron = c

	logger.GlobalLogger.LogAudit("Cron service started with conciliation scanner")
	log.Println("Cron service started — Conciliation Scanner scheduled")

	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	log.Println("Cron service stopped.")
	return nil
}
