package jobs

import (
	"testing"

	"DexRecon/internal/config"
)

func TestNewDefaultScannerConfig(t *testing.T) {
	t.Setenv("CONCILIATION_SCHEDULE", "")
	t.Setenv("CONCILIATION_CLAIM_LIMIT", "")

	cfg := NewDefaultScannerConfig()
	if cfg.Schedule != config.DefaultScannerSchedule {
		t.Errorf("schedule = %q", cfg.Schedule)
	}
	if cfg.ClaimLimit != config.ScannerClaimLimit {
		t.Errorf("claim limit = %d", cfg.ClaimLimit)
	}
	if cfg.TimeZone != config.DefaultTimeZone {
		t.Errorf("timezone = %q", cfg.TimeZone)
	}
}

func TestNewDefaultScannerConfigOverrides(t *testing.T) {
	t.Setenv("CONCILIATION_SCHEDULE", "*/5 * * * *")
	t.Setenv("CONCILIATION_CLAIM_LIMIT", "7")

	cfg := NewDefaultScannerConfig()
	if cfg.Schedule != "*/5 * * * *" {
		t.Errorf("schedule = %q", cfg.Schedule)
	}
	if cfg.ClaimLimit != 7 {
		t.Errorf("claim limit = %d", cfg.ClaimLimit)
	}
}

func TestNewDefaultScannerConfigBadLimit(t *testing.T) {
	t.Setenv("CONCILIATION_CLAIM_LIMIT", "not-a-number")

	cfg := NewDefaultScannerConfig()
	if cfg.ClaimLimit != config.ScannerClaimLimit {
		t.Errorf("claim limit = %d, want default on parse failure", cfg.ClaimLimit)
	}
}
