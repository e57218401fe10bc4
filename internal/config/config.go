package config

const (
	DefaultTimeZone = "America/Sao_Paulo"

	// Conciliation pipeline constants
	ConciliationBatchSize = 100
	ErrorMessageLimit     = 250

	// Scanner Configuration Constants
	DefaultScannerSchedule = "*/1 * * * *" // Run every minute to pick up pending files
	ScannerClaimLimit      = 20
)
