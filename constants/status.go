package constants

// ExtractionStatus is the canonical status for rows in extractions.
type ExtractionStatus string

// Stable values (store these exact strings in DB).
const (
	ExtractionRunning ExtractionStatus = "RUNNING" // in progress
	ExtractionOK      ExtractionStatus = "OK"      // record produced
	ExtractionFailed  ExtractionStatus = "FAILED"  // generation API failure
)
