package database

import (
	"time"
)

const (
	PreviewStatusSuccess = "success"
	PreviewStatusFailed  = "failed"

	// Failed extractions are retried up to this many times.
	MaxPreviewAttempts = 3
)

// Preview is the readable excerpt extracted from an entry's thread page.
type Preview struct {
	EntryID     int64
	Excerpt     string
	Status      string // success, failed
	Attempts    int
	ExtractedAt *time.Time
	Error       string
}

type EntryForExtraction struct {
	ID  int64
	URL string
}
