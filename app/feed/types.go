package feed

import (
	"time"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
	UpdatedAt   *time.Time
}

// Item is one syndicated forum thread as read from the feed.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Author      string // from the configured extension element
	PublishedAt *time.Time
}

type RejectReason string

const (
	ReasonMissingDate  RejectReason = "missing_date"
	ReasonNoMarker     RejectReason = "no_marker"
	ReasonNoIdentifier RejectReason = "no_identifier"
	ReasonNoAuthor     RejectReason = "no_author"
	ReasonDuplicate    RejectReason = "duplicate"
)

// Rejection is the diagnostic for a feed item that produced no entry.
type Rejection struct {
	Index  int          `json:"index"`
	Title  string       `json:"title"`
	Link   string       `json:"link,omitempty"`
	Reason RejectReason `json:"reason"`
}

// Result summarizes one ingestion batch.
type Result struct {
	Examined  int         `json:"examined"`
	Stale     int         `json:"stale"`
	Added     []int64     `json:"added"`
	Rejected  []Rejection `json:"rejected"`
	Watermark time.Time   `json:"watermark"`
}
