package catalog

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is the YAML document used to export and import a catalog.
type Snapshot struct {
	LastIngested int64    `yaml:"lastIngested"`
	Entries      []Record `yaml:"entries"`
}

func NewSnapshot(entries []*Entry, lastIngested time.Time) Snapshot {
	s := Snapshot{Entries: make([]Record, 0, len(entries))}
	if !lastIngested.IsZero() {
		s.LastIngested = lastIngested.Unix()
	}
	for _, e := range entries {
		s.Entries = append(s.Entries, e.Record())
	}
	return s
}

func WriteSnapshot(w io.Writer, s Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Watermark returns the stored ingestion watermark, zero when unset.
func (s *Snapshot) Watermark() time.Time {
	if s.LastIngested == 0 {
		return time.Time{}
	}
	return time.Unix(s.LastIngested, 0)
}

// Decode converts every record, reporting failures by record index.
func (s *Snapshot) Decode() ([]*Entry, error) {
	entries := make([]*Entry, 0, len(s.Entries))
	var errs []error
	seen := make(map[int64]int, len(s.Entries))

	for i, rec := range s.Entries {
		e, err := EntryFromRecord(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		if j, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Errorf("entry %d: %w: id %d also used by entry %d", i, ErrDuplicate, e.ID, j))
			continue
		}
		seen[e.ID] = i
		entries = append(entries, e)
	}

	return entries, errors.Join(errs...)
}
