package catalog

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Record is the persisted form of an Entry. Pointer fields tell a missing
// field apart from a zero value. The id is never stored: it is derived
// from URL on load.
type Record struct {
	Name         *string             `yaml:"name" json:"name"`
	URL          *string             `yaml:"url" json:"url"`
	Type         *string             `yaml:"type" json:"type"`
	Status       *string             `yaml:"status" json:"status"`
	LastUpdate   *int64              `yaml:"lastUpdate" json:"lastUpdate"`
	Author       *string             `yaml:"author" json:"author"`
	Modified     *bool               `yaml:"modified" json:"modified"`
	Tags         []string            `yaml:"tags" json:"tags"`
	Reservations []ReservationRecord `yaml:"reservations" json:"reservations"`
}

type ReservationRecord struct {
	Name   *string `yaml:"name" json:"name"`
	Date   *int64  `yaml:"date" json:"date"`
	Kind   *string `yaml:"kind" json:"kind"`
	Member *int64  `yaml:"member" json:"member"`
}

func ptr[T any](v T) *T { return &v }

func (e *Entry) Record() Record {
	rec := Record{
		Name:         ptr(e.Name),
		URL:          ptr(e.URL),
		Type:         ptr(e.Type.Key()),
		Status:       ptr(e.status.Key()),
		LastUpdate:   ptr(e.LastUpdate.Unix()),
		Author:       ptr(e.AuthorName),
		Modified:     ptr(e.Modified),
		Tags:         slices.Clone(e.Tags),
		Reservations: make([]ReservationRecord, 0, len(e.reservations)),
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	for _, r := range e.reservations {
		rec.Reservations = append(rec.Reservations, ReservationRecord{
			Name:   ptr(r.ClaimantName),
			Date:   ptr(r.ClaimedAt.Unix()),
			Kind:   ptr(r.Kind.Key()),
			Member: ptr(r.ClaimantKey),
		})
	}
	return rec
}

func missing(field string) error {
	return &RecordError{Field: field, Err: ErrMissingField}
}

func malformed(field string, err error) error {
	return &RecordError{Field: field, Err: fmt.Errorf("%w: %w", ErrMalformedField, err)}
}

// EntryFromRecord rebuilds an entry. Every missing or malformed field is
// reported as its own *RecordError, joined together.
func EntryFromRecord(rec Record) (*Entry, error) {
	var errs []error
	e := &Entry{}

	if rec.Name == nil {
		errs = append(errs, missing("name"))
	} else {
		e.Name = *rec.Name
	}

	if rec.URL == nil {
		errs = append(errs, missing("url"))
	} else if id, ok := ExtractID(*rec.URL); !ok {
		errs = append(errs, malformed("url", fmt.Errorf("%w: %q", ErrMalformedURL, *rec.URL)))
	} else {
		e.ID = id
		e.URL = *rec.URL
	}

	if rec.Type == nil {
		errs = append(errs, missing("type"))
	} else if t, err := ParseType(*rec.Type); err != nil {
		errs = append(errs, malformed("type", err))
	} else {
		e.Type = t
	}

	var status Status
	if rec.Status == nil {
		errs = append(errs, missing("status"))
	} else if s, err := ParseStatus(*rec.Status); err != nil {
		errs = append(errs, malformed("status", err))
	} else {
		status = s
	}

	if rec.LastUpdate == nil {
		errs = append(errs, missing("lastUpdate"))
	} else {
		e.LastUpdate = time.Unix(*rec.LastUpdate, 0)
	}

	if rec.Author == nil {
		errs = append(errs, missing("author"))
	} else {
		e.AuthorName = *rec.Author
	}

	if rec.Modified == nil {
		errs = append(errs, missing("modified"))
	} else {
		e.Modified = *rec.Modified
	}

	e.Tags = slices.Clone(rec.Tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}

	for i, rr := range rec.Reservations {
		r, rerrs := reservationFromRecord(i, rr)
		if len(rerrs) > 0 {
			errs = append(errs, rerrs...)
			continue
		}
		e.reservations = append(e.reservations, r)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	e.setStatus(status)
	return e, nil
}

func reservationFromRecord(i int, rr ReservationRecord) (Reservation, []error) {
	field := func(name string) string { return fmt.Sprintf("reservations[%d].%s", i, name) }

	var errs []error
	var r Reservation

	if rr.Name == nil {
		errs = append(errs, missing(field("name")))
	} else {
		r.ClaimantName = *rr.Name
	}
	if rr.Date == nil {
		errs = append(errs, missing(field("date")))
	} else {
		r.ClaimedAt = time.Unix(*rr.Date, 0)
	}
	if rr.Kind == nil {
		errs = append(errs, missing(field("kind")))
	} else if k, err := ParseReservationKind(*rr.Kind); err != nil {
		errs = append(errs, malformed(field("kind"), err))
	} else {
		r.Kind = k
	}
	if rr.Member == nil {
		errs = append(errs, missing(field("member")))
	} else {
		r.ClaimantKey = *rr.Member
	}

	return r, errs
}
