package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ProxyClaimant is the claimant key of reservations made on behalf of
// someone else. It never matches a release by identity.
const ProxyClaimant int64 = 0

type Reservation struct {
	ClaimantName string
	ClaimedAt    time.Time
	Kind         ReservationKind
	ClaimantKey  int64
}

// Entry is one tracked work. Status and reservations are only changed
// through methods so that OpenClaimed always means "has reservations".
type Entry struct {
	ID         int64
	Name       string
	AuthorName string
	URL        string
	Type       Type
	LastUpdate time.Time
	Tags       []string
	Modified   bool

	status       Status
	reservations []Reservation
}

// NewEntry builds an entry whose ID is taken from url. A url without a
// thread identifier is rejected.
func NewEntry(name, url, author string, typ Type, status Status, now time.Time) (*Entry, error) {
	id, ok := ExtractID(url)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedURL, url)
	}

	e := &Entry{
		ID:         id,
		Name:       strings.TrimSpace(name),
		AuthorName: strings.TrimSpace(author),
		URL:        strings.TrimSpace(url),
		Type:       typ,
		LastUpdate: now,
		Tags:       []string{},
		Modified:   true,
	}
	e.setStatus(status)

	return e, nil
}

func (e *Entry) Status() Status {
	return e.status
}

// Reservations returns a copy of the active claims in claim order.
func (e *Entry) Reservations() []Reservation {
	return slices.Clone(e.reservations)
}

func (e *Entry) HasTag(tag string) bool {
	want := Basicize(tag)
	for _, t := range e.Tags {
		if Basicize(t) == want {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Tags = slices.Clone(e.Tags)
	c.reservations = slices.Clone(e.reservations)
	return &c
}

// setStatus applies s while keeping the reservation coupling: leaving the
// open states drops every claim, and Open/OpenClaimed are picked from
// whether claims remain.
func (e *Entry) setStatus(s Status) {
	if !s.IsOpen() {
		e.reservations = nil
		e.status = s
		return
	}
	if len(e.reservations) > 0 {
		e.status = StatusOpenClaimed
	} else {
		e.status = StatusOpen
	}
}

func (e *Entry) touch(now time.Time) {
	e.LastUpdate = now
	e.Modified = true
}

func (e *Entry) claim(r Reservation) {
	if r.ClaimantKey != ProxyClaimant {
		e.removeReservations(func(x Reservation) bool { return x.ClaimantKey == r.ClaimantKey })
	}
	e.removeReservations(func(x Reservation) bool { return sameClaimantName(x.ClaimantName, r.ClaimantName) })

	e.reservations = append(e.reservations, r)
	e.setStatus(StatusOpenClaimed)
}

func (e *Entry) releaseKey(key int64) bool {
	if key == ProxyClaimant {
		return false
	}
	return e.release(func(x Reservation) bool { return x.ClaimantKey == key })
}

func (e *Entry) releaseName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	return e.release(func(x Reservation) bool { return sameClaimantName(x.ClaimantName, name) })
}

func (e *Entry) release(match func(Reservation) bool) bool {
	if !e.removeReservations(match) {
		return false
	}
	e.setStatus(StatusOpen)
	return true
}

func (e *Entry) removeReservations(match func(Reservation) bool) bool {
	before := len(e.reservations)
	e.reservations = slices.DeleteFunc(e.reservations, match)
	return len(e.reservations) != before
}

func sameClaimantName(a, b string) bool {
	return Basicize(a) == Basicize(b)
}
