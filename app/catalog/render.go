package catalog

import (
	"fmt"
	"slices"
	"time"
)

// Summary is the one-line form used in result lists.
func (e *Entry) Summary() string {
	return fmt.Sprintf("%s (%s) by %s [%s, %s]", e.Name, e.URL, e.AuthorName, e.status, e.Type)
}

type ReservationView struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	KindLabel string    `json:"kind_label"`
	ClaimedAt time.Time `json:"claimed_at"`
	Proxy     bool      `json:"proxy"`
}

type EntryView struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Author       string            `json:"author"`
	Status       string            `json:"status"`
	StatusLabel  string            `json:"status_label"`
	Type         string            `json:"type"`
	TypeLabel    string            `json:"type_label"`
	Color        string            `json:"color"`
	LastUpdate   time.Time         `json:"last_update"`
	Summary      string            `json:"summary"`
	Tags         []string          `json:"tags,omitempty"`
	Reservations []ReservationView `json:"reservations,omitempty"`
	Actions      []string          `json:"actions,omitempty"`
}

// SummaryView carries the fields of the one-line form.
func (e *Entry) SummaryView() EntryView {
	return EntryView{
		ID:          e.ID,
		Name:        e.Name,
		URL:         e.URL,
		Author:      e.AuthorName,
		Status:      e.status.Key(),
		StatusLabel: e.status.String(),
		Type:        e.Type.Key(),
		TypeLabel:   e.Type.String(),
		Color:       fmt.Sprintf("#%06X", e.Type.Color()),
		LastUpdate:  e.LastUpdate,
		Summary:     e.Summary(),
	}
}

// DetailView adds tags when present, the reservation list while claimed
// and the available actions.
func (e *Entry) DetailView() EntryView {
	v := e.SummaryView()
	if len(e.Tags) > 0 {
		v.Tags = slices.Clone(e.Tags)
	}
	if e.status == StatusOpenClaimed {
		for _, r := range e.reservations {
			v.Reservations = append(v.Reservations, ReservationView{
				Name:      r.ClaimantName,
				Kind:      r.Kind.Key(),
				KindLabel: r.Kind.String(),
				ClaimedAt: r.ClaimedAt,
				Proxy:     r.ClaimantKey == ProxyClaimant,
			})
		}
	}
	for _, a := range AvailableActions(e.status, e.Type) {
		v.Actions = append(v.Actions, a.String())
	}
	return v
}

func SummaryViews(entries []*Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.SummaryView())
	}
	return out
}
