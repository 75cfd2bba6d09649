package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Action int

const (
	ActionClaim Action = iota
	ActionCritique
	ActionReject
	ActionRelease
	ActionReopen
	ActionPublish
	ActionAccept
)

var actionKeys = [...]string{
	ActionClaim:    "claim",
	ActionCritique: "critique",
	ActionReject:   "reject",
	ActionRelease:  "release",
	ActionReopen:   "reopen",
	ActionPublish:  "publish",
	ActionAccept:   "accept",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionKeys) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionKeys[a]
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func ParseAction(text string) (Action, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if key == "up" {
		return ActionReopen, nil
	}
	for i, k := range actionKeys {
		if k == key {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, text)
}

func canReopen(s Status) bool {
	switch s {
	case StatusViolation, StatusNoResponse, StatusPendingReview, StatusPaused, StatusUnknown:
		return true
	}
	return false
}

func canReject(s Status, t Type) bool {
	if t != TypeReport && t != TypeIdea {
		return false
	}
	return s != StatusRejected && s != StatusPublished && s != StatusAccepted
}

// AvailableActions lists the controls offered for an entry in the given
// state, in display order. Accept is a manage-level command and is never
// offered as a control. An empty result means no action applies.
func AvailableActions(s Status, t Type) []Action {
	var actions []Action
	if s.IsOpen() {
		actions = append(actions, ActionClaim, ActionCritique)
	}
	if canReopen(s) {
		actions = append(actions, ActionReopen)
	}
	if canReject(s, t) {
		actions = append(actions, ActionReject)
	}
	if s.IsOpen() {
		actions = append(actions, ActionRelease)
	}
	if s == StatusAccepted {
		actions = append(actions, ActionPublish)
	}
	return actions
}

// NextState is the transition table. Release leaves the status as is: the
// reservation ledger decides between Open and OpenClaimed.
func NextState(s Status, t Type, a Action) (Status, Type, error) {
	deny := func() (Status, Type, error) {
		return s, t, fmt.Errorf("%w: cannot %s a %s in status %s", ErrTransitionNotAllowed, a, t, s)
	}

	switch a {
	case ActionClaim:
		if !s.IsOpen() {
			return deny()
		}
		return StatusOpenClaimed, t, nil
	case ActionRelease:
		if !s.IsOpen() {
			return deny()
		}
		return s, t, nil
	case ActionCritique:
		if !s.IsOpen() {
			return deny()
		}
		return StatusPendingReview, t, nil
	case ActionReject:
		if !canReject(s, t) {
			return deny()
		}
		return StatusRejected, t, nil
	case ActionReopen:
		if !canReopen(s) {
			return deny()
		}
		return StatusOpen, t, nil
	case ActionAccept:
		if t == TypeIdea {
			return StatusPendingReview, TypeReport, nil
		}
		return StatusAccepted, t, nil
	case ActionPublish:
		if s != StatusAccepted {
			return deny()
		}
		return StatusPublished, t, nil
	}
	return s, t, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
}

// Controller applies transitions and editorial edits to entries. It does
// no locking: callers run it inside Store.Do.
type Controller struct {
	now func() time.Time
}

func NewController(now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{now: now}
}

func (c *Controller) Now() time.Time {
	return c.now()
}

func (c *Controller) transition(e *Entry, a Action) error {
	s, t, err := NextState(e.status, e.Type, a)
	if err != nil {
		return err
	}
	e.Type = t
	e.setStatus(s)
	e.touch(c.now())
	return nil
}

// Claim records a reservation for claimantKey. A repeated claim by the same
// key or name replaces the previous one.
func (c *Controller) Claim(e *Entry, claimantKey int64, claimantName string, kind ReservationKind) error {
	if _, _, err := NextState(e.status, e.Type, ActionClaim); err != nil {
		return err
	}
	now := c.now()
	e.claim(Reservation{
		ClaimantName: strings.TrimSpace(claimantName),
		ClaimedAt:    now,
		Kind:         kind,
		ClaimantKey:  claimantKey,
	})
	e.touch(now)
	return nil
}

// ReleaseByKey drops the reservation held by key. It reports false when
// there was none; the proxy key never matches.
func (c *Controller) ReleaseByKey(e *Entry, key int64) (bool, error) {
	if _, _, err := NextState(e.status, e.Type, ActionRelease); err != nil {
		return false, err
	}
	if !e.releaseKey(key) {
		return false, nil
	}
	e.touch(c.now())
	return true, nil
}

func (c *Controller) ReleaseByName(e *Entry, name string) (bool, error) {
	if _, _, err := NextState(e.status, e.Type, ActionRelease); err != nil {
		return false, err
	}
	if !e.releaseName(name) {
		return false, nil
	}
	e.touch(c.now())
	return true, nil
}

// Critique clears every reservation and moves the entry to PendingReview.
func (c *Controller) Critique(e *Entry) error {
	return c.transition(e, ActionCritique)
}

func (c *Controller) Reject(e *Entry) error {
	return c.transition(e, ActionReject)
}

func (c *Controller) Reopen(e *Entry) error {
	return c.transition(e, ActionReopen)
}

// Accept promotes an Idea to a Report awaiting review; any other type
// becomes Accepted.
func (c *Controller) Accept(e *Entry) error {
	return c.transition(e, ActionAccept)
}

func (c *Controller) Publish(e *Entry) error {
	return c.transition(e, ActionPublish)
}

// Apply runs a control action on behalf of actorKey. Claims carry a kind
// and go through Claim instead. The boolean is false only for a release
// that found no reservation.
func (c *Controller) Apply(e *Entry, a Action, actorKey int64) (bool, error) {
	switch a {
	case ActionCritique:
		return true, c.Critique(e)
	case ActionReject:
		return true, c.Reject(e)
	case ActionReopen:
		return true, c.Reopen(e)
	case ActionPublish:
		return true, c.Publish(e)
	case ActionAccept:
		return true, c.Accept(e)
	case ActionRelease:
		return c.ReleaseByKey(e, actorKey)
	}
	return false, fmt.Errorf("%w: %s needs a reservation kind", ErrUnknownAction, a)
}

// MarkNoResponse moves an open entry untouched since before cutoff to
// NoResponse. It reports whether the entry changed.
func (c *Controller) MarkNoResponse(e *Entry, cutoff time.Time) bool {
	if !e.status.IsOpen() || !e.LastUpdate.Before(cutoff) {
		return false
	}
	e.setStatus(StatusNoResponse)
	e.touch(c.now())
	return true
}

// SetStatus is the unconditional editorial override. Leaving the open
// states drops reservations; OpenClaimed without reservations stays Open.
func (c *Controller) SetStatus(e *Entry, s Status) {
	changed := e.status != s
	e.setStatus(s)
	if changed {
		e.touch(c.now())
		return
	}
	e.Modified = true
}

func (c *Controller) SetType(e *Entry, t Type) {
	e.Type = t
	e.Modified = true
}

func (c *Controller) SetAuthor(e *Entry, author string) {
	e.AuthorName = strings.TrimSpace(author)
	e.Modified = true
}

func (c *Controller) SetName(e *Entry, name string) {
	e.Name = strings.TrimSpace(name)
	e.Modified = true
}

// AddTag appends the normalized tag unless the entry already carries it.
func (c *Controller) AddTag(e *Entry, tag string) bool {
	tag = Basicize(tag)
	if tag == "" || e.HasTag(tag) {
		return false
	}
	e.Tags = append(e.Tags, tag)
	e.Modified = true
	return true
}

// RemoveTags drops every tag matched by the word criterion and returns the
// removed tags.
func (c *Controller) RemoveTags(e *Entry, criterion string) []string {
	if strings.TrimSpace(criterion) == "" {
		return nil
	}
	var removed []string
	e.Tags = slices.DeleteFunc(e.Tags, func(t string) bool {
		if MatchWords(criterion, t) {
			removed = append(removed, t)
			return true
		}
		return false
	})
	if len(removed) > 0 {
		e.Modified = true
	}
	return removed
}
