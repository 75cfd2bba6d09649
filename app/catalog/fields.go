package catalog

import (
	"fmt"
	"log/slog"
)

type Status int

const (
	StatusOpen Status = iota
	StatusOpenClaimed
	StatusPendingReview
	StatusAbandoned
	StatusPaused
	StatusNoResponse
	StatusUnknown
	StatusPublished
	StatusAccepted
	StatusRejected
	StatusViolation
)

type Type int

const (
	TypeStory Type = iota
	TypeIdea
	TypeReport
	TypeFormatProposal
	TypeOther
)

type ReservationKind int

const (
	KindExclusive ReservationKind = iota
	KindImmediate
	KindOpen
	KindSimple
	KindCollaborative
)

type enumName struct {
	key   string
	label string
}

var statusNames = [...]enumName{
	StatusOpen:          {"open", "Open"},
	StatusOpenClaimed:   {"open_claimed", "Open (claimed)"},
	StatusPendingReview: {"pending_review", "Pending review"},
	StatusAbandoned:     {"abandoned", "Abandoned"},
	StatusPaused:        {"paused", "Paused"},
	StatusNoResponse:    {"no_response", "No response"},
	StatusUnknown:       {"unknown", "Unknown"},
	StatusPublished:     {"published", "Published"},
	StatusAccepted:      {"accepted", "Accepted"},
	StatusRejected:      {"rejected", "Rejected"},
	StatusViolation:     {"violation", "Violation"},
}

var typeNames = [...]enumName{
	TypeStory:          {"story", "Story"},
	TypeIdea:           {"idea", "Idea"},
	TypeReport:         {"report", "Report"},
	TypeFormatProposal: {"format", "Format proposal"},
	TypeOther:          {"other", "Other"},
}

var typeColors = [...]int{
	TypeStory:          0x008000,
	TypeIdea:           0xDF7401,
	TypeReport:         0x01A9DB,
	TypeFormatProposal: 0xAE1FF1,
	TypeOther:          0xFFFFFF,
}

var kindNames = [...]enumName{
	KindExclusive:     {"exclusive", "⊙ Exclusive"},
	KindImmediate:     {"immediate", "⊟ Immediate"},
	KindOpen:          {"open", "⋄ Open"},
	KindSimple:        {"simple", "∙ Simple interest"},
	KindCollaborative: {"collab", "⋇ Collaboration wanted"},
}

// lookupName matches text against both the key and the label of every
// table entry after reducing all three with nameKey.
func lookupName(table []enumName, text string) (int, bool) {
	want := nameKey(text)
	if want == "" {
		return 0, false
	}
	for i, n := range table {
		if nameKey(n.key) == want || nameKey(n.label) == want {
			return i, true
		}
	}
	return 0, false
}

func AllStatuses() []Status {
	out := make([]Status, len(statusNames))
	for i := range statusNames {
		out[i] = Status(i)
	}
	return out
}

func (s Status) valid() bool { return s >= 0 && int(s) < len(statusNames) }

func (s Status) String() string {
	if !s.valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s].label
}

// Key is the stable serialized name.
func (s Status) Key() string {
	if !s.valid() {
		return ""
	}
	return statusNames[s].key
}

// IsOpen reports whether claims, releases and critiques apply.
func (s Status) IsOpen() bool {
	return s == StatusOpen || s == StatusOpenClaimed
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(s.Key()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseStatus(text string) (Status, error) {
	i, ok := lookupName(statusNames[:], text)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, text)
	}
	return Status(i), nil
}

// StatusFromText is the lenient conversion used for legacy and inbound
// text: unknown names become StatusUnknown.
func StatusFromText(text string) Status {
	s, err := ParseStatus(text)
	if err != nil {
		slog.Warn("Unrecognized status, using default", "value", text, "default", StatusUnknown.Key())
		return StatusUnknown
	}
	return s
}

func AllTypes() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

func (t Type) valid() bool { return t >= 0 && int(t) < len(typeNames) }

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t].label
}

func (t Type) Key() string {
	if !t.valid() {
		return ""
	}
	return typeNames[t].key
}

// Color is the RGB value used when presenting entries of this type.
func (t Type) Color() int {
	if !t.valid() {
		return typeColors[TypeOther]
	}
	return typeColors[t]
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.Key()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func ParseType(text string) (Type, error) {
	i, ok := lookupName(typeNames[:], text)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, text)
	}
	return Type(i), nil
}

// TypeFromText is the lenient conversion: unknown names become TypeOther.
func TypeFromText(text string) Type {
	t, err := ParseType(text)
	if err != nil {
		slog.Warn("Unrecognized type, using default", "value", text, "default", TypeOther.Key())
		return TypeOther
	}
	return t
}

func AllReservationKinds() []ReservationKind {
	out := make([]ReservationKind, len(kindNames))
	for i := range kindNames {
		out[i] = ReservationKind(i)
	}
	return out
}

func (k ReservationKind) valid() bool { return k >= 0 && int(k) < len(kindNames) }

func (k ReservationKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("ReservationKind(%d)", int(k))
	}
	return kindNames[k].label
}

func (k ReservationKind) Key() string {
	if !k.valid() {
		return ""
	}
	return kindNames[k].key
}

func (k ReservationKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.Key()), nil
}

func (k *ReservationKind) UnmarshalText(text []byte) error {
	v, err := ParseReservationKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func ParseReservationKind(text string) (ReservationKind, error) {
	i, ok := lookupName(kindNames[:], text)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, text)
	}
	return ReservationKind(i), nil
}
