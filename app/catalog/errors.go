package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedURL         = errors.New("url does not contain a thread identifier")
	ErrUnknownStatus        = errors.New("unknown status")
	ErrUnknownType          = errors.New("unknown type")
	ErrUnknownKind          = errors.New("unknown reservation kind")
	ErrUnknownAction        = errors.New("unknown action")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	ErrNotFound             = errors.New("entry not found")
	ErrDuplicate            = errors.New("entry already exists")
	ErrAmbiguous            = errors.New("criterion matches several entries")
	ErrEmptyQuery           = errors.New("query has no criteria")
	ErrNothingToUndo        = errors.New("nothing to undo")
	ErrMissingField         = errors.New("missing field")
	ErrMalformedField       = errors.New("malformed field")
)

// QueryProblem is one offending token of a query.
type QueryProblem struct {
	Field   string
	Token   string
	Reason  string
	Matches []string
}

func (p QueryProblem) String() string {
	s := fmt.Sprintf("%s %q: %s", p.Field, p.Token, p.Reason)
	if len(p.Matches) > 0 {
		s += " (" + strings.Join(p.Matches, ", ") + ")"
	}
	return s
}

// QueryError collects every problem found while parsing a query, so the
// caller can report them together.
type QueryError struct {
	Problems []QueryProblem
}

func (e *QueryError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "invalid query: " + strings.Join(parts, "; ")
}

func (e *QueryError) add(field, token, reason string, matches ...string) {
	e.Problems = append(e.Problems, QueryProblem{Field: field, Token: token, Reason: reason, Matches: matches})
}

func (e *QueryError) orNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// RecordError reports a single missing or malformed field of a persisted
// record.
type RecordError struct {
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record field %q: %v", e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
