package catalog

import (
	"slices"
	"strings"
	"time"
)

// Criteria is a resolved query. Empty dimensions do not restrict.
type Criteria struct {
	Text           string
	Statuses       []Status
	Types          []Type
	Authors        []string
	Tags           []string
	TagsRequireAll bool
	Before         *time.Time
	After          *time.Time
}

// TextSearcher returns the ids of entries whose name matches text.
type TextSearcher interface {
	Search(entries map[int64]*Entry, text string) []int64
}

// Search filters the catalog with c and returns matches oldest first.
// Without free text every entry is a candidate.
func Search(entries map[int64]*Entry, searcher TextSearcher, c Criteria) []*Entry {
	var candidates []*Entry
	if strings.TrimSpace(c.Text) == "" {
		candidates = make([]*Entry, 0, len(entries))
		for _, e := range entries {
			candidates = append(candidates, e)
		}
	} else {
		for _, id := range searcher.Search(entries, c.Text) {
			if e, ok := entries[id]; ok {
				candidates = append(candidates, e)
			}
		}
	}

	result := candidates[:0]
	for _, e := range candidates {
		if c.Matches(e) {
			result = append(result, e)
		}
	}

	SortOldestFirst(result)
	return result
}

// Matches applies every filter dimension except free text.
func (c Criteria) Matches(e *Entry) bool {
	if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, e.status) {
		return false
	}
	if len(c.Types) > 0 && !slices.Contains(c.Types, e.Type) {
		return false
	}
	if len(c.Authors) > 0 && !slices.Contains(c.Authors, e.AuthorName) {
		return false
	}
	if !c.matchesTags(e) {
		return false
	}
	if c.Before != nil && !e.LastUpdate.Before(*c.Before) {
		return false
	}
	if c.After != nil && !e.LastUpdate.After(*c.After) {
		return false
	}
	return true
}

func (c Criteria) matchesTags(e *Entry) bool {
	if len(c.Tags) == 0 {
		return true
	}
	for _, tag := range c.Tags {
		has := e.HasTag(tag)
		if c.TagsRequireAll && !has {
			return false
		}
		if !c.TagsRequireAll && has {
			return true
		}
	}
	return c.TagsRequireAll
}

// SortOldestFirst orders by LastUpdate, then by id.
func SortOldestFirst(entries []*Entry) {
	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := a.LastUpdate.Compare(b.LastUpdate); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// DistinctAuthors lists each author name once, sorted.
func DistinctAuthors(entries map[int64]*Entry) []string {
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.AuthorName != "" {
			seen[e.AuthorName] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// ResolveAuthors maps each criterion to the single catalog author whose
// name contains all of its words. Every criterion that matches zero or
// several authors is reported in one *QueryError.
func ResolveAuthors(entries map[int64]*Entry, criteria []string) ([]string, error) {
	authors := DistinctAuthors(entries)
	qe := &QueryError{}
	var resolved []string

	for _, criterion := range criteria {
		if strings.TrimSpace(criterion) == "" {
			continue
		}
		var matches []string
		for _, a := range authors {
			if MatchWords(criterion, a) {
				matches = append(matches, a)
			}
		}
		switch len(matches) {
		case 0:
			qe.add("author", criterion, "no matching author")
		case 1:
			if !slices.Contains(resolved, matches[0]) {
				resolved = append(resolved, matches[0])
			}
		default:
			qe.add("author", criterion, "ambiguous author", matches...)
		}
	}

	if err := qe.orNil(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// RawQuery is a query as typed by a user.
type RawQuery struct {
	Text           string
	Statuses       []string
	Types          []string
	Authors        []string
	Tags           []string
	TagsRequireAll bool
	Before         string
	After          string
}

func (q RawQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" &&
		nonBlank(q.Statuses) == 0 && nonBlank(q.Types) == 0 &&
		nonBlank(q.Authors) == 0 && nonBlank(q.Tags) == 0 &&
		strings.TrimSpace(q.Before) == "" && strings.TrimSpace(q.After) == ""
}

func nonBlank(values []string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

var dateLayouts = []string{"02/01/2006", "2006-01-02", time.RFC3339}

func ParseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseQuery validates q against the catalog. A query with no criteria at
// all is rejected; otherwise every unknown name, unresolvable author and bad
// date is collected into one *QueryError.
func ParseQuery(entries map[int64]*Entry, q RawQuery) (Criteria, error) {
	if q.IsEmpty() {
		return Criteria{}, ErrEmptyQuery
	}

	c := Criteria{Text: strings.TrimSpace(q.Text), TagsRequireAll: q.TagsRequireAll}
	qe := &QueryError{}

	for _, token := range q.Statuses {
		if strings.TrimSpace(token) == "" {
			continue
		}
		s, err := ParseStatus(token)
		if err != nil {
			qe.add("status", token, "unknown status")
			continue
		}
		c.Statuses = append(c.Statuses, s)
	}

	for _, token := range q.Types {
		if strings.TrimSpace(token) == "" {
			continue
		}
		t, err := ParseType(token)
		if err != nil {
			qe.add("type", token, "unknown type")
			continue
		}
		c.Types = append(c.Types, t)
	}

	for _, tag := range q.Tags {
		if tag = Basicize(tag); tag != "" {
			c.Tags = append(c.Tags, tag)
		}
	}

	if q.Before != "" {
		if t, ok := ParseDate(q.Before); ok {
			c.Before = &t
		} else {
			qe.add("before", q.Before, "unrecognized date")
		}
	}
	if q.After != "" {
		if t, ok := ParseDate(q.After); ok {
			c.After = &t
		} else {
			qe.add("after", q.After, "unrecognized date")
		}
	}

	authors, err := ResolveAuthors(entries, q.Authors)
	if aerr, ok := err.(*QueryError); ok {
		qe.Problems = append(qe.Problems, aerr.Problems...)
	}
	c.Authors = authors

	if err := qe.orNil(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}
