package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) map[int64]*Entry {
	t.Helper()
	c := NewController(nil)

	mk := func(id int, name, author string, typ Type, status Status, age time.Duration, tags ...string) *Entry {
		e := newTestEntry(t, id, name, author, typ)
		c.SetStatus(e, status)
		e.LastUpdate = t0.Add(-age)
		for _, tag := range tags {
			c.AddTag(e, tag)
		}
		return e
	}

	entries := []*Entry{
		mk(1, "La porte rouge", "Alice Smith", TypeStory, StatusOpen, 3*time.Hour, "a", "b"),
		mk(2, "Porte bleue", "Alice Jones", TypeReport, StatusPendingReview, 1*time.Hour, "a", "c"),
		mk(3, "Idée de format", "Bob", TypeFormatProposal, StatusOpen, 5*time.Hour),
		mk(4, "Le rapport", "Bob", TypeReport, StatusRejected, 2*time.Hour, "b"),
	}

	out := make(map[int64]*Entry)
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}

func ids(entries []*Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSearchWholeCatalogOldestFirst(t *testing.T) {
	cat := testCatalog(t)
	got := Search(cat, WordSearcher{}, Criteria{})
	assert.Equal(t, []int64{3, 1, 4, 2}, ids(got))
}

func TestSearchConjunction(t *testing.T) {
	cat := testCatalog(t)
	before := t0.Add(-90 * time.Minute)

	tests := []struct {
		name     string
		criteria Criteria
		want     []int64
	}{
		{"text", Criteria{Text: "porte"}, []int64{1, 2}},
		{"text and status", Criteria{Text: "porte", Statuses: []Status{StatusOpen}}, []int64{1}},
		{"status set is a disjunction", Criteria{Statuses: []Status{StatusOpen, StatusRejected}}, []int64{3, 1, 4}},
		{"types", Criteria{Types: []Type{TypeReport}}, []int64{4, 2}},
		{"author", Criteria{Authors: []string{"Bob"}}, []int64{3, 4}},
		{"before", Criteria{Before: &before}, []int64{3, 1, 4}},
		{"after", Criteria{After: &before}, []int64{2}},
		{"type and author", Criteria{Types: []Type{TypeReport}, Authors: []string{"Bob"}}, []int64{4}},
		{"no match", Criteria{Text: "porte", Types: []Type{TypeIdea}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Search(cat, WordSearcher{}, tt.criteria)))
		})
	}
}

func TestSearchTagsAndOr(t *testing.T) {
	cat := map[int64]*Entry{}
	e := newTestEntry(t, 1, "E", "A", TypeStory)
	e.Tags = []string{"a", "b"}
	cat[e.ID] = e

	all := Criteria{Tags: []string{"a", "c"}, TagsRequireAll: true}
	anyOf := Criteria{Tags: []string{"a", "c"}}

	assert.Empty(t, Search(cat, WordSearcher{}, all))
	assert.Len(t, Search(cat, WordSearcher{}, anyOf), 1)
}

func TestResolveAuthors(t *testing.T) {
	cat := testCatalog(t)

	got, err := ResolveAuthors(cat, []string{"jones", "bob", "JONES"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Jones", "Bob"}, got)

	_, err = ResolveAuthors(cat, []string{"Alice", "Zed", "bob"})
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	require.Len(t, qe.Problems, 2)
	assert.Equal(t, "Alice", qe.Problems[0].Token)
	assert.Equal(t, "ambiguous author", qe.Problems[0].Reason)
	assert.Equal(t, []string{"Alice Jones", "Alice Smith"}, qe.Problems[0].Matches)
	assert.Equal(t, "Zed", qe.Problems[1].Token)
	assert.Contains(t, err.Error(), `"Alice"`)
}

func TestParseQuery(t *testing.T) {
	cat := testCatalog(t)

	_, err := ParseQuery(cat, RawQuery{Statuses: []string{" "}})
	require.ErrorIs(t, err, ErrEmptyQuery)

	c, err := ParseQuery(cat, RawQuery{
		Text:     "porte",
		Statuses: []string{"open", "Pending review"},
		Types:    []string{"report"},
		Authors:  []string{"smith"},
		Tags:     []string{"Humour"},
		Before:   "31/12/2030",
		After:    "2020-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusOpen, StatusPendingReview}, c.Statuses)
	assert.Equal(t, []Type{TypeReport}, c.Types)
	assert.Equal(t, []string{"Alice Smith"}, c.Authors)
	assert.Equal(t, []string{"humour"}, c.Tags)
	require.NotNil(t, c.Before)
	require.NotNil(t, c.After)
	assert.Equal(t, 2030, c.Before.Year())
}

func TestParseQueryCollectsEveryProblem(t *testing.T) {
	cat := testCatalog(t)

	_, err := ParseQuery(cat, RawQuery{
		Statuses: []string{"open", "frozen"},
		Types:    []string{"poem"},
		Authors:  []string{"alice"},
		Before:   "tomorrow",
	})

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	fields := make([]string, 0, len(qe.Problems))
	for _, p := range qe.Problems {
		fields = append(fields, p.Field)
	}
	assert.Equal(t, []string{"status", "type", "before", "author"}, fields)
}

func TestFindUnique(t *testing.T) {
	cat := testCatalog(t)

	e, _, err := FindUnique(cat, WordSearcher{}, "rouge")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)

	e, _, err = FindUnique(cat, WordSearcher{}, "http://forum.example.org/forum/t-3/")
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.ID)

	e, _, err = FindUnique(cat, WordSearcher{}, "#4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), e.ID)

	_, candidates, err := FindUnique(cat, WordSearcher{}, "porte")
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.Equal(t, []int64{1, 2}, ids(candidates))

	_, _, err = FindUnique(cat, WordSearcher{}, "nothing like this")
	require.ErrorIs(t, err, ErrNotFound)
}
