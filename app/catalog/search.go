package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// WordSearcher matches names that contain every word of the text, ignoring
// case and diacritics.
type WordSearcher struct{}

var _ TextSearcher = WordSearcher{}

func (WordSearcher) Search(entries map[int64]*Entry, text string) []int64 {
	var ids []int64
	for id, e := range entries {
		if MatchWords(text, e.Name) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// FindUnique resolves criterion to a single entry. A numeric criterion or a
// thread link is looked up by id first. When several names match, the
// candidates are returned with ErrAmbiguous.
func FindUnique(entries map[int64]*Entry, searcher TextSearcher, criterion string) (*Entry, []*Entry, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, nil, ErrEmptyQuery
	}

	id, ok := ExtractID(criterion)
	if !ok {
		id, ok = parseNumericID(criterion)
	}
	if ok {
		if e, found := entries[id]; found {
			return e, nil, nil
		}
	}

	ids := searcher.Search(entries, criterion)
	switch len(ids) {
	case 0:
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, criterion)
	case 1:
		return entries[ids[0]], nil, nil
	}

	candidates := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := entries[id]; ok {
			if Basicize(e.Name) == Basicize(criterion) {
				return e, nil, nil
			}
			candidates = append(candidates, e)
		}
	}
	SortOldestFirst(candidates)
	return nil, candidates, fmt.Errorf("%w: %q", ErrAmbiguous, criterion)
}

func parseNumericID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	return id, err == nil && id > 0
}
