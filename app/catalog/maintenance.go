package catalog

import (
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

// CleanupCandidates lists entries that are done with: abandoned, published
// or rejected, plus NoResponse when strong is set.
func CleanupCandidates(entries map[int64]*Entry, strong bool) []int64 {
	var ids []int64
	for id, e := range entries {
		switch e.status {
		case StatusAbandoned, StatusPublished, StatusRejected:
			ids = append(ids, id)
		case StatusNoResponse:
			if strong {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// StaleCandidates lists open entries untouched since before cutoff.
func StaleCandidates(entries map[int64]*Entry, cutoff time.Time) []int64 {
	var ids []int64
	for id, e := range entries {
		if e.status.IsOpen() && e.LastUpdate.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts counts entries per tag, most used first.
func TagCounts(entries map[int64]*Entry) []TagCount {
	counts := make(map[string]int)
	for _, e := range entries {
		seen := make(map[string]bool, len(e.Tags))
		for _, t := range e.Tags {
			key := Basicize(t)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	return out
}

func openOfType(entries map[int64]*Entry, typ *Type) []*Entry {
	var out []*Entry
	for _, e := range entries {
		if !e.status.IsOpen() {
			continue
		}
		if typ != nil && e.Type != *typ {
			continue
		}
		out = append(out, e)
	}
	SortOldestFirst(out)
	return out
}

// RandomOpen picks an open entry, optionally of one type. It returns nil
// when none qualifies.
func RandomOpen(entries map[int64]*Entry, typ *Type, rnd *rand.Rand) *Entry {
	open := openOfType(entries, typ)
	if len(open) == 0 {
		return nil
	}
	if rnd == nil {
		return open[rand.IntN(len(open))]
	}
	return open[rnd.IntN(len(open))]
}

// OldestOpen returns the open entry with the oldest LastUpdate.
func OldestOpen(entries map[int64]*Entry, typ *Type) *Entry {
	open := openOfType(entries, typ)
	if len(open) == 0 {
		return nil
	}
	return open[0]
}

// EntriesByAuthor returns entries whose author equals name, ignoring case
// and diacritics.
func EntriesByAuthor(entries map[int64]*Entry, name string) []*Entry {
	want := Basicize(name)
	var out []*Entry
	for _, e := range entries {
		if Basicize(e.AuthorName) == want {
			out = append(out, e)
		}
	}
	SortOldestFirst(out)
	return out
}

// MarkStale archives then moves every open entry untouched since before
// cutoff to NoResponse, in one undoable step. It returns the changed ids.
func MarkStale(tx *Tx, c *Controller, cutoff time.Time) []int64 {
	ids := StaleCandidates(tx.Entries(), cutoff)
	if len(ids) == 0 {
		return nil
	}
	tx.Archive(ids...)
	for _, id := range ids {
		c.MarkNoResponse(tx.Entries()[id], cutoff)
	}
	return ids
}

// Cleanup archives then removes the CleanupCandidates, in one undoable step.
func Cleanup(tx *Tx, strong bool) []int64 {
	ids := CleanupCandidates(tx.Entries(), strong)
	if len(ids) == 0 {
		return nil
	}
	tx.Archive(ids...)
	for _, id := range ids {
		tx.Remove(id)
	}
	return ids
}
