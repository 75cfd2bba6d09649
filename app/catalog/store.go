package catalog

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultUndoDepth = 50

// Store owns the catalog. Every read and write happens inside Do, which
// holds one exclusive lock for the whole logical operation.
type Store struct {
	mu           sync.Mutex
	entries      map[int64]*Entry
	lastIngested time.Time
	removed      map[int64]struct{}
	history      []archived
	undoDepth    int
}

type archived struct {
	id      string
	at      time.Time
	entries map[int64]*Entry // nil value: the id did not exist
}

func NewStore(undoDepth int) *Store {
	if undoDepth <= 0 {
		undoDepth = DefaultUndoDepth
	}
	return &Store{
		entries:   make(map[int64]*Entry),
		removed:   make(map[int64]struct{}),
		undoDepth: undoDepth,
	}
}

// Load replaces the catalog content. Loaded entries keep their modified
// flag and the undo history is reset.
func (s *Store) Load(entries []*Entry, lastIngested time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[int64]*Entry, len(entries))
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	s.lastIngested = lastIngested
	s.removed = make(map[int64]struct{})
	s.history = nil
}

// Do runs fn under the catalog lock. When fn fails, archives it pushed are
// dropped again.
func (s *Store) Do(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s}
	if err := fn(tx); err != nil {
		if tx.archived > 0 {
			s.history = s.history[:max(0, len(s.history)-tx.archived)]
		}
		return err
	}
	return nil
}

// Changes is what a persistence pass has to write.
type Changes struct {
	Upserts      []*Entry
	Deletes      []int64
	LastIngested time.Time
}

func (c Changes) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0
}

// TakeChanges copies modified entries, collects removals and clears both
// markers. Pass the result to RestoreChanges if saving fails.
func (s *Store) TakeChanges() Changes {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Changes{LastIngested: s.lastIngested}
	for _, e := range s.entries {
		if e.Modified {
			saved := e.Clone()
			saved.Modified = false
			c.Upserts = append(c.Upserts, saved)
			e.Modified = false
		}
	}
	for id := range s.removed {
		c.Deletes = append(c.Deletes, id)
	}
	s.removed = make(map[int64]struct{})

	SortOldestFirst(c.Upserts)
	return c
}

func (s *Store) RestoreChanges(c Changes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, saved := range c.Upserts {
		if e, ok := s.entries[saved.ID]; ok {
			e.Modified = true
		}
	}
	for _, id := range c.Deletes {
		if _, ok := s.entries[id]; !ok {
			s.removed[id] = struct{}{}
		}
	}
}

// Tx is the view of the catalog handed to Store.Do. It must not be kept
// after fn returns.
type Tx struct {
	s        *Store
	archived int
}

// Entries exposes the live catalog map for reading.
func (tx *Tx) Entries() map[int64]*Entry {
	return tx.s.entries
}

func (tx *Tx) Len() int {
	return len(tx.s.entries)
}

func (tx *Tx) Get(id int64) (*Entry, bool) {
	e, ok := tx.s.entries[id]
	return e, ok
}

// MustGet is Get returning ErrNotFound.
func (tx *Tx) MustGet(id int64) (*Entry, error) {
	e, ok := tx.s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, nil
}

func (tx *Tx) Insert(e *Entry) error {
	if _, ok := tx.s.entries[e.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicate, e.ID)
	}
	e.Modified = true
	tx.s.entries[e.ID] = e
	delete(tx.s.removed, e.ID)
	return nil
}

func (tx *Tx) Remove(id int64) bool {
	if _, ok := tx.s.entries[id]; !ok {
		return false
	}
	delete(tx.s.entries, id)
	tx.s.removed[id] = struct{}{}
	return true
}

func (tx *Tx) LastIngested() time.Time {
	return tx.s.lastIngested
}

// AdvanceWatermark moves lastIngested forward to t. It never moves it back.
func (tx *Tx) AdvanceWatermark(t time.Time) bool {
	if !t.After(tx.s.lastIngested) {
		return false
	}
	tx.s.lastIngested = t
	return true
}

// Archive snapshots the given ids so Undo can restore them. Ids absent from
// the catalog are recorded as absent.
func (tx *Tx) Archive(ids ...int64) string {
	a := archived{
		id:      uuid.NewString(),
		at:      time.Now(),
		entries: make(map[int64]*Entry, len(ids)),
	}
	for _, id := range ids {
		if e, ok := tx.s.entries[id]; ok {
			a.entries[id] = e.Clone()
		} else {
			a.entries[id] = nil
		}
	}

	tx.s.history = append(tx.s.history, a)
	if over := len(tx.s.history) - tx.s.undoDepth; over > 0 {
		tx.s.history = tx.s.history[over:]
	}
	tx.archived++
	return a.id
}

// Undo restores the most recent archive and returns the ids it touched.
func (tx *Tx) Undo() ([]int64, error) {
	h := tx.s.history
	if len(h) == 0 {
		return nil, ErrNothingToUndo
	}
	last := h[len(h)-1]
	tx.s.history = h[:len(h)-1]

	ids := make([]int64, 0, len(last.entries))
	for id, saved := range last.entries {
		if saved == nil {
			tx.Remove(id)
		} else {
			restored := saved.Clone()
			restored.Modified = true
			tx.s.entries[id] = restored
			delete(tx.s.removed, id)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// UndoDepth reports how many archives are available.
func (tx *Tx) UndoDepth() int {
	return len(tx.s.history)
}
