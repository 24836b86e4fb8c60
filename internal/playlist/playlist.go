package playlist

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var (
	ErrNoSuchSong  = errors.New("no such song")
	ErrNoCurrent   = errors.New("no current song")
	ErrBadPosition = errors.New("bad song index")
)

// Entry is a single enqueued catalog item
type Entry struct {
	ID     int    // queue id, never reused
	ItemID string // catalog item id
}

// PositionKind selects how an insert position is interpreted
type PositionKind int

const (
	Absolute PositionKind = iota
	After                 // "+n": n entries after the current one
	Before                // "-n": n entries before the current one
)

// Position is the target of an insert
type Position struct {
	Kind PositionKind
	N    int
}

// ParsePosition parses "n", "+n" or "-n"
func ParsePosition(s string) (Position, error) {
	kind := Absolute
	digits := s
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		if s[0] == '+' {
			kind = After
		} else {
			kind = Before
		}
		digits = s[1:]
	}

	n, err := strconv.ParseUint(digits, 10, 31)
	if err != nil {
		return Position{}, fmt.Errorf("invalid position %q", s)
	}
	return Position{Kind: kind, N: int(n)}, nil
}

// Queue is the play queue. Entries are addressed by dense position or by
// queue id; the id index is kept in sync so lookups by id are O(1).
type Queue struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[int]int // queue id -> position
	current int         // -1 when unset
	nextID  int
	version uint32
}

// NewQueue creates an empty queue at version 1
func NewQueue() *Queue {
	return &Queue{
		index:   make(map[int]int),
		current: -1,
		version: 1,
	}
}

// Add inserts an item and returns its queue id. A nil position appends.
//
// After(n) inserts n entries past the current one ("+0" is directly after
// it) and Before(n) inserts n entries before it ("-0" is directly before
// it). Both fail with ErrNoCurrent when nothing is current.
func (q *Queue) Add(itemID string, pos *Position) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	at := len(q.entries)
	if pos != nil {
		var err error
		if at, err = q.resolve(*pos); err != nil {
			return 0, err
		}
	}

	entry := Entry{ID: q.nextID, ItemID: itemID}
	q.nextID++

	q.entries = append(q.entries, Entry{})
	copy(q.entries[at+1:], q.entries[at:])
	q.entries[at] = entry
	q.reindex(at)

	if q.current >= at {
		q.current++
	}
	q.version++

	return entry.ID, nil
}

func (q *Queue) resolve(pos Position) (int, error) {
	var at int
	switch pos.Kind {
	case Absolute:
		at = pos.N
	case After:
		if q.current < 0 {
			return 0, ErrNoCurrent
		}
		at = q.current + 1 + pos.N
	case Before:
		if q.current < 0 {
			return 0, ErrNoCurrent
		}
		at = q.current - pos.N
	}

	if at < 0 || at > len(q.entries) {
		return 0, ErrBadPosition
	}
	return at, nil
}

// reindex refreshes the id index from position start onward
func (q *Queue) reindex(start int) {
	for i := start; i < len(q.entries); i++ {
		q.index[q.entries[i].ID] = i
	}
}

// Clear removes every entry and unsets the current position
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
	q.index = make(map[int]int)
	q.current = -1
	q.version++
}

// Delete removes the entry at pos
func (q *Queue) Delete(pos int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pos < 0 || pos >= len(q.entries) {
		return ErrBadPosition
	}
	q.remove(pos)
	return nil
}

// DeleteID removes the entry with the given queue id
func (q *Queue) DeleteID(id int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos, ok := q.index[id]
	if !ok {
		return ErrNoSuchSong
	}
	q.remove(pos)
	return nil
}

func (q *Queue) remove(pos int) {
	delete(q.index, q.entries[pos].ID)
	q.entries = append(q.entries[:pos], q.entries[pos+1:]...)
	q.reindex(pos)

	switch {
	case q.current == pos:
		q.current = -1
	case q.current > pos:
		q.current--
	}
	q.version++
}

// SetCurrent makes pos the current entry. Out-of-range positions fail
// without changing state.
func (q *Queue) SetCurrent(pos int) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pos < 0 || pos >= len(q.entries) {
		return Entry{}, ErrBadPosition
	}
	q.current = pos
	return q.entries[pos], nil
}

// SetCurrentByID makes the entry with the given queue id current
func (q *Queue) SetCurrentByID(id int) (int, Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos, ok := q.index[id]
	if !ok {
		return 0, Entry{}, ErrNoSuchSong
	}
	q.current = pos
	return pos, q.entries[pos], nil
}

// Unset clears the current position without touching entries
func (q *Queue) Unset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = -1
}

// Next advances to the following entry. At the end of the queue the current
// position is unset and false is returned.
func (q *Queue) Next() (int, Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current < 0 || q.current+1 >= len(q.entries) {
		q.current = -1
		return -1, Entry{}, false
	}
	q.current++
	return q.current, q.entries[q.current], true
}

// Previous moves to the preceding entry, staying on the first one
func (q *Queue) Previous() (int, Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current < 0 {
		return -1, Entry{}, false
	}
	if q.current > 0 {
		q.current--
	}
	return q.current, q.entries[q.current], true
}

// Current returns the current entry and its position
func (q *Queue) Current() (int, Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.current < 0 {
		return -1, Entry{}, false
	}
	return q.current, q.entries[q.current], true
}

// Peek returns the entry after the current one
func (q *Queue) Peek() (int, Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.current < 0 || q.current+1 >= len(q.entries) {
		return -1, Entry{}, false
	}
	return q.current + 1, q.entries[q.current+1], true
}

// Get returns the entry at pos
func (q *Queue) Get(pos int) (Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if pos < 0 || pos >= len(q.entries) {
		return Entry{}, false
	}
	return q.entries[pos], true
}

// GetByID returns the position and entry for a queue id
func (q *Queue) GetByID(id int) (int, Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	pos, ok := q.index[id]
	if !ok {
		return 0, Entry{}, false
	}
	return pos, q.entries[pos], true
}

// List returns a snapshot of all entries in order
func (q *Queue) List() []Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	entries := make([]Entry, len(q.entries))
	copy(entries, q.entries)
	return entries
}

// Len returns the number of entries
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Version returns the playlist version
func (q *Queue) Version() uint32 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// ChangesSince returns the full listing if the queue changed after version,
// and nil otherwise
func (q *Queue) ChangesSince(version uint32) []Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if version >= q.version {
		return nil
	}
	entries := make([]Entry, len(q.entries))
	copy(entries, q.entries)
	return entries
}
