// Package counting provides an open-addressing hash table that maps 64-bit keys
// to game and win counters. It backs both the per-card and the per-pair
// statistics of the synergy aggregator.
package counting

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

const (
	// EmptyKey marks a slot that has never held an entry.
	EmptyKey uint64 = math.MaxUint64

	// TombstoneKey marks a slot whose entry was deleted.
	TombstoneKey uint64 = math.MaxUint64 - 1

	// MinCapacity is the smallest table size a Store will allocate.
	MinCapacity = 16

	// DefaultMaxCapacity bounds table growth (2^30 slots, ~24 GiB of entries).
	DefaultMaxCapacity = 1 << 30

	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

var (
	// ErrReservedKey is returned when a caller uses one of the sentinel keys.
	ErrReservedKey = errors.New("key collides with a reserved sentinel value")

	// ErrCapacityExceeded is returned when the table would have to grow past
	// its maximum capacity. The table is left unchanged.
	ErrCapacityExceeded = errors.New("counting store capacity exceeded")
)

// Entry holds the counters for one key. Wins never exceeds Count.
type Entry struct {
	Count uint64
	Wins  uint64
}

type slot struct {
	key uint64
	Entry
}

// Store is an open-addressing hash table with linear probing.
// A Store is not safe for concurrent use.
type Store struct {
	slots       []slot
	live        int
	tombstones  int
	maxCapacity int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxCapacity limits how far the table may grow. Values are rounded up to
// a power of two.
func WithMaxCapacity(n int) Option {
	return func(s *Store) {
		s.maxCapacity = roundPow2(n)
	}
}

// New creates a Store with room for at least initialCapacity slots.
func New(initialCapacity int, opts ...Option) (*Store, error) {
	s := &Store{maxCapacity: DefaultMaxCapacity}
	for _, opt := range opts {
		opt(s)
	}

	capacity := roundPow2(initialCapacity)
	if capacity > s.maxCapacity {
		return nil, fmt.Errorf("initial capacity %d: %w", capacity, ErrCapacityExceeded)
	}
	s.slots = newSlots(capacity)
	return s, nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.live
}

// Capacity returns the current number of slots.
func (s *Store) Capacity() int {
	return len(s.slots)
}

// Lookup returns the entry for key, if present.
func (s *Store) Lookup(key uint64) (Entry, bool) {
	if isReserved(key) {
		return Entry{}, false
	}
	idx, ok := s.find(key)
	if !ok {
		return Entry{}, false
	}
	return s.slots[idx].Entry, true
}

// Upsert returns the entry for key, creating a zeroed one if it is absent.
// The returned pointer is only valid until the next Upsert, Increment or
// Delete call, since growth moves entries.
func (s *Store) Upsert(key uint64) (*Entry, error) {
	if isReserved(key) {
		return nil, fmt.Errorf("upsert %#x: %w", key, ErrReservedKey)
	}

	// Existing keys never trigger growth, so they stay writable even when
	// the table is at its maximum size.
	if idx, ok := s.find(key); ok {
		return &s.slots[idx].Entry, nil
	}

	if (s.live+s.tombstones)*10 > len(s.slots)*7 {
		if err := s.grow(); err != nil {
			return nil, err
		}
	}

	mask := uint64(len(s.slots) - 1)
	idx := hashKey(key) & mask
	firstTombstone := -1

	for range len(s.slots) {
		sl := &s.slots[idx]
		switch sl.key {
		case key:
			return &sl.Entry, nil
		case TombstoneKey:
			if firstTombstone < 0 {
				firstTombstone = int(idx)
			}
		case EmptyKey:
			if firstTombstone >= 0 {
				sl = &s.slots[firstTombstone]
				s.tombstones--
			}
			sl.key = key
			sl.Entry = Entry{}
			s.live++
			return &sl.Entry, nil
		}
		idx = (idx + 1) & mask
	}

	// Every slot is live or a tombstone; the load factor check makes this
	// unreachable unless the table was corrupted.
	if firstTombstone >= 0 {
		sl := &s.slots[firstTombstone]
		sl.key = key
		sl.Entry = Entry{}
		s.tombstones--
		s.live++
		return &sl.Entry, nil
	}
	return nil, fmt.Errorf("upsert %#x: no free slot: %w", key, ErrCapacityExceeded)
}

// Increment adds one game to key, and one win when won is true.
func (s *Store) Increment(key uint64, won bool) error {
	e, err := s.Upsert(key)
	if err != nil {
		return err
	}
	e.Count++
	if won {
		e.Wins++
	}
	return nil
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key uint64) bool {
	if isReserved(key) {
		return false
	}
	idx, ok := s.find(key)
	if !ok {
		return false
	}
	s.slots[idx] = slot{key: TombstoneKey}
	s.live--
	s.tombstones++
	return true
}

// All yields every live entry. Order follows the slot layout and is not
// stable across growth. Mutating the store during iteration is not supported.
func (s *Store) All() iter.Seq2[uint64, Entry] {
	return func(yield func(uint64, Entry) bool) {
		for i := range s.slots {
			sl := s.slots[i]
			if isReserved(sl.key) {
				continue
			}
			if !yield(sl.key, sl.Entry) {
				return
			}
		}
	}
}

func (s *Store) find(key uint64) (int, bool) {
	mask := uint64(len(s.slots) - 1)
	idx := hashKey(key) & mask

	for range len(s.slots) {
		switch s.slots[idx].key {
		case key:
			return int(idx), true
		case EmptyKey:
			return 0, false
		}
		idx = (idx + 1) & mask
	}
	return 0, false
}

// grow doubles the table and reinserts all live entries. On failure the
// current table is untouched.
func (s *Store) grow() error {
	newCap := len(s.slots) * 2
	if newCap > s.maxCapacity || newCap <= 0 {
		return fmt.Errorf("grow to %d slots (max %d): %w", newCap, s.maxCapacity, ErrCapacityExceeded)
	}

	fresh := newSlots(newCap)
	mask := uint64(newCap - 1)
	for _, sl := range s.slots {
		if isReserved(sl.key) {
			continue
		}
		idx := hashKey(sl.key) & mask
		for fresh[idx].key != EmptyKey {
			idx = (idx + 1) & mask
		}
		fresh[idx] = sl
	}

	s.slots = fresh
	s.tombstones = 0
	return nil
}

func newSlots(n int) []slot {
	slots := make([]slot, n)
	for i := range slots {
		slots[i].key = EmptyKey
	}
	return slots
}

// hashKey is 64-bit FNV-1a over the little-endian bytes of key.
func hashKey(key uint64) uint64 {
	h := fnvOffset64
	for i := range 8 {
		h ^= (key >> (i * 8)) & 0xFF
		h *= fnvPrime64
	}
	return h
}

func isReserved(key uint64) bool {
	return key == EmptyKey || key == TombstoneKey
}

func roundPow2(n int) int {
	c := MinCapacity
	for c < n {
		c *= 2
	}
	return c
}
