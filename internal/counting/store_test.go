package counting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RoundsCapacity(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		want    int
	}{
		{"zero", 0, 16},
		{"below minimum", 5, 16},
		{"exact power", 64, 64},
		{"rounds up", 100, 128},
		{"original card table", 4096, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.initial)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Capacity())
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestNew_InitialAboveMax(t *testing.T) {
	_, err := New(1024, WithMaxCapacity(64))
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestStore_UpsertLookup(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	e, err := s.Upsert(42)
	require.NoError(t, err)
	assert.Equal(t, Entry{}, *e)

	e.Count = 7
	e.Wins = 3

	got, ok := s.Lookup(42)
	require.True(t, ok)
	assert.Equal(t, Entry{Count: 7, Wins: 3}, got)

	again, err := s.Upsert(42)
	require.NoError(t, err)
	assert.Equal(t, Entry{Count: 7, Wins: 3}, *again)
	assert.Equal(t, 1, s.Len())

	_, ok = s.Lookup(43)
	assert.False(t, ok)
}

func TestStore_IncrementWinAndLoss(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	require.NoError(t, s.Increment(9, true))
	require.NoError(t, s.Increment(9, false))

	got, ok := s.Lookup(9)
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.Count)
	assert.Equal(t, uint64(1), got.Wins)
}

func TestStore_ReservedKeys(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	for _, key := range []uint64{EmptyKey, TombstoneKey} {
		_, err := s.Upsert(key)
		assert.ErrorIs(t, err, ErrReservedKey)
		assert.ErrorIs(t, s.Increment(key, true), ErrReservedKey)

		_, ok := s.Lookup(key)
		assert.False(t, ok)
		assert.False(t, s.Delete(key))
	}
	assert.Equal(t, 0, s.Len())
}

func TestStore_GrowsAtSeventyPercent(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	// (live+tomb)*10 > cap*7 triggers on the insert after 12 entries (120 > 112).
	for i := uint64(1); i <= 12; i++ {
		require.NoError(t, s.Increment(i, false))
	}
	assert.Equal(t, 16, s.Capacity())

	require.NoError(t, s.Increment(13, false))
	assert.Equal(t, 32, s.Capacity())

	for i := uint64(1); i <= 13; i++ {
		got, ok := s.Lookup(i)
		require.True(t, ok, "key %d lost during growth", i)
		assert.Equal(t, uint64(1), got.Count)
	}
}

func TestStore_ManyKeysSurviveGrowth(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	const n = 20000
	for i := uint64(1); i <= n; i++ {
		require.NoError(t, s.Increment(i*7919, i%3 == 0))
	}
	require.Equal(t, n, s.Len())

	for i := uint64(1); i <= n; i++ {
		got, ok := s.Lookup(i * 7919)
		require.True(t, ok)
		wantWins := uint64(0)
		if i%3 == 0 {
			wantWins = 1
		}
		require.Equal(t, Entry{Count: 1, Wins: wantWins}, got)
	}
}

func TestStore_FailedGrowLeavesTableUsable(t *testing.T) {
	s, err := New(16, WithMaxCapacity(16))
	require.NoError(t, err)

	for i := uint64(1); i <= 12; i++ {
		require.NoError(t, s.Increment(i, true))
	}

	err = s.Increment(100, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	assert.Equal(t, 12, s.Len())
	assert.Equal(t, 16, s.Capacity())
	for i := uint64(1); i <= 12; i++ {
		got, ok := s.Lookup(i)
		require.True(t, ok)
		assert.Equal(t, Entry{Count: 1, Wins: 1}, got)
	}

	// Existing keys still update after the failed grow.
	require.NoError(t, s.Increment(3, false))
	got, _ := s.Lookup(3)
	assert.Equal(t, Entry{Count: 2, Wins: 1}, got)
}

func TestStore_DeleteLeavesTombstoneInProbeChain(t *testing.T) {
	s, err := New(1 << 10)
	require.NoError(t, err)

	keys := collidingKeys(t, 3, 1<<10)
	for _, k := range keys {
		require.NoError(t, s.Increment(k, false))
	}

	// Removing the head of the chain must not hide the keys after it.
	require.True(t, s.Delete(keys[0]))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.tombstones)

	_, ok := s.Lookup(keys[0])
	assert.False(t, ok)
	for _, k := range keys[1:] {
		_, ok := s.Lookup(k)
		assert.True(t, ok, "key %d unreachable after delete", k)
	}

	// Re-inserting reuses the tombstone.
	require.NoError(t, s.Increment(keys[0], true))
	assert.Equal(t, 0, s.tombstones)
	assert.Equal(t, 3, s.Len())

	assert.False(t, s.Delete(999999))
}

func TestStore_GrowDropsTombstones(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, s.Increment(i, false))
	}
	for i := uint64(1); i <= 2; i++ {
		require.True(t, s.Delete(i))
	}
	assert.Equal(t, 2, s.tombstones)

	// 8 live + 2 tombstones; pushing past 12 occupied slots forces a grow.
	for i := uint64(100); i < 105; i++ {
		require.NoError(t, s.Increment(i, false))
	}
	assert.Equal(t, 0, s.tombstones)
	assert.Equal(t, 13, s.Len())
}

func TestStore_All(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)

	want := map[uint64]Entry{
		1:  {Count: 1, Wins: 1},
		2:  {Count: 2, Wins: 0},
		77: {Count: 1, Wins: 0},
	}
	require.NoError(t, s.Increment(1, true))
	require.NoError(t, s.Increment(2, false))
	require.NoError(t, s.Increment(2, false))
	require.NoError(t, s.Increment(77, false))
	require.NoError(t, s.Increment(5, false))
	require.True(t, s.Delete(5))

	got := make(map[uint64]Entry)
	for k, e := range s.All() {
		got[k] = e
	}
	assert.Equal(t, want, got)

	// Early termination.
	n := 0
	for range s.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestHashKey_FNV1a(t *testing.T) {
	// FNV-1a of eight zero bytes.
	h := fnvOffset64
	for range 8 {
		h *= fnvPrime64
	}
	assert.Equal(t, h, hashKey(0))
	assert.NotEqual(t, hashKey(1), hashKey(1<<8))
}

// collidingKeys returns n keys whose home slot is equal in a table of size capacity.
func collidingKeys(t *testing.T, n, capacity int) []uint64 {
	t.Helper()

	mask := uint64(capacity - 1)
	target := hashKey(1) & mask
	keys := []uint64{1}
	for k := uint64(2); len(keys) < n; k++ {
		if hashKey(k)&mask == target {
			keys = append(keys, k)
		}
		if k > 10_000_000 {
			t.Fatalf("could not find %d colliding keys", n)
		}
	}
	return keys
}
