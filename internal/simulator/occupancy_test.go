package simulator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccupancyOfflineSetInvariants(t *testing.T) {
	ids := testCatalog(40).IDs()
	valid := make(map[string]bool, len(ids))
	for _, id := range ids {
		valid[id] = true
	}

	sizes := map[int]int{}
	for seed := uint64(1); seed <= 200; seed++ {
		occ, err := NewOccupancy(ids, NewRand(seed))
		require.NoError(t, err)

		offline := occ.State(startTime).Offline()
		sizes[len(offline)]++

		seen := map[string]bool{}
		for _, id := range offline {
			assert.True(t, valid[id], "unknown room %s", id)
			assert.False(t, seen[id], "duplicate room %s", id)
			seen[id] = true
		}
	}

	assert.Len(t, sizes, 2)
	assert.Positive(t, sizes[MinOfflineRooms])
	assert.Positive(t, sizes[MaxOfflineRooms])
}

func TestOccupancyStableWithinWindow(t *testing.T) {
	occ, err := NewOccupancy(testCatalog(40).IDs(), NewRand(7))
	require.NoError(t, err)

	assert.True(t, occ.RefreshIfDue(startTime))
	first := occ.State(startTime)

	for _, d := range []time.Duration{time.Second, 5 * time.Minute, RotationInterval} {
		now := startTime.Add(d)
		assert.False(t, occ.RefreshIfDue(now), "refreshed after %v", d)
		assert.Equal(t, first.Offline(), occ.State(now).Offline())
		for _, id := range first.Offline() {
			assert.False(t, occ.IsActive(id, now))
		}
	}
}

func TestOccupancyRefreshesAfterInterval(t *testing.T) {
	occ, err := NewOccupancy(testCatalog(40).IDs(), NewRand(7))
	require.NoError(t, err)

	occ.RefreshIfDue(startTime)
	later := startTime.Add(RotationInterval + time.Second)

	assert.True(t, occ.RefreshIfDue(later))
	assert.Equal(t, later, occ.State(later).RefreshedAt)

	// the window restarts from the new draw
	assert.False(t, occ.RefreshIfDue(later.Add(RotationInterval)))
	assert.True(t, occ.RefreshIfDue(later.Add(RotationInterval+time.Millisecond)))
}

func TestOccupancyIsActiveMatchesState(t *testing.T) {
	ids := testCatalog(40).IDs()
	occ, err := NewOccupancy(ids, NewRand(11))
	require.NoError(t, err)

	state := occ.State(startTime)
	inactive := 0
	for _, id := range ids {
		active := occ.IsActive(id, startTime)
		assert.Equal(t, state.IsActive(id), active)
		if !active {
			inactive++
		}
	}
	assert.Equal(t, state.OfflineCount(), inactive)
}

func TestOccupancyRequiresEnoughRooms(t *testing.T) {
	_, err := NewOccupancy(testCatalog(MaxOfflineRooms).IDs(), NewRand(1))
	assert.ErrorIs(t, err, ErrCatalogTooSmall)

	_, err = NewOccupancy(testCatalog(MaxOfflineRooms+1).IDs(), NewRand(1))
	assert.NoError(t, err)
}

func TestOccupancyRefreshHook(t *testing.T) {
	var calls [][]string
	occ, err := NewOccupancy(testCatalog(40).IDs(), NewRand(3), WithRefreshHook(func(offline []string) {
		calls = append(calls, offline)
	}))
	require.NoError(t, err)

	state := occ.State(startTime)
	occ.State(startTime.Add(time.Minute))

	require.Len(t, calls, 1)
	assert.Equal(t, state.Offline(), calls[0])
}

func TestOccupancyConcurrentReaders(t *testing.T) {
	occ, err := NewOccupancy(testCatalog(40).IDs(), NewRand(5))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				now := startTime.Add(time.Duration(g*200+i) * 7 * time.Second)
				n := occ.State(now).OfflineCount()
				if n < MinOfflineRooms || n > MaxOfflineRooms {
					t.Errorf("offline set of size %d", n)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
