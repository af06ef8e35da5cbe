package ecs

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateReusesFreedIndex(t *testing.T) {
	r := NewRegistry(4, 0)

	a, err := r.Create()
	require.NoError(t, err)
	b, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), a.Index())
	assert.Equal(t, uint32(1), b.Index())
	assert.False(t, a.IsZero())

	require.NoError(t, r.Destroy(a))
	c, err := r.Create()
	require.NoError(t, err)

	assert.Equal(t, a.Index(), c.Index())
	assert.Equal(t, a.Generation()+1, c.Generation())
	assert.False(t, r.Alive(a), "stale handle must stay dead after its slot is reused")
	assert.True(t, r.Alive(c))
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDoubleDestroyIsStale(t *testing.T) {
	r := NewRegistry(4, 0)
	a, _ := r.Create()
	require.NoError(t, r.Destroy(a))

	err := r.Destroy(a)
	require.ErrorIs(t, err, ErrStaleHandle)

	// The failed destroy must not push the index onto the free list twice.
	b, _ := r.Create()
	c, _ := r.Create()
	assert.NotEqual(t, b.Index(), c.Index())
}

func TestRegistryDestroyOfRecycledSlotsOldHandle(t *testing.T) {
	r := NewRegistry(4, 0)
	a, _ := r.Create()
	require.NoError(t, r.Destroy(a))
	b, _ := r.Create()

	require.ErrorIs(t, r.Destroy(a), ErrStaleHandle)
	assert.True(t, r.Alive(b))
}

func TestRegistryRetiresSlotAtLastGeneration(t *testing.T) {
	r := NewRegistry(2, 0)
	old, err := r.Create()
	require.NoError(t, err)
	require.NoError(t, r.Destroy(old))

	r.generations[old.Index()] = math.MaxUint32
	last, err := r.Create()
	require.NoError(t, err)
	require.Equal(t, old.Index(), last.Index())
	require.Equal(t, uint32(math.MaxUint32), last.Generation())
	require.NoError(t, r.Destroy(last))
	assert.Equal(t, 1, r.Retired())

	next, err := r.Create()
	require.NoError(t, err)
	assert.NotEqual(t, old.Index(), next.Index(), "a retired slot is never handed out again")
	assert.False(t, r.Alive(old))
	assert.False(t, r.Alive(last))
	assert.True(t, r.Alive(next))
}

func TestRegistryAllocationExhausted(t *testing.T) {
	r := NewRegistry(0, 2)
	_, err := r.Create()
	require.NoError(t, err)
	b, err := r.Create()
	require.NoError(t, err)

	_, err = r.Create()
	require.ErrorIs(t, err, ErrAllocationExhausted)

	require.NoError(t, r.Destroy(b))
	_, err = r.Create()
	assert.NoError(t, err, "freed slots are still available at the cap")
}

func TestRegistryUnknownIndexIsNotAlive(t *testing.T) {
	r := NewRegistry(0, 0)
	assert.False(t, r.Alive(NewEntityID(42, 1)))
	assert.False(t, r.Alive(0))
	assert.True(t, r.Mask(NewEntityID(42, 1)).IsZero())
}

func TestRegistryGenerationSafetyRandomized(t *testing.T) {
	r := NewRegistry(0, 0)
	rng := rand.New(rand.NewSource(7))
	var live, dead []EntityID

	for i := 0; i < 5000; i++ {
		if len(live) == 0 || rng.Intn(3) > 0 {
			id, err := r.Create()
			require.NoError(t, err)
			live = append(live, id)
		} else {
			k := rng.Intn(len(live))
			id := live[k]
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
			require.NoError(t, r.Destroy(id))
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		require.False(t, r.Alive(id), "dead handle %s reported alive", id)
	}
	for _, id := range live {
		require.True(t, r.Alive(id))
	}
	assert.Equal(t, len(live), r.Len())
}

func TestMaskOps(t *testing.T) {
	m := MaskOf(1, 64, 255)
	assert.True(t, m.Has(64))
	assert.False(t, m.Has(2))
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Contains(MaskOf(1, 255)))
	assert.False(t, m.Contains(MaskOf(1, 2)))
	assert.True(t, m.Intersects(MaskOf(255)))

	var got []ComponentID
	m.Each(func(id ComponentID) { got = append(got, id) })
	assert.Equal(t, []ComponentID{1, 64, 255}, got)

	m.Clear(64)
	assert.False(t, m.Has(64))
	assert.Panics(t, func() { m.Set(MaxComponents) })
}
