package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

func TestBusDeliversAfterSwap(t *testing.T) {
	b := NewBus()
	var got []ecs.EntityID
	Subscribe(b, func(ev EntitySpawned) { got = append(got, ev.Entity) })

	Emit(b, EntitySpawned{Entity: 7})
	b.DispatchAll()
	assert.Empty(t, got, "events are not visible before the swap")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []ecs.EntityID{7}, got)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 1, "front buffer is cleared by the next swap")
}

func TestBusConcurrentEmit(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Emit(b, ComponentAdded{})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, b.Pending())
}

func TestForwardMapsChanges(t *testing.T) {
	b := NewBus()
	w := ecs.NewWorld()
	w.Observe(Forward(b))

	var spawned, added, replaced, despawned int
	Subscribe(b, func(EntitySpawned) { spawned++ })
	Subscribe(b, func(ComponentAdded) { added++ })
	Subscribe(b, func(ComponentReplaced) { replaced++ })
	Subscribe(b, func(EntityDespawned) { despawned++ })

	id, _ := w.Spawn()
	ecs.AddComponent(w, id, struct{ N int }{N: 1})
	ecs.AddComponent(w, id, struct{ N int }{N: 2})
	_ = w.Despawn(id)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, spawned)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 1, despawned)
}
