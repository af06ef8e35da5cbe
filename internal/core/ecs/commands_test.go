package ecs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
)

func TestCommandsAreDeferredUntilFlush(t *testing.T) {
	w := ecs.NewWorld()
	ecs.Register[Position](w)
	cmds := ecs.NewCommands()

	cmds.Spawn(ecs.With(Position{X: 4}), ecs.With(Tag{}))
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 1, cmds.Len())

	require.NoError(t, cmds.Flush(w))
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, 1, ecs.Count[Position](w))
	assert.Equal(t, 1, ecs.Count[Tag](w))
	assert.Equal(t, 0, cmds.Len())
}

func TestCommandsDespawnStaleIsAbsorbed(t *testing.T) {
	w := ecs.NewWorld()
	id := spawn(t, w)
	cmds := ecs.NewCommands()
	cmds.Despawn(id)
	cmds.Despawn(id)
	require.NoError(t, cmds.Flush(w))
	assert.False(t, w.Alive(id))
}

func TestCommandsAddRemove(t *testing.T) {
	w := ecs.NewWorld()
	id := spawn(t, w)
	cmds := ecs.NewCommands()
	ecs.Add(cmds, id, Health{HP: 2})
	require.NoError(t, cmds.Flush(w))
	assert.True(t, ecs.Has[Health](w, id))

	ecs.Remove[Health](cmds, id)
	require.NoError(t, cmds.Flush(w))
	assert.False(t, ecs.Has[Health](w, id))
}

func TestCommandsFlushCombinesErrors(t *testing.T) {
	w := ecs.NewWorld()
	cmds := ecs.NewCommands()
	errA := errors.New("a")
	errB := errors.New("b")
	ran := false
	cmds.Do(func(*ecs.World) error { return errA })
	cmds.Do(func(*ecs.World) error { ran = true; return nil })
	cmds.Do(func(*ecs.World) error { return errB })

	err := cmds.Flush(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, ran)
}
