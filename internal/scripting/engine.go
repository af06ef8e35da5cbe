package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/core/system"
	"github.com/kestrel-engine/kestrel/internal/scene"
)

// ScriptSystem runs a Lua `update(dt, t)` function over every entity with a
// Local transform. t is a table {id, x, y, z, scale}; the returned table is
// written back. Each system owns its VM, and the graph never runs one system
// on two workers at once, so the VM needs no lock.
type ScriptSystem struct {
	name   string
	vm     *lua.LState
	update *lua.LFunction
	access ecs.Access
	after  []string
	log    *zap.Logger
}

// NewScriptSystem compiles source. The script may set a global `after` to a
// list of system names it must run after.
func NewScriptSystem(w *ecs.World, name, source string, log *zap.Logger) (*ScriptSystem, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	if err := vm.DoString(source); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	fn, ok := vm.GetGlobal("update").(*lua.LFunction)
	if !ok {
		vm.Close()
		return nil, fmt.Errorf("script %s does not define update(dt, t): %w", name, ecs.ErrConfiguration)
	}

	s := &ScriptSystem{
		name:   name,
		vm:     vm,
		update: fn,
		access: ecs.Access{Write: []ecs.ComponentID{ecs.Register[scene.Local](w)}},
		log:    log.With(zap.String("script", name)),
	}
	if tbl, ok := vm.GetGlobal("after").(*lua.LTable); ok {
		tbl.ForEach(func(_, v lua.LValue) {
			s.after = append(s.after, v.String())
		})
	}
	return s, nil
}

// LoadDir builds one system per .lua file in dir, named after the file.
// A missing directory yields no systems.
func LoadDir(w *ecs.World, dir string, log *zap.Logger) ([]*ScriptSystem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*ScriptSystem
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			closeAll(out)
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		name := "script:" + strings.TrimSuffix(entry.Name(), ".lua")
		s, err := NewScriptSystem(w, name, string(src), log)
		if err != nil {
			closeAll(out)
			return nil, err
		}
		if log != nil {
			log.Debug("loaded lua script", zap.String("file", path))
		}
		out = append(out, s)
	}
	return out, nil
}

func closeAll(systems []*ScriptSystem) {
	for _, s := range systems {
		s.Close()
	}
}

func (s *ScriptSystem) Name() string        { return s.name }
func (s *ScriptSystem) Phase() system.Phase { return system.PhaseUpdate }
func (s *ScriptSystem) Access() ecs.Access  { return s.access }
func (s *ScriptSystem) After() []string     { return s.after }

func (s *ScriptSystem) Update(ctx *system.Context) error {
	v, err := ctx.View()
	if err != nil {
		return err
	}
	dt := lua.LNumber(ctx.Delta.Seconds())
	var callErr error
	ecs.EachMut1(v, func(id ecs.EntityID, l *scene.Local) {
		if callErr != nil {
			return
		}
		t := s.vm.NewTable()
		t.RawSetString("index", lua.LNumber(id.Index()))
		t.RawSetString("generation", lua.LNumber(id.Generation()))
		t.RawSetString("x", lua.LNumber(l.Position.X))
		t.RawSetString("y", lua.LNumber(l.Position.Y))
		t.RawSetString("z", lua.LNumber(l.Position.Z))
		t.RawSetString("scale", lua.LNumber(l.Scale))

		if err := s.vm.CallByParam(lua.P{Fn: s.update, NRet: 1, Protect: true}, dt, t); err != nil {
			callErr = fmt.Errorf("script %s on %s: %w", s.name, id, err)
			return
		}
		ret := s.vm.Get(-1)
		s.vm.Pop(1)
		out, ok := ret.(*lua.LTable)
		if !ok {
			return
		}
		l.Position.X = number(out, "x", l.Position.X)
		l.Position.Y = number(out, "y", l.Position.Y)
		l.Position.Z = number(out, "z", l.Position.Z)
		l.Scale = number(out, "scale", l.Scale)
	})
	return callErr
}

func number(t *lua.LTable, key string, def float32) float32 {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float32(n)
	}
	return def
}

// Close releases the VM.
func (s *ScriptSystem) Close() {
	s.vm.Close()
}
