package data

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-engine/kestrel/internal/asset"
	"github.com/kestrel-engine/kestrel/internal/core/ecs"
	"github.com/kestrel-engine/kestrel/internal/scene"
)

// EntityDef is one fixture entity loaded from YAML.
type EntityDef struct {
	Name     string      `yaml:"name"`
	Parent   string      `yaml:"parent"`
	Position []float32   `yaml:"position"` // x, y, z
	Rotation []float32   `yaml:"rotation"` // quaternion x, y, z, w
	Axis     []float32   `yaml:"axis"`     // rotation axis, used with angle
	Angle    float32     `yaml:"angle"`    // degrees
	Scale    *float32    `yaml:"scale"`
	Mesh     string      `yaml:"mesh"`
	Layer    int         `yaml:"layer"`
	Render   bool        `yaml:"renderable"`
	Children []EntityDef `yaml:"children"`
}

type sceneFile struct {
	Entities []EntityDef `yaml:"entities"`
}

// Scene is a validated list of fixture entities in parent-before-child order.
type Scene struct {
	entities []EntityDef
	byName   map[string]int
}

// LoadScene reads and validates a scene fixture file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// ParseScene decodes a scene. Nested children inherit their parent's name as
// Parent. Every name must be unique and every parent must be declared
// earlier in the file.
func ParseScene(data []byte) (*Scene, error) {
	var f sceneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	s := &Scene{byName: make(map[string]int)}
	var walk func(defs []EntityDef, parent string) error
	walk = func(defs []EntityDef, parent string) error {
		for _, d := range defs {
			if parent != "" {
				d.Parent = parent
			}
			if err := s.add(d); err != nil {
				return err
			}
			if err := walk(d.Children, d.Name); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(f.Entities, ""); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) add(d EntityDef) error {
	if d.Name == "" {
		return fmt.Errorf("entity #%d has no name", len(s.entities))
	}
	if _, dup := s.byName[d.Name]; dup {
		return fmt.Errorf("duplicate entity name %q", d.Name)
	}
	if d.Parent != "" {
		if _, ok := s.byName[d.Parent]; !ok {
			return fmt.Errorf("entity %q: unknown parent %q", d.Name, d.Parent)
		}
	}
	if n := len(d.Position); n != 0 && n != 3 {
		return fmt.Errorf("entity %q: position needs 3 values, got %d", d.Name, n)
	}
	if n := len(d.Rotation); n != 0 && n != 4 {
		return fmt.Errorf("entity %q: rotation needs 4 values, got %d", d.Name, n)
	}
	if n := len(d.Axis); n != 0 && n != 3 {
		return fmt.Errorf("entity %q: axis needs 3 values, got %d", d.Name, n)
	}
	d.Children = nil
	s.byName[d.Name] = len(s.entities)
	s.entities = append(s.entities, d)
	return nil
}

// Len returns the number of entities in the scene.
func (s *Scene) Len() int { return len(s.entities) }

// Local returns the local transform described by d.
func (d EntityDef) Local() scene.Transform {
	t := scene.Identity()
	if len(d.Position) == 3 {
		t.Position = scene.Vec3{X: d.Position[0], Y: d.Position[1], Z: d.Position[2]}
	}
	switch {
	case len(d.Rotation) == 4:
		t.Rotation = scene.Quat{X: d.Rotation[0], Y: d.Rotation[1], Z: d.Rotation[2], W: d.Rotation[3]}.Normalize()
	case len(d.Axis) == 3:
		axis := scene.Vec3{X: d.Axis[0], Y: d.Axis[1], Z: d.Axis[2]}
		t.Rotation = scene.AxisAngle(axis, d.Angle*math.Pi/180)
	}
	if d.Scale != nil {
		t.Scale = *d.Scale
	}
	return t
}

// Spawn creates every entity of the scene in w and links parents through h.
// It returns the spawned ids by name.
func (s *Scene) Spawn(w *ecs.World, h *scene.Hierarchy) (map[string]ecs.EntityID, error) {
	ids := make(map[string]ecs.EntityID, len(s.entities))
	for _, d := range s.entities {
		id, err := w.Spawn()
		if err != nil {
			return ids, fmt.Errorf("spawn %q: %w", d.Name, err)
		}
		ids[d.Name] = id
		ecs.AddComponent(w, id, scene.Name{Value: d.Name})
		ecs.AddComponent(w, id, scene.Local{Transform: d.Local()})
		if d.Render || d.Mesh != "" {
			ecs.AddComponent(w, id, scene.Renderable{Mesh: d.Mesh, Layer: d.Layer})
		}
		if d.Mesh != "" {
			ecs.AddComponent(w, id, asset.MeshRef{Path: d.Mesh})
		}
		if d.Parent != "" {
			if err := h.SetParent(id, ids[d.Parent]); err != nil {
				return ids, fmt.Errorf("parent %q: %w", d.Name, err)
			}
		}
	}
	return ids, nil
}
