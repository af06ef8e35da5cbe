package ecs

import (
	"fmt"
	"strings"
)

// Access declares the component types a query or system reads and writes.
type Access struct {
	Read  []ComponentID
	Write []ComponentID
}

func (a Access) ReadMask() Mask  { return MaskOf(a.Read...) }
func (a Access) WriteMask() Mask { return MaskOf(a.Write...) }

// Mask is the union of the read and write sets.
func (a Access) Mask() Mask { return a.ReadMask().Or(a.WriteMask()) }

// Overlap returns the types named in both the read and the write set.
func (a Access) Overlap() Mask { return a.ReadMask().And(a.WriteMask()) }

func (a Access) IsZero() bool { return len(a.Read) == 0 && len(a.Write) == 0 }

// Conflicts reports whether a and b cannot run concurrently: write/write or
// read/write on the same component type. Read/read never conflicts.
func (a Access) Conflicts(b Access) bool {
	aw, bw := a.WriteMask(), b.WriteMask()
	return aw.Intersects(bw) || aw.Intersects(b.ReadMask()) || a.ReadMask().Intersects(bw)
}

// Validate rejects access sets that overlap or name unregistered types.
func (w *World) Validate(a Access) error {
	for _, id := range a.Read {
		if int(id) >= len(w.names) {
			return fmt.Errorf("read of unregistered component %d: %w", id, ErrConfiguration)
		}
	}
	for _, id := range a.Write {
		if int(id) >= len(w.names) {
			return fmt.Errorf("write of unregistered component %d: %w", id, ErrConfiguration)
		}
	}
	if o := a.Overlap(); !o.IsZero() {
		return fmt.Errorf("component(s) %s declared as both read and write: %w", w.maskNames(o), ErrConfiguration)
	}
	return nil
}

func (w *World) maskNames(m Mask) string {
	var names []string
	m.Each(func(id ComponentID) {
		names = append(names, w.ComponentName(id))
	})
	return strings.Join(names, ", ")
}

// DescribeAccess renders a for logs, e.g. "read[A, B] write[C]".
func (w *World) DescribeAccess(a Access) string {
	return fmt.Sprintf("read[%s] write[%s]", w.maskNames(a.ReadMask()), w.maskNames(a.WriteMask()))
}
