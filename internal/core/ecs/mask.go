package ecs

import (
	"fmt"
	"math/bits"
)

// MaxComponents is the number of distinct component types a World can hold.
const MaxComponents = 256

const maskWords = MaxComponents / 64

// ComponentID is the per-World bit index of a registered component type.
type ComponentID uint16

// Mask is a set of component IDs, one bit per registered type.
type Mask [maskWords]uint64

// MaskOf builds a mask from a list of component IDs.
func MaskOf(ids ...ComponentID) Mask {
	var m Mask
	for _, id := range ids {
		m.Set(id)
	}
	return m
}

func (m *Mask) Set(id ComponentID) {
	if id >= MaxComponents {
		panic(fmt.Sprintf("component ID %d exceeds maximum (%d)", id, MaxComponents))
	}
	m[id>>6] |= 1 << (id & 63)
}

func (m *Mask) Clear(id ComponentID) {
	if id >= MaxComponents {
		return
	}
	m[id>>6] &^= 1 << (id & 63)
}

func (m Mask) Has(id ComponentID) bool {
	if id >= MaxComponents {
		return false
	}
	return m[id>>6]&(1<<(id&63)) != 0
}

// Contains reports whether every bit of sub is also set in m.
func (m Mask) Contains(sub Mask) bool {
	for i := range m {
		if m[i]&sub[i] != sub[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether m and o share at least one bit.
func (m Mask) Intersects(o Mask) bool {
	for i := range m {
		if m[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

func (m Mask) Or(o Mask) Mask {
	var r Mask
	for i := range m {
		r[i] = m[i] | o[i]
	}
	return r
}

func (m Mask) And(o Mask) Mask {
	var r Mask
	for i := range m {
		r[i] = m[i] & o[i]
	}
	return r
}

func (m Mask) IsZero() bool {
	return m == Mask{}
}

// Len returns the number of set bits.
func (m Mask) Len() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls fn for every set bit in ascending order.
func (m Mask) Each(fn func(ComponentID)) {
	for i, w := range m {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			fn(ComponentID(i*64 + b))
			w &= w - 1
		}
	}
}
