package ecs

import "errors"

var (
	// ErrStaleHandle reports an EntityID whose generation no longer matches
	// its slot. Only Despawn/Destroy surface it; every other operation
	// treats a stale handle as absent.
	ErrStaleHandle = errors.New("stale entity handle")

	// ErrConfiguration marks declaration bugs: overlapping access sets,
	// cyclic ordering hints, cyclic parenting.
	ErrConfiguration = errors.New("configuration error")

	// ErrAllocationExhausted is returned by Create when no slot can be handed out.
	ErrAllocationExhausted = errors.New("entity allocation exhausted")
)
