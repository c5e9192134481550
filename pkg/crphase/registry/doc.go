// Package registry provides a generic thread-safe registry for values indexed by key.
//
// crphase uses it as the discovery side channel for hook groups: each group
// is published under its (rank, mode) key when created and removed again once
// it has prepared, so a component performing the snapshot can enumerate the
// groups it must drive without holding a reference to the phase.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//
//	value, ok := r.Get("one")
//
// # Ordered Enumeration
//
// Sorted takes a filter and a comparison on keys:
//
//	highFirst := r.Sorted(nil, func(a, b string) int { return strings.Compare(b, a) })
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. DeleteIf checks and
// removes under one lock, so a stale owner cannot remove a replacement.
package registry
