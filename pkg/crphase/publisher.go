package crphase

import (
	"cmp"
	"fmt"

	"github.com/randalmurphal/crphase/pkg/crphase/registry"
)

// Publisher makes open hook groups discoverable to whatever performs the
// snapshot. A group is published when it is created, or when the publisher
// is registered, and unpublished when it is prepared or fails.
//
// Implementations must be safe for concurrent use and must not call back
// into the phase or group.
type Publisher interface {
	Publish(g *HookGroup)
	Unpublish(g *HookGroup)
}

// GroupKey identifies a group within a phase.
type GroupKey struct {
	Mode Mode
	Rank int
}

// String returns "mode/rank", e.g. "multi/10".
func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%d", k.Mode, k.Rank)
}

// RegistryPublisher publishes groups into an in-memory registry keyed by
// mode and rank.
type RegistryPublisher struct {
	groups *registry.Registry[GroupKey, *HookGroup]
}

// NewRegistryPublisher creates an empty publisher.
func NewRegistryPublisher() *RegistryPublisher {
	return &RegistryPublisher{
		groups: registry.New[GroupKey, *HookGroup](),
	}
}

// Publish records g under its key.
func (r *RegistryPublisher) Publish(g *HookGroup) {
	r.groups.Register(g.Key(), g)
}

// Unpublish removes g. A different group published under the same key is
// left alone.
func (r *RegistryPublisher) Unpublish(g *HookGroup) {
	r.groups.DeleteIf(g.Key(), func(cur *HookGroup) bool { return cur == g })
}

// Lookup returns the group published for mode and rank.
func (r *RegistryPublisher) Lookup(mode Mode, rank int) (*HookGroup, bool) {
	return r.groups.Get(GroupKey{Mode: mode, Rank: rank})
}

// Groups returns the published groups of mode in descending rank order.
func (r *RegistryPublisher) Groups(mode Mode) []*HookGroup {
	return r.groups.Sorted(
		func(k GroupKey) bool { return k.Mode == mode },
		func(a, b GroupKey) int { return cmp.Compare(b.Rank, a.Rank) },
	)
}

// Len returns the number of published groups.
func (r *RegistryPublisher) Len() int {
	return r.groups.Len()
}
