package crphase

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/crphase/pkg/crphase/observability"
)

// Kind names a point in the application lifecycle at which a checkpoint may
// be taken.
type Kind int

const (
	// Inactive means no checkpoint will be taken. It is always restored.
	Inactive Kind = iota
	// BeforeAppStart checkpoints after the runtime is up but before
	// applications start.
	BeforeAppStart
	// AfterAppStart checkpoints after applications have started.
	AfterAppStart

	kindCount
)

var kindNames = [kindCount]string{
	Inactive:       "INACTIVE",
	BeforeAppStart: "BEFORE_APP_START",
	AfterAppStart:  "AFTER_APP_START",
}

// kindAliases maps older phase names onto current kinds.
var kindAliases = map[string]Kind{
	"DEPLOYMENT":   BeforeAppStart,
	"APPLICATIONS": AfterAppStart,
}

// String returns the canonical upper-case name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{Inactive, BeforeAppStart, AfterAppStart}
}

// Aliases returns the legacy names accepted by ParseKind for k.
func (k Kind) Aliases() []string {
	var names []string
	for name, kind := range kindAliases {
		if kind == k {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ParseKind maps a phase name to a Kind. Matching ignores case and
// surrounding whitespace. Unrecognized names, including "", are Inactive.
func ParseKind(name string) Kind {
	name = strings.ToUpper(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k
	}
	return Inactive
}

// prepareFloor tracks how far a prepare sweep has progressed in one mode.
// Once active, ranks at or above floor no longer accept hooks.
type prepareFloor struct {
	active bool
	floor  int
}

func (f *prepareFloor) lower(rank int) {
	if !f.active || rank < f.floor {
		f.active = true
		f.floor = rank
	}
}

func (f prepareFloor) passed(rank int) bool {
	return f.active && rank >= f.floor
}

// Phase holds the hooks registered against one Kind.
//
// Only the coordinator's current phase accepts hooks. Hooks are collected
// into one HookGroup per rank and mode, created on first use and dropped
// from the phase once prepared.
type Phase struct {
	kind    Kind
	coord   *Coordinator
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu      sync.Mutex
	groups  [2]map[int]*HookGroup
	floors  [2]prepareFloor
	blocked bool
	pub     Publisher
	locked  int  // prepared groups not yet restored
	failed  bool // a prepared group received CheckpointFailed

	restored atomic.Bool
}

func newPhase(kind Kind, c *Coordinator) *Phase {
	p := &Phase{
		kind:    kind,
		coord:   c,
		logger:  c.logger,
		metrics: c.metrics,
		pub:     c.publisher,
	}
	p.groups[SingleThreaded] = make(map[int]*HookGroup)
	p.groups[MultiThreaded] = make(map[int]*HookGroup)
	return p
}

// Kind returns the phase's kind.
func (p *Phase) Kind() Kind { return p.kind }

// String returns the kind name.
func (p *Phase) String() string { return p.kind.String() }

// Restored reports whether the phase has been restored. INACTIVE is always
// restored.
func (p *Phase) Restored() bool {
	return p.kind == Inactive || p.restored.Load()
}

// markRestored records that every prepared group has been restored.
func (p *Phase) markRestored() {
	p.restored.Store(true)
}

// groupRestored is called after a prepared group restored without error.
// The phase becomes restored once no prepared group is left, unless the
// checkpoint failed.
func (p *Phase) groupRestored() {
	p.mu.Lock()
	p.locked--
	done := p.locked == 0 && !p.failed
	p.mu.Unlock()
	if done {
		p.markRestored()
	}
}

// groupFailed is called when a prepared group receives CheckpointFailed.
// The phase can no longer become restored.
func (p *Phase) groupFailed() {
	p.mu.Lock()
	p.locked--
	p.failed = true
	p.mu.Unlock()
}

// mustBeCurrent panics if p is not its coordinator's current phase.
func (p *Phase) mustBeCurrent() {
	if cur := p.coord.Phase(); cur != p {
		panic(fmt.Errorf("%w: %s (current is %s)", ErrNotCurrentPhase, p.kind, cur.kind))
	}
}

// AddSingleThreadedHook adds h at rank 0 in single-threaded mode.
// See AddSingleThreadedHookRank.
func (p *Phase) AddSingleThreadedHook(h Hook) bool {
	return p.AddSingleThreadedHookRank(0, h)
}

// AddSingleThreadedHookRank adds h at rank in single-threaded mode.
//
// It returns false, and h will never run, when the phase is INACTIVE or
// already restored, when additions are blocked, or when the group for rank
// has already been prepared. Callers should then do the hook's work
// themselves.
//
// Preparing a group also refuses every higher rank of the same mode, even
// ranks that never had a group: prepare runs from the highest rank down, so
// a hook added above a prepared rank would be skipped. This holds when
// groups are prepared by hand as well as by a Driver.
//
// It panics if p is not the current phase.
func (p *Phase) AddSingleThreadedHookRank(rank int, h Hook) bool {
	return p.addHook(SingleThreaded, rank, h)
}

// AddMultiThreadedHook adds h at rank 0 in multi-threaded mode.
// See AddMultiThreadedHookRank.
func (p *Phase) AddMultiThreadedHook(h Hook) bool {
	return p.AddMultiThreadedHookRank(0, h)
}

// AddMultiThreadedHookRank adds h at rank in multi-threaded mode. It follows
// the same rules as AddSingleThreadedHookRank.
func (p *Phase) AddMultiThreadedHookRank(rank int, h Hook) bool {
	return p.addHook(MultiThreaded, rank, h)
}

func (p *Phase) addHook(mode Mode, rank int, h Hook) bool {
	if h == nil {
		panic("crphase: nil hook")
	}
	p.mustBeCurrent()

	ok := p.tryAdd(mode, rank, h)
	p.metrics.RecordHookAdded(context.Background(), mode.String(), rank, ok)
	observability.LogHookAdded(p.logger, p.kind.String(), mode.String(), rank, ok)
	return ok
}

func (p *Phase) tryAdd(mode Mode, rank int, h Hook) bool {
	if p.Restored() {
		return false
	}

	p.mu.Lock()
	if p.blocked || p.floors[mode].passed(rank) {
		p.mu.Unlock()
		return false
	}
	g, ok := p.groups[mode][rank]
	if !ok {
		g = newHookGroup(p, rank, mode)
		p.groups[mode][rank] = g
		observability.LogGroupCreated(p.logger, p.kind.String(), mode.String(), rank)
		if p.pub != nil {
			g.setPublisher(p.pub)
		}
	}
	p.mu.Unlock()

	return g.add(h)
}

// OnRestore runs action once the phase is restored. See OnRestoreRank.
func (p *Phase) OnRestore(action func() error) error {
	return p.OnRestoreRank(0, action)
}

// OnRestoreRank runs action at rank during restore.
//
// If the phase is already restored, or the action cannot be scheduled, the
// action runs immediately and its error is returned. Otherwise it is added
// as a multi-threaded hook and nil is returned; an error from a scheduled
// action fails the restore.
//
// It panics if p is not the current phase.
func (p *Phase) OnRestoreRank(rank int, action func() error) error {
	p.mustBeCurrent()
	if p.Restored() {
		return action()
	}
	if p.AddMultiThreadedHookRank(rank, restoreAction(action)) {
		return nil
	}
	return action()
}

// BlockAddHooks refuses every later hook addition. Existing groups keep
// their hooks. It panics if p is not the current phase.
func (p *Phase) BlockAddHooks() {
	p.mustBeCurrent()
	p.block()
}

func (p *Phase) block() {
	p.mu.Lock()
	already := p.blocked
	p.blocked = true
	p.mu.Unlock()
	if !already {
		observability.LogHooksBlocked(p.logger, p.kind.String())
	}
}

// Register publishes every open group, existing and future, through pub.
// Register(nil) releases the current publisher and unpublishes the open
// groups from it. Publisher methods are called with the phase locked and
// must not call back into it.
func (p *Phase) Register(pub Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pub = pub
	for _, m := range p.groups {
		for _, g := range m {
			g.setPublisher(pub)
		}
	}
}

// Groups returns the open groups of mode in descending rank order, which is
// the order they should be prepared in.
func (p *Phase) Groups(mode Mode) []*HookGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	groups := make([]*HookGroup, 0, len(p.groups[mode]))
	for _, g := range p.groups[mode] {
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b *HookGroup) int { return cmp.Compare(b.rank, a.rank) })
	return groups
}

// claimNext returns the highest-rank open group of mode and makes its rank
// the sweep position. Additions at that rank or above are
// refused from then on. When no group is left the mode is sealed and nil is
// returned.
func (p *Phase) claimNext(mode Mode) *HookGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	var next *HookGroup
	for _, g := range p.groups[mode] {
		if next == nil || g.rank > next.rank {
			next = g
		}
	}
	if next == nil {
		p.floors[mode].lower(math.MinInt)
		return nil
	}
	p.floors[mode].lower(next.rank)
	return next
}

// detach drops g from the phase. A prepared group also lowers the floor of
// its mode so its rank cannot be reopened.
func (p *Phase) detach(g *HookGroup, prepared bool) {
	p.mu.Lock()
	if cur, ok := p.groups[g.mode][g.rank]; ok && cur == g {
		delete(p.groups[g.mode], g.rank)
	}
	if prepared {
		p.floors[g.mode].lower(g.rank)
		p.locked++
	}
	p.mu.Unlock()
	observability.LogGroupRemoved(p.logger, p.kind.String(), g.mode.String(), g.rank)
}
