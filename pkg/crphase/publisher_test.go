package crphase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKey_String(t *testing.T) {
	assert.Equal(t, "multi/10", GroupKey{Mode: MultiThreaded, Rank: 10}.String())
	assert.Equal(t, "single/-3", GroupKey{Mode: SingleThreaded, Rank: -3}.String())
}

func TestRegistryPublisher(t *testing.T) {
	pub := NewRegistryPublisher()
	_, p := newCurrent("BEFORE_APP_START", WithPublisher(pub))

	require.True(t, p.AddMultiThreadedHookRank(1, NopHook{}))
	require.True(t, p.AddMultiThreadedHookRank(7, NopHook{}))
	require.True(t, p.AddMultiThreadedHookRank(-2, NopHook{}))
	require.True(t, p.AddSingleThreadedHookRank(3, NopHook{}))

	multi := pub.Groups(MultiThreaded)
	require.Len(t, multi, 3)
	assert.Equal(t, []int{7, 1, -2}, []int{multi[0].Rank(), multi[1].Rank(), multi[2].Rank()})
	assert.Len(t, pub.Groups(SingleThreaded), 1)

	g, ok := pub.Lookup(MultiThreaded, 7)
	require.True(t, ok)
	require.NoError(t, g.Prepare(context.Background()))

	_, ok = pub.Lookup(MultiThreaded, 7)
	assert.False(t, ok, "prepared groups are unpublished")
	assert.Equal(t, 3, pub.Len())
}

func TestRegistryPublisher_ExternalDriver(t *testing.T) {
	log := &eventLog{}
	pub := NewRegistryPublisher()
	_, p := newCurrent("AFTER_APP_START", WithPublisher(pub))
	require.True(t, p.AddSingleThreadedHookRank(5, recordingHook("H1", log)))
	require.True(t, p.AddSingleThreadedHookRank(1, recordingHook("H2", log)))

	ctx := context.Background()
	var prepared []*HookGroup
	for _, g := range pub.Groups(SingleThreaded) {
		require.NoError(t, g.Prepare(ctx))
		prepared = append(prepared, g)
	}
	for i := len(prepared) - 1; i >= 0; i-- {
		assert.False(t, p.Restored(), "restored only after the last group")
		require.NoError(t, prepared[i].Restore(ctx))
	}

	assert.Equal(t, []string{"H1:prepare", "H2:prepare", "H2:restore", "H1:restore"}, log.list())
	assert.Equal(t, 0, pub.Len())
	assert.True(t, p.Restored())

	ran := false
	require.NoError(t, p.OnRestoreRank(-1, func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran, "OnRestore after an external restore runs immediately")
	assert.Equal(t, 0, pub.Len())
}

func TestRegistryPublisher_UnpublishKeepsReplacement(t *testing.T) {
	pub := NewRegistryPublisher()
	_, p := newCurrent("BEFORE_APP_START")
	p.Register(pub)

	require.True(t, p.AddSingleThreadedHookRank(0, NopHook{}))
	old := p.Groups(SingleThreaded)[0]
	old.CheckpointFailed(context.Background())

	require.True(t, p.AddSingleThreadedHookRank(0, NopHook{}))
	replacement, ok := pub.Lookup(SingleThreaded, 0)
	require.True(t, ok)
	assert.NotSame(t, old, replacement)

	pub.Unpublish(old)
	_, ok = pub.Lookup(SingleThreaded, 0)
	assert.True(t, ok, "stale unpublish leaves the new group")
}
