package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/user/loxrelay/internal/config"
)

func snapshotWith(f func(*config.File)) *config.Snapshot {
	cfg := config.Defaults()
	cfg.Processing.ExpandJSON = true
	f(&cfg)
	return config.NewSnapshot(cfg)
}

func TestProcessFilterRejectsTopLevelTopic(t *testing.T) {
	p := New([]string{"^ignore/.*"}, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {})

	out := p.Process("ignore/something", []byte("v"), snap, nil)
	require.Empty(t, out)
}

func TestProcessJSONExpansionWithSecondPassFilter(t *testing.T) {
	p := New([]string{"ignore/.*"}, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {})

	payload := []byte(`{"key1":"v1","ignore":{"nested":"v2"}}`)
	out := p.Process("original/topic", payload, snap, nil)

	require.Len(t, out, 1)
	require.Equal(t, "original/topic/key1", out[0].Topic)
	require.Equal(t, "v1", out[0].Value)
}

func TestProcessWhitelistGateWithNormalization(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {
		f.Processing.ExpandJSON = false
		f.Topics.TopicWhitelist = []string{"some_allowed_topic"}
	})

	out := p.Process("some/allowed/topic", []byte("x"), snap, nil)
	require.Len(t, out, 1)
	require.Equal(t, "some/allowed/topic", out[0].Topic)
	require.Equal(t, "x", out[0].Value)

	out = p.Process("other/topic", []byte("x"), snap, nil)
	require.Empty(t, out)
}

func TestProcessEmptyWhitelistDropsNothing(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) { f.Processing.ExpandJSON = false })

	out := p.Process("anything/goes", []byte("x"), snap, nil)
	require.Len(t, out, 1)
}

func TestProcessDoNotForwardGate(t *testing.T) {
	p := New(nil, []string{"^secret/.*"}, 100, nil)
	snap := snapshotWith(func(f *config.File) { f.Processing.ExpandJSON = false })

	out := p.Process("secret/value", []byte("x"), snap, nil)
	require.Empty(t, out)
}

func TestProcessCanonicalizesValues(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) { f.Processing.ExpandJSON = false })

	out := p.Process("a/b", []byte("TRUE"), snap, nil)
	require.Len(t, out, 1)
	require.Equal(t, "1", out[0].Value)
}

func TestProcessEchoCallbackFiresInYieldOrder(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {})

	var echoed []string
	echo := func(topic, value string) { echoed = append(echoed, topic) }

	payload := []byte(`{"a":1,"b":2}`)
	p.Process("t", payload, snap, echo)

	require.Equal(t, []string{"t/a", "t/b"}, echoed)
}

func TestProcessNeverPanicsOnBinaryPayload(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {})

	require.NotPanics(t, func() {
		p.Process("sensor/raw", []byte{120, 156, 165, 125, 217, 142}, snap, nil)
	})
}

func TestClearCachesEmptiesMemoization(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {
		f.Processing.ExpandJSON = false
		f.Topics.TopicWhitelist = []string{"a_b"}
	})

	p.Process("a/b", []byte("on"), snap, nil)
	require.Equal(t, 1, p.normalizeCache.Len())
	require.Equal(t, 1, p.canonicalizeCache.Len())
	require.Equal(t, 1, p.whitelistCache.Len())

	p.ClearCaches()
	require.Equal(t, 0, p.normalizeCache.Len())
	require.Equal(t, 0, p.canonicalizeCache.Len())
	require.Equal(t, 0, p.whitelistCache.Len())
}

func TestWhitelistCacheEmptyImmediatelyAfterReplacement(t *testing.T) {
	p := New(nil, nil, 100, nil)
	snap := snapshotWith(func(f *config.File) {
		f.Processing.ExpandJSON = false
		f.Topics.TopicWhitelist = []string{"a_b"}
	})

	p.Process("a/b", []byte("on"), snap, nil)
	require.Equal(t, 1, p.whitelistCache.Len())

	// Simulating a whitelist replacement: the caller always pairs a new
	// Snapshot with a ClearCaches call (spec §4.5/§8).
	p.ClearCaches()
	require.Equal(t, 0, p.whitelistCache.Len())

	newSnap := snapshotWith(func(f *config.File) {
		f.Processing.ExpandJSON = false
		f.Topics.TopicWhitelist = []string{"c_d"}
	})
	out := p.Process("a/b", []byte("on"), newSnap, nil)
	require.Empty(t, out)
}
