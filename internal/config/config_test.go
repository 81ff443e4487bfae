package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), f)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	f := Defaults()
	f.Topics.TopicWhitelist = []string{"b", "a", "a"}
	f.Broker.User = "bob"

	require.NoError(t, Save(path, f))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, got.Topics.TopicWhitelist)
	require.Equal(t, "bob", got.Broker.User)
}

func TestLoadNormalizesBaseTopic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	f := Defaults()
	f.General.BaseTopic = "myrelay"
	require.NoError(t, Save(path, f))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "myrelay/", got.General.BaseTopic)
}

func TestRedactedStripsCredentials(t *testing.T) {
	f := Defaults()
	f.Broker.User = "u"
	f.Broker.Password = "p"
	f.Miniserver.User = "mu"
	f.Miniserver.Password = "mp"

	r := Redacted(f)
	require.Empty(t, r.Broker.User)
	require.Empty(t, r.Broker.Password)
	require.Empty(t, r.Miniserver.User)
	require.Empty(t, r.Miniserver.Password)
	require.Equal(t, f.Broker.Host, r.Broker.Host)
}

func TestApplyUpdatesSet(t *testing.T) {
	base := Defaults()
	out, err := ApplyUpdates(base, map[string]interface{}{
		"base_topic": "other/",
		"cache_size": float64(42),
	}, ModeSet)
	require.NoError(t, err)
	require.Equal(t, "other/", out.General.BaseTopic)
	require.Equal(t, 42, out.General.CacheSize)
	require.Equal(t, Defaults(), base, "base must not be mutated")
}

func TestApplyUpdatesListModes(t *testing.T) {
	base := Defaults()
	base.Topics.TopicWhitelist = []string{"a", "b"}

	added, err := ApplyUpdates(base, map[string]interface{}{
		"topic_whitelist": []interface{}{"b", "c"},
	}, ModeAdd)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, added.Topics.TopicWhitelist)

	removed, err := ApplyUpdates(base, map[string]interface{}{
		"topic_whitelist": []interface{}{"a"},
	}, ModeRemove)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, removed.Topics.TopicWhitelist)

	replaced, err := ApplyUpdates(base, map[string]interface{}{
		"topic_whitelist": []interface{}{"z"},
	}, ModeSet)
	require.NoError(t, err)
	require.Equal(t, []string{"z"}, replaced.Topics.TopicWhitelist)
}

func TestApplyUpdatesUnknownField(t *testing.T) {
	_, err := ApplyUpdates(Defaults(), map[string]interface{}{"nope": "x"}, ModeSet)
	require.Error(t, err)
}

func TestApplyUpdatesTypeMismatch(t *testing.T) {
	_, err := ApplyUpdates(Defaults(), map[string]interface{}{"cache_size": "not a number"}, ModeSet)
	require.Error(t, err)
}
