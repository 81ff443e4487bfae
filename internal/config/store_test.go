package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreReplaceSwapsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	store, err := NewStore(path)
	require.NoError(t, err)

	first := store.Current()
	require.Equal(t, Defaults().General.BaseTopic, first.General.BaseTopic)

	updated := first.File
	updated.General.BaseTopic = "new/"
	require.NoError(t, store.Replace(updated))

	require.Equal(t, "new/", store.Current().General.BaseTopic)
	require.Equal(t, Defaults().General.BaseTopic, first.General.BaseTopic, "prior snapshot stays immutable")

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "new/", reloaded.General.BaseTopic)
}

func TestStoreReplaceWhitelistDedupsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.ReplaceWhitelist([]string{"a", "b", "a"}))

	snap := store.Current()
	require.Len(t, snap.Whitelist, 2)
	_, ok := snap.Whitelist["b"]
	require.True(t, ok)
}
