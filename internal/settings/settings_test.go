package settings_test

import (
	"context"
	"path/filepath"
	"testing"

	"cdnlocal/internal/settings"
	storageapi "cdnlocal/pkg/storage"

	"github.com/stretchr/testify/require"
)

func fullMap() settings.Map {
	return settings.Map{
		settings.KeyPath:             "/srv/cdn",
		settings.KeyURLServe:         "http://cdn.example.com",
		settings.KeyURLServeSecure:   "https://cdn.example.com",
		settings.KeyURLProcess:       "http://cdn.example.com",
		settings.KeyURLProcessSecure: "https://cdn.example.com",
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	s, err := settings.Resolve(fullMap())
	require.NoError(t, err)
	require.Equal(t, "/srv/cdn", s.Path)
	require.Equal(t, "https://cdn.example.com", s.ProcessSecureURI)
}

func TestResolveReportsEveryMissingKey(t *testing.T) {
	t.Parallel()

	m := fullMap()
	delete(m, settings.KeyPath)
	m[settings.KeyURLServeSecure] = ""

	_, err := settings.Resolve(m)
	require.ErrorIs(t, err, storageapi.ErrConfigurationMissing)
	require.Contains(t, err.Error(), `"path"`)
	require.Contains(t, err.Error(), `"uri_serve_secure"`)
}

func TestResolveNoProvider(t *testing.T) {
	t.Parallel()

	_, err := settings.Resolve(nil)
	require.ErrorIs(t, err, storageapi.ErrConfigurationMissing)
}

func TestWithDefaultsOnlyFillsGaps(t *testing.T) {
	t.Parallel()

	s, err := settings.Resolve(settings.WithDefaults(settings.Map{settings.KeyPath: "/data"}))
	require.NoError(t, err)
	require.Equal(t, "/data", s.Path)
	require.Equal(t, "cdn", s.ServeURI)
}

func TestChainSkipsEmptyValues(t *testing.T) {
	t.Parallel()

	chain := settings.Chain{
		settings.Map{settings.KeyPath: ""},
		nil,
		settings.Map{settings.KeyPath: "/from/snapshot"},
	}

	v, ok := chain.Lookup(settings.KeyPath)
	require.True(t, ok)
	require.Equal(t, "/from/snapshot", v, "an empty value must not hide later providers")

	s, err := settings.Resolve(settings.WithDefaults(settings.Map{settings.KeyURLServe: ""}))
	require.NoError(t, err)
	require.Equal(t, "cdn", s.ServeURI)
}

func TestEmptyEnvDoesNotShadowSnapshot(t *testing.T) {
	t.Setenv("CDN_LOCAL_PATH", "")

	v, ok := settings.Chain{settings.Env{}, settings.Map{settings.KeyPath: "/srv/cdn"}}.Lookup(settings.KeyPath)
	require.True(t, ok)
	require.Equal(t, "/srv/cdn", v)
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("CDN_LOCAL_PATH", "/from/env")
	t.Setenv("TEST_URI_SERVE", "http://env.example.com")

	v, ok := settings.Env{}.Lookup(settings.KeyPath)
	require.True(t, ok)
	require.Equal(t, "/from/env", v)

	v, ok = settings.Env{Prefix: "TEST_"}.Lookup(settings.KeyURLServe)
	require.True(t, ok)
	require.Equal(t, "http://env.example.com", v)

	_, ok = settings.Env{Prefix: "TEST_"}.Lookup(settings.KeyURLProcess)
	require.False(t, ok)
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	t.Parallel()

	require.NoError(t, settings.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "settings.sqlite")

	store, err := settings.OpenSQLite(ctx, dbPath, "")
	require.NoError(t, err, "OpenSQLite error")
	t.Cleanup(func() { _ = store.Close() })

	for k, v := range fullMap() {
		require.NoErrorf(t, store.Set(ctx, k, v), "Set %s", k)
	}
	require.NoError(t, store.Set(ctx, settings.KeyPath, "/srv/other"), "overwriting a key")

	other, err := settings.OpenSQLite(ctx, dbPath, "some-other-component")
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	require.NoError(t, other.Set(ctx, settings.KeyPath, "/elsewhere"))

	m, err := store.Load(ctx)
	require.NoError(t, err, "Load error")
	require.Len(t, m, 5)

	s, err := settings.Resolve(m)
	require.NoError(t, err)
	require.Equal(t, "/srv/other", s.Path, "components must not leak into each other")
}
