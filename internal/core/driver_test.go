package core_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cdnlocal/internal/core"
	"cdnlocal/internal/settings"
	storageapi "cdnlocal/pkg/storage"

	"github.com/stretchr/testify/require"
)

const testSecret = "driver-secret"

func testSettings(base string) settings.Map {
	return settings.Map{
		settings.KeyPath:             base,
		settings.KeyURLServe:         "http://cdn.example.com",
		settings.KeyURLServeSecure:   "https://secure.example.com",
		settings.KeyURLProcess:       "http://img.example.com",
		settings.KeyURLProcessSecure: "https://img-secure.example.com",
	}
}

func newDriver(t *testing.T, opts ...core.ConfigOption) (*core.Driver, string) {
	t.Helper()

	base := t.TempDir()
	opts = append([]core.ConfigOption{
		core.WithSettings(testSettings(base)),
		core.WithSecret(testSecret),
		core.WithSiteURL("https://www.example.com"),
	}, opts...)

	driver, err := core.New(core.NewConfig(opts...))
	require.NoError(t, err, "New error")
	return driver, base
}

func TestNewRequiresSettings(t *testing.T) {
	t.Parallel()

	m := testSettings(t.TempDir())
	delete(m, settings.KeyURLProcess)

	_, err := core.New(core.NewConfig(core.WithSettings(m), core.WithSecret(testSecret)))
	require.ErrorIs(t, err, storageapi.ErrConfigurationMissing)
}

func TestNewRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := core.New(core.NewConfig(core.WithSettings(testSettings(t.TempDir()))))
	require.ErrorIs(t, err, storageapi.ErrConfigurationMissing)
}

func TestDriverStorageRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	driver, base := newDriver(t)
	require.Equal(t, base, driver.Settings().Path)

	src := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	require.NoError(t, driver.CreateBucket(ctx, "avatars"))
	require.NoError(t, driver.CreateObject(ctx, "avatars", "me.png", src))
	require.True(t, driver.ObjectExists(ctx, "avatars", "me.png"))

	p, err := driver.ObjectLocalPath(ctx, "avatars", "me.png")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "avatars", "me.png"), p)

	require.NoError(t, driver.DestroyObject(ctx, "avatars", "me.png"))
	require.False(t, driver.ObjectExists(ctx, "avatars", "me.png"))
	require.NoError(t, driver.DestroyBucket(ctx, "avatars"))
}

func TestDriverURLsFollowRequestSecurity(t *testing.T) {
	t.Parallel()

	driver, _ := newDriver(t)

	ctx := context.Background()
	require.False(t, driver.IsSecure(ctx), "contexts are insecure by default")
	require.Equal(t, "http://cdn.example.com/serve/avatars/me.png", driver.URLServe(ctx, "me.PNG", "avatars", false))
	require.Equal(t, "https://www.example.com/assets/uploads/avatars/me.PNG", driver.URLServeRaw(ctx, "me.PNG", "avatars"))

	ctx = core.WithSecure(ctx, true)
	require.True(t, driver.IsSecure(ctx))
	require.Equal(t, "https://secure.example.com/serve/avatars/me.png", driver.URLServe(ctx, "me.PNG", "avatars", false))
	require.Equal(t, "https://img-secure.example.com/crop/10/20/avatars/me.png", driver.URLCrop(ctx, "me.png", "avatars", 10, 20))
}

func TestDriverExpiringURLWithFixedClock(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	driver, _ := newDriver(t, core.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	first, err := driver.URLExpiring(ctx, "doc.pdf", "private", time.Hour, true)
	require.NoError(t, err)
	second, err := driver.URLExpiring(ctx, "doc.pdf", "private", time.Hour, true)
	require.NoError(t, err)

	require.Equal(t, first, second, "same instant and inputs give the same token")
	require.Contains(t, first, "http://img.example.com/serve?token=")
	require.Contains(t, first, "&dl=1")
}

func TestDriverCustomSecureDetector(t *testing.T) {
	t.Parallel()

	driver, _ := newDriver(t, core.WithSecureDetector(storageapi.SecureDetectorFunc(func(context.Context) bool { return true })))

	got := driver.URLPlaceholder(context.Background(), 0, 0, -1)
	require.Equal(t, "https://img-secure.example.com/placeholder/100/100/0", got)
}
