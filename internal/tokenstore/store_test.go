package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

const testOrigin = "https://api.rizz.example"

func openBoth(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	web, err := Open(ctx, domain.PlatformWeb, Options{Dir: t.TempDir(), Origin: testOrigin})
	require.NoError(t, err)
	secure, err := Open(ctx, domain.PlatformNative, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		web.Close()
		secure.Close()
	})
	return map[string]Store{"web": web, "secure": secure}
}

func TestOpen_SelectsVariant(t *testing.T) {
	stores := openBoth(t)

	assert.Equal(t, domain.PlatformWeb, stores["web"].Kind())
	assert.IsType(t, &Web{}, stores["web"])
	assert.Equal(t, domain.PlatformNative, stores["secure"].Kind())
	assert.IsType(t, &Secure{}, stores["secure"])
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(context.Background(), domain.PlatformKind("tv"), Options{Dir: t.TempDir()})
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := store.Get(ctx)
			assert.False(t, ok, "empty store")

			require.NoError(t, store.Set(ctx, "tok_abc"))
			got, ok := store.Get(ctx)
			assert.True(t, ok)
			assert.Equal(t, "tok_abc", got)

			require.NoError(t, store.Set(ctx, "tok_new"))
			got, _ = store.Get(ctx)
			assert.Equal(t, "tok_new", got)
		})
	}
}

func TestStore_SetEmptyClears(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "tok_abc"))
			require.NoError(t, store.Set(ctx, ""))

			_, ok := store.Get(ctx)
			assert.False(t, ok)
		})
	}
}

func TestStore_ClearTwice(t *testing.T) {
	ctx := context.Background()
	for name, store := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "tok_abc"))

			assert.NoError(t, store.Clear(ctx))
			assert.NoError(t, store.Clear(ctx))

			_, ok := store.Get(ctx)
			assert.False(t, ok)
		})
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()

	for _, kind := range []domain.PlatformKind{domain.PlatformWeb, domain.PlatformNative} {
		t.Run(string(kind), func(t *testing.T) {
			opts := Options{Dir: t.TempDir(), Origin: testOrigin}

			first, err := Open(ctx, kind, opts)
			require.NoError(t, err)
			require.NoError(t, first.Set(ctx, "tok_abc"))
			require.NoError(t, first.Close())

			second, err := Open(ctx, kind, opts)
			require.NoError(t, err)
			defer second.Close()

			got, ok := second.Get(ctx)
			assert.True(t, ok)
			assert.Equal(t, "tok_abc", got)
		})
	}
}

func TestWeb_CustomKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewWeb(Options{Dir: dir, Origin: testOrigin, Key: "custom"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "tok"))

	other, err := NewWeb(Options{Dir: dir, Origin: testOrigin})
	require.NoError(t, err)
	_, ok := other.Get(ctx)
	assert.False(t, ok, "default key must not see custom key")
}

func TestWeb_InvalidOrigin(t *testing.T) {
	_, err := NewWeb(Options{Dir: t.TempDir(), Origin: "nope"})
	assert.ErrorIs(t, err, domain.ErrTokenStoreUnavailable)
}

func TestSecure_KeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSecure(context.Background(), Options{Dir: dir})
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(filepath.Join(dir, secureKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSecure_NoPlaintextAtRest(t *testing.T) {
	ctx := context.Background()
	store, err := NewSecure(ctx, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "tok_plaintext_marker"))

	var ciphertext []byte
	err = store.db.QueryRow("SELECT ciphertext FROM secure_items WHERE name = ?", DefaultKey).Scan(&ciphertext)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "tok_plaintext_marker")
}

func TestSecure_TamperedItemIsAbsent(t *testing.T) {
	ctx := context.Background()
	store, err := NewSecure(ctx, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "tok_abc"))
	_, err = store.db.Exec("UPDATE secure_items SET ciphertext = ? WHERE name = ?", []byte("garbage-garbage-garbage"), DefaultKey)
	require.NoError(t, err)

	_, ok := store.Get(ctx)
	assert.False(t, ok)
}

func TestSecure_WrongKeyIsAbsent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	keyA, err := GenerateKey()
	require.NoError(t, err)
	keyB, err := GenerateKey()
	require.NoError(t, err)

	a, err := NewSecure(ctx, Options{Dir: dir, SecretKey: keyA})
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "tok_abc"))
	require.NoError(t, a.Close())

	b, err := NewSecure(ctx, Options{Dir: dir, SecretKey: keyB})
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Get(ctx)
	assert.False(t, ok)
}

func TestSecure_InvalidSecretKey(t *testing.T) {
	_, err := NewSecure(context.Background(), Options{Dir: t.TempDir(), SecretKey: "c2hvcnQ="})
	assert.ErrorIs(t, err, domain.ErrTokenStoreUnavailable)
}
