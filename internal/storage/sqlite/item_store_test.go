package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemStore_Put_Get(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore(openTestDB(t))

	item := Item{Name: "session_token", Nonce: []byte{1, 2, 3}, Ciphertext: []byte("sealed")}
	require.NoError(t, store.Put(ctx, item))

	loaded, err := store.Get(ctx, "session_token")
	require.NoError(t, err)
	assert.Equal(t, item.Nonce, loaded.Nonce)
	assert.Equal(t, item.Ciphertext, loaded.Ciphertext)
	assert.False(t, loaded.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestItemStore_Put_Replaces(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore(openTestDB(t))

	require.NoError(t, store.Put(ctx, Item{Name: "session_token", Nonce: []byte{1}, Ciphertext: []byte("old")}))
	require.NoError(t, store.Put(ctx, Item{Name: "session_token", Nonce: []byte{2}, Ciphertext: []byte("new")}))

	loaded, err := store.Get(ctx, "session_token")
	require.NoError(t, err)
	assert.Equal(t, "new", string(loaded.Ciphertext))

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestItemStore_Get_NotFound(t *testing.T) {
	store := NewItemStore(openTestDB(t))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore(openTestDB(t))

	require.NoError(t, store.Put(ctx, Item{Name: "session_token", Nonce: []byte{1}, Ciphertext: []byte("x")}))

	require.NoError(t, store.Delete(ctx, "session_token"))
	require.NoError(t, store.Delete(ctx, "session_token"), "second Delete")

	_, err := store.Get(ctx, "session_token")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemStore_Names(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore(openTestDB(t))

	for _, name := range []string{"b", "a"} {
		require.NoError(t, store.Put(ctx, Item{Name: name, Nonce: []byte{0}, Ciphertext: []byte(name)}))
	}

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestItemStore_ContextCancelled(t *testing.T) {
	store := NewItemStore(openTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, Item{Name: "x", Nonce: []byte{0}, Ciphertext: []byte("x")})
	assert.Error(t, err)
}
