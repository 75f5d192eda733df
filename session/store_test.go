package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Put(ctx, "default", "session", []byte("record")))

	got, err := store.Get(ctx, "default", "session")
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), got)
}

func TestInMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.Get(ctx, "default", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "default", "session", []byte("x")))

	_, err = store.Get(ctx, "other", "session")
	assert.ErrorIs(t, err, ErrNotFound, "scopes must be isolated")
}

func TestInMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.Put(ctx, "default", "session", []byte("x")))
	require.NoError(t, store.Delete(ctx, "default", "session"))

	_, err := store.Get(ctx, "default", "session")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing record is not an error.
	assert.NoError(t, store.Delete(ctx, "default", "session"))
}

func TestInMemoryStoreDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	data := []byte("record")
	require.NoError(t, store.Put(ctx, "default", "session", data))
	data[0] = 'X'

	got, err := store.Get(ctx, "default", "session")
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), got, "caller mutation must not reach the store")

	got[0] = 'Y'
	again, err := store.Get(ctx, "default", "session")
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), again)
}
