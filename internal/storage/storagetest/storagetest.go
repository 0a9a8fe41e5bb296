// Package storagetest holds the behavioural test suite every storage.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oauthprompt/internal/storage"
)

// Run exercises a Storage implementation. newStorage must return an empty store.
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("read missing key", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.Read(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("write then read", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Write(ctx, "test/conversations/Convo1", []byte(`{"a":1}`)))

		got, err := s.Read(ctx, "test/conversations/Convo1")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(got))
	})

	t.Run("overwrite keeps last value", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Write(ctx, "k", []byte("first")))
		require.NoError(t, s.Write(ctx, "k", []byte("second")))

		got, err := s.Read(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("binary values round trip", func(t *testing.T) {
		s := newStorage(t)
		data := []byte{0xff, 0x00, 0xfe, 'a'}
		require.NoError(t, s.Write(ctx, "bin", data))

		got, err := s.Read(ctx, "bin")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("keys differing in special characters are distinct", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Write(ctx, "a/b", []byte("slash")))
		require.NoError(t, s.Write(ctx, "a_b", []byte("underscore")))

		got, err := s.Read(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, "slash", string(got))

		got, err = s.Read(ctx, "a_b")
		require.NoError(t, err)
		assert.Equal(t, "underscore", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Write(ctx, "k", []byte("v")))
		require.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Read(ctx, "k")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Deleting again is not an error.
		assert.NoError(t, s.Delete(ctx, "k"))
	})

	t.Run("list by prefix", func(t *testing.T) {
		s := newStorage(t)
		require.NoError(t, s.Write(ctx, "tokens/test/u1/github", []byte("1")))
		require.NoError(t, s.Write(ctx, "tokens/test/u2/github", []byte("2")))
		require.NoError(t, s.Write(ctx, "test/conversations/c1", []byte("3")))

		keys, err := s.List(ctx, "tokens/")
		require.NoError(t, err)
		assert.Equal(t, []string{"tokens/test/u1/github", "tokens/test/u2/github"}, keys)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		s := newStorage(t)
		assert.Error(t, s.Write(ctx, " ", []byte("v")))
	})
}
