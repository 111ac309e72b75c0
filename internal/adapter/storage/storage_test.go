package storage_test

import (
	"context"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	db, err := storage.Open(context.Background(), "sqlite", "file:"+path, storage.PoolOptions{MaxOpenConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, 2, db.Stats().MaxOpenConnections)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), "nope", "", storage.PoolOptions{})
	assert.ErrorIs(t, err, storage.ErrInternal)
}

func TestNestedBeginJoinsTransaction(t *testing.T) {
	db := storagetest.Open(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	nested, err := tx.Begin(ctx)
	require.NoError(t, err)
	assert.Same(t, tx, nested)

	_, err = nested.ExecContext(ctx,
		"INSERT INTO profiles (user_id, full_name, email, role, created_at, updated_at) VALUES ('a-1', 'Ana', 'a@club.test', 'athlete', '2024-01-01', '2024-01-01')")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Zero(t, storagetest.Count(t, db, "profiles", "1 = 1"))
}

func TestInternalError(t *testing.T) {
	cause := errors.New("connection reset")
	err := storage.InternalError(cause)
	assert.ErrorIs(t, err, storage.ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
