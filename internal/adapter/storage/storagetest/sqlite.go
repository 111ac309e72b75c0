package storagetest

import (
	"context"
	"database/sql"
	_ "embed"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
	"path/filepath"
	"testing"
	"time"
)

//go:embed schema.sql
var schema string

// One connection, so transactions never contend for the file lock.
func Open(t *testing.T) *storage.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "routines.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)

	return &storage.DB{DB: db}
}

func AddProfile(t *testing.T, db *storage.DB, userID, fullName, role string) {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO profiles (user_id, full_name, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		userID, fullName, userID+"@club.test", role, now, now,
	)
	require.NoError(t, err)
}

func Count(t *testing.T, db *storage.DB, table, where string, args ...any) int {
	t.Helper()

	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT count(*) FROM "+table+" WHERE "+where, args...,
	).Scan(&n)
	require.NoError(t, err)
	return n
}
