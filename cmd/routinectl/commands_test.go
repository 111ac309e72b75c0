package main

import (
	"bytes"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCSVToJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "legs.csv")
	require.NoError(t, os.WriteFile(src, []byte("name,sets,reps\nSquats,3,10\nLunges,3,12\n"), 0o644))

	out, err := run(t, "convert", src, "--to", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Squats"`)
	assert.Contains(t, out, `"name": "Lunges"`)
	assert.Contains(t, out, `"assigned_users": []`)
}

func TestConvertToFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "legs.json")
	dst := filepath.Join(dir, "legs.csv")
	require.NoError(t, os.WriteFile(src, []byte(`{"routine":{"title":"Legs","exercises":[{"name":"Squats","sets":3}]}}`), 0o644))

	_, err := run(t, "convert", src, "--to", "csv", "-o", dst)
	require.NoError(t, err)

	written, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"Legs"`)
	assert.Contains(t, string(written), `"Squats","3"`)
}

func TestConvertRejectsUnknownFormat(t *testing.T) {
	src := filepath.Join(t.TempDir(), "legs.csv")
	require.NoError(t, os.WriteFile(src, []byte("name\nSquats\n"), 0o644))

	_, err := run(t, "convert", src, "--to", "xml")
	require.Error(t, err)

	_, err = run(t, "convert", filepath.Join(t.TempDir(), "legs.txt"), "--to", "json")
	require.Error(t, err)
}

func TestToken(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join([]string{
		"app:",
		"  env: dev",
		"db:",
		"  dsn: postgres://localhost/routines",
		"jwt:",
		"  secret: cli-secret",
		"  access_token_ttl: 1h",
	}, "\n")), 0o644))

	out, err := run(t, "token", "--config", cfgPath, "--user", "t-1", "--role", "trainer", "--ttl", "5m")
	require.NoError(t, err)

	authorizer := &identity.Authorizer{Secret: "cli-secret", AccessTokenTTL: time.Hour}
	data, err := authorizer.ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "t-1", data.UserID)
	assert.Equal(t, profile.RoleTrainer, data.Role)

	_, err = run(t, "token", "--config", cfgPath, "--user", "t-1", "--role", "coach")
	require.ErrorIs(t, err, profile.ErrInvalidRole)
}
