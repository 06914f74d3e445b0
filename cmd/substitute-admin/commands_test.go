package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAdminCommandsAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("BCRYPT_COST", "4")

	out, err := runAdmin(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 1")
	assert.FileExists(t, filepath.Join(dir, "database.db"))

	out, err = runAdmin(t, "seed", "--password", "demo-password")
	require.NoError(t, err)
	assert.Contains(t, out, "admin, manager, substitute")
	assert.NotContains(t, out, "generated password")

	out, err = runAdmin(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "already seeded")

	original := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = original })
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("another-password"), nil }

	out, err = runAdmin(t, "create-user", "--username", "sam", "--email", "sam@example.com", "--first-name", "Sam", "--last-name", "Cover")
	require.NoError(t, err)
	assert.Contains(t, out, "created sam (substitute)")

	_, err = runAdmin(t, "create-user", "--username", "sam", "--email", "sam@example.com", "--first-name", "Sam", "--last-name", "Cover")
	assert.Error(t, err)

	out, err = runAdmin(t, "set-password", "--username", "sam")
	require.NoError(t, err)
	assert.Contains(t, out, "password updated for sam")

	out, err = runAdmin(t, "export", "--status", "filled")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 requests")

	files, err := os.ReadDir(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0].Name(), ".csv"))
}

func TestAdminExportRejectsUnknownStatus(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "error")

	_, err := runAdmin(t, "export", "--status", "pending")
	assert.Error(t, err)
}

func TestCreateUserRejectsEmptyPassword(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "error")

	original := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = original })
	readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }

	_, err := runAdmin(t, "create-user", "--username", "x", "--email", "x@example.com", "--first-name", "X", "--last-name", "Y")
	assert.Error(t, err)
}
