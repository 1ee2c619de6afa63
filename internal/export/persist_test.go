package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_WritesFile(t *testing.T) {
	tbl := newScenarioTable(t)
	path := filepath.Join(t.TempDir(), "users.csv")

	text, err := tbl.Save(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Render(), text)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, text, string(data))
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("old contents that are longer than the new ones\n\n\n"), 0o644))

	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username"}))

	text, err := tbl.Save(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "username", string(data))
	assert.Equal(t, text, string(data))
}

func TestSave_EmptyPath(t *testing.T) {
	tbl := newScenarioTable(t)

	text, err := tbl.Save("")
	require.NoError(t, err)
	assert.Equal(t, tbl.Render(), text)
}

func TestSave_PersistenceError(t *testing.T) {
	tbl := newScenarioTable(t)
	path := filepath.Join(t.TempDir(), "missing", "dir", "users.csv")

	text, err := tbl.Save(path)
	require.Error(t, err)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr), "got %T", err)
	assert.Equal(t, path, perr.Path)
	assert.NotNil(t, errors.Unwrap(err))
	assert.Equal(t, tbl.Render(), text, "text is returned even when the write fails")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
