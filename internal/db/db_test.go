package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", 0)
	require.Error(t, err)
}

func TestOpenAppliesBusyTimeout(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "lotline.db"), 1234)
	require.NoError(t, err)
	defer database.Close()

	var timeout int
	require.NoError(t, database.conn.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 1234, timeout)
}

func TestOpenDefaultsBusyTimeout(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "lotline.db"), 0)
	require.NoError(t, err)
	defer database.Close()

	var timeout int
	require.NoError(t, database.conn.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, defaultBusyTimeoutMs, timeout)
}
