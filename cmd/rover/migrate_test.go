package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rover.db")
	var out bytes.Buffer

	require.NoError(t, runMigrate([]string{"status"}, db, &out))
	assert.Contains(t, out.String(), "Current version: 0")

	out.Reset()
	require.NoError(t, runMigrate([]string{"up"}, db, &out))
	assert.Contains(t, out.String(), "Current version: 2 (dirty: false)")

	out.Reset()
	require.NoError(t, runMigrate([]string{"down"}, db, &out))
	assert.Contains(t, out.String(), "Current version: 1")

	out.Reset()
	require.NoError(t, runMigrate([]string{"version", "2"}, db, &out))
	assert.Contains(t, out.String(), "Current version: 2")
}

func TestRunMigrate_BadArguments(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rover.db")

	tests := []struct {
		name string
		args []string
	}{
		{"no action", nil},
		{"unknown action", []string{"sideways"}},
		{"version without number", []string{"version"}},
		{"force without number", []string{"force"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runMigrate(tt.args, db, &out)
			assert.ErrorIs(t, err, errMigrateUsage)
			assert.Contains(t, out.String(), "Usage: rover migrate")
		})
	}

	var out bytes.Buffer
	assert.Error(t, runMigrate([]string{"force", "two"}, db, &out))
	assert.NoError(t, runMigrate([]string{"help"}, db, &out))
}
