package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/tvlineup/internal/config"
)

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "sync", "migrate", "logo-worker"}, names)
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestInvalidLogLevel(t *testing.T) {
	err := run(t, "migrate", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid --log-level")
}

func TestMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Chdir(t.TempDir())
	err := run(t, "migrate")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingDatabaseURL)
}

func TestSyncRequiresFeed(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/unused")
	err := run(t, "sync", "--input", "x")
	assert.ErrorContains(t, err, "feed")
}

func TestMigrationsPath(t *testing.T) {
	assert.Contains(t, migrationsPath(), "file://")
}
