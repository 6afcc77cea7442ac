package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

func TestParseEntity(t *testing.T) {
	for _, valid := range []string{"contacts", "chats", "all"} {
		entity, err := parseEntity(valid)
		require.NoError(t, err)
		assert.Equal(t, models.EntityType(valid), entity)
	}

	_, err := parseEntity("invoices")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid entity")
}

func TestExtractFlagOptions(t *testing.T) {
	opts, err := extractFlagOptions(true, "30d", "2026-01-01", "2026-01-31", 250, 4)
	require.NoError(t, err)

	assert.True(t, opts.FullSync)
	assert.Equal(t, models.TimeRange30d, opts.TimeRangePreset)
	assert.Equal(t, 250, opts.BatchSize)
	assert.Equal(t, 4, opts.MaxPages)
	require.NotNil(t, opts.StartDate)
	require.NotNil(t, opts.EndDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *opts.StartDate)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *opts.EndDate)
}

func TestExtractFlagOptionsEmpty(t *testing.T) {
	opts, err := extractFlagOptions(false, "", "", "", 0, 0)
	require.NoError(t, err)

	assert.False(t, opts.FullSync)
	assert.Empty(t, opts.TimeRangePreset)
	assert.Nil(t, opts.StartDate)
	assert.Nil(t, opts.EndDate)
}

func TestExtractFlagOptionsRejectsBadInput(t *testing.T) {
	_, err := extractFlagOptions(false, "fortnight", "", "", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid preset")

	_, err = extractFlagOptions(false, "", "January 1", "", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start-date")

	_, err = extractFlagOptions(false, "", "", "2026-13-40", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end-date")
}

func TestConfigFilePath(t *testing.T) {
	assert.Equal(t, "", configFilePath(""))
	assert.Equal(t, "", configFilePath("."))
	assert.Equal(t, "deploy/config/b2sync.yaml", configFilePath("deploy/config"))
}

func TestResolvePodID(t *testing.T) {
	t.Setenv("POD_ID", "pod-7")
	t.Setenv("HOSTNAME", "host-3")
	assert.Equal(t, "pod-7", resolvePodID())

	t.Setenv("POD_ID", "")
	assert.Equal(t, "host-3", resolvePodID())

	t.Setenv("HOSTNAME", "")
	assert.Equal(t, "local", resolvePodID())
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"extract", "transform", "worker", "status", "cancel", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	flag := root.PersistentFlags().Lookup("config-dir")
	require.NotNil(t, flag)
}
