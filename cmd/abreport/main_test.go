package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/KpopABLab/internal/storage"
)

func TestSummarizesDay(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
	log := storage.NewEventLog(dir, true)
	require.NoError(t, log.Append([]storage.ExposureEvent{
		{SessionID: "s", Timestamp: day, Variant: storage.VariantA, Impression: 1, Click: 1, Position: 1},
		{SessionID: "s", Timestamp: day, Variant: storage.VariantB, Impression: 1, Position: 2},
	}, day))

	var out bytes.Buffer
	cmd := newCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--log-dir", dir, "--date", "2025-05-04"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "2 rows")
	assert.Contains(t, out.String(), "100.00")
	assert.Contains(t, out.String(), "50.00")
}

func TestEmptyDay(t *testing.T) {
	var out bytes.Buffer
	cmd := newCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--log-dir", t.TempDir(), "--date", "2025-05-04"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "no log rows")
}

func TestBadDate(t *testing.T) {
	cmd := newCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--date", "May 4"})
	assert.Error(t, cmd.Execute())
}
