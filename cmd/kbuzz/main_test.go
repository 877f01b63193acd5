package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LJTian/KpopABLab/internal/config"
)

func TestRequiresYouTubeKey(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")

	cmd := newCommand()
	cmd.SetArgs([]string{"--artists_csv", "does-not-matter.csv"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestFlagDefaults(t *testing.T) {
	cmd := newCommand()
	days, err := cmd.Flags().GetInt("days")
	assert.NoError(t, err)
	assert.Equal(t, 14, days)

	artists, _ := cmd.Flags().GetString("artists_csv")
	assert.Equal(t, "data/artists.sample.csv", artists)

	out, _ := cmd.Flags().GetString("out")
	assert.Regexp(t, `^data/kbuzz_\d{4}-\d{2}-\d{2}\.csv$`, out)
}
