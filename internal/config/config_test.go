package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr)
}

func TestInitWritesDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b3.ini")

	c := New(testLogger())
	require.NoError(t, c.Init(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lpf_cutoff")
}

func TestPrintSettingsThenPollRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b3.ini")

	c := New(testLogger())
	c.path = path
	c.LPFCutoff = 321
	c.HPFCutoff = 6543
	c.BodyThreshold = 1234
	c.MouthThreshold = 4321
	c.RMSWindowMs = 15
	c.FlipIntervalMs = 500
	c.ChunkSizeMs = 50
	c.BufferChunks = 2

	require.NoError(t, c.PrintSettings())

	reloaded := New(testLogger())
	reloaded.path = path
	reloaded.Poll()

	assert.Equal(t, c.LPFCutoff, reloaded.LPFCutoff)
	assert.Equal(t, c.HPFCutoff, reloaded.HPFCutoff)
	assert.Equal(t, c.BodyThreshold, reloaded.BodyThreshold)
	assert.Equal(t, c.MouthThreshold, reloaded.MouthThreshold)
	assert.Equal(t, c.RMSWindowMs, reloaded.RMSWindowMs)
	assert.Equal(t, c.FlipIntervalMs, reloaded.FlipIntervalMs)
	assert.Equal(t, c.ChunkSizeMs, reloaded.ChunkSizeMs)
	assert.Equal(t, c.BufferChunks, reloaded.BufferChunks)
}

func TestPollIgnoresUnknownKeysAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b3.ini")
	require.NoError(t, os.WriteFile(path, []byte(
		"# a comment\nunknown_key = 99\nlpf_cutoff = 777\n"), 0o644))

	c := New(testLogger())
	c.path = path
	c.Poll()

	assert.Equal(t, 777.0, c.LPFCutoff)
}

func TestDefaultPinMapMatchesOriginalAssignment(t *testing.T) {
	pm := DefaultPinMap()
	assert.Equal(t, 17, pm.BodyDirA)
	assert.Equal(t, 27, pm.BodyDirB)
	assert.Equal(t, 12, pm.BodySpeed)
	assert.Equal(t, 24, pm.MouthDirA)
	assert.Equal(t, 25, pm.MouthDirB)
	assert.Equal(t, 13, pm.MouthSpeed)
	assert.Len(t, pm.Lines(), 6)
}

func TestLoadPinMapOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chip: /dev/gpiochip1\nbody_speed: 99\n"), 0o644))

	pm, err := LoadPinMap(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/gpiochip1", pm.Chip)
	assert.Equal(t, 99, pm.BodySpeed)
	assert.Equal(t, 17, pm.BodyDirA) // untouched default
}
