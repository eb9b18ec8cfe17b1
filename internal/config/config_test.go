package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hueplus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: /dev/ttyACM0\nwait_period: 150ms\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", c.Port)
	assert.Equal(t, 150*time.Millisecond, c.WaitPeriod)
	assert.Equal(t, 30*time.Second, c.ConnectTimeout)
	assert.Equal(t, 3*time.Second, c.ProbeInterval)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.StrictDisconnect)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hueplus.yaml")
	want := Config{
		Port:             "COM3",
		WaitPeriod:       500 * time.Millisecond,
		ConnectTimeout:   0,
		ProbeInterval:    time.Second,
		StrictDisconnect: true,
		LogLevel:         "debug",
	}
	require.NoError(t, Save(path, &want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestLoadRejectsNegativeDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hueplus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wait_period: -1s\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
