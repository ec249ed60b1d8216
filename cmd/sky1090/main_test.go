package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sky1090/internal/app"
)

// execute runs the root command and returns the configuration handed to run
func execute(t *testing.T, args ...string) (app.Config, string, error) {
	t.Helper()

	var (
		got    app.Config
		called bool
		out    bytes.Buffer
	)
	cmd := newRootCommand(&out, func(config app.Config) error {
		got = config
		called = true
		return nil
	})
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	if err == nil && !called && out.Len() == 0 {
		t.Fatal("command neither ran nor printed")
	}
	return got, out.String(), err
}

func TestRootCommandDefaults(t *testing.T) {
	config, _, err := execute(t)
	require.NoError(t, err)

	assert.Equal(t, app.DefaultConfig(), config)
}

func TestRootCommandFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, c app.Config)
	}{
		{
			name: "radio settings",
			args: []string{"-f", "1090500000", "-g", "30", "-d", "1", "--bandwidth", "1500000", "--timeout", "2s"},
			verify: func(t *testing.T, c app.Config) {
				assert.Equal(t, uint32(1090500000), c.Frequency)
				assert.Equal(t, 30, c.Gain)
				assert.Equal(t, 1, c.DeviceIndex)
				assert.Equal(t, uint32(1500000), c.Bandwidth)
				assert.Equal(t, 2*time.Second, c.ReceiveTimeout)
			},
		},
		{
			name: "pipeline settings",
			args: []string{"--input", "capture.sc16", "--buffer", "4096", "--workers", "4", "--cycles", "10"},
			verify: func(t *testing.T, c app.Config) {
				assert.Equal(t, "capture.sc16", c.Input)
				assert.Equal(t, 4096, c.BufferSize)
				assert.Equal(t, 4, c.Workers)
				assert.Equal(t, 10, c.MaxCycles)
			},
		},
		{
			name: "resolver settings",
			args: []string{"--max-pair-age", "3s", "--aircraft-ttl", "1m", "--require-crc=false"},
			verify: func(t *testing.T, c app.Config) {
				assert.Equal(t, 3*time.Second, c.MaxPairAge)
				assert.Equal(t, time.Minute, c.AircraftTTL)
				assert.False(t, c.RequireCRC)
			},
		},
		{
			name: "outputs",
			args: []string{"-l", "/tmp/sbs", "--utc=false", "--beast-out", "out.beast", "--nats-url", "nats://localhost:4222", "--nats-subject", "radar", "-v"},
			verify: func(t *testing.T, c app.Config) {
				assert.Equal(t, "/tmp/sbs", c.LogDir)
				assert.False(t, c.LogRotateUTC)
				assert.Equal(t, "out.beast", c.BeastOut)
				assert.Equal(t, "nats://localhost:4222", c.NATSURL)
				assert.Equal(t, "radar", c.NATSSubject)
				assert.True(t, c.Verbose)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			tt.verify(t, config)
		})
	}
}

func TestRootCommandFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky1090.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gain: 30\nworkers: 3\n"), 0o644))

	config, _, err := execute(t, "--config", path, "--gain", "45")
	require.NoError(t, err)

	assert.Equal(t, 45, config.Gain)
	assert.Equal(t, 3, config.Workers)
}

func TestRootCommandInvalid(t *testing.T) {
	_, _, err := execute(t, "--buffer", "1001")
	assert.ErrorIs(t, err, app.ErrInvalidConfig)

	_, _, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRootCommandVersion(t *testing.T) {
	_, out, err := execute(t, "--version")
	require.NoError(t, err)

	assert.Contains(t, out, "Version: "+app.Version)
}
