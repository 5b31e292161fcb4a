package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.Voice.GracePeriod)
	assert.Equal(t, 30*time.Second, cfg.Voice.RingTimeout)
	assert.Equal(t, 5, cfg.Voice.RingLimit)
	assert.Equal(t, DriverMemory, cfg.Directory.Driver)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
mode: debug
port: 9000
voice:
  grace_period: 90s
directory:
  driver: memory
  members:
    general: [alice, bob]
ice_servers:
  - urls: ["stun:stun.example.org:3478"]
    username: u
    credential: p
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("VOICE_PORT", "9100")
	t.Setenv("VOICE_VOICE_RING_TIMEOUT", "10s")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.Voice.GracePeriod)
	assert.Equal(t, 10*time.Second, cfg.Voice.RingTimeout)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Directory.Members["general"])
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, cfg.ICEServers[0].URLs)
	assert.Equal(t, "u", cfg.ICEServers[0].Username)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			PingPeriod:   time.Second,
			PongWait:     2 * time.Second,
			WriteTimeout: time.Second,
			Voice:        VoiceConfig{GracePeriod: time.Minute, RingTimeout: time.Second, RingWindow: time.Minute},
			Directory:    DirectoryConfig{Driver: DriverMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "zero grace", mutate: func(c *Config) { c.Voice.GracePeriod = 0 }, wantErr: ErrInvalidDuration},
		{name: "negative ring", mutate: func(c *Config) { c.Voice.RingTimeout = -time.Second }, wantErr: ErrInvalidDuration},
		{name: "unknown driver", mutate: func(c *Config) { c.Directory.Driver = "redis" }, wantErr: ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	c := valid()
	c.Directory.Driver = DriverPostgres
	assert.Error(t, c.Validate(), "postgres needs a dsn")
	c.PingPeriod = 3 * time.Second
	c.Directory.DSN = "postgres://localhost/chat"
	assert.Error(t, c.Validate(), "ping must be shorter than pong wait")
}
