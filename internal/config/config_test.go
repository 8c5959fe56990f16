package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/victory"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/radiowar.db", cfg.DBPath)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.RestartDelay)
	assert.Equal(t, "en-US", cfg.Locale)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RADIOWAR_PORT", "9090")
	t.Setenv("RADIOWAR_TICK_INTERVAL", "250ms")
	t.Setenv("RADIOWAR_LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("RADIOWAR_PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)
}

func TestDemoMapSetup(t *testing.T) {
	m := DemoMapSetup()
	assert.Len(t, m.Factions, 4)
	assert.Len(t, m.Stations, 3+8)
	assert.Nil(t, m.Generate)
	assert.Equal(t, 900*time.Second, m.GracePeriod())
	assert.Equal(t, 600*time.Second, m.Decisive())
	assert.True(t, m.CaptureEnabled())
	assert.Equal(t, victory.PolicyStrict, m.Policy())
	assert.Equal(t, "peace-hansa-frequency-named", m.Names()["hansa_frequency"])

	// Every faction is seated on a generated station.
	owned := social.NewFrequencySet()
	for _, s := range m.Stations {
		if s.Frequency != "" {
			owned.Add(s.Frequency)
		}
	}
	assert.Equal(t, 4, owned.Len())
}

func TestDurationFallbacks(t *testing.T) {
	var m MapSetup
	assert.Equal(t, 900*time.Second, m.GracePeriod())
	assert.Equal(t, 900*time.Second, m.Decisive())

	m.GracePeriodSeconds = 60
	assert.Equal(t, time.Minute, m.Decisive())

	off := false
	m.CaptureRule = &off
	assert.False(t, m.CaptureEnabled())
}

func TestValidate(t *testing.T) {
	_, err := ParseMapSetup([]byte(`
factions:
  - {frequency: a}
  - {frequency: a}
stations:
  - {id: s1, frequency: b}
  - {id: s1}
documents:
  - {id: d1}
  - {id: d2, frequency: a, hostile: [zz]}
bloc_policy: whatever
`))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"duplicate frequency a",
		"unknown frequency b",
		"duplicate id s1",
		"documents[0]: frequency is required",
		"unknown frequency zz",
		"unknown bloc policy",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoadMapSetupFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grace_period_seconds: 120
bloc_policy: lenient
factions:
  - {frequency: x, roles: [xr]}
stations:
  - {id: s1, frequency: x}
`), 0o644))

	m, err := LoadMapSetup(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, m.GracePeriod())
	assert.Equal(t, victory.PolicyLenient, m.Policy())
	assert.Equal(t, []social.Frequency{"x"}, m.Roster().Frequencies())

	_, err = LoadMapSetup(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
