package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		endpoints: {
			// point at a staging gateway
			term_begin: "https://staging.example/getSchoolCalendar.do",
		},
		http: { requests_per_second: 1 },
		calendar: { max_weeks: 20 },
	}`), 0600))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("ignored.json5")
	require.NoError(t, err)

	defaults := Defaults()
	require.Equal(t, "https://staging.example/getSchoolCalendar.do", cfg.Endpoints.TermBegin)
	require.Equal(t, defaults.Endpoints.Login, cfg.Endpoints.Login)
	require.Equal(t, 1.0, cfg.HTTP.RequestsPerSecond)
	require.Equal(t, defaults.HTTP.TimeoutSeconds, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, 20, cfg.Calendar.MaxWeeks)
	require.Equal(t, "Asia/Shanghai", cfg.Calendar.TimeZone)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvPort, "9237")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 9237, cfg.Server.Port)
	require.True(t, cfg.Server.Debug)

	t.Setenv(EnvPort, "not a port")
	_, err = Load(filepath.Join(t.TempDir(), "config.json5"))
	require.Error(t, err)
}

func TestTransportOptions(t *testing.T) {
	cfg := Defaults()
	opts, err := cfg.TransportOptions()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, opts.Timeout)
	require.Nil(t, opts.Dump)

	cfg.HTTP.DumpDir = filepath.Join(t.TempDir(), "dump")
	opts, err = cfg.TransportOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Dump)
	require.DirExists(t, cfg.HTTP.DumpDir)
}

func TestSessionMaxAge(t *testing.T) {
	require.Equal(t, 90*24*time.Hour, Defaults().SessionMaxAge())
}
