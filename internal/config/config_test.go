package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse("campaignadmin", nil, env(nil))
	require.NoError(t, err)
	require.Equal(t, "localhost:8080", cfg.Handler.ServerAddr)
	require.Equal(t, int64(10<<20), cfg.Handler.MaxUploadBytes)
	require.Empty(t, cfg.Store.DBDsn)
	require.Equal(t, "info", cfg.Logger.LogLevel)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestParseEnvOverridesFlags(t *testing.T) {
	cfg, err := parse("campaignadmin",
		[]string{"-a", ":9000", "-l", "debug", "-d", "postgres://flag"},
		env(map[string]string{
			"RUN_ADDRESS":      ":9100",
			"DATABASE_DSN":     "postgres://env",
			"MAX_UPLOAD_BYTES": "1024",
			"TOKEN_TTL":        "15m",
		}))
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Handler.ServerAddr)
	require.Equal(t, "postgres://env", cfg.Store.DBDsn)
	require.Equal(t, "debug", cfg.Logger.LogLevel)
	require.Equal(t, int64(1024), cfg.Handler.MaxUploadBytes)
	require.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
}

func TestParseErrors(t *testing.T) {
	_, err := parse("campaignadmin", nil, env(map[string]string{"TOKEN_TTL": "forever"}))
	require.Error(t, err)

	_, err = parse("campaignadmin", []string{"-max-upload", "0"}, env(nil))
	require.Error(t, err)

	_, err = parse("campaignadmin", []string{"-unknown"}, env(nil))
	require.Error(t, err)
}
