package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromEnviron(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, "SESSION.COOKIE", cfg.CookieName)
}

func TestFromEnvironOverrides(t *testing.T) {
	cfg, err := FromEnviron([]string{
		"HYPERION_ADDR=127.0.0.1:9000",
		"HYPERION_LOG_LEVEL=debug",
		"HYPERION_SESSION_TIMEOUT=30m",
		"HYPERION_SWEEP_INTERVAL=1m",
		"HYPERION_LOGIN_REQUIRED=false",
		"HYPERION_DATABASE_URL=postgres://u:p@localhost:5432/db?sslmode=disable",
		"HYPERION_UNKNOWN=ignored",
		"PATH=/usr/bin",
		"MALFORMED",
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.False(t, cfg.LoginRequired)
	assert.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.DatabaseURL)
}

func TestFromEnvironRejectsInvalid(t *testing.T) {
	cases := [][]string{
		{"HYPERION_SESSION_TIMEOUT=soon"},
		{"HYPERION_SESSION_TIMEOUT=0s"},
		{"HYPERION_LOG_LEVEL=verbose"},
		{"HYPERION_ADDR=nope"},
		{"HYPERION_COOKIE_NAME=a;b"},
		{"HYPERION_METRICS_PATH=metrics"},
		{"HYPERION_LOGIN_REQUIRED=perhaps"},
	}
	for _, env := range cases {
		_, err := FromEnviron(env)
		assert.Error(t, err, env[0])
	}
}

func TestLoadReadsProcessEnvironment(t *testing.T) {
	t.Setenv("HYPERION_SERVICE_NAME", "login-demo")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "login-demo", cfg.ServiceName)
}
