package main

import (
	"bytes"
	"flag"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

// resetEnv clears env vars used by parseConfig
func resetEnv() {
	os.Clearenv()
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	printBuildInfo()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Starting service version")
}

func TestParseConfig_Defaults(t *testing.T) {
	resetEnv()

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.AppHost)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5432, cfg.PGPort)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Equal(t, "report.generated", cfg.KafkaTopic)
	assert.Equal(t, "https://archive-api.open-meteo.com/v1/archive", cfg.WeatherArchiveURL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, time.Hour, cfg.JWTExp)
	assert.Empty(t, cfg.OpenCageAPIKey)
}

func TestParseConfig_Overrides(t *testing.T) {
	resetEnv()
	t.Setenv("APP_PORT", "9090")
	t.Setenv("POSTGRES_PORT", "15432")
	t.Setenv("OPENCAGE_API_KEY", "test-key")
	t.Setenv("JWT_EXP_SECOND", "120")
	t.Setenv("RECONCILE_INTERVAL_MINUTE", "5")

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 15432, cfg.PGPort)
	assert.Equal(t, "test-key", cfg.OpenCageAPIKey)
	assert.Equal(t, 2*time.Minute, cfg.JWTExp)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
}

func TestParseConfig_InvalidInt(t *testing.T) {
	resetEnv()
	t.Setenv("POSTGRES_PORT", "not-a-number")

	_, err := parseConfig("nonexistent.env")
	assert.Error(t, err)
}
