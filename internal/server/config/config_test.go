package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"testbin"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetArgs(t)

	cfg := LoadConfig()

	assert.Equal(t, ":5000", cfg.EndpointAddrHTTP)
	assert.Equal(t, "kafka", cfg.BrokerKind)
	assert.Equal(t, []string{"localhost:9092"}, cfg.BrokerAddrs)
	assert.Equal(t, "koduser_topic", cfg.AccountsTopic)
	assert.Equal(t, "usertoken_topic", cfg.TokensTopic)
	assert.Equal(t, "kodbank-group", cfg.ConsumerGroup)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, time.Hour, cfg.TokenValidityDuration)
	assert.Equal(t, 100000.0, cfg.InitialBalance)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("ADDRESS", ":8080")
	t.Setenv("BROKER_KIND", "memory")
	t.Setenv("BROKER_ADDRS", "k1:9092,k2:9092")
	t.Setenv("TOKEN_VALIDITY", "30m")
	t.Setenv("HF_API_KEY", "hf_secret")

	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, "memory", cfg.BrokerKind)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.BrokerAddrs)
	assert.Equal(t, 30*time.Minute, cfg.TokenValidityDuration)
	assert.Equal(t, "hf_secret", cfg.ChatAPIKey)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	resetArgs(t, "-a", ":9999", "-t", "15", "-b", "k3:9092")
	t.Setenv("ADDRESS", ":8080")

	cfg := LoadConfig()

	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
	assert.Equal(t, 15*time.Minute, cfg.TokenValidityDuration)
	assert.Equal(t, []string{"k3:9092"}, cfg.BrokerAddrs)
}

func TestLoadConfig_JsonFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	content := `{
		"endpoint_addr_http": ":7070",
		"broker_kind": "memory",
		"connect_timeout": "3s",
		"token_validity_duration": "45m",
		"initial_balance": 5000.5,
		"cors_origins": ["http://localhost:3000"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	resetArgs(t, "-c", path)

	cfg := LoadConfig()

	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, "memory", cfg.BrokerKind)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 45*time.Minute, cfg.TokenValidityDuration)
	assert.Equal(t, 5000.5, cfg.InitialBalance)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)

	// fields absent from the file keep their defaults
	assert.Equal(t, "koduser_topic", cfg.AccountsTopic)
}
