package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func setChainEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvChainID, "juno-1")
	t.Setenv(EnvChainName, "Juno")
	t.Setenv(EnvChainRPCEndpoint, "https://rpc.juno.example")
	t.Setenv(EnvFeeDenom, "ujuno")
	t.Setenv(EnvContractAddr, "juno1contract")
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	setChainEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "juno-1", cfg.Chain.ChainID)
	assert.Equal(t, "https://rpc.juno.example", cfg.Chain.RPCEndpoint)
	assert.Equal(t, "juno", cfg.Chain.AddressPrefix)
	assert.Equal(t, 6, cfg.Chain.DenomExponent)
	assert.Equal(t, "JUNO", cfg.Chain.DenomName)
	assert.Equal(t, "0.0025ujuno", cfg.Chain.GasPrice)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, key := range []string{EnvChainID, EnvChainRPCEndpoint, EnvFeeDenom, EnvContractAddr, EnvDenomName} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	env := "CHAIN_ID=uni-6\nCHAIN_RPC_ENDPOINT=http://localhost:26657\nFEE_DENOM=ujunox\nCONTRACT_ADDR=juno1abc\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "uni-6", cfg.Chain.ChainID)
	assert.Equal(t, "JUNOX", cfg.Chain.DenomName)
}

func TestLoadConfigYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	setChainEnv(t)

	settings := `
server:
  addr: ":8080"
  session_cache_size: 16
rpc:
  timeout: 3s
  retry_attempts: 5
  rate_limit:
    requests_per_second: 2
    burst_size: 4
    wait_timeout: 1s
`
	path := filepath.Join(dir, "cwflash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Server.SessionCacheSize)
	assert.Equal(t, 3*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, uint(5), cfg.RPC.RetryAttempts)
	assert.Equal(t, 2.0, cfg.RPC.RateLimit.RequestsPerSecond)
	// untouched sections keep their defaults
	assert.Equal(t, 256, cfg.Cache.FamilySize)
}

func TestLoadConfigMissingChainSettings(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{EnvChainID, EnvChainRPCEndpoint, EnvFeeDenom, EnvContractAddr} {
		t.Setenv(key, "")
	}

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvChainID)
	assert.Contains(t, err.Error(), EnvContractAddr)
}

func TestRateLimitValidate(t *testing.T) {
	r := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 0, WaitTimeout: time.Second}
	assert.Error(t, r.Validate())

	r.BurstSize = 1
	assert.NoError(t, r.Validate())
}

func TestServerValidate(t *testing.T) {
	s := DefaultConfig().Server
	assert.NoError(t, s.Validate())

	s.PingInterval = 0
	assert.ErrorContains(t, s.Validate(), "ping_interval")

	s.PingInterval = -time.Second
	assert.Error(t, s.Validate())
}

func TestLoadConfigRejectsZeroPingInterval(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	setChainEnv(t)

	path := filepath.Join(dir, "cwflash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  ping_interval: 0s\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping_interval must be positive")
}

func TestInvalidExponent(t *testing.T) {
	chdir(t, t.TempDir())
	setChainEnv(t)
	t.Setenv(EnvDenomExponent, "six")

	_, err := LoadConfig("")
	require.Error(t, err)
}
