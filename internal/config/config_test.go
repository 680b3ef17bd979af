package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultRPC}, cfg.RPCList)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, "incerment", cfg.Counter.IncrementMethod)
	assert.Equal(t, 10*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Submission.SendInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Submission.PollInterval)
	assert.Equal(t, 4*time.Second, cfg.Submission.PollMaxInterval)
	assert.Equal(t, 90*time.Second, cfg.Submission.Timeout)
	assert.Equal(t, DefaultPollAttempts, cfg.Submission.PollAttempts)
	assert.False(t, cfg.Submission.ReassembleOnExpiry)
	assert.Equal(t, DefaultHistoryDSN, cfg.HistoryDSN)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
rpc_list:
  - https://api.devnet.solana.com
  - https://devnet.helius-rpc.com/?api-key=secret
commitment: finalized
program_id: 74QZ1uTUKCPsao19wAtRRxxQ441PeejhkAZBH7nw9EEN
counter:
  increment_method: increment
compute_budget:
  priority: medium
  unit_limit: 50000
submission:
  reassemble_on_expiry: true
  poll_attempts: 5
  timeout: 30000
logging:
  debug: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.RPCList, 2)
	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, "increment", cfg.Counter.IncrementMethod)
	assert.Equal(t, "medium", cfg.ComputeBudget.Priority)
	assert.Equal(t, uint32(50_000), cfg.ComputeBudget.UnitLimit)
	assert.True(t, cfg.Submission.ReassembleOnExpiry)
	assert.Equal(t, 5, cfg.Submission.PollAttempts)
	assert.Equal(t, 30*time.Second, cfg.Submission.Timeout)
	assert.True(t, cfg.Logging.Debug)
	// untouched keys keep defaults
	assert.Equal(t, DefaultSendAttempts, cfg.Submission.SendAttempts)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("COUNTER_RPC_LIST", "https://a.example.com, https://b.example.com,")
	t.Setenv("COUNTER_COMMITMENT", "processed")
	t.Setenv("COUNTER_SUBMISSION_POLL_ATTEMPTS", "7")

	cfg, err := LoadConfig(writeConfig(t, "commitment: finalized\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPCList)
	assert.Equal(t, "processed", cfg.Commitment)
	assert.Equal(t, 7, cfg.Submission.PollAttempts)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := map[string]string{
		"bad commitment": "commitment: eventually\n",
		"bad rpc scheme": "rpc_list: [\"ws://localhost:8900\"]\n",
		"empty method":   "counter:\n  increment_method: \"\"\n",
		"poll intervals": "submission:\n  poll_interval: 1000\n  poll_max_interval: 10\n",
		"multiplier":     "submission:\n  poll_multiplier: 0.5\n",
		"no attempts":    "submission:\n  send_attempts: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("COUNTER_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("COUNTER_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("COUNTER_TEST_DOTENV"))
}

func TestMaskRPCForLogging(t *testing.T) {
	assert.Equal(t, "https://devnet.helius-rpc.com/?***",
		MaskRPCForLogging("https://devnet.helius-rpc.com/?api-key=secret"))
	assert.Equal(t, DefaultRPC, MaskRPCForLogging(DefaultRPC))
}
