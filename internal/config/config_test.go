package config

import (
	"os"
	"path/filepath"
	"testing"

	"sahara/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
rpc_nodes:
  sahara: ["https://testnet.saharalabs.ai"]
concurrency:
  max_parallel_wallets: 4
wallets:
  process_order: random
delay:
  between_accounts: {min: 5, max: 10, unit: seconds}
  between_retries:
    delay: {min: 1, max: 2, unit: seconds}
    attempts: 3
database:
  type: sqlite
  connection_string: local/data/sahara.db
tasks:
  - name: sahara_daily
    network: sahara
    enabled: true
`

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency.MaxParallelWallets)
	assert.Equal(t, types.OrderRandom, cfg.Wallets.ProcessOrder)
	assert.Equal(t, 3, cfg.Delay.BetweenRetries.Attempts)
	assert.Equal(t, "https://legends.saharalabs.ai/api/v1", cfg.Sahara.APIURL)
	assert.Equal(t, []string{"1002", "1004"}, cfg.Sahara.DailyTaskIDs)
	assert.Equal(t, "1004", cfg.Sahara.TxTaskID)
	assert.Equal(t, 3, cfg.Sahara.ClaimAttempts)
	assert.Equal(t, types.SQLite, cfg.Database.Type)
	require.Len(t, cfg.Tasks, 1)
	assert.Equal(t, types.TaskNameDaily, cfg.Tasks[0].Name)
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown unit":       "delay:\n  between_accounts: {min: 1, max: 2, unit: hours}\n",
		"negative workers":   "concurrency:\n  max_parallel_wallets: -1\n",
		"bad process order":  "wallets:\n  process_order: backwards\n",
		"missing rpc":        "tasks:\n  - name: meme_bridge\n    network: base\n    enabled: true\n",
		"bad amount range":   "self_sender:\n  amount: {min: 2, max: 1}\n",
		"missing source rpc": "rpc_nodes:\n  sahara: [\"http://x\"]\ntasks:\n  - name: meme_bridge\n    network: sahara\n    enabled: true\n    params: {source_network: base}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestParseRejectsBrokenYAML(t *testing.T) {
	_, err := Parse([]byte("tasks: [unclosed"))
	assert.ErrorIs(t, err, ErrConfigParseFailed)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfigFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://testnet.saharalabs.ai"}, cfg.RPCNodes["sahara"])
}
