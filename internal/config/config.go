package config

import (
	"errors"
	"fmt"
	"os"

	"sahara/internal/types"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound indicates that the configuration file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrConfigParseFailed indicates that the configuration file is not valid YAML.
	ErrConfigParseFailed = errors.New("config file parse failed")
	// ErrConfigInvalid indicates that the configuration parsed but holds unusable values.
	ErrConfigInvalid = errors.New("config file holds invalid values")
)

// TaskConfigEntry defines the structure for a single task entry in the config.
type TaskConfigEntry struct {
	Name    types.TaskName         `yaml:"name"`    // Name corresponding to a registered TaskRunner
	Network string                 `yaml:"network"` // Network name (key in RPCNodes map) or "any"
	Enabled bool                   `yaml:"enabled"` // Whether this task configuration is active
	Params  map[string]interface{} `yaml:"params"`  // Task-specific parameters
}

// Config corresponds to the structure of config.yml
type Config struct {
	RPCNodes    map[string][]string `yaml:"rpc_nodes"`
	Explorers   map[string]string   `yaml:"explorers"`
	Concurrency ConcurrencyConfig   `yaml:"concurrency"`
	Wallets     WalletsConfig       `yaml:"wallets"`
	Delay       DelayConfig         `yaml:"delay"`
	Actions     ActionsConfig       `yaml:"actions"`
	State       StateConfig         `yaml:"state"`
	Database    DatabaseConfig      `yaml:"database"`
	Sahara      SaharaConfig        `yaml:"sahara"`
	Notifier    NotifierConfig      `yaml:"notifier"`
	SelfSender  SelfSenderConfig    `yaml:"self_sender"`
	Tasks       []TaskConfigEntry   `yaml:"tasks"`
}

// ConcurrencyConfig holds settings related to parallel execution
type ConcurrencyConfig struct {
	MaxParallelWallets int `yaml:"max_parallel_wallets"`
}

// WalletsConfig holds settings related to wallet processing
type WalletsConfig struct {
	ProcessOrder types.WalletProcessOrder `yaml:"process_order"`
}

// DelayConfig holds settings for various delays
type DelayConfig struct {
	BetweenAccounts DelayRange `yaml:"between_accounts"`
	BetweenActions  DelayRange `yaml:"between_actions"`
	AfterError      DelayRange `yaml:"after_error"`
	BetweenRetries  RetryDelay `yaml:"between_retries"`
}

// ActionsConfig holds settings related to task execution strategy
type ActionsConfig struct {
	ActionsPerAccount    MinMax          `yaml:"actions_per_account"`
	TaskOrder            types.TaskOrder `yaml:"task_order"`
	ExplicitTaskSequence []string        `yaml:"explicit_task_sequence"`
}

// StateConfig controls resuming a run from the last completed wallet.
type StateConfig struct {
	ResumeEnabled bool `yaml:"resume_enabled"`
}

// DatabaseConfig selects the task store backend.
// ConnectionString may be left empty and supplied through DB_CONNECTION_STRING.
type DatabaseConfig struct {
	Type             types.DBType `yaml:"type"`
	ConnectionString string       `yaml:"connection_string"`
	PoolMaxConns     string       `yaml:"pool_max_conns"`
}

// SaharaConfig holds the Sahara Legends API settings.
type SaharaConfig struct {
	APIURL         string     `yaml:"api_url"`
	WalletName     string     `yaml:"wallet_name"`
	DailyTaskIDs   []string   `yaml:"daily_task_ids"`
	TxTaskID       string     `yaml:"tx_task_id"`
	ClaimAttempts  int        `yaml:"claim_attempts"`
	ClaimDelay     DelayRange `yaml:"claim_delay"`
	RequestsPerSec float64    `yaml:"requests_per_second"`
}

// NotifierConfig holds the Telegram report settings. Token and chat id come from the environment.
type NotifierConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIURL  string `yaml:"api_url"`
}

// SelfSenderConfig controls the funding run that sends native coins from one key to every wallet.
type SelfSenderConfig struct {
	Network string     `yaml:"network"`
	Amount  FloatRange `yaml:"amount"`
}

// DelayRange represents a min/max delay with units
type DelayRange struct {
	Min  int            `yaml:"min"`
	Max  int            `yaml:"max"`
	Unit types.TimeUnit `yaml:"unit"`
}

// RetryDelay includes the delay range and number of attempts for retries
type RetryDelay struct {
	Delay    DelayRange `yaml:"delay"`
	Attempts int        `yaml:"attempts"`
}

// MinMax represents a min/max integer range
type MinMax struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// FloatRange represents a min/max amount in whole coins.
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// LoadConfig reads the configuration file from the given path, fills defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config data, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParseFailed, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sahara.APIURL == "" {
		c.Sahara.APIURL = "https://legends.saharalabs.ai/api/v1"
	}
	if c.Sahara.WalletName == "" {
		c.Sahara.WalletName = "Rabby Wallet"
	}
	if len(c.Sahara.DailyTaskIDs) == 0 {
		c.Sahara.DailyTaskIDs = []string{"1002", "1004"}
	}
	if c.Sahara.TxTaskID == "" {
		c.Sahara.TxTaskID = "1004"
	}
	if c.Sahara.ClaimAttempts <= 0 {
		c.Sahara.ClaimAttempts = 3
	}
	if c.Sahara.ClaimDelay.Unit == "" {
		c.Sahara.ClaimDelay = DelayRange{Min: 3, Max: 10, Unit: types.TimeUnitSeconds}
	}
	if c.Notifier.APIURL == "" {
		c.Notifier.APIURL = "https://api.telegram.org"
	}
	if c.Database.Type == "" {
		c.Database.Type = types.None
	}
	if c.Delay.BetweenRetries.Attempts <= 0 {
		c.Delay.BetweenRetries.Attempts = 1
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if !c.Wallets.ProcessOrder.Valid() {
		return fmt.Errorf("%w: wallets.process_order %q", ErrConfigInvalid, c.Wallets.ProcessOrder)
	}
	if !c.Actions.TaskOrder.Valid() {
		return fmt.Errorf("%w: actions.task_order %q", ErrConfigInvalid, c.Actions.TaskOrder)
	}
	if c.Concurrency.MaxParallelWallets < 0 {
		return fmt.Errorf("%w: concurrency.max_parallel_wallets must not be negative", ErrConfigInvalid)
	}

	delays := map[string]DelayRange{
		"delay.between_accounts":      c.Delay.BetweenAccounts,
		"delay.between_actions":       c.Delay.BetweenActions,
		"delay.after_error":           c.Delay.AfterError,
		"delay.between_retries.delay": c.Delay.BetweenRetries.Delay,
		"sahara.claim_delay":          c.Sahara.ClaimDelay,
	}
	for name, d := range delays {
		if d.Unit == "" && d.Min == 0 && d.Max == 0 {
			continue
		}
		if _, ok := d.Unit.Duration(); !ok {
			return fmt.Errorf("%w: %s has unknown unit %q", ErrConfigInvalid, name, d.Unit)
		}
		if d.Min < 0 || d.Max < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrConfigInvalid, name)
		}
	}

	if c.SelfSender.Amount.Min < 0 || c.SelfSender.Amount.Max < c.SelfSender.Amount.Min {
		return fmt.Errorf("%w: self_sender.amount range is invalid", ErrConfigInvalid)
	}

	for _, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("%w: task entry without name", ErrConfigInvalid)
		}
		if !t.Enabled || t.Network == "any" {
			continue
		}
		if urls, ok := c.RPCNodes[t.Network]; !ok || len(urls) == 0 {
			return fmt.Errorf("%w: task %s uses network %q without rpc_nodes", ErrConfigInvalid, t.Name, t.Network)
		}
		if src, ok := t.Params["source_network"].(string); ok && len(c.RPCNodes[src]) == 0 {
			return fmt.Errorf("%w: task %s uses source_network %q without rpc_nodes", ErrConfigInvalid, t.Name, src)
		}
	}
	return nil
}

// Explorer returns the transaction link prefix for a network, or an empty string.
func (c *Config) Explorer(network string) string {
	return c.Explorers[network]
}
