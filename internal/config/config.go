// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "COUNTER"

	DefaultRPC            = "https://api.devnet.solana.com"
	DefaultCommitment     = "confirmed"
	DefaultRPCRateLimit   = 10
	DefaultRPCAttempts    = 3
	DefaultRPCTimeoutMS   = 10_000
	DefaultKeypairPath    = "~/.config/solana/id.json"
	DefaultMinBalanceSOL  = "0.01"
	DefaultAirdropSOL     = "2"
	DefaultIncrementName  = "incerment"
	DefaultLogFile        = "logs/counter.log"
	DefaultHistoryDSN     = "data/history.db"
	DefaultFeeStrategy    = "median"
	DefaultPollAttempts   = 40
	DefaultSendAttempts   = 3
	DefaultSubmitTimeout  = 90_000
	DefaultBatchWorkers   = 4
	DefaultPollMultiplier = 1.5
)

// Config holds application settings loaded from a config file, .env and the
// COUNTER_* environment.
type Config struct {
	RPCList      []string      `mapstructure:"rpc_list"`
	RPCRateLimit int           `mapstructure:"rpc_rate_limit"`
	RPCAttempts  int           `mapstructure:"rpc_attempts"`
	RPCTimeout   time.Duration `mapstructure:"-"`
	RPCTimeoutMS int           `mapstructure:"rpc_timeout"`
	Commitment   string        `mapstructure:"commitment"`
	KeypairPath  string        `mapstructure:"keypair_path"`
	WalletsFile  string        `mapstructure:"wallets_file"`
	ProgramID    string        `mapstructure:"program_id"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	// HistoryDSN is a SQLite path or a postgres:// URL; empty disables history.
	HistoryDSN string `mapstructure:"history_dsn"`
	// SOL amounts are decimal strings.
	MinBalanceSOL string `mapstructure:"min_balance_sol"`
	AirdropSOL    string `mapstructure:"airdrop_sol"`

	Counter       CounterConfig       `mapstructure:"counter"`
	ComputeBudget ComputeBudgetConfig `mapstructure:"compute_budget"`
	Submission    SubmissionConfig    `mapstructure:"submission"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type CounterConfig struct {
	// IncrementMethod is the instruction name exported by the deployed program.
	IncrementMethod string `mapstructure:"increment_method"`
	// Address is the counter used when no address is given on the command line.
	Address      string `mapstructure:"address"`
	BatchWorkers int    `mapstructure:"batch_workers"`
}

type ComputeBudgetConfig struct {
	// Priority is one of low, medium, high, extreme, auto or empty for none.
	Priority     string `mapstructure:"priority"`
	UnitLimit    uint32 `mapstructure:"unit_limit"`
	UnitPrice    uint64 `mapstructure:"unit_price"`
	FeeStrategy  string `mapstructure:"fee_strategy"`
	MaxUnitPrice uint64 `mapstructure:"max_unit_price"`
}

type SubmissionConfig struct {
	SkipSimulation     bool `mapstructure:"skip_simulation"`
	SkipPreflight      bool `mapstructure:"skip_preflight"`
	ReassembleOnExpiry bool `mapstructure:"reassemble_on_expiry"`

	SendAttempts      int           `mapstructure:"send_attempts"`
	SendInterval      time.Duration `mapstructure:"-"`
	SendIntervalMS    int           `mapstructure:"send_interval"`
	PollInterval      time.Duration `mapstructure:"-"`
	PollIntervalMS    int           `mapstructure:"poll_interval"`
	PollMaxInterval   time.Duration `mapstructure:"-"`
	PollMaxIntervalMS int           `mapstructure:"poll_max_interval"`
	PollMultiplier    float64       `mapstructure:"poll_multiplier"`
	PollAttempts      int           `mapstructure:"poll_attempts"`
	Timeout           time.Duration `mapstructure:"-"`
	TimeoutMS         int           `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Debug      bool   `mapstructure:"debug"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

var defaults = map[string]interface{}{
	"rpc_list":                        []string{DefaultRPC},
	"rpc_rate_limit":                  DefaultRPCRateLimit,
	"rpc_attempts":                    DefaultRPCAttempts,
	"rpc_timeout":                     DefaultRPCTimeoutMS,
	"commitment":                      DefaultCommitment,
	"keypair_path":                    DefaultKeypairPath,
	"wallets_file":                    "",
	"program_id":                      "",
	"metrics_addr":                    "",
	"history_dsn":                     DefaultHistoryDSN,
	"min_balance_sol":                 DefaultMinBalanceSOL,
	"airdrop_sol":                     DefaultAirdropSOL,
	"counter.increment_method":        DefaultIncrementName,
	"counter.address":                 "",
	"counter.batch_workers":           DefaultBatchWorkers,
	"compute_budget.priority":         "",
	"compute_budget.unit_limit":       0,
	"compute_budget.unit_price":       0,
	"compute_budget.fee_strategy":     DefaultFeeStrategy,
	"compute_budget.max_unit_price":   0,
	"submission.skip_simulation":      false,
	"submission.skip_preflight":       false,
	"submission.reassemble_on_expiry": false,
	"submission.send_attempts":        DefaultSendAttempts,
	"submission.send_interval":        250,
	"submission.poll_interval":        500,
	"submission.poll_max_interval":    4_000,
	"submission.poll_multiplier":      DefaultPollMultiplier,
	"submission.poll_attempts":        DefaultPollAttempts,
	"submission.timeout":              DefaultSubmitTimeout,
	"logging.debug":                   false,
	"logging.file":                    DefaultLogFile,
	"logging.max_size_mb":             10,
	"logging.max_backups":             5,
	"logging.max_age_days":            30,
	"logging.compress":                true,
}

// LoadConfig reads path (optional), then applies COUNTER_* environment
// overrides. Keys are nested with "_", e.g. COUNTER_SUBMISSION_POLL_ATTEMPTS.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	// viper отдаёт строку из env, а не список
	if envRPCList := os.Getenv(EnvPrefix + "_RPC_LIST"); envRPCList != "" {
		cfg.RPCList = splitList(envRPCList)
	}

	// Convert ms to Duration
	cfg.RPCTimeout = time.Duration(cfg.RPCTimeoutMS) * time.Millisecond
	s := &cfg.Submission
	s.SendInterval = time.Duration(s.SendIntervalMS) * time.Millisecond
	s.PollInterval = time.Duration(s.PollIntervalMS) * time.Millisecond
	s.PollMaxInterval = time.Duration(s.PollMaxIntervalMS) * time.Millisecond
	s.Timeout = time.Duration(s.TimeoutMS) * time.Millisecond

	cfg.KeypairPath = expandHome(cfg.KeypairPath)
	cfg.WalletsFile = expandHome(cfg.WalletsFile)
	if !strings.Contains(cfg.HistoryDSN, "://") {
		cfg.HistoryDSN = expandHome(cfg.HistoryDSN)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files are
// skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.RPCList) == 0 {
		return errors.New("rpc_list must contain at least one RPC endpoint")
	}
	for _, rpcURL := range c.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", c.Commitment)
	}
	if c.RPCRateLimit < 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if c.RPCAttempts <= 0 {
		c.RPCAttempts = DefaultRPCAttempts
	}
	if c.Counter.IncrementMethod == "" {
		return errors.New("counter.increment_method is required")
	}
	if c.Counter.BatchWorkers <= 0 {
		c.Counter.BatchWorkers = 1
	}

	s := c.Submission
	if s.SendAttempts <= 0 || s.PollAttempts <= 0 {
		return errors.New("submission attempts must be positive")
	}
	if s.PollInterval <= 0 || s.PollMaxInterval < s.PollInterval {
		return errors.New("invalid submission poll intervals")
	}
	if s.PollMultiplier < 1 {
		return errors.New("submission.poll_multiplier must be at least 1")
	}
	if s.Timeout <= 0 {
		return errors.New("invalid submission.timeout")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}

// MaskRPCForLogging hides query strings, which commonly carry API keys.
func MaskRPCForLogging(rpcURL string) string {
	parsed, err := url.Parse(rpcURL)
	if err != nil || parsed.RawQuery == "" {
		return rpcURL
	}
	parsed.RawQuery = "***"
	return parsed.String()
}
