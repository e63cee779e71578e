package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// Config holds all application configuration loaded from environment
// variables. All required fields are validated at startup to ensure
// fail-fast behavior. The RPC endpoint and polling knobs are injected
// into the reader/submitter/poller at construction time; nothing reads
// a global endpoint constant.
type Config struct {
	// Solana configuration
	SolanaRPCURL string
	Commitment   rpc.CommitmentType

	// Confirmation polling configuration
	PollInterval time.Duration
	PollTimeout  time.Duration

	// Account snapshot configuration
	HistoryLimit int

	// Logging
	LogLevel string
}

// Defaults for everything except the RPC endpoint, which is required.
const (
	DefaultCommitment   = rpc.CommitmentConfirmed
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 60 * time.Second
	DefaultHistoryLimit = 5
)

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	commitment, err := ParseCommitment(getEnvOrDefault("SOLANA_COMMITMENT", string(DefaultCommitment)))
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Commitment = commitment
	}

	pollInterval, err := parseDuration("POLL_INTERVAL", DefaultPollInterval.String())
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	pollTimeout, err := parseDuration("POLL_TIMEOUT", DefaultPollTimeout.String())
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollTimeout = pollTimeout
	}

	historyLimit, err := parseInt("HISTORY_LIMIT", DefaultHistoryLimit)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HistoryLimit = historyLimit
	}

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	switch c.Commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		errs = append(errs, fmt.Errorf("Commitment must be processed, confirmed, or finalized"))
	}

	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("PollInterval must be positive"))
	}

	if c.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PollTimeout must be positive"))
	}

	if c.PollInterval > c.PollTimeout {
		errs = append(errs, fmt.Errorf("PollInterval (%v) cannot be greater than PollTimeout (%v)",
			c.PollInterval, c.PollTimeout))
	}

	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ParseCommitment maps a commitment level name onto the RPC type.
func ParseCommitment(level string) (rpc.CommitmentType, error) {
	switch level {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("SOLANA_COMMITMENT: unknown commitment level %q", level)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
