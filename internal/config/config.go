package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	KeysFile      string `envconfig:"DROPMINT_KEYS_FILE" default:"./pk.txt"`
	MnemonicFile  string `envconfig:"DROPMINT_MNEMONIC_FILE"`
	MnemonicCount int    `envconfig:"DROPMINT_MNEMONIC_COUNT" default:"1"`
	RPCFile       string `envconfig:"DROPMINT_RPC_FILE" default:"./rpc.json"`
	ChainID       int64  `envconfig:"DROPMINT_CHAIN_ID" default:"0"`

	SeaDropAddress   string `envconfig:"DROPMINT_SEADROP_ADDRESS" default:"0x00005EA00Ac477B1030CE78506496e8C2dE24bf5"`
	MultiMintAddress string `envconfig:"DROPMINT_MULTIMINT_ADDRESS" default:"0x0000419B4B6132e05DfBd89F65B165DFD6fA126F"`

	GasMultiplier float64       `envconfig:"DROPMINT_GAS_MULTIPLIER" default:"1.2"`
	GasLimit      uint64        `envconfig:"DROPMINT_GAS_LIMIT" default:"150000"`
	DispatchDelay time.Duration `envconfig:"DROPMINT_DISPATCH_DELAY" default:"50ms"`

	PollInterval    time.Duration `envconfig:"DROPMINT_POLL_INTERVAL" default:"2s"`
	PollMaxTicks    int           `envconfig:"DROPMINT_POLL_MAX_TICKS" default:"0"`
	PollMaxDuration time.Duration `envconfig:"DROPMINT_POLL_MAX_DURATION" default:"0"`

	RPCRequestsPerSecond int `envconfig:"DROPMINT_RPC_RPS" default:"20"`

	DBPath   string `envconfig:"DROPMINT_DB_PATH" default:"./data/dropmint.sqlite"`
	LogLevel string `envconfig:"DROPMINT_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"DROPMINT_LOG_DIR" default:"./logs"`
	Port     int    `envconfig:"DROPMINT_PORT" default:"8090"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars.
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.SeaDropAddress) {
		return fmt.Errorf("%w: seadrop address %q is not a hex address", ErrInvalidConfig, c.SeaDropAddress)
	}
	if !common.IsHexAddress(c.MultiMintAddress) {
		return fmt.Errorf("%w: multimint address %q is not a hex address", ErrInvalidConfig, c.MultiMintAddress)
	}
	if c.GasMultiplier < MinGasMultiplier || c.GasMultiplier > MaxGasMultiplier {
		return fmt.Errorf("%w: gas multiplier must be %.2f-%.2f, got %.4f",
			ErrInvalidConfig, MinGasMultiplier, MaxGasMultiplier, c.GasMultiplier)
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("%w: gas limit must be > 0", ErrInvalidConfig)
	}
	if c.DispatchDelay < 0 {
		return fmt.Errorf("%w: dispatch delay must not be negative, got %s", ErrInvalidConfig, c.DispatchDelay)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be > 0, got %s", ErrInvalidConfig, c.PollInterval)
	}
	if c.PollMaxTicks < 0 || c.PollMaxDuration < 0 {
		return fmt.Errorf("%w: poll limits must not be negative", ErrInvalidConfig)
	}
	if c.RPCRequestsPerSecond < 1 {
		return fmt.Errorf("%w: rpc rps must be >= 1, got %d", ErrInvalidConfig, c.RPCRequestsPerSecond)
	}
	if c.MnemonicCount < 1 || c.MnemonicCount > MaxMnemonicWallets {
		return fmt.Errorf("%w: mnemonic count must be 1-%d, got %d", ErrInvalidConfig, MaxMnemonicWallets, c.MnemonicCount)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	return nil
}
