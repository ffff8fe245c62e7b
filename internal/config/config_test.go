package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		KeysFile:             "./pk.txt",
		MnemonicCount:        1,
		RPCFile:              "./rpc.json",
		SeaDropAddress:       "0x00005EA00Ac477B1030CE78506496e8C2dE24bf5",
		MultiMintAddress:     "0x0000419B4B6132e05DfBd89F65B165DFD6fA126F",
		GasMultiplier:        DefaultGasMultiplier,
		GasLimit:             DefaultGasLimit,
		DispatchDelay:        DefaultDispatchDelay,
		PollInterval:         DefaultPollInterval,
		RPCRequestsPerSecond: DefaultRPCRequestsPerSec,
		DBPath:               "./data/dropmint.sqlite",
		LogLevel:             "info",
		LogDir:               "./logs",
		Port:                 8090,
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_InvalidAddresses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty seadrop", func(c *Config) { c.SeaDropAddress = "" }},
		{"short seadrop", func(c *Config) { c.SeaDropAddress = "0x1234" }},
		{"non-hex multimint", func(c *Config) { c.MultiMintAddress = "0xZZ00419B4B6132e05DfBd89F65B165DFD6fA126F" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestValidate_GasMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"below one", 0.9, true},
		{"one", 1.0, false},
		{"default", 1.2, false},
		{"five percent", 1.05, false},
		{"max", 3.0, false},
		{"too high", 3.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.GasMultiplier = tt.value
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Timing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"negative dispatch delay", func(c *Config) { c.DispatchDelay = -time.Millisecond }},
		{"negative max ticks", func(c *Config) { c.PollMaxTicks = -1 }},
		{"negative max duration", func(c *Config) { c.PollMaxDuration = -time.Second }},
		{"zero gas limit", func(c *Config) { c.GasLimit = 0 }},
		{"zero rps", func(c *Config) { c.RPCRequestsPerSecond = 0 }},
		{"zero mnemonic count", func(c *Config) { c.MnemonicCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
		})
	}
}

func TestValidate_ZeroDispatchDelayAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.DispatchDelay = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Port = tt.port
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() expected error for port=%d, got nil", tt.port)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DROPMINT_GAS_MULTIPLIER", "1.05")
	t.Setenv("DROPMINT_POLL_INTERVAL", "500ms")
	t.Setenv("DROPMINT_CHAIN_ID", "8453")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GasMultiplier != 1.05 {
		t.Errorf("GasMultiplier = %v, want 1.05", cfg.GasMultiplier)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.ChainID != 8453 {
		t.Errorf("ChainID = %d, want 8453", cfg.ChainID)
	}
	if cfg.GasLimit != DefaultGasLimit {
		t.Errorf("GasLimit = %d, want default %d", cfg.GasLimit, DefaultGasLimit)
	}
	if cfg.DispatchDelay != DefaultDispatchDelay {
		t.Errorf("DispatchDelay = %v, want %v", cfg.DispatchDelay, DefaultDispatchDelay)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("DROPMINT_GAS_MULTIPLIER", "7")

	_, err := Load()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
}
