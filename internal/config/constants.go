package config

import "time"

// Purchase
const (
	DefaultGasLimit       = 150_000
	DefaultGasMultiplier  = 1.2
	MinGasMultiplier      = 1.0
	MaxGasMultiplier      = 3.0
	GasMultiplierScale    = 10_000 // multiplier is applied as (price * round(m*scale)) / scale
	GasEstimateBufferNum  = 12     // sequential mode: estimate * 12 / 10
	GasEstimateBufferDen  = 10
	PurchaseUnitsPerTx    = 1
	AttemptBudgetFactor   = 2 // dispatch attempts = factor * total
	DefaultDispatchDelay  = 50 * time.Millisecond
	SequentialMaxAttempts = 10
	SequentialRetryDelay  = 2 * time.Second
)

// Reconciliation
const (
	DefaultPollInterval = 2 * time.Second
	ReceiptCheckTimeout = 10 * time.Second
	HashPrefixLen       = 10
	RecorderBufferSize  = 256 // ledger changes queued for the run store
)

// Units
const (
	GweiDecimals  = 9
	EtherDecimals = 18
)

// Wallets
const (
	BIP44Purpose       = 44
	EVMCoinType        = 60 // m/44'/60'/0'/0/N
	MaxMnemonicWallets = 1_000
)

// Endpoint
const (
	DialTimeout               = 10 * time.Second
	HealthCheckTimeout        = 8 * time.Second
	CircuitBreakerThreshold   = 3
	CircuitBreakerCooldown    = 30 * time.Second
	CircuitBreakerHalfOpenMax = 1
	DefaultRPCRequestsPerSec  = 20
)

// Circuit breaker states
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// Server
const (
	ServerReadTimeout    = 15 * time.Second
	ServerWriteTimeout   = 30 * time.Second
	ServerIdleTimeout    = 60 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	ShutdownTimeout      = 10 * time.Second
	DefaultHistoryLimit  = 20
	MaxHistoryLimit      = 500
)

// Logging
const (
	LogFilePrefix = "dropmint-"
	LogMaxAgeDays = 30
)

// Database
const (
	DBBusyTimeout = 5000 // milliseconds
)

// Metrics
const (
	MetricsNamespace = "dropmint"
)
