package config

import (
	"errors"
	"time"
)

// Sentinel errors for internal use.
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	// Inputs
	ErrNoEndpoint      = errors.New("no RPC endpoint configured")
	ErrNoSaleWindow    = errors.New("sale window unavailable")
	ErrInvalidKey      = errors.New("invalid private key")
	ErrNoKeys          = errors.New("no private keys loaded")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrUnknownChain    = errors.New("unknown chain")
	ErrInvalidTotal    = errors.New("mint total must be >= 1")

	// Engine
	ErrSaleClosed        = errors.New("sale closed")
	ErrInvalidGasPrice   = errors.New("resolved gas price must be > 0")
	ErrPollLimit         = errors.New("reconciliation poll limit reached")
	ErrInsufficientFunds = errors.New("insufficient balance for mint")
	ErrAttemptsExhausted = errors.New("mint attempts exhausted")

	// Endpoint
	ErrNonceTooLow        = errors.New("nonce too low")
	ErrTxReverted         = errors.New("transaction reverted")
	ErrCircuitOpen        = errors.New("circuit breaker is open")
	ErrAllProvidersFailed = errors.New("all endpoints failed")
	ErrProviderTimeout    = errors.New("endpoint request timeout")

	// Store
	ErrRunNotFound = errors.New("run not found")
)

// TransientError wraps an error that should be retried.
type TransientError struct {
	Err        error
	RetryAfter time.Duration // 0 = use default backoff
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient (retriable).
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NewTransientErrorWithRetry wraps with explicit retry delay.
func NewTransientErrorWithRetry(err error, retryAfter time.Duration) error {
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

// IsTransient returns true if the error is transient (retriable).
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// GetRetryAfter returns the retry delay if set, or 0.
func GetRetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// Error codes, returned by the status API.
const (
	ErrorInvalidConfig  = "ERROR_INVALID_CONFIG"
	ErrorDatabase       = "ERROR_DATABASE"
	ErrorRunNotFound    = "ERROR_RUN_NOT_FOUND"
	ErrorInvalidRequest = "ERROR_INVALID_REQUEST"
)
