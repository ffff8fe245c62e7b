package models

import (
	"fmt"
	"math/big"
	"time"
)

// Mode selects the submission strategy.
type Mode string

const (
	// ModeHybrid fires single-unit purchases without waiting and reconciles receipts concurrently.
	ModeHybrid Mode = "hybrid"
	// ModeSequential sends one multi-unit purchase at a time and waits for each receipt.
	ModeSequential Mode = "sequential"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHybrid, ModeSequential:
		return Mode(s), nil
	case "":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want hybrid or sequential)", s)
	}
}

// SaleWindow is the public drop configuration read from the sale contract.
type SaleWindow struct {
	PricePerUnit          *big.Int `json:"pricePerUnit"`
	StartTime             int64    `json:"startTime"`
	EndTime               int64    `json:"endTime"`
	MaxPerWallet          uint16   `json:"maxPerWallet"`
	FeeBps                uint16   `json:"feeBps"`
	RestrictFeeRecipients bool     `json:"restrictFeeRecipients"`
}

// Validate rejects windows that cannot be gated on.
func (w SaleWindow) Validate() error {
	if w.PricePerUnit == nil || w.PricePerUnit.Sign() < 0 {
		return fmt.Errorf("sale window price must be >= 0")
	}
	if w.StartTime > w.EndTime {
		return fmt.Errorf("sale window start %d is after end %d", w.StartTime, w.EndTime)
	}
	return nil
}

// Start returns the start time as time.Time.
func (w SaleWindow) Start() time.Time { return time.Unix(w.StartTime, 0) }

// End returns the end time as time.Time.
func (w SaleWindow) End() time.Time { return time.Unix(w.EndTime, 0) }

// DropState classifies the sale window against the current time.
type DropState string

const (
	DropNotStarted DropState = "not_started"
	DropActive     DropState = "active"
	DropEnded      DropState = "ended"
)

// DispatchAttempt is the result of one submission attempt. TxHash is empty
// when the submission failed.
type DispatchAttempt struct {
	Sequence int    `json:"sequence"`
	TxHash   string `json:"txHash,omitempty"`
}

// Submitted reports whether the endpoint accepted the transaction.
func (a DispatchAttempt) Submitted() bool { return a.TxHash != "" }

// EntryStatus is the reconciliation state of a submitted transaction.
type EntryStatus string

const (
	StatusUnchecked EntryStatus = "unchecked"
	StatusConfirmed EntryStatus = "confirmed"
	StatusReverted  EntryStatus = "reverted"
)

// Terminal reports whether the status can no longer change.
func (s EntryStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusReverted
}

// PendingEntry is a ledger row for one accepted transaction.
type PendingEntry struct {
	TxHash      string      `json:"txHash"`
	Sequence    int         `json:"sequence"`
	Status      EntryStatus `json:"status"`
	Nonce       uint64      `json:"nonce"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	SubmittedAt time.Time   `json:"submittedAt"`
	ResolvedAt  time.Time   `json:"resolvedAt,omitempty"`
}

// RunTally summarizes one wallet run.
type RunTally struct {
	Target     int `json:"target"`
	Attempted  int `json:"attempted"`
	Submitted  int `json:"submitted"`
	Confirmed  int `json:"confirmed"`
	Reverted   int `json:"reverted"`
	Unresolved int `json:"unresolved"`
}

// ShortBy returns how many units were never submitted.
func (t RunTally) ShortBy() int {
	if t.Submitted >= t.Target {
		return 0
	}
	return t.Target - t.Submitted
}

// Consistent checks confirmed+reverted+unresolved == submitted <= attempted.
func (t RunTally) Consistent() bool {
	return t.Confirmed+t.Reverted+t.Unresolved == t.Submitted && t.Submitted <= t.Attempted
}

// RunOutcome is the terminal classification of a wallet run.
type RunOutcome string

const (
	OutcomeCompleted   RunOutcome = "completed"
	OutcomeSaleClosed  RunOutcome = "sale_closed"
	OutcomeConfigError RunOutcome = "config_error"
	OutcomeCancelled   RunOutcome = "cancelled"
	OutcomePollLimit   RunOutcome = "poll_limit"
	OutcomeRunning     RunOutcome = "running"
)

// Run is the persisted record of one wallet run.
type Run struct {
	ID         string     `json:"id"`
	Wallet     string     `json:"wallet"`
	ChainID    int64      `json:"chainId"`
	NFT        string     `json:"nft"`
	Mode       Mode       `json:"mode"`
	GasPrice   string     `json:"gasPrice"`
	Outcome    RunOutcome `json:"outcome"`
	Tally      RunTally   `json:"tally"`
	Error      string     `json:"error,omitempty"`
	StartedAt  string     `json:"startedAt"`
	FinishedAt string     `json:"finishedAt,omitempty"`
}

// RunTx is a persisted ledger entry belonging to a run.
type RunTx struct {
	RunID       string      `json:"runId"`
	TxHash      string      `json:"txHash"`
	Sequence    int         `json:"sequence"`
	Nonce       uint64      `json:"nonce"`
	Status      EntryStatus `json:"status"`
	BlockNumber uint64      `json:"blockNumber,omitempty"`
	SubmittedAt string      `json:"submittedAt"`
	ResolvedAt  string      `json:"resolvedAt,omitempty"`
}

// RunDetail is a run with its transactions.
type RunDetail struct {
	Run
	Txs []RunTx `json:"txs"`
}

// EndpointHealth is a point-in-time view of one RPC endpoint.
type EndpointHealth struct {
	URL          string `json:"url"`
	ChainID      int64  `json:"chainId"`
	CircuitState string `json:"circuitState"`
	Failures     int    `json:"consecutiveFailures"`
	LastError    string `json:"lastError,omitempty"`
}

// APIResponse is the standard envelope for status API responses.
type APIResponse struct {
	Data  interface{} `json:"data,omitempty"`
	Error *APIError   `json:"error,omitempty"`
}

// APIError is the error shape for API responses.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
