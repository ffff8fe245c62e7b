package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

const runColumns = `id, wallet, chain_id, nft, mode, gas_price, outcome,
	target, attempted, submitted, confirmed, reverted, unresolved,
	error, started_at, finished_at`

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatTime renders t the way run rows store it. Zero stays empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// CreateRun inserts a run in the running state.
func (d *DB) CreateRun(run models.Run) error {
	if run.StartedAt == "" {
		run.StartedAt = nowString()
	}
	if run.Outcome == "" {
		run.Outcome = models.OutcomeRunning
	}

	_, err := d.conn.Exec(
		`INSERT INTO runs (id, wallet, chain_id, nft, mode, gas_price, outcome, target, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Wallet, run.ChainID, run.NFT, string(run.Mode), run.GasPrice,
		string(run.Outcome), run.Tally.Target, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	slog.Debug("run created", "runID", run.ID, "wallet", run.Wallet, "chainID", run.ChainID)
	return nil
}

// FinishRun records the outcome and tally of a run.
func (d *DB) FinishRun(id string, outcome models.RunOutcome, tally models.RunTally, runErr string) error {
	result, err := d.conn.Exec(
		`UPDATE runs SET outcome = ?, target = ?, attempted = ?, submitted = ?, confirmed = ?,
		        reverted = ?, unresolved = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(outcome), tally.Target, tally.Attempted, tally.Submitted, tally.Confirmed,
		tally.Reverted, tally.Unresolved, runErr, nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", id, config.ErrRunNotFound)
	}

	slog.Debug("run finished", "runID", id, "outcome", outcome)
	return nil
}

// UpsertRunTx inserts a ledger entry or updates its reconciliation fields.
func (d *DB) UpsertRunTx(tx models.RunTx) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_txs (run_id, tx_hash, sequence, nonce, status, block_number, submitted_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, tx_hash) DO UPDATE SET
		     sequence = excluded.sequence,
		     nonce = excluded.nonce,
		     status = excluded.status,
		     block_number = excluded.block_number,
		     resolved_at = excluded.resolved_at`,
		tx.RunID, tx.TxHash, tx.Sequence, int64(tx.Nonce), string(tx.Status),
		int64(tx.BlockNumber), tx.SubmittedAt, tx.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert run tx %s/%s: %w", tx.RunID, tx.TxHash, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	if limit > config.MaxHistoryLimit {
		limit = config.MaxHistoryLimit
	}

	rows, err := d.conn.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its transactions ordered by sequence.
func (d *DB) GetRun(id string) (*models.RunDetail, error) {
	row := d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, config.ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(
		`SELECT run_id, tx_hash, sequence, nonce, status, block_number, submitted_at, resolved_at
		 FROM run_txs WHERE run_id = ? ORDER BY sequence`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list run txs %s: %w", id, err)
	}
	defer rows.Close()

	detail := &models.RunDetail{Run: run, Txs: []models.RunTx{}}
	for rows.Next() {
		var tx models.RunTx
		var status string
		var nonce, block int64
		if err := rows.Scan(&tx.RunID, &tx.TxHash, &tx.Sequence, &nonce, &status, &block,
			&tx.SubmittedAt, &tx.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan run tx: %w", err)
		}
		tx.Status = models.EntryStatus(status)
		tx.Nonce = uint64(nonce)
		tx.BlockNumber = uint64(block)
		detail.Txs = append(detail.Txs, tx)
	}
	return detail, rows.Err()
}

// MarkInterruptedRuns closes runs left in the running state by a previous
// process and returns how many were updated.
func (d *DB) MarkInterruptedRuns() (int, error) {
	result, err := d.conn.Exec(
		`UPDATE runs SET outcome = ?, error = ?, finished_at = ? WHERE outcome = ?`,
		string(models.OutcomeCancelled), "process exited before run finished", nowString(),
		string(models.OutcomeRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		slog.Warn("marked interrupted runs as cancelled", "count", n)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (models.Run, error) {
	var run models.Run
	var mode, outcome string
	err := s.Scan(
		&run.ID, &run.Wallet, &run.ChainID, &run.NFT, &mode, &run.GasPrice, &outcome,
		&run.Tally.Target, &run.Tally.Attempted, &run.Tally.Submitted, &run.Tally.Confirmed,
		&run.Tally.Reverted, &run.Tally.Unresolved,
		&run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.Mode = models.Mode(mode)
	run.Outcome = models.RunOutcome(outcome)
	return run, nil
}
