package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

func testRun(id, started string) models.Run {
	return models.Run{
		ID:        id,
		Wallet:    "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		ChainID:   8453,
		NFT:       "0x1111111111111111111111111111111111111111",
		Mode:      models.ModeHybrid,
		GasPrice:  "1200000000",
		Tally:     models.RunTally{Target: 5},
		StartedAt: started,
	}
}

func TestCreateAndFinishRun(t *testing.T) {
	d := setupTestDB(t)

	if err := d.CreateRun(testRun("run-1", "")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	detail, err := d.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if detail.Outcome != models.OutcomeRunning || detail.StartedAt == "" {
		t.Errorf("new run = %+v, want running with start time", detail.Run)
	}
	if detail.Tally.Target != 5 {
		t.Errorf("target = %d, want 5", detail.Tally.Target)
	}

	tally := models.RunTally{Target: 5, Attempted: 7, Submitted: 5, Confirmed: 4, Reverted: 1}
	if err := d.FinishRun("run-1", models.OutcomeCompleted, tally, ""); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	detail, err = d.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Outcome != models.OutcomeCompleted || detail.FinishedAt == "" {
		t.Errorf("finished run = %+v", detail.Run)
	}
	if detail.Tally != tally {
		t.Errorf("tally = %+v, want %+v", detail.Tally, tally)
	}
}

func TestFinishRun_NotFound(t *testing.T) {
	d := setupTestDB(t)
	err := d.FinishRun("missing", models.OutcomeCompleted, models.RunTally{}, "")
	if !errors.Is(err, config.ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	d := setupTestDB(t)
	if _, err := d.GetRun("missing"); !errors.Is(err, config.ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestUpsertRunTx(t *testing.T) {
	d := setupTestDB(t)
	if err := d.CreateRun(testRun("run-1", "")); err != nil {
		t.Fatal(err)
	}

	for seq := 2; seq >= 1; seq-- {
		err := d.UpsertRunTx(models.RunTx{
			RunID:       "run-1",
			TxHash:      fmt.Sprintf("0x%064d", seq),
			Sequence:    seq,
			Nonce:       uint64(10 + seq),
			Status:      models.StatusUnchecked,
			SubmittedAt: "2026-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("UpsertRunTx() error = %v", err)
		}
	}

	// Resolve the first one.
	err := d.UpsertRunTx(models.RunTx{
		RunID:       "run-1",
		TxHash:      fmt.Sprintf("0x%064d", 1),
		Sequence:    1,
		Nonce:       11,
		Status:      models.StatusConfirmed,
		BlockNumber: 123,
		SubmittedAt: "2026-01-01T00:00:00Z",
		ResolvedAt:  "2026-01-01T00:00:04Z",
	})
	if err != nil {
		t.Fatalf("UpsertRunTx() update error = %v", err)
	}

	detail, err := d.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Txs) != 2 {
		t.Fatalf("txs = %d, want 2", len(detail.Txs))
	}
	first := detail.Txs[0]
	if first.Sequence != 1 || first.Status != models.StatusConfirmed || first.BlockNumber != 123 {
		t.Errorf("first tx = %+v", first)
	}
	if detail.Txs[1].Status != models.StatusUnchecked {
		t.Errorf("second tx status = %s, want unchecked", detail.Txs[1].Status)
	}
}

func TestListRuns_NewestFirstAndLimit(t *testing.T) {
	d := setupTestDB(t)

	starts := []string{"2026-01-01T00:00:00Z", "2026-01-03T00:00:00Z", "2026-01-02T00:00:00Z"}
	for i, s := range starts {
		if err := d.CreateRun(testRun(fmt.Sprintf("run-%d", i), s)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := d.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-1" || runs[1].ID != "run-2" {
		t.Errorf("order = %s, %s; want run-1, run-2", runs[0].ID, runs[1].ID)
	}

	all, err := d.ListRuns(0)
	if err != nil || len(all) != 3 {
		t.Errorf("ListRuns(0) = %d, %v; want default limit to include all 3", len(all), err)
	}
}

func TestMarkInterruptedRuns(t *testing.T) {
	d := setupTestDB(t)

	if err := d.CreateRun(testRun("stale", "")); err != nil {
		t.Fatal(err)
	}
	if err := d.CreateRun(testRun("done", "")); err != nil {
		t.Fatal(err)
	}
	if err := d.FinishRun("done", models.OutcomeCompleted, models.RunTally{}, ""); err != nil {
		t.Fatal(err)
	}

	n, err := d.MarkInterruptedRuns()
	if err != nil {
		t.Fatalf("MarkInterruptedRuns() error = %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}

	stale, _ := d.GetRun("stale")
	if stale.Outcome != models.OutcomeCancelled {
		t.Errorf("stale outcome = %s, want cancelled", stale.Outcome)
	}
	done, _ := d.GetRun("done")
	if done.Outcome != models.OutcomeCompleted {
		t.Errorf("done outcome = %s, want completed", done.Outcome)
	}
}
