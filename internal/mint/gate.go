package mint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

// Clock returns the current time.
type Clock func() time.Time

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gate holds a run until the sale window opens.
type Gate struct {
	now   Clock
	sleep Sleeper
}

// NewGate creates a gate on the wall clock.
func NewGate() *Gate {
	return NewGateWith(time.Now, SleepContext)
}

// NewGateWith creates a gate with an injected clock and sleeper.
func NewGateWith(now Clock, sleep Sleeper) *Gate {
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Gate{now: now, sleep: sleep}
}

// Classify compares now against the window at second granularity. Both
// bounds are inclusive.
func Classify(w models.SaleWindow, now time.Time) models.DropState {
	sec := now.Unix()
	switch {
	case sec < w.StartTime:
		return models.DropNotStarted
	case sec > w.EndTime:
		return models.DropEnded
	default:
		return models.DropActive
	}
}

// Classify classifies w against the gate's clock.
func (g *Gate) Classify(w models.SaleWindow) models.DropState {
	return Classify(w, g.now())
}

// Wait returns once the window is active. A not-yet-started window costs one
// sleep until its start time. An ended window returns config.ErrSaleClosed.
func (g *Gate) Wait(ctx context.Context, w models.SaleWindow) (models.DropState, error) {
	now := g.now()
	state := Classify(w, now)

	switch state {
	case models.DropEnded:
		return state, saleClosed(w)

	case models.DropNotStarted:
		delay := w.Start().Sub(now)
		slog.Info("waiting for sale to start",
			"startTime", w.Start().UTC().Format(time.RFC3339),
			"delay", delay.Round(time.Millisecond).String(),
		)
		if err := g.sleep(ctx, delay); err != nil {
			return state, err
		}

		// A short window can close while the timer runs.
		if Classify(w, g.now()) == models.DropEnded {
			return models.DropEnded, saleClosed(w)
		}
		slog.Info("sale window opened")
	}

	return models.DropActive, nil
}

func saleClosed(w models.SaleWindow) error {
	end := w.End().UTC().Format(time.RFC3339)
	slog.Warn("sale window has ended", "endTime", end)
	return fmt.Errorf("%w: ended at %s", config.ErrSaleClosed, end)
}
