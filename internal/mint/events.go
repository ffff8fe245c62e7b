package mint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantasim/dropmint/internal/config"
)

// EventKind names a progress event.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventFailed    EventKind = "failed"
	EventConfirmed EventKind = "confirmed"
	EventReverted  EventKind = "reverted"
	EventTick      EventKind = "tick"
)

// Event is one status line: an attempt, a resolved receipt or a poll tick.
type Event struct {
	Kind     EventKind
	Wallet   common.Address
	Sequence int
	TxHash   string
	Err      error

	// Tick counters.
	Tick      int
	Pending   int
	Confirmed int
	Reverted  int
}

// String renders the event as a single status line.
func (e Event) String() string {
	switch e.Kind {
	case EventSubmitted:
		return fmt.Sprintf("#%d submitted %s", e.Sequence, ShortHash(e.TxHash))
	case EventFailed:
		return fmt.Sprintf("#%d failed: %v", e.Sequence, e.Err)
	case EventConfirmed, EventReverted:
		return fmt.Sprintf("#%d %s %s", e.Sequence, e.Kind, ShortHash(e.TxHash))
	case EventTick:
		return fmt.Sprintf("tick %d: %d confirmed, %d reverted, %d pending", e.Tick, e.Confirmed, e.Reverted, e.Pending)
	default:
		return string(e.Kind)
	}
}

// Reporter receives progress events. It is called from the dispatch and
// poll goroutines concurrently.
type Reporter func(Event)

func (r Reporter) emit(e Event) {
	if r != nil {
		r(e)
	}
}

// ShortHash returns the first characters of a transaction hash.
func ShortHash(h string) string {
	if len(h) <= config.HashPrefixLen {
		return h
	}
	return h[:config.HashPrefixLen]
}
