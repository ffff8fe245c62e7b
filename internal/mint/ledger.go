package mint

import (
	"sort"
	"sync"
	"time"

	"github.com/Fantasim/dropmint/internal/models"
)

// Ledger tracks accepted transactions by hash until their receipts resolve.
// It is safe for concurrent use by the dispatcher and the poller.
type Ledger struct {
	mu       sync.Mutex
	entries  map[string]*models.PendingEntry
	onChange func(models.PendingEntry)
	now      Clock
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*models.PendingEntry),
		now:     time.Now,
	}
}

// OnChange registers fn to be called with a copy of every appended or
// resolved entry. fn runs while the ledger is locked, so it must return
// quickly and must not call back into the ledger. A blocking fn stalls every
// ledger caller.
func (l *Ledger) OnChange(fn func(models.PendingEntry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Append records an accepted transaction as unchecked. Appending a hash that
// is already present updates its sequence and nonce in place and never
// resets a resolved status.
func (l *Ledger) Append(e models.PendingEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[e.TxHash]; ok {
		existing.Sequence = e.Sequence
		existing.Nonce = e.Nonce
		l.notify(*existing)
		return
	}

	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = l.now()
	}
	e.Status = models.StatusUnchecked
	e.BlockNumber = 0
	e.ResolvedAt = time.Time{}
	l.entries[e.TxHash] = &e
	l.notify(e)
}

// Resolve moves an unchecked entry to confirmed or reverted. It returns false
// when the hash is unknown, the entry is already terminal, or status is not
// terminal.
func (l *Ledger) Resolve(txHash string, status models.EntryStatus, block uint64) bool {
	if !status.Terminal() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[txHash]
	if !ok || e.Status.Terminal() {
		return false
	}
	e.Status = status
	e.BlockNumber = block
	e.ResolvedAt = l.now()
	l.notify(*e)
	return true
}

func (l *Ledger) notify(e models.PendingEntry) {
	if l.onChange != nil {
		l.onChange(e)
	}
}

// Unchecked returns the unresolved entries ordered by sequence.
func (l *Ledger) Unchecked() []models.PendingEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.PendingEntry
	for _, e := range l.entries {
		if e.Status == models.StatusUnchecked {
			out = append(out, *e)
		}
	}
	sortBySequence(out)
	return out
}

// Entries returns every entry ordered by sequence.
func (l *Ledger) Entries() []models.PendingEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.PendingEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sortBySequence(out)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Tally counts entries by status. Submitted is the entry count; Target and
// Attempted are left for the caller.
func (l *Ledger) Tally() models.RunTally {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := models.RunTally{Submitted: len(l.entries)}
	for _, e := range l.entries {
		switch e.Status {
		case models.StatusConfirmed:
			t.Confirmed++
		case models.StatusReverted:
			t.Reverted++
		default:
			t.Unresolved++
		}
	}
	return t
}

func sortBySequence(entries []models.PendingEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})
}
