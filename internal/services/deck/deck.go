package deck

import (
	"errors"
	"sync"

	"github.com/dkudrin/iskra/internal/domain/model"
)

var (
	// ErrEmptyDeck and ErrEmptyHistory indicate a caller bug: the
	// presentation layer should have disabled the control.
	ErrEmptyDeck    = errors.New("deck is empty")
	ErrEmptyHistory = errors.New("history is empty")
)

// Deck is the ordered candidate stack plus its undo history. The next
// card to decide on is the top (last) element. Popped cards move to the
// history stack; rewinding moves the most recent one back. History
// lives only as long as the session and is never persisted.
type Deck struct {
	mu      sync.Mutex
	stack   []model.CandidateProfile
	history []model.CandidateProfile
}

func New() *Deck {
	return &Deck{}
}

// Load appends candidates to the bottom of the stack, preserving the
// feed order (the last loaded entry becomes the top card, matching the
// card-pile rendering). Entries already present in the live stack or in
// history are skipped: no identifier may appear twice.
func (d *Deck) Load(candidates []model.CandidateProfile) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]struct{}, len(d.stack)+len(d.history))
	for _, c := range d.stack {
		seen[c.ID] = struct{}{}
	}
	for _, c := range d.history {
		seen[c.ID] = struct{}{}
	}

	added := 0
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		d.stack = append(d.stack, c)
		added++
	}
	return added
}

// PeekTop returns the next card to decide on without removing it.
func (d *Deck) PeekTop() (model.CandidateProfile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.stack) == 0 {
		return model.CandidateProfile{}, false
	}
	return d.stack[len(d.stack)-1], true
}

// PopTop removes the top card and pushes it onto history. This is the
// only legal transfer from stack to history.
func (d *Deck) PopTop() (model.CandidateProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.stack) == 0 {
		return model.CandidateProfile{}, ErrEmptyDeck
	}

	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	d.history = append(d.history, top)
	return top, nil
}

// Rewind moves the most recently popped card back onto the top of the
// stack, restoring the exact pre-action state.
func (d *Deck) Rewind() (model.CandidateProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.history) == 0 {
		return model.CandidateProfile{}, ErrEmptyHistory
	}

	last := d.history[len(d.history)-1]
	d.history = d.history[:len(d.history)-1]
	d.stack = append(d.stack, last)
	return last, nil
}

// Size reports the number of live cards.
func (d *Deck) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stack)
}

// HistorySize reports how many cards can still be rewound.
func (d *Deck) HistorySize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history)
}

// Snapshot returns a copy of the live stack, bottom first. Used by the
// transport to render the remaining pile.
func (d *Deck) Snapshot() []model.CandidateProfile {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.CandidateProfile, len(d.stack))
	copy(out, d.stack)
	return out
}
