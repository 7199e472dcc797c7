package swipe

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/domain/rules"
	"github.com/dkudrin/iskra/internal/services/deck"
	"github.com/dkudrin/iskra/internal/services/gesture"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotASwipe  = errors.New("action is not a swipe")
)

// Phase tags the controller state. Deciding is transient inside a
// single Release or Press call and is never observable from outside.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDragging Phase = "dragging"
	PhaseSettling Phase = "settling"
)

// Entitlements is the slice of the quota manager the controller needs.
type Entitlements interface {
	CanPerform(userID string, tier enums.Tier, kind enums.ActionKind) rules.Decision
	Consume(userID string, kind enums.ActionKind)
}

// MatchFormer records a like in the background.
type MatchFormer interface {
	FormAsync(selfID, otherID string)
}

// TierProvider answers the acting user's current subscription tier.
type TierProvider interface {
	TierFor(userID string) enums.Tier
}

// Outcome is what a release, press or rewind produced. Exactly one of
// three shapes: an allowed action (Popped with the acted Card), a
// denial (Denied non-nil, nothing moved), or a spring-back no-op.
type Outcome struct {
	Action   enums.ActionKind
	Popped   bool
	Card     model.CandidateProfile
	Denied   *rules.Decision
	Offset   gesture.Offset
	DeckSize int
}

// Controller runs one user's swipe session: a drag machine over the top
// card of the deck, gated by entitlements. Methods are safe for
// concurrent use; the mutex serializes the state machine so a burst of
// actions is decided one at a time against the optimistic counters.
type Controller struct {
	userID   string
	deck     *deck.Deck
	tracker  *gesture.Tracker
	quota    Entitlements
	matches  MatchFormer
	identity TierProvider
	log      *zap.Logger

	mu sync.Mutex
	// phase and settlingID implement the in-flight card guard: the
	// popped card stays un-actable until the presentation confirms it
	// settled, while the next card is already interactive.
	phase      Phase
	settlingID string
}

type ControllerConfig struct {
	Gesture gesture.Config
}

func NewController(userID string, d *deck.Deck, quota Entitlements, matches MatchFormer, identity TierProvider, log *zap.Logger, cfg ControllerConfig) (*Controller, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if d == nil || quota == nil || matches == nil || identity == nil {
		return nil, ErrValidation
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Controller{
		userID:   userID,
		deck:     d,
		tracker:  gesture.NewTracker(cfg.Gesture),
		quota:    quota,
		matches:  matches,
		identity: identity,
		log:      log,
		phase:    PhaseIdle,
	}, nil
}

// DragStart begins a drag on the top card.
func (c *Controller) DragStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.deck.PeekTop(); !ok {
		return deck.ErrEmptyDeck
	}
	return c.tracker.Start()
}

// DragMove reports the presentation offset for the current pointer
// position. Pure presentation: no decision is made here.
func (c *Controller) DragMove(dx, dy float64) (gesture.Offset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offset, err := c.tracker.Move(dx, dy)
	if err != nil {
		return gesture.Offset{}, err
	}
	c.phase = PhaseDragging
	return offset, nil
}

// DragRelease classifies the final position and, when a threshold was
// crossed, runs the decision. A sub-threshold release springs back.
func (c *Controller) DragRelease() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	classification, err := c.tracker.Release()
	if err != nil {
		return Outcome{}, err
	}

	if !classification.Actionable {
		c.phase = PhaseIdle
		return Outcome{Offset: gesture.Offset{}, DeckSize: c.deck.Size()}, nil
	}
	return c.decide(classification.Action)
}

// Press is the button path: it bypasses the trajectory and joins the
// decision pipeline directly. Any drag in progress is abandoned so
// residual pointer motion cannot re-enter the machine.
func (c *Controller) Press(kind enums.ActionKind) (Outcome, error) {
	if !kind.IsSwipe() {
		return Outcome{}, ErrNotASwipe
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tracker.Dragging() {
		_, _ = c.tracker.Release()
	}
	return c.decide(kind)
}

// decide runs the entitlement gate and, when allowed, applies the
// effects in order: pop first (the visible change), optimistic quota
// consume second, background persistence and match formation last.
// Caller holds the mutex.
func (c *Controller) decide(kind enums.ActionKind) (Outcome, error) {
	tier := c.identity.TierFor(c.userID)

	decision := c.quota.CanPerform(c.userID, tier, kind)
	if !decision.Allowed {
		c.phase = PhaseIdle
		c.log.Debug("swipe denied",
			zap.String("user_id", c.userID),
			zap.String("kind", string(kind)),
			zap.String("code", decision.Code),
		)
		return Outcome{Action: kind, Denied: &decision, DeckSize: c.deck.Size()}, nil
	}

	card, err := c.deck.PopTop()
	if err != nil {
		c.phase = PhaseIdle
		return Outcome{}, err
	}

	c.phase = PhaseSettling
	c.settlingID = card.ID

	c.quota.Consume(c.userID, kind)
	if kind.FormsMatch() {
		c.matches.FormAsync(c.userID, card.ID)
	}

	return Outcome{
		Action:   kind,
		Popped:   true,
		Card:     card,
		DeckSize: c.deck.Size(),
	}, nil
}

// Settled confirms the presentation finished animating the popped card
// off screen. A confirmation for any other card is ignored.
func (c *Controller) Settled(cardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseSettling && c.settlingID == cardID {
		c.phase = PhaseIdle
		c.settlingID = ""
	}
}

// Rewind puts the last swiped card back on top for entitled tiers. It
// restores deck state only; spent quota stays spent.
func (c *Controller) Rewind() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tier := c.identity.TierFor(c.userID)

	decision := c.quota.CanPerform(c.userID, tier, enums.ActionRewind)
	if !decision.Allowed {
		return Outcome{Action: enums.ActionRewind, Denied: &decision, DeckSize: c.deck.Size()}, nil
	}

	card, err := c.deck.Rewind()
	if err != nil {
		return Outcome{}, err
	}

	// The restored card replaces whatever was settling.
	c.phase = PhaseIdle
	c.settlingID = ""

	return Outcome{
		Action:   enums.ActionRewind,
		Popped:   true,
		Card:     card,
		DeckSize: c.deck.Size(),
	}, nil
}

// CanMessage gates the chat entry point for the current tier.
func (c *Controller) CanMessage() rules.Decision {
	tier := c.identity.TierFor(c.userID)
	return c.quota.CanPerform(c.userID, tier, enums.ActionMessage)
}

// TopCard peeks at the interactive card.
func (c *Controller) TopCard() (model.CandidateProfile, bool) {
	return c.deck.PeekTop()
}

// Refill loads a candidate page into the deck, skipping duplicates.
func (c *Controller) Refill(candidates []model.CandidateProfile) int {
	return c.deck.Load(candidates)
}

// Dragging reports whether a pointer drag is open.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Dragging()
}

// State reports the observable phase, for diagnostics.
func (c *Controller) State() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) DeckSize() int {
	return c.deck.Size()
}
