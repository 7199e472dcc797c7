package swipe

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/domain/rules"
	"github.com/dkudrin/iskra/internal/services/deck"
	"github.com/dkudrin/iskra/internal/services/gesture"
	"github.com/dkudrin/iskra/internal/services/quota"
)

type entitlementsStub struct {
	deny     map[enums.ActionKind]rules.Decision
	consumed []enums.ActionKind
}

func (s *entitlementsStub) CanPerform(_ string, tier enums.Tier, kind enums.ActionKind) rules.Decision {
	if d, ok := s.deny[kind]; ok {
		return d
	}
	return rules.Decision{Allowed: true, Kind: kind, Tier: tier}
}

func (s *entitlementsStub) Consume(_ string, kind enums.ActionKind) {
	s.consumed = append(s.consumed, kind)
}

type matchFormerStub struct {
	formed [][2]string
}

func (s *matchFormerStub) FormAsync(selfID, otherID string) {
	s.formed = append(s.formed, [2]string{selfID, otherID})
}

type tierStub struct {
	tier enums.Tier
}

func (s tierStub) TierFor(string) enums.Tier { return s.tier }

func testDeck(t *testing.T, ids ...string) *deck.Deck {
	t.Helper()

	cards := make([]model.CandidateProfile, 0, len(ids))
	for _, id := range ids {
		cards = append(cards, model.CandidateProfile{ID: id, Name: "N-" + id})
	}
	d := deck.New()
	if added := d.Load(cards); added != len(ids) {
		t.Fatalf("loaded %d cards, want %d", added, len(ids))
	}
	return d
}

func newTestController(t *testing.T, d *deck.Deck, ents Entitlements, matches *matchFormerStub, tier enums.Tier) *Controller {
	t.Helper()

	c, err := NewController("user-1", d, ents, matches, tierStub{tier: tier}, zap.NewNop(), ControllerConfig{})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func TestDragLikePopsTopAndFormsMatch(t *testing.T) {
	d := testDeck(t, "cand-1", "cand-2")
	ents := &entitlementsStub{}
	matches := &matchFormerStub{}
	c := newTestController(t, d, ents, matches, enums.TierPremium)

	if err := c.DragStart(); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	offset, err := c.DragMove(150, 10)
	if err != nil {
		t.Fatalf("drag move: %v", err)
	}
	if offset.Rotation != 7.5 {
		t.Fatalf("rotation = %v, want 7.5", offset.Rotation)
	}

	outcome, err := c.DragRelease()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !outcome.Popped || outcome.Action != enums.ActionLike {
		t.Fatalf("outcome = %+v, want popped like", outcome)
	}
	if outcome.Card.ID != "cand-2" {
		t.Fatalf("acted card = %s, want the top card cand-2", outcome.Card.ID)
	}
	if outcome.DeckSize != 1 {
		t.Fatalf("deck size = %d, want 1", outcome.DeckSize)
	}

	if len(ents.consumed) != 1 || ents.consumed[0] != enums.ActionLike {
		t.Fatalf("consumed = %v, want one like", ents.consumed)
	}
	if len(matches.formed) != 1 || matches.formed[0] != [2]string{"user-1", "cand-2"} {
		t.Fatalf("match formed = %v", matches.formed)
	}
}

func TestSubThresholdReleaseSpringsBack(t *testing.T) {
	d := testDeck(t, "cand-1")
	ents := &entitlementsStub{}
	c := newTestController(t, d, ents, &matchFormerStub{}, enums.TierFree)

	if err := c.DragStart(); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if _, err := c.DragMove(50, -50); err != nil {
		t.Fatalf("drag move: %v", err)
	}

	outcome, err := c.DragRelease()
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if outcome.Popped || outcome.Denied != nil {
		t.Fatalf("sub-threshold release must be a no-op: %+v", outcome)
	}
	if outcome.Offset != (gesture.Offset{}) {
		t.Fatalf("offset should reset to origin, got %+v", outcome.Offset)
	}
	if d.Size() != 1 || len(ents.consumed) != 0 {
		t.Fatal("spring-back must not touch deck or counters")
	}
}

func TestPassDoesNotFormMatch(t *testing.T) {
	d := testDeck(t, "cand-1")
	matches := &matchFormerStub{}
	c := newTestController(t, d, &entitlementsStub{}, matches, enums.TierFree)

	outcome, err := c.Press(enums.ActionPass)
	if err != nil {
		t.Fatalf("press: %v", err)
	}
	if !outcome.Popped || outcome.Action != enums.ActionPass {
		t.Fatalf("outcome = %+v, want popped pass", outcome)
	}
	if len(matches.formed) != 0 {
		t.Fatalf("pass must not form a match: %v", matches.formed)
	}
}

func TestDeniedDecisionLeavesDeckUntouched(t *testing.T) {
	denied := rules.Decision{
		Kind:    enums.ActionLike,
		Tier:    enums.TierFree,
		Code:    rules.CodeSwipeLimitReached,
		Message: "upgrade",
	}
	d := testDeck(t, "cand-1")
	ents := &entitlementsStub{deny: map[enums.ActionKind]rules.Decision{enums.ActionLike: denied}}
	matches := &matchFormerStub{}
	c := newTestController(t, d, ents, matches, enums.TierFree)

	outcome, err := c.Press(enums.ActionLike)
	if err != nil {
		t.Fatalf("press: %v", err)
	}
	if outcome.Popped || outcome.Denied == nil {
		t.Fatalf("outcome = %+v, want denial", outcome)
	}
	if outcome.Denied.Code != rules.CodeSwipeLimitReached {
		t.Fatalf("denial code = %s", outcome.Denied.Code)
	}
	if d.Size() != 1 || len(ents.consumed) != 0 || len(matches.formed) != 0 {
		t.Fatal("denial must have no side effects")
	}
	if c.State() != PhaseIdle {
		t.Fatalf("state = %s, want idle", c.State())
	}
}

func TestPressAbandonsDragInProgress(t *testing.T) {
	d := testDeck(t, "cand-1", "cand-2")
	c := newTestController(t, d, &entitlementsStub{}, &matchFormerStub{}, enums.TierPremium)

	if err := c.DragStart(); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if _, err := c.DragMove(40, 0); err != nil {
		t.Fatalf("drag move: %v", err)
	}

	outcome, err := c.Press(enums.ActionSuperLike)
	if err != nil {
		t.Fatalf("press: %v", err)
	}
	if !outcome.Popped || outcome.Action != enums.ActionSuperLike {
		t.Fatalf("outcome = %+v", outcome)
	}

	// Residual pointer motion after the programmatic action is dead.
	if _, err := c.DragMove(200, 0); err == nil {
		t.Fatal("residual move must not re-enter the drag machine")
	}
}

func TestPressRejectsNonSwipeKinds(t *testing.T) {
	c := newTestController(t, testDeck(t, "cand-1"), &entitlementsStub{}, &matchFormerStub{}, enums.TierFree)

	if _, err := c.Press(enums.ActionMessage); !errors.Is(err, ErrNotASwipe) {
		t.Fatalf("expected ErrNotASwipe, got %v", err)
	}
}

func TestSettlingCardCannotBeReActed(t *testing.T) {
	d := testDeck(t, "cand-1", "cand-2")
	c := newTestController(t, d, &entitlementsStub{}, &matchFormerStub{}, enums.TierPremium)

	outcome, err := c.Press(enums.ActionLike)
	if err != nil {
		t.Fatalf("press: %v", err)
	}
	if c.State() != PhaseSettling {
		t.Fatalf("state = %s, want settling", c.State())
	}

	// The next card is interactive while the previous one settles.
	top, ok := c.TopCard()
	if !ok || top.ID == outcome.Card.ID {
		t.Fatalf("top card = %+v, want the next card", top)
	}

	c.Settled("some-other-card")
	if c.State() != PhaseSettling {
		t.Fatal("confirmation for another card must be ignored")
	}

	c.Settled(outcome.Card.ID)
	if c.State() != PhaseIdle {
		t.Fatalf("state = %s, want idle after settle", c.State())
	}
}

func TestRewindRestoresExactTopCard(t *testing.T) {
	d := testDeck(t, "cand-1", "cand-2")
	c := newTestController(t, d, &entitlementsStub{}, &matchFormerStub{}, enums.TierPremium)

	popped, err := c.Press(enums.ActionPass)
	if err != nil {
		t.Fatalf("press: %v", err)
	}

	outcome, err := c.Rewind()
	if err != nil {
		t.Fatalf("rewind: %v", err)
	}
	if outcome.Card.ID != popped.Card.ID {
		t.Fatalf("rewound card = %s, want %s", outcome.Card.ID, popped.Card.ID)
	}

	top, ok := c.TopCard()
	if !ok || top.ID != popped.Card.ID {
		t.Fatalf("top after rewind = %+v, want %s", top, popped.Card.ID)
	}
	if c.State() != PhaseIdle {
		t.Fatalf("state = %s, want idle", c.State())
	}
}

func TestRewindDeniedDoesNotTouchHistory(t *testing.T) {
	denied := rules.Decision{Kind: enums.ActionRewind, Tier: enums.TierFree, Code: rules.CodeRewindLocked}
	ents := &entitlementsStub{deny: map[enums.ActionKind]rules.Decision{enums.ActionRewind: denied}}
	d := testDeck(t, "cand-1", "cand-2")
	c := newTestController(t, d, ents, &matchFormerStub{}, enums.TierFree)

	if _, err := c.Press(enums.ActionPass); err != nil {
		t.Fatalf("press: %v", err)
	}

	outcome, err := c.Rewind()
	if err != nil {
		t.Fatalf("rewind: %v", err)
	}
	if outcome.Denied == nil || outcome.Denied.Code != rules.CodeRewindLocked {
		t.Fatalf("outcome = %+v, want rewind denial", outcome)
	}
	if d.HistorySize() != 1 {
		t.Fatal("denied rewind must leave history intact")
	}
}

func TestEmptyDeckPressReturnsError(t *testing.T) {
	c := newTestController(t, deck.New(), &entitlementsStub{}, &matchFormerStub{}, enums.TierFree)

	if _, err := c.Press(enums.ActionLike); !errors.Is(err, deck.ErrEmptyDeck) {
		t.Fatalf("expected ErrEmptyDeck, got %v", err)
	}
	if err := c.DragStart(); !errors.Is(err, deck.ErrEmptyDeck) {
		t.Fatalf("drag start on empty deck: %v", err)
	}
}

// The full free-tier afternoon: four swipes spent, limit five. The
// fifth like passes, the sixth is refused with the swipe upsell, and a
// super like still goes through on its own counter.
func TestFreeTierScenarioEndToEnd(t *testing.T) {
	manager := quota.NewManager(nil, nil, zap.NewNop(), quota.Config{})
	today := rules.DayKey(time.Now().UTC(), time.UTC)
	manager.Reconcile("user-1", model.UsageCounter{Date: today, Swipes: 4})

	d := testDeck(t, "cand-1", "cand-2", "cand-3")
	matches := &matchFormerStub{}
	c := newTestController(t, d, manager, matches, enums.TierFree)

	fifth, err := c.Press(enums.ActionLike)
	if err != nil {
		t.Fatalf("fifth like: %v", err)
	}
	if !fifth.Popped {
		t.Fatalf("fifth like should pass: %+v", fifth)
	}

	sixth, err := c.Press(enums.ActionLike)
	if err != nil {
		t.Fatalf("sixth like: %v", err)
	}
	if sixth.Popped || sixth.Denied == nil || sixth.Denied.Code != rules.CodeSwipeLimitReached {
		t.Fatalf("sixth like = %+v, want swipe-limit denial", sixth)
	}

	super, err := c.Press(enums.ActionSuperLike)
	if err != nil {
		t.Fatalf("super like: %v", err)
	}
	if !super.Popped {
		t.Fatalf("super like should pass on its own counter: %+v", super)
	}

	manager.Wait()
	snap := manager.Snapshot("user-1", enums.TierFree)
	if snap.SwipesLeft != 0 || snap.SuperLikesLeft != 1 {
		t.Fatalf("snapshot = %+v, want 0 swipes and 1 super like left", snap)
	}
}

// A burst of back-to-back presses must be throttled by the optimistic
// mirror before any write confirms: exactly the limit gets through.
func TestBurstGrantsExactlyTheLimit(t *testing.T) {
	manager := quota.NewManager(nil, nil, zap.NewNop(), quota.Config{})

	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	d := testDeck(t, ids...)
	c := newTestController(t, d, manager, &matchFormerStub{}, enums.TierFree)

	allowed, denied := 0, 0
	for range ids {
		outcome, err := c.Press(enums.ActionPass)
		if err != nil {
			t.Fatalf("press: %v", err)
		}
		if outcome.Popped {
			allowed++
		} else {
			denied++
		}
	}

	if allowed != rules.FreeSwipesPerDay || denied != len(ids)-rules.FreeSwipesPerDay {
		t.Fatalf("allowed=%d denied=%d, want %d/%d", allowed, denied, rules.FreeSwipesPerDay, len(ids)-rules.FreeSwipesPerDay)
	}
	manager.Wait()
}
