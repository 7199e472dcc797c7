package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/enums"
)

type tierStoreStub struct {
	mu      sync.Mutex
	tiers   map[string]enums.Tier
	updates chan enums.Tier
	closed  bool
}

func newTierStoreStub() *tierStoreStub {
	return &tierStoreStub{
		tiers:   make(map[string]enums.Tier),
		updates: make(chan enums.Tier, 4),
	}
}

func (s *tierStoreStub) GetTier(_ context.Context, userID string) (enums.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tier, ok := s.tiers[userID]; ok {
		return tier, nil
	}
	return enums.TierFree, nil
}

func (s *tierStoreStub) SubscribeTier(_ context.Context, _ string) (<-chan enums.Tier, func(), error) {
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			s.closed = true
			close(s.updates)
		}
	}
	return s.updates, cancel, nil
}

func newTestProvider(t *testing.T, store TierStore) *Provider {
	t.Helper()

	provider, err := NewProvider(Dependencies{Store: store, Log: zap.NewNop()})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	t.Cleanup(provider.Close)
	return provider
}

func TestTierForUnknownUserIsFree(t *testing.T) {
	provider := newTestProvider(t, newTierStoreStub())

	if got := provider.TierFor("stranger"); got != enums.TierFree {
		t.Fatalf("unknown user tier = %s, want free", got)
	}
}

func TestTrackSeedsFromStore(t *testing.T) {
	store := newTierStoreStub()
	store.tiers["user-1"] = enums.TierPremium

	provider := newTestProvider(t, store)
	if err := provider.Track(context.Background(), "user-1"); err != nil {
		t.Fatalf("track: %v", err)
	}

	if got := provider.TierFor("user-1"); got != enums.TierPremium {
		t.Fatalf("seeded tier = %s, want premium", got)
	}
}

func TestSubscriptionUpdatesCache(t *testing.T) {
	store := newTierStoreStub()
	provider := newTestProvider(t, store)

	if err := provider.Track(context.Background(), "user-1"); err != nil {
		t.Fatalf("track: %v", err)
	}
	store.updates <- enums.TierPlus

	deadline := time.Now().Add(2 * time.Second)
	for provider.TierFor("user-1") != enums.TierPlus {
		if time.Now().After(deadline) {
			t.Fatal("tier update never reached the cache")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUntrackForgetsTier(t *testing.T) {
	store := newTierStoreStub()
	store.tiers["user-1"] = enums.TierPlus

	provider := newTestProvider(t, store)
	if err := provider.Track(context.Background(), "user-1"); err != nil {
		t.Fatalf("track: %v", err)
	}

	provider.Untrack("user-1")

	if got := provider.TierFor("user-1"); got != enums.TierFree {
		t.Fatalf("tier after untrack = %s, want free", got)
	}
}
