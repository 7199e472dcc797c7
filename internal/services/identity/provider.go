package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/enums"
)

var ErrNilDependencies = errors.New("identity provider dependencies are nil")

// TierStore is the slice of the user document the engine cares about.
type TierStore interface {
	GetTier(ctx context.Context, userID string) (enums.Tier, error)
	SubscribeTier(ctx context.Context, userID string) (<-chan enums.Tier, func(), error)
}

type Dependencies struct {
	Store TierStore
	Log   *zap.Logger
}

// Provider caches the subscription tier per user and keeps the cache
// fresh through the document subscription, so quota decisions pick up
// a mid-session upgrade without a reconnect.
type Provider struct {
	store TierStore
	log   *zap.Logger

	mu      sync.RWMutex
	tiers   map[string]enums.Tier
	cancels map[string]func()
}

func NewProvider(deps Dependencies) (*Provider, error) {
	if deps.Store == nil || deps.Log == nil {
		return nil, ErrNilDependencies
	}
	return &Provider{
		store:   deps.Store,
		log:     deps.Log,
		tiers:   make(map[string]enums.Tier),
		cancels: make(map[string]func()),
	}, nil
}

// TierFor returns the cached tier, defaulting to free for users the
// provider has not seen.
func (p *Provider) TierFor(userID string) enums.Tier {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if tier, ok := p.tiers[userID]; ok {
		return tier
	}
	return enums.TierFree
}

// Track seeds the cache from the store and starts following tier
// changes for the user. Tracking the same user twice is a no-op.
func (p *Provider) Track(ctx context.Context, userID string) error {
	p.mu.Lock()
	if _, ok := p.cancels[userID]; ok {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	tier, err := p.store.GetTier(ctx, userID)
	if err != nil {
		return fmt.Errorf("seed tier: %w", err)
	}

	updates, cancel, err := p.store.SubscribeTier(ctx, userID)
	if err != nil {
		return fmt.Errorf("subscribe tier: %w", err)
	}

	p.mu.Lock()
	if _, ok := p.cancels[userID]; ok {
		p.mu.Unlock()
		cancel()
		return nil
	}
	p.tiers[userID] = tier
	p.cancels[userID] = cancel
	p.mu.Unlock()

	go func() {
		for next := range updates {
			p.mu.Lock()
			prev := p.tiers[userID]
			p.tiers[userID] = next
			p.mu.Unlock()

			if prev != next {
				p.log.Info("tier changed",
					zap.String("user_id", userID),
					zap.String("from", string(prev)),
					zap.String("to", string(next)),
				)
			}
		}
	}()

	return nil
}

// Untrack stops following the user and forgets the cached tier.
func (p *Provider) Untrack(userID string) {
	p.mu.Lock()
	cancel, ok := p.cancels[userID]
	if ok {
		delete(p.cancels, userID)
		delete(p.tiers, userID)
	}
	p.mu.Unlock()

	if ok {
		cancel()
	}
}

// Close stops every active subscription.
func (p *Provider) Close() {
	p.mu.Lock()
	cancels := make([]func(), 0, len(p.cancels))
	for id, cancel := range p.cancels {
		cancels = append(cancels, cancel)
		delete(p.cancels, id)
	}
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
