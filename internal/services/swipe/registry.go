package swipe

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/services/deck"
	"github.com/dkudrin/iskra/internal/services/gesture"
)

// CandidateSource pages the discovery feed for a viewer.
type CandidateSource interface {
	LoadPage(ctx context.Context, viewerID, afterID string) ([]model.CandidateProfile, error)
}

// QuotaSession is the session-lifecycle slice of the quota manager.
type QuotaSession interface {
	Entitlements
	Seed(ctx context.Context, userID string)
	Watch(ctx context.Context, userID string) error
}

// IdentitySession is the session-lifecycle slice of the tier provider.
type IdentitySession interface {
	TierProvider
	Track(ctx context.Context, userID string) error
}

type RegistryDependencies struct {
	Candidates CandidateSource
	Quota      QuotaSession
	Matches    MatchFormer
	Identity   IdentitySession
	Log        *zap.Logger
	Gesture    gesture.Config
}

// Registry hands out one controller per user, creating sessions on
// demand. A session holds the in-memory deck and history, so it dies
// with the process; a returning user simply gets a fresh session.
type Registry struct {
	deps    RegistryDependencies
	baseCtx context.Context

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	controller *Controller
	// cursor is the feed position of the last loaded page, used to
	// request the next one on refill.
	cursor string
}

func NewRegistry(ctx context.Context, deps RegistryDependencies) (*Registry, error) {
	if deps.Candidates == nil || deps.Quota == nil || deps.Matches == nil || deps.Identity == nil {
		return nil, ErrValidation
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return &Registry{
		deps:     deps,
		baseCtx:  ctx,
		sessions: make(map[string]*session),
	}, nil
}

// Session returns the user's controller, creating it when first seen:
// the deck is loaded from the feed, the counter mirror is seeded and
// both the usage and tier subscriptions are started.
func (r *Registry) Session(ctx context.Context, userID string) (*Controller, error) {
	r.mu.Lock()
	if existing, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return existing.controller, nil
	}
	r.mu.Unlock()

	controller, cursor, err := r.create(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[userID]; ok {
		return existing.controller, nil
	}
	r.sessions[userID] = &session{controller: controller, cursor: cursor}
	return controller, nil
}

// Refill loads the next feed page into an existing session's deck and
// advances the cursor. Returns how many new cards were added.
func (r *Registry) Refill(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	sess, ok := r.sessions[userID]
	r.mu.Unlock()
	if !ok {
		return 0, ErrValidation
	}

	page, err := r.deps.Candidates.LoadPage(ctx, userID, sess.cursor)
	if err != nil {
		return 0, fmt.Errorf("load feed page: %w", err)
	}
	if len(page) == 0 {
		return 0, nil
	}

	added := sess.controller.Refill(page)

	r.mu.Lock()
	sess.cursor = page[len(page)-1].ID
	r.mu.Unlock()

	return added, nil
}

func (r *Registry) create(ctx context.Context, userID string) (*Controller, string, error) {
	page, err := r.deps.Candidates.LoadPage(ctx, userID, "")
	if err != nil {
		return nil, "", fmt.Errorf("load initial deck: %w", err)
	}

	d := deck.New()
	d.Load(page)

	cursor := ""
	if len(page) > 0 {
		cursor = page[len(page)-1].ID
	}

	controller, err := NewController(userID, d, r.deps.Quota, r.deps.Matches, r.deps.Identity, r.deps.Log, ControllerConfig{Gesture: r.deps.Gesture})
	if err != nil {
		return nil, "", err
	}

	r.deps.Quota.Seed(ctx, userID)
	if err := r.deps.Quota.Watch(r.baseCtx, userID); err != nil {
		r.deps.Log.Warn("usage watch unavailable", zap.String("user_id", userID), zap.Error(err))
	}
	if err := r.deps.Identity.Track(r.baseCtx, userID); err != nil {
		r.deps.Log.Warn("tier watch unavailable", zap.String("user_id", userID), zap.Error(err))
	}

	r.deps.Log.Info("swipe session created",
		zap.String("user_id", userID),
		zap.Int("deck_size", d.Size()),
	)

	return controller, cursor, nil
}
