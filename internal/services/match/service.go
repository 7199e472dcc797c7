package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/domain/rules"
)

var ErrValidation = errors.New("validation error")

// Greeting seeds the conversation summary of a fresh match.
const Greeting = "You matched! Say hi 👋"

// Store is the match persistence. MergeUpsert must write identity
// fields (pair, created_at) only when absent and refresh activity
// fields unconditionally, returning the canonical stored record; this
// is what makes Form safe to call from both sides of the pair.
type Store interface {
	MergeUpsert(ctx context.Context, record model.MatchRecord) (model.MatchRecord, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]model.MatchRecord, error)
}

type Config struct {
	// UpsertTimeout bounds one background write attempt.
	UpsertTimeout time.Duration
}

// Service forms match records. A single-sided like is sufficient to
// form a visible match; mutuality is a product decision enforced
// elsewhere, if at all.
type Service struct {
	store Store
	log   *zap.Logger
	cfg   Config
	now   func() time.Time

	retrySchedule []time.Duration
	wg            sync.WaitGroup
}

func NewService(store Store, log *zap.Logger, cfg Config) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UpsertTimeout <= 0 {
		cfg.UpsertTimeout = 5 * time.Second
	}

	return &Service{
		store:         store,
		log:           log,
		cfg:           cfg,
		now:           time.Now,
		retrySchedule: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Form derives the canonical pairing identity and merge-upserts the
// record. Repeated calls, from either user, converge on one record with
// unchanged identity fields.
func (s *Service) Form(ctx context.Context, selfID, otherID string) (model.MatchRecord, error) {
	if selfID == "" || otherID == "" || selfID == otherID {
		return model.MatchRecord{}, ErrValidation
	}
	if s.store == nil {
		return model.MatchRecord{}, fmt.Errorf("match store is nil")
	}

	a, b := rules.OrderPair(selfID, otherID)
	now := s.now().UTC()

	record := model.MatchRecord{
		Key:          rules.PairingKey(selfID, otherID),
		UserAID:      a,
		UserBID:      b,
		CreatedAt:    now,
		LastActivity: Greeting,
		UpdatedAt:    now,
	}

	stored, err := s.store.MergeUpsert(ctx, record)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("upsert match %s: %w", record.Key, err)
	}
	return stored, nil
}

// FormAsync schedules Form in the background with bounded at-least-once
// retries. The swipe that triggered it has already happened on screen,
// so failures never surface as blocking errors; a terminal failure is
// logged and left to the next like from either side.
func (s *Service) FormAsync(selfID, otherID string) {
	if selfID == "" || otherID == "" || selfID == otherID {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		attempt := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.UpsertTimeout)
			defer cancel()
			_, err := s.Form(ctx, selfID, otherID)
			return err
		}

		err := attempt()
		for _, delay := range s.retrySchedule {
			if err == nil {
				return
			}
			time.Sleep(delay)
			err = attempt()
		}
		if err != nil {
			s.log.Error("match upsert failed after retries",
				zap.String("pairing_key", rules.PairingKey(selfID, otherID)),
				zap.Error(err),
			)
		}
	}()
}

// List returns the user's matches for the chat surface.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]model.MatchRecord, error) {
	if userID == "" {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("match store is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListForUser(ctx, userID, limit)
}

// Wait blocks until all scheduled background upserts have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
