package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/domain/rules"
)

var ErrValidation = errors.New("validation error")

// UsageStore is the authoritative counter persistence. Increment merges
// the day key and bumps the kind's counter in one upsert; Subscribe
// pushes every confirmed counter write for the user to the channel
// until cancel is called.
type UsageStore interface {
	Get(ctx context.Context, userID string) (model.UsageCounter, error)
	Increment(ctx context.Context, userID, dayKey string, kind enums.ActionKind) (model.UsageCounter, error)
	Subscribe(ctx context.Context, userID string) (<-chan model.UsageCounter, func(), error)
}

type Config struct {
	Limits          rules.Limits
	DefaultTimezone string
	// PersistTimeout bounds one background write attempt.
	PersistTimeout time.Duration
}

// Snapshot is the quota view handed to the presentation layer.
type Snapshot struct {
	SwipesLeft      int
	SuperLikesLeft  int
	SwipesLimit     int
	SuperLikesLimit int
	Unlimited       bool
	ResetAt         time.Time
}

// Manager answers entitlement checks synchronously from a locally
// mirrored counter and persists usage in the background. The mirror is
// incremented the instant an action is granted, so a burst of actions
// is throttled correctly before any write confirms; reconciliation
// later overwrites the mirror with the authoritative value.
type Manager struct {
	table rules.PolicyTable
	store UsageStore
	log   *zap.Logger
	cfg   Config
	loc   *time.Location
	now   func() time.Time

	// retrySchedule drives bounded at-least-once background writes.
	retrySchedule []time.Duration

	mu      sync.Mutex
	mirrors map[string]model.UsageCounter

	wg sync.WaitGroup
}

func NewManager(store UsageStore, table rules.PolicyTable, log *zap.Logger, cfg Config) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if table == nil {
		table = rules.DefaultTable(cfg.Limits)
	}

	loc := time.UTC
	if cfg.DefaultTimezone != "" {
		if parsed, err := time.LoadLocation(cfg.DefaultTimezone); err == nil {
			loc = parsed
		}
	}

	return &Manager{
		table:         table,
		store:         store,
		log:           log,
		cfg:           cfg,
		loc:           loc,
		now:           time.Now,
		retrySchedule: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		mirrors:       make(map[string]model.UsageCounter),
	}
}

// CanPerform answers whether the user may perform the action right now.
// It reads only the local mirror and the policy table: no I/O, no
// mutation, so it is safe to call on every pointer release.
func (m *Manager) CanPerform(userID string, tier enums.Tier, kind enums.ActionKind) rules.Decision {
	dayKey := rules.DayKey(m.now().UTC(), m.loc)

	m.mu.Lock()
	counter := m.mirrors[userID]
	m.mu.Unlock()

	return rules.Decide(m.table, tier, kind, counter, dayKey)
}

// Consume applies the optimistic increment for an already-granted
// action and schedules the persisted write. The mirror moves first; the
// store write is fire-and-forget with bounded retries and never rolls
// back the granted action.
func (m *Manager) Consume(userID string, kind enums.ActionKind) {
	if userID == "" || !kind.IsSwipe() {
		return
	}

	dayKey := rules.DayKey(m.now().UTC(), m.loc)

	m.mu.Lock()
	counter := m.mirrors[userID]
	if counter.Date != dayKey {
		// First action of a new local day: yesterday's numbers are dead
		// weight regardless of what the store still holds.
		counter = model.UsageCounter{Date: dayKey}
	}
	switch kind {
	case enums.ActionSuperLike:
		counter.SuperLikes++
	default:
		counter.Swipes++
	}
	m.mirrors[userID] = counter
	m.mu.Unlock()

	m.wg.Add(1)
	go m.persist(userID, dayKey, kind)
}

// Reconcile replaces the mirror with an authoritative counter from the
// persistence feed. Values dated to another day are discarded rather
// than displayed; otherwise last-confirmed wins wholesale, even when
// that corrects an optimistic value downward.
func (m *Manager) Reconcile(userID string, counter model.UsageCounter) {
	if userID == "" {
		return
	}

	dayKey := rules.DayKey(m.now().UTC(), m.loc)
	if counter.Date != dayKey {
		m.log.Debug("discarding stale usage counter",
			zap.String("user_id", userID),
			zap.String("counter_date", counter.Date),
			zap.String("day_key", dayKey),
		)
		return
	}

	m.mu.Lock()
	m.mirrors[userID] = counter
	m.mu.Unlock()
}

// Seed primes the mirror from the store once, typically at session
// start. Failures are tolerable: the mirror simply starts at zero and
// reconciliation catches up.
func (m *Manager) Seed(ctx context.Context, userID string) {
	if m.store == nil || userID == "" {
		return
	}

	counter, err := m.store.Get(ctx, userID)
	if err != nil {
		m.log.Warn("seed usage counter", zap.String("user_id", userID), zap.Error(err))
		return
	}
	m.Reconcile(userID, counter)
}

// Watch consumes the store's subscription feed for the user until ctx
// is done, reconciling every confirmed write.
func (m *Manager) Watch(ctx context.Context, userID string) error {
	if m.store == nil {
		return errors.New("usage store is nil")
	}
	if userID == "" {
		return ErrValidation
	}

	updates, cancel, err := m.store.Subscribe(ctx, userID)
	if err != nil {
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case counter, ok := <-updates:
				if !ok {
					return
				}
				m.Reconcile(userID, counter)
			}
		}
	}()

	return nil
}

// Snapshot reports the remaining allowance for the capped kinds.
func (m *Manager) Snapshot(userID string, tier enums.Tier) Snapshot {
	now := m.now().UTC()
	dayKey := rules.DayKey(now, m.loc)

	m.mu.Lock()
	counter := m.mirrors[userID]
	m.mu.Unlock()

	if counter.Date != dayKey {
		counter = model.UsageCounter{Date: dayKey}
	}

	tierPolicies, ok := m.table[tier]
	if !ok {
		tierPolicies = m.table[enums.TierFree]
	}

	snap := Snapshot{ResetAt: rules.NextResetAt(now, m.loc)}

	swipes := tierPolicies[enums.ActionLike]
	superlikes := tierPolicies[enums.ActionSuperLike]
	snap.Unlimited = swipes.Access == rules.AccessUnlimited && superlikes.Access == rules.AccessUnlimited

	if swipes.Access == rules.AccessCapped {
		snap.SwipesLimit = swipes.PerDay
		snap.SwipesLeft = maxInt(swipes.PerDay-counter.Swipes, 0)
	}
	if superlikes.Access == rules.AccessCapped {
		snap.SuperLikesLimit = superlikes.PerDay
		snap.SuperLikesLeft = maxInt(superlikes.PerDay-counter.SuperLikes, 0)
	}

	return snap
}

// Wait blocks until all scheduled background writes have finished.
// Intended for tests and shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// persist runs on its own goroutine. An in-flight write is never
// cancelled by navigation; it completes or fails in the background with
// no UI consequence.
func (m *Manager) persist(userID, dayKey string, kind enums.ActionKind) {
	defer m.wg.Done()

	if m.store == nil {
		return
	}

	attempt := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
		defer cancel()
		_, err := m.store.Increment(ctx, userID, dayKey, kind)
		return err
	}

	err := attempt()
	for _, delay := range m.retrySchedule {
		if err == nil {
			return
		}
		time.Sleep(delay)
		err = attempt()
	}
	if err != nil {
		m.log.Error("record usage failed after retries",
			zap.String("user_id", userID),
			zap.String("day_key", dayKey),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
