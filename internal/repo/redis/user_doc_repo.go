package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dkudrin/iskra/internal/domain/enums"
)

const (
	userKeyPrefix    = "users:"
	userEventsPrefix = "user_events:"
	userTierField    = "tier"
)

// UserDocRepo holds the user document fields the engine reads. The
// subscription path lets the tier change mid-session, e.g. right after
// an external purchase flow completes.
type UserDocRepo struct {
	client *goredis.Client
}

func NewUserDocRepo(client *goredis.Client) *UserDocRepo {
	return &UserDocRepo{client: client}
}

func (r *UserDocRepo) GetTier(ctx context.Context, userID string) (enums.Tier, error) {
	if r.client == nil {
		return enums.TierFree, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return enums.TierFree, fmt.Errorf("user id is required")
	}

	value, err := r.client.HGet(ctx, userKey(userID), userTierField).Result()
	if err != nil {
		if err == goredis.Nil {
			return enums.TierFree, nil
		}
		return enums.TierFree, fmt.Errorf("read user tier: %w", err)
	}
	return enums.ParseTier(value), nil
}

// SetTier merges the tier into the user document and notifies
// subscribers. Called by the purchase flow's backend, and by tests.
func (r *UserDocRepo) SetTier(ctx context.Context, userID string, tier enums.Tier) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	if err := r.client.HSet(ctx, userKey(userID), userTierField, string(tier)).Err(); err != nil {
		return fmt.Errorf("write user tier: %w", err)
	}
	if err := r.client.Publish(ctx, userChannel(userID), string(tier)).Err(); err != nil {
		return fmt.Errorf("publish tier event: %w", err)
	}
	return nil
}

func (r *UserDocRepo) SubscribeTier(ctx context.Context, userID string) (<-chan enums.Tier, func(), error) {
	if r.client == nil {
		return nil, nil, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, nil, fmt.Errorf("user id is required")
	}

	pubsub := r.client.Subscribe(ctx, userChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe user channel: %w", err)
	}

	out := make(chan enums.Tier)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- enums.ParseTier(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

func userChannel(userID string) string {
	return userEventsPrefix + userID
}
