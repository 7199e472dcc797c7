package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
)

const (
	usageKeyPrefix     = "usage:"
	usageChannelPrefix = "usage_events:"
)

// UsageRepo persists daily usage counters as one hash per user and
// publishes every confirmed write on the user's usage channel, which is
// the reconciliation feed the quota manager subscribes to. Old day keys
// are never deleted eagerly; a write for a new day resets the hash.
type UsageRepo struct {
	client *goredis.Client
}

func NewUsageRepo(client *goredis.Client) *UsageRepo {
	return &UsageRepo{client: client}
}

func (r *UsageRepo) Get(ctx context.Context, userID string) (model.UsageCounter, error) {
	if r.client == nil {
		return model.UsageCounter{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return model.UsageCounter{}, fmt.Errorf("user id is required")
	}

	fields, err := r.client.HGetAll(ctx, usageKey(userID)).Result()
	if err != nil {
		return model.UsageCounter{}, fmt.Errorf("read usage counter: %w", err)
	}
	return counterFromFields(fields), nil
}

// Increment merges the day key and bumps the counter for the kind in a
// single upsert. A stored counter from a prior day is dropped before
// the increment, so the persisted value mirrors the lazy-reset rule the
// engine applies locally.
func (r *UsageRepo) Increment(ctx context.Context, userID, dayKey string, kind enums.ActionKind) (model.UsageCounter, error) {
	if r.client == nil {
		return model.UsageCounter{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(dayKey) == "" {
		return model.UsageCounter{}, fmt.Errorf("invalid usage increment payload")
	}

	field := "swipes"
	if kind == enums.ActionSuperLike {
		field = "superlikes"
	}

	key := usageKey(userID)

	storedDate, err := r.client.HGet(ctx, key, "date").Result()
	if err != nil && err != goredis.Nil {
		return model.UsageCounter{}, fmt.Errorf("read usage date: %w", err)
	}

	pipe := r.client.TxPipeline()
	if storedDate != dayKey {
		pipe.Del(ctx, key)
	}
	pipe.HSet(ctx, key, "date", dayKey)
	pipe.HIncrBy(ctx, key, field, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.UsageCounter{}, fmt.Errorf("increment usage counter: %w", err)
	}

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return model.UsageCounter{}, fmt.Errorf("read usage counter back: %w", err)
	}
	counter := counterFromFields(fields)

	payload, err := json.Marshal(counter)
	if err != nil {
		return model.UsageCounter{}, fmt.Errorf("encode usage event: %w", err)
	}
	if err := r.client.Publish(ctx, usageChannel(userID), payload).Err(); err != nil {
		return model.UsageCounter{}, fmt.Errorf("publish usage event: %w", err)
	}

	return counter, nil
}

// Subscribe delivers every confirmed counter write for the user until
// cancel is called or ctx is done. Malformed payloads are skipped.
func (r *UsageRepo) Subscribe(ctx context.Context, userID string) (<-chan model.UsageCounter, func(), error) {
	if r.client == nil {
		return nil, nil, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, nil, fmt.Errorf("user id is required")
	}

	pubsub := r.client.Subscribe(ctx, usageChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe usage channel: %w", err)
	}

	out := make(chan model.UsageCounter)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var counter model.UsageCounter
			if err := json.Unmarshal([]byte(msg.Payload), &counter); err != nil {
				continue
			}
			select {
			case out <- counter:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

func counterFromFields(fields map[string]string) model.UsageCounter {
	counter := model.UsageCounter{Date: fields["date"]}
	if v, err := strconv.Atoi(fields["swipes"]); err == nil {
		counter.Swipes = v
	}
	if v, err := strconv.Atoi(fields["superlikes"]); err == nil {
		counter.SuperLikes = v
	}
	return counter
}

func usageKey(userID string) string {
	return usageKeyPrefix + userID
}

func usageChannel(userID string) string {
	return usageChannelPrefix + userID
}
