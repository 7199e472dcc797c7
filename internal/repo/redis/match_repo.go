package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dkudrin/iskra/internal/domain/model"
)

const (
	matchKeyPrefix     = "matches:"
	userMatchesPrefix  = "user_matches:"
	matchEventsChannel = "match_events"
)

// MatchRepo stores match records as one hash per pairing key. Identity
// fields are written with HSETNX so that concurrent upserts from both
// sides of the pair can never overwrite who matched or when; activity
// fields are plain HSET. Every upsert publishes the stored record on
// the match events channel for the chat subsystem.
type MatchRepo struct {
	client *goredis.Client
}

func NewMatchRepo(client *goredis.Client) *MatchRepo {
	return &MatchRepo{client: client}
}

func (r *MatchRepo) MergeUpsert(ctx context.Context, record model.MatchRecord) (model.MatchRecord, error) {
	if r.client == nil {
		return model.MatchRecord{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(record.Key) == "" || record.UserAID == "" || record.UserBID == "" {
		return model.MatchRecord{}, fmt.Errorf("invalid match record payload")
	}

	key := matchKey(record.Key)

	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, key, "user_a", record.UserAID)
	pipe.HSetNX(ctx, key, "user_b", record.UserBID)
	pipe.HSetNX(ctx, key, "created_at", record.CreatedAt.UTC().Unix())
	pipe.HSet(ctx, key, map[string]interface{}{
		"last_activity": record.LastActivity,
		"updated_at":    record.UpdatedAt.UTC().Unix(),
	})
	pipe.SAdd(ctx, userMatchesKey(record.UserAID), record.Key)
	pipe.SAdd(ctx, userMatchesKey(record.UserBID), record.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.MatchRecord{}, fmt.Errorf("upsert match record: %w", err)
	}

	stored, err := r.Get(ctx, record.Key)
	if err != nil {
		return model.MatchRecord{}, err
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("encode match event: %w", err)
	}
	if err := r.client.Publish(ctx, matchEventsChannel, payload).Err(); err != nil {
		return model.MatchRecord{}, fmt.Errorf("publish match event: %w", err)
	}

	return stored, nil
}

func (r *MatchRepo) Get(ctx context.Context, pairingKey string) (model.MatchRecord, error) {
	if r.client == nil {
		return model.MatchRecord{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(pairingKey) == "" {
		return model.MatchRecord{}, fmt.Errorf("pairing key is required")
	}

	fields, err := r.client.HGetAll(ctx, matchKey(pairingKey)).Result()
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("read match record: %w", err)
	}
	if len(fields) == 0 {
		return model.MatchRecord{}, nil
	}
	return recordFromFields(pairingKey, fields), nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID string, limit int) ([]model.MatchRecord, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	keys, err := r.client.SMembers(ctx, userMatchesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user matches: %w", err)
	}

	records := make([]model.MatchRecord, 0, len(keys))
	for _, pairingKey := range keys {
		if len(records) >= limit {
			break
		}
		record, err := r.Get(ctx, pairingKey)
		if err != nil {
			return nil, err
		}
		if record.Key == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// SubscribeEvents streams stored match records as they are upserted.
// Consumed by the chat subsystem to make conversations reachable.
func (r *MatchRepo) SubscribeEvents(ctx context.Context) (<-chan model.MatchRecord, func(), error) {
	if r.client == nil {
		return nil, nil, fmt.Errorf("redis client is nil")
	}

	pubsub := r.client.Subscribe(ctx, matchEventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe match events: %w", err)
	}

	out := make(chan model.MatchRecord)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var record model.MatchRecord
			if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
				continue
			}
			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

func recordFromFields(pairingKey string, fields map[string]string) model.MatchRecord {
	record := model.MatchRecord{
		Key:          pairingKey,
		UserAID:      fields["user_a"],
		UserBID:      fields["user_b"],
		LastActivity: fields["last_activity"],
	}
	if v, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		record.CreatedAt = time.Unix(v, 0).UTC()
	}
	if v, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		record.UpdatedAt = time.Unix(v, 0).UTC()
	}
	return record
}

func matchKey(pairingKey string) string {
	return matchKeyPrefix + pairingKey
}

func userMatchesKey(userID string) string {
	return userMatchesPrefix + userID
}
