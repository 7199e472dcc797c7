package redis

import (
	"context"
	"testing"
	"time"

	"github.com/dkudrin/iskra/internal/domain/model"
)

func matchFixture(created time.Time) model.MatchRecord {
	return model.MatchRecord{
		Key:          "alice_bob",
		UserAID:      "alice",
		UserBID:      "bob",
		CreatedAt:    created,
		LastActivity: "You matched! Say hi 👋",
		UpdatedAt:    created,
	}
}

func TestMatchMergeUpsertPreservesIdentityFields(t *testing.T) {
	repo := NewMatchRepo(newTestClient(t))
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := repo.MergeUpsert(ctx, matchFixture(created))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// The other side retries an hour later with a newer timestamp.
	retry := matchFixture(created.Add(time.Hour))
	retry.LastActivity = "hey!"
	second, err := repo.MergeUpsert(ctx, retry)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at overwritten: %s vs %s", second.CreatedAt, first.CreatedAt)
	}
	if second.UserAID != "alice" || second.UserBID != "bob" {
		t.Fatalf("pair overwritten: %+v", second)
	}
	if second.LastActivity != "hey!" {
		t.Fatalf("activity not refreshed: %q", second.LastActivity)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updated_at not refreshed: %s", second.UpdatedAt)
	}
}

func TestMatchListForUser(t *testing.T) {
	repo := NewMatchRepo(newTestClient(t))
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := repo.MergeUpsert(ctx, matchFixture(created)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	other := model.MatchRecord{
		Key: "carol_dave", UserAID: "carol", UserBID: "dave",
		CreatedAt: created, LastActivity: "hi", UpdatedAt: created,
	}
	if _, err := repo.MergeUpsert(ctx, other); err != nil {
		t.Fatalf("upsert other: %v", err)
	}

	records, err := repo.ListForUser(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Key != "alice_bob" {
		t.Fatalf("unexpected records: %+v", records)
	}

	none, err := repo.ListForUser(ctx, "nobody", 10)
	if err != nil {
		t.Fatalf("list nobody: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unexpected records for stranger: %+v", none)
	}
}

func TestMatchEventsPublishedOnUpsert(t *testing.T) {
	repo := NewMatchRepo(newTestClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := repo.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer closeSub()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := repo.MergeUpsert(ctx, matchFixture(created)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	select {
	case record := <-events:
		if record.Key != "alice_bob" {
			t.Fatalf("unexpected event: %+v", record)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no match event delivered")
	}
}

func TestTierRoundTripAndSubscription(t *testing.T) {
	repo := NewUserDocRepo(newTestClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tier, err := repo.GetTier(ctx, "alice")
	if err != nil {
		t.Fatalf("get tier: %v", err)
	}
	if tier != "free" {
		t.Fatalf("unknown user should default to free, got %s", tier)
	}

	tiers, closeSub, err := repo.SubscribeTier(ctx, "alice")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer closeSub()

	if err := repo.SetTier(ctx, "alice", "premium"); err != nil {
		t.Fatalf("set tier: %v", err)
	}

	select {
	case got := <-tiers:
		if got != "premium" {
			t.Fatalf("unexpected tier event: %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tier event delivered")
	}
}
