package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/domain/rules"
	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	quotasvc "github.com/dkudrin/iskra/internal/services/quota"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
)

type feedStub struct {
	pages map[string][]model.CandidateProfile
}

func (s *feedStub) LoadPage(_ context.Context, _, afterID string) ([]model.CandidateProfile, error) {
	return s.pages[afterID], nil
}

type quotaSessionAdapter struct {
	*quotasvc.Manager
}

func (quotaSessionAdapter) Seed(context.Context, string)        {}
func (quotaSessionAdapter) Watch(context.Context, string) error { return nil }

type formerStub struct {
	formed [][2]string
}

func (s *formerStub) FormAsync(selfID, otherID string) {
	s.formed = append(s.formed, [2]string{selfID, otherID})
}

type identityStub struct {
	tier enums.Tier
}

func (s identityStub) TierFor(string) enums.Tier           { return s.tier }
func (s identityStub) Track(context.Context, string) error { return nil }

type fixture struct {
	registry *swipesvc.Registry
	manager  *quotasvc.Manager
	former   *formerStub
	identity identityStub
}

func newFixture(t *testing.T, tier enums.Tier, cards ...string) *fixture {
	t.Helper()

	page := make([]model.CandidateProfile, 0, len(cards))
	for _, id := range cards {
		page = append(page, model.CandidateProfile{ID: id, Name: "N-" + id})
	}

	manager := quotasvc.NewManager(nil, nil, zap.NewNop(), quotasvc.Config{})
	former := &formerStub{}
	identity := identityStub{tier: tier}

	registry, err := swipesvc.NewRegistry(context.Background(), swipesvc.RegistryDependencies{
		Candidates: &feedStub{pages: map[string][]model.CandidateProfile{"": page}},
		Quota:      quotaSessionAdapter{manager},
		Matches:    former,
		Identity:   identity,
		Log:        zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	return &fixture{registry: registry, manager: manager, former: former, identity: identity}
}

func authedRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	return req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "user-1",
		SID:    "sid-1",
	}))
}

func TestPressLikeReturnsOutcomeWithQuota(t *testing.T) {
	f := newFixture(t, enums.TierFree, "cand-1", "cand-2")
	h := NewSwipeHandler(f.registry, f.manager, f.identity, nil)

	resp := httptest.NewRecorder()
	h.Press(resp, authedRequest(t, http.MethodPost, "/v1/swipe/press", map[string]string{"action": "LIKE"}))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		OK     bool   `json:"ok"`
		Popped bool   `json:"popped"`
		Action string `json:"action"`
		Card   *struct {
			ID string `json:"id"`
		} `json:"card"`
		Quota *struct {
			SwipesLeft int `json:"swipes_left"`
		} `json:"quota"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.OK || !payload.Popped || payload.Action != "like" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Card == nil || payload.Card.ID != "cand-2" {
		t.Fatalf("card = %+v, want top card cand-2", payload.Card)
	}
	if payload.Quota == nil || payload.Quota.SwipesLeft != rules.FreeSwipesPerDay-1 {
		t.Fatalf("quota = %+v", payload.Quota)
	}
	if len(f.former.formed) != 1 {
		t.Fatalf("formed = %v, want one match", f.former.formed)
	}
}

func TestPressPastLimitIsUpsold(t *testing.T) {
	cards := []string{"c1", "c2", "c3", "c4", "c5", "c6"}
	f := newFixture(t, enums.TierFree, cards...)
	h := NewSwipeHandler(f.registry, f.manager, f.identity, nil)

	for i := 0; i < rules.FreeSwipesPerDay; i++ {
		resp := httptest.NewRecorder()
		h.Press(resp, authedRequest(t, http.MethodPost, "/v1/swipe/press", map[string]string{"action": "pass"}))
		if resp.Code != http.StatusOK {
			t.Fatalf("press %d: status %d", i, resp.Code)
		}
	}

	deckBefore := len(cards) - rules.FreeSwipesPerDay

	resp := httptest.NewRecorder()
	h.Press(resp, authedRequest(t, http.MethodPost, "/v1/swipe/press", map[string]string{"action": "pass"}))
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.Code)
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Tier    string `json:"tier"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != rules.CodeSwipeLimitReached || payload.Message == "" {
		t.Fatalf("payload = %+v, want swipe-limit upsell", payload)
	}

	controller, err := f.registry.Session(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if controller.DeckSize() != deckBefore {
		t.Fatalf("deck size = %d, want %d untouched by the denial", controller.DeckSize(), deckBefore)
	}
	f.manager.Wait()
}

func TestDragSamplesThenReleaseClassifies(t *testing.T) {
	f := newFixture(t, enums.TierFree, "cand-1")
	h := NewSwipeHandler(f.registry, f.manager, f.identity, nil)

	mid := httptest.NewRecorder()
	h.Drag(mid, authedRequest(t, http.MethodPost, "/v1/swipe/drag", map[string]any{"dx": 60.0, "dy": 5.0}))
	if mid.Code != http.StatusOK {
		t.Fatalf("mid-drag status = %d", mid.Code)
	}

	var offset struct {
		Rotation float64 `json:"rotation"`
	}
	if err := json.Unmarshal(mid.Body.Bytes(), &offset); err != nil {
		t.Fatalf("decode offset: %v", err)
	}
	if offset.Rotation != 3 {
		t.Fatalf("rotation = %v, want 3", offset.Rotation)
	}

	release := httptest.NewRecorder()
	h.Drag(release, authedRequest(t, http.MethodPost, "/v1/swipe/drag", map[string]any{"dx": -150.0, "dy": 10.0, "released": true}))
	if release.Code != http.StatusOK {
		t.Fatalf("release status = %d", release.Code)
	}

	var payload struct {
		Popped bool   `json:"popped"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal(release.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !payload.Popped || payload.Action != "pass" {
		t.Fatalf("payload = %+v, want popped pass", payload)
	}
	f.manager.Wait()
}

func TestPressRejectsUnknownAction(t *testing.T) {
	f := newFixture(t, enums.TierFree, "cand-1")
	h := NewSwipeHandler(f.registry, f.manager, f.identity, nil)

	resp := httptest.NewRecorder()
	h.Press(resp, authedRequest(t, http.MethodPost, "/v1/swipe/press", map[string]string{"action": "teleport"}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	f := newFixture(t, enums.TierFree, "cand-1")
	h := NewSwipeHandler(f.registry, f.manager, f.identity, nil)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/swipe/press", bytes.NewBufferString(`{"action":"like"}`))
	h.Press(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestEmptyDeckPressReturnsConflict(t *testing.T) {
	f := newFixture(t, enums.TierFree)
	h := NewSwipeHandler(f.registry, f.manager, f.identity, nil)

	resp := httptest.NewRecorder()
	h.Press(resp, authedRequest(t, http.MethodPost, "/v1/swipe/press", map[string]string{"action": "like"}))
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
}
