package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dkudrin/iskra/internal/domain/enums"
	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	decksvc "github.com/dkudrin/iskra/internal/services/deck"
	gesturesvc "github.com/dkudrin/iskra/internal/services/gesture"
	quotasvc "github.com/dkudrin/iskra/internal/services/quota"
	ratesvc "github.com/dkudrin/iskra/internal/services/rate"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
	"github.com/dkudrin/iskra/internal/transport/http/dto"
	httperrors "github.com/dkudrin/iskra/internal/transport/http/errors"
)

// TierSource answers the acting user's subscription tier.
type TierSource interface {
	TierFor(userID string) enums.Tier
}

type SwipeHandler struct {
	registry *swipesvc.Registry
	quota    *quotasvc.Manager
	tiers    TierSource
	limiter  *ratesvc.Limiter
}

func NewSwipeHandler(registry *swipesvc.Registry, quota *quotasvc.Manager, tiers TierSource, limiter *ratesvc.Limiter) *SwipeHandler {
	return &SwipeHandler{registry: registry, quota: quota, tiers: tiers, limiter: limiter}
}

// Drag carries one pointer sample. Mid-drag samples answer with the
// presentation offset; the released sample closes the drag and answers
// with the decision outcome.
func (h *SwipeHandler) Drag(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.DragRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	controller, err := h.registry.Session(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to open swipe session")
		return
	}

	if !req.Released {
		offset, err := h.move(controller, req.DX, req.DY)
		if err != nil {
			h.handleSwipeError(w, err)
			return
		}
		httperrors.Write(w, http.StatusOK, dto.OffsetResponse{
			DX:       offset.DX,
			DY:       offset.DY,
			Rotation: offset.Rotation,
		})
		return
	}

	// The final sample lands before the release closes the drag, so the
	// classification sees the true end position.
	if _, err := h.move(controller, req.DX, req.DY); err != nil {
		h.handleSwipeError(w, err)
		return
	}
	if throttled := h.throttle(w, r, identity.UserID); throttled {
		return
	}

	outcome, err := controller.DragRelease()
	if err != nil {
		h.handleSwipeError(w, err)
		return
	}
	h.writeOutcome(w, identity.UserID, outcome)
}

// Press is the button path for pass, like and superlike.
func (h *SwipeHandler) Press(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.PressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	kind, ok := enums.ParseActionKind(req.Action)
	if !ok || !kind.IsSwipe() {
		writeBadRequest(w, "VALIDATION_ERROR", "action must be pass, like or superlike")
		return
	}

	controller, err := h.registry.Session(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to open swipe session")
		return
	}

	if throttled := h.throttle(w, r, identity.UserID); throttled {
		return
	}

	outcome, err := controller.Press(kind)
	if err != nil {
		h.handleSwipeError(w, err)
		return
	}
	h.writeOutcome(w, identity.UserID, outcome)
}

// Settled is the presentation callback confirming the popped card has
// finished animating off screen.
func (h *SwipeHandler) Settled(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SettledRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.CardID) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "card_id is required")
		return
	}

	controller, err := h.registry.Session(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to open swipe session")
		return
	}

	controller.Settled(req.CardID)
	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (h *SwipeHandler) move(controller *swipesvc.Controller, dx, dy float64) (gesturesvc.Offset, error) {
	if !controller.Dragging() {
		if err := controller.DragStart(); err != nil {
			return gesturesvc.Offset{}, err
		}
	}
	return controller.DragMove(dx, dy)
}

// throttle applies the velocity windows for tiers whose swipes are not
// quota-capped. Capped tiers are already bounded by their daily limit.
func (h *SwipeHandler) throttle(w http.ResponseWriter, r *http.Request, userID string) bool {
	if h.limiter == nil || h.tiers == nil {
		return false
	}
	if !h.tiers.TierFor(userID).AtLeast(enums.TierPlus) {
		return false
	}

	allowed, retryAfter, err := h.limiter.AllowSwipe(r.Context(), userID)
	if err != nil {
		// The limiter is protective, not load-bearing: on backend
		// trouble the swipe proceeds.
		return false
	}
	if allowed {
		return false
	}

	httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
		Code:          "TOO_FAST",
		Message:       "too many swipes, slow down",
		RetryAfterSec: retryAfter,
	})
	return true
}

func (h *SwipeHandler) writeOutcome(w http.ResponseWriter, userID string, outcome swipesvc.Outcome) {
	if outcome.Denied != nil {
		writeUpsell(w, outcome.Denied)
		return
	}

	resp := mapOutcome(outcome)
	if h.quota != nil && h.tiers != nil {
		tier := h.tiers.TierFor(userID)
		resp.Quota = mapQuotaSnapshot(h.quota.Snapshot(userID, tier), tier)
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *SwipeHandler) handleSwipeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, decksvc.ErrEmptyDeck):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "DECK_EMPTY",
			Message: "no candidates left, refill the deck",
		})
	case errors.Is(err, gesturesvc.ErrNotDragging), errors.Is(err, gesturesvc.ErrAlreadyDragging):
		writeBadRequest(w, "DRAG_STATE_ERROR", "drag sample out of order")
	case errors.Is(err, swipesvc.ErrNotASwipe), errors.Is(err, swipesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
	}
}
