package handlers

import (
	"net/http"

	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
	"github.com/dkudrin/iskra/internal/transport/http/dto"
	httperrors "github.com/dkudrin/iskra/internal/transport/http/errors"
)

type DeckHandler struct {
	registry *swipesvc.Registry
}

func NewDeckHandler(registry *swipesvc.Registry) *DeckHandler {
	return &DeckHandler{registry: registry}
}

// Top returns the interactive card. Card is null when the deck ran out.
func (h *DeckHandler) Top(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	controller, err := h.registry.Session(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to open swipe session")
		return
	}

	resp := dto.DeckTopResponse{DeckSize: controller.DeckSize()}
	if card, ok := controller.TopCard(); ok {
		resp.Card = mapCandidate(card)
	}
	httperrors.Write(w, http.StatusOK, resp)
}

// Refill loads the next feed page into the deck.
func (h *DeckHandler) Refill(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registry == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	controller, err := h.registry.Session(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to open swipe session")
		return
	}

	added, err := h.registry.Refill(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to refill the deck")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RefillResponse{
		OK:       true,
		Added:    added,
		DeckSize: controller.DeckSize(),
	})
}
