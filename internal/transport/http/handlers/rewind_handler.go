package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	decksvc "github.com/dkudrin/iskra/internal/services/deck"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
	httperrors "github.com/dkudrin/iskra/internal/transport/http/errors"
)

type RewindHandler struct {
	registry *swipesvc.Registry
}

func NewRewindHandler(registry *swipesvc.Registry) *RewindHandler {
	return &RewindHandler{registry: registry}
}

// Handle puts the last swiped card back on top. Tiers without the
// rewind capability get the upgrade pitch instead.
func (h *RewindHandler) Handle(w http.ResponseWriter, r *http.Request) {
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

	outcome, err := controller.Rewind()
	if err != nil {
		if errors.Is(err, decksvc.ErrEmptyHistory) {
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "NOTHING_TO_REWIND",
				Message: "no swipe to undo",
			})
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to rewind")
		return
	}

	if outcome.Denied != nil {
		writeUpsell(w, outcome.Denied)
		return
	}

	httperrors.Write(w, http.StatusOK, mapOutcome(outcome))
}
