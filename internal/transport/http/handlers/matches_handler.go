package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	matchsvc "github.com/dkudrin/iskra/internal/services/match"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
	"github.com/dkudrin/iskra/internal/transport/http/dto"
	httperrors "github.com/dkudrin/iskra/internal/transport/http/errors"
)

type MatchesHandler struct {
	service  *matchsvc.Service
	registry *swipesvc.Registry
}

func NewMatchesHandler(service *matchsvc.Service, registry *swipesvc.Registry) *MatchesHandler {
	return &MatchesHandler{service: service, registry: registry}
}

// List returns the user's matches for the conversation list.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 50))
	if err != nil {
		switch {
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		}
		return
	}

	responseItems := make([]dto.MatchItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.MatchItemResponse{
			Key:          item.Key,
			OtherUserID:  item.Other(identity.UserID),
			LastActivity: item.LastActivity,
			CreatedAt:    item.CreatedAt,
			UpdatedAt:    item.UpdatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: responseItems})
}

// ChatAllowance tells the chat surface whether the tier may open a
// conversation right now.
func (h *MatchesHandler) ChatAllowance(w http.ResponseWriter, r *http.Request) {
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

	decision := controller.CanMessage()
	resp := dto.ChatAllowanceResponse{Allowed: decision.Allowed}
	if !decision.Allowed {
		resp.Denial = mapDenial(&decision)
	}
	httperrors.Write(w, http.StatusOK, resp)
}
