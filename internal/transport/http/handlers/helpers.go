package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
	"github.com/dkudrin/iskra/internal/domain/rules"
	quotasvc "github.com/dkudrin/iskra/internal/services/quota"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
	"github.com/dkudrin/iskra/internal/transport/http/dto"
	httperrors "github.com/dkudrin/iskra/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func mapCandidate(card model.CandidateProfile) *dto.CandidateResponse {
	return &dto.CandidateResponse{
		ID:        card.ID,
		Name:      card.Name,
		Age:       card.Age,
		Photos:    card.Photos,
		Bio:       card.Bio,
		Job:       card.Job,
		Company:   card.Company,
		School:    card.School,
		City:      card.City,
		Interests: card.Interests,
	}
}

// writeUpsell is the single denial contract for blocked actions: any
// swipe, superlike or rewind refused by the policy table answers 402
// with the upgrade pitch.
func writeUpsell(w http.ResponseWriter, decision *rules.Decision) {
	httperrors.Write(w, http.StatusPaymentRequired, httperrors.UpsellError{
		Code:    decision.Code,
		Title:   decision.Title,
		Message: decision.Message,
		Tier:    string(decision.Tier),
		Kind:    string(decision.Kind),
	})
}

func mapDenial(decision *rules.Decision) *dto.DenialResponse {
	if decision == nil {
		return nil
	}
	return &dto.DenialResponse{
		Code:    decision.Code,
		Title:   decision.Title,
		Message: decision.Message,
		Tier:    string(decision.Tier),
	}
}

func mapOutcome(outcome swipesvc.Outcome) dto.OutcomeResponse {
	resp := dto.OutcomeResponse{
		OK:     true,
		Action: string(outcome.Action),
		Popped: outcome.Popped,
		Offset: dto.OffsetResponse{
			DX:       outcome.Offset.DX,
			DY:       outcome.Offset.DY,
			Rotation: outcome.Offset.Rotation,
		},
		DeckSize: outcome.DeckSize,
	}
	if outcome.Popped {
		resp.Card = mapCandidate(outcome.Card)
	}
	return resp
}

func mapQuotaSnapshot(snapshot quotasvc.Snapshot, tier enums.Tier) *dto.QuotaResponse {
	return &dto.QuotaResponse{
		SwipesLeft:      snapshot.SwipesLeft,
		SuperLikesLeft:  snapshot.SuperLikesLeft,
		SwipesLimit:     snapshot.SwipesLimit,
		SuperLikesLimit: snapshot.SuperLikesLimit,
		Unlimited:       snapshot.Unlimited,
		Tier:            string(tier),
		ResetAt:         snapshot.ResetAt.UTC(),
	}
}
