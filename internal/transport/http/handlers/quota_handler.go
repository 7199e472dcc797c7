package handlers

import (
	"net/http"

	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	quotasvc "github.com/dkudrin/iskra/internal/services/quota"
	httperrors "github.com/dkudrin/iskra/internal/transport/http/errors"
)

type QuotaHandler struct {
	quota *quotasvc.Manager
	tiers TierSource
}

func NewQuotaHandler(quota *quotasvc.Manager, tiers TierSource) *QuotaHandler {
	return &QuotaHandler{quota: quota, tiers: tiers}
}

func (h *QuotaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.quota == nil || h.tiers == nil {
		writeInternal(w, "QUOTA_SERVICE_UNAVAILABLE", "quota service is unavailable")
		return
	}

	tier := h.tiers.TierFor(identity.UserID)
	httperrors.Write(w, http.StatusOK, mapQuotaSnapshot(h.quota.Snapshot(identity.UserID, tier), tier))
}
