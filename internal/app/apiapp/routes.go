package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	matchsvc "github.com/dkudrin/iskra/internal/services/match"
	quotasvc "github.com/dkudrin/iskra/internal/services/quota"
	ratesvc "github.com/dkudrin/iskra/internal/services/rate"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
	"github.com/dkudrin/iskra/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager   *authsvc.JWTManager
	Registry     *swipesvc.Registry
	QuotaManager *quotasvc.Manager
	Tiers        handlers.TierSource
	MatchService *matchsvc.Service
	RateLimiter  *ratesvc.Limiter
	Logger       *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	swipeHandler := handlers.NewSwipeHandler(deps.Registry, deps.QuotaManager, deps.Tiers, deps.RateLimiter)
	rewindHandler := handlers.NewRewindHandler(deps.Registry)
	deckHandler := handlers.NewDeckHandler(deps.Registry)
	quotaHandler := handlers.NewQuotaHandler(deps.QuotaManager, deps.Tiers)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, deps.Registry)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/health", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/swipe/drag", swipeHandler.Drag)
		r.Post("/swipe/press", swipeHandler.Press)
		r.Post("/swipe/settled", swipeHandler.Settled)
		r.Post("/rewind", rewindHandler.Handle)
		r.Get("/deck/top", deckHandler.Top)
		r.Post("/deck/refill", deckHandler.Refill)
		r.Get("/quota", quotaHandler.Handle)
		r.Get("/matches", matchesHandler.List)
		r.Get("/chat/allowance", matchesHandler.ChatAllowance)
	})
}
