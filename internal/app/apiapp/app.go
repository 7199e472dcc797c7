package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/config"
	"github.com/dkudrin/iskra/internal/domain/rules"
	s3infra "github.com/dkudrin/iskra/internal/infra/s3"
	pgrepo "github.com/dkudrin/iskra/internal/repo/postgres"
	redrepo "github.com/dkudrin/iskra/internal/repo/redis"
	authsvc "github.com/dkudrin/iskra/internal/services/auth"
	candidatesvc "github.com/dkudrin/iskra/internal/services/candidates"
	gesturesvc "github.com/dkudrin/iskra/internal/services/gesture"
	identitysvc "github.com/dkudrin/iskra/internal/services/identity"
	matchsvc "github.com/dkudrin/iskra/internal/services/match"
	mediasvc "github.com/dkudrin/iskra/internal/services/media"
	quotasvc "github.com/dkudrin/iskra/internal/services/quota"
	ratesvc "github.com/dkudrin/iskra/internal/services/rate"
	swipesvc "github.com/dkudrin/iskra/internal/services/swipe"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	quota      *quotasvc.Manager
	matches    *matchsvc.Service
	identity   *identitysvc.Provider
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	usageRepo := redrepo.NewUsageRepo(redisClient)
	matchRepo := redrepo.NewMatchRepo(redisClient)
	userDocRepo := redrepo.NewUserDocRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	candidateRepo := pgrepo.NewCandidateRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(cfg.S3); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	photoStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	if s3Client != nil {
		if err := photoStorage.EnsureBucket(ctx); err != nil {
			log.Warn("s3 bucket check failed, photo urls may not resolve", zap.Error(err))
		}
	}
	photoSigner := mediasvc.NewSigner(photoStorage, log, mediasvc.SignerConfig{
		SignedURLTTL: cfg.Engine.Deck.PhotoURLTTL,
	})

	candidateService, err := candidatesvc.NewService(candidatesvc.Dependencies{
		Feed:   candidateRepo,
		Photos: photoSigner,
		Log:    log,
		Config: candidatesvc.Config{PageSize: cfg.Engine.Deck.PageSize},
	})
	if err != nil {
		return nil, fmt.Errorf("create candidates service: %w", err)
	}

	limits := rules.Limits{
		FreeSwipesPerDay:     cfg.Engine.Limits.FreeSwipesPerDay,
		FreeSuperLikesPerDay: cfg.Engine.Limits.FreeSuperLikesPerDay,
		PlusSuperLikesPerDay: cfg.Engine.Limits.PlusSuperLikesPerDay,
	}
	quotaManager := quotasvc.NewManager(usageRepo, rules.DefaultTable(limits), log, quotasvc.Config{
		Limits:          limits,
		DefaultTimezone: cfg.Engine.DefaultTimezone,
	})

	matchService := matchsvc.NewService(matchRepo, log, matchsvc.Config{})

	identityProvider, err := identitysvc.NewProvider(identitysvc.Dependencies{
		Store: userDocRepo,
		Log:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("create identity provider: %w", err)
	}

	rateLimiter := ratesvc.NewLimiter(rateRepo,
		ratesvc.Window{Span: time.Minute, Max: cfg.Engine.Rate.SwipesPerMinute},
		ratesvc.Window{Span: 10 * time.Second, Max: cfg.Engine.Rate.SwipesPer10Seconds},
	)

	registry, err := swipesvc.NewRegistry(ctx, swipesvc.RegistryDependencies{
		Candidates: candidateService,
		Quota:      quotaManager,
		Matches:    matchService,
		Identity:   identityProvider,
		Log:        log,
		Gesture: gesturesvc.Config{
			DXThreshold: cfg.Engine.Gesture.DXThreshold,
			DYThreshold: cfg.Engine.Gesture.DYThreshold,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create swipe registry: %w", err)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	RegisterRoutes(r, Dependencies{
		JWTManager:   jwtManager,
		Registry:     registry,
		QuotaManager: quotaManager,
		Tiers:        identityProvider,
		MatchService: matchService,
		RateLimiter:  rateLimiter,
		Logger:       log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		quota:      quotaManager,
		matches:    matchService,
		identity:   identityProvider,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	// Let in-flight usage and match writes land before the stores close.
	a.quota.Wait()
	a.matches.Wait()
	a.identity.Close()

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
