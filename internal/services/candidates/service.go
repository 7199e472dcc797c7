package candidates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dkudrin/iskra/internal/domain/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNilDependencies = errors.New("candidates dependencies are nil")
)

// FeedStore pages through the ordered discovery feed.
type FeedStore interface {
	ListPage(ctx context.Context, viewerID, afterID string, limit int) ([]model.CandidateProfile, error)
}

// PhotoResolver maps stored photo references to browsable URLs.
type PhotoResolver interface {
	ResolvePhotos(ctx context.Context, refs []string) []string
}

type Config struct {
	PageSize int
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
	}
	return c
}

type Dependencies struct {
	Feed   FeedStore
	Photos PhotoResolver
	Log    *zap.Logger
	Config Config
}

type Service struct {
	feed   FeedStore
	photos PhotoResolver
	log    *zap.Logger
	cfg    Config
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Feed == nil || deps.Log == nil {
		return nil, ErrNilDependencies
	}
	return &Service{
		feed:   deps.Feed,
		photos: deps.Photos,
		log:    deps.Log,
		cfg:    deps.Config.withDefaults(),
	}, nil
}

// LoadPage fetches the next feed page for the viewer. afterID is the
// last candidate already seen; empty means the top of the feed. The
// viewer never appears in their own page.
func (s *Service) LoadPage(ctx context.Context, viewerID, afterID string) ([]model.CandidateProfile, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, fmt.Errorf("%w: viewer id is required", ErrValidation)
	}

	page, err := s.feed.ListPage(ctx, viewerID, afterID, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list feed page: %w", err)
	}

	out := make([]model.CandidateProfile, 0, len(page))
	for _, profile := range page {
		if profile.ID == viewerID {
			continue
		}
		if s.photos != nil {
			profile.Photos = s.photos.ResolvePhotos(ctx, profile.Photos)
		}
		out = append(out, profile)
	}

	s.log.Debug("feed page loaded",
		zap.String("viewer_id", viewerID),
		zap.Int("count", len(out)),
	)

	return out, nil
}
