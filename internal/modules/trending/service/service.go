// Package service provides the trending business logic: recording views,
// ranking the catalog and compacting the view log.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/config"
	catalogdomain "github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/scorer"
)

const scoringWindow = 7 * 24 * time.Hour

var ErrValidation = errors.New("validation error")

// Catalog is the subset of the catalog used by trending.
type Catalog interface {
	ListAll(ctx context.Context) ([]*catalogdomain.Movie, error)
	GetMovie(ctx context.Context, id string) (*catalogdomain.Movie, error)
	IncrementViews(ctx context.Context, id string) error
}

type TrendingService struct {
	repo    repository.Repository
	catalog Catalog
	cfg     config.TrendingConfig
	loc     *time.Location
	logger  logger.Logger
	now     func() time.Time
}

func NewService(repo repository.Repository, catalog Catalog, cfg config.TrendingConfig, log logger.Logger) *TrendingService {
	return &TrendingService{
		repo:    repo,
		catalog: catalog,
		cfg:     cfg,
		loc:     cfg.Location(),
		logger:  log,
		now:     time.Now,
	}
}

// TrackView records a view event and bumps the title's lifetime counter.
// Counter failures are logged only; the event is the source of truth.
func (s *TrendingService) TrackView(ctx context.Context, movieID, viewType string) error {
	if movieID == "" {
		return fmt.Errorf("%w: movieId is required", ErrValidation)
	}
	vt, ok := domain.ParseViewType(viewType)
	if !ok {
		return fmt.Errorf("%w: type must be play or visit", ErrValidation)
	}

	view := domain.NewViewEvent(movieID, vt, s.now())
	if err := s.repo.RecordView(ctx, view); err != nil {
		s.logger.Error().
			Err(err).
			Str("movieId", movieID).
			Msg("Failed to record view")
		return fmt.Errorf("failed to record view: %w", err)
	}

	if err := s.catalog.IncrementViews(ctx, movieID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("movieId", movieID).
			Msg("Failed to increment lifetime views")
	}

	s.logger.Debug().
		Str("movieId", movieID).
		Str("type", string(vt)).
		Msg("View recorded")

	return nil
}

// Trending ranks the catalog. If view history cannot be loaded the ranking
// degrades to lifetime views.
func (s *TrendingService) Trending(ctx context.Context, limit int) ([]*domain.RankedMovie, error) {
	if limit <= 0 {
		limit = s.cfg.Limit
	}
	if limit > 500 {
		limit = 500
	}

	movies, err := s.catalog.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load catalog for trending")
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	now := s.now()
	histories, err := s.repo.Histories(ctx, now.Add(-scoringWindow))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load view history, ranking by lifetime views")
		histories = map[string]scorer.History{}
	} else if len(histories) == 0 {
		s.logger.Debug().Msg("No view history recorded, ranking by lifetime views")
	}

	ranked := scorer.New(s.loc, limit).Rank(domain.ScorerInput(movies), histories, now)

	result := make([]*domain.RankedMovie, len(ranked))
	for i, r := range ranked {
		result[i] = &domain.RankedMovie{Movie: movies[r.Index], Stats: r.Stats}
	}
	return result, nil
}

// MovieStats returns the trending stats of a single title.
func (s *TrendingService) MovieStats(ctx context.Context, movieID string) (*scorer.Stats, error) {
	movie, err := s.catalog.GetMovie(ctx, movieID)
	if err != nil {
		if errors.Is(err, catalogrepo.ErrMovieNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}

	now := s.now()
	history, err := s.repo.History(ctx, movieID, now.Add(-scoringWindow))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("movieId", movieID).
			Msg("Failed to get view history")
		return nil, fmt.Errorf("failed to get view history: %w", err)
	}

	stats := scorer.New(s.loc, 1).Stats(domain.ScorerInput([]*catalogdomain.Movie{movie})[0], history, now)
	return &stats, nil
}

// Rollup folds raw events older than the retention horizon into daily buckets.
func (s *TrendingService) Rollup(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Retention)

	moved, err := s.repo.Rollup(ctx, cutoff, s.loc.String())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to roll up view events")
		return 0, fmt.Errorf("failed to roll up view events: %w", err)
	}

	return moved, nil
}
