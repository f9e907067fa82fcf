// Package service tracks watch progress and serves continue-watching lists.
// Per-user lists are cached and dropped on every write for that user.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/cache"
)

var ErrValidation = errors.New("validation error")

// SaveInput is a playback position report from a client.
type SaveInput struct {
	UserID      string
	MovieID     string
	Metadata    domain.Metadata
	CurrentTime float64
	Duration    float64
	IsSeries    bool
	Episode     *domain.Episode
	// Timestamp is epoch milliseconds; zero or a time ahead of the server
	// clock means now.
	Timestamp int64
}

type ProgressService struct {
	repo      repository.Repository
	cache     *cache.Cache[[]*domain.ContinueWatchingItem]
	retention time.Duration
	logger    logger.Logger
	now       func() time.Time

	// mu guards cache writes against invalidations racing an in-flight load.
	// gens counts invalidations per user while loads for that user are running;
	// epoch counts full clears.
	mu      sync.Mutex
	loading map[string]int
	gens    map[string]uint64
	epoch   uint64
}

// loadTicket identifies the cache state a load started from.
type loadTicket struct {
	gen   uint64
	epoch uint64
}

func NewService(repo repository.Repository, cfg config.ProgressConfig, log logger.Logger) *ProgressService {
	return &ProgressService{
		repo:      repo,
		cache:     cache.New[[]*domain.ContinueWatchingItem](cfg.Cache.TTL, cfg.Cache.Size),
		retention: cfg.Retention,
		logger:    log,
		now:       time.Now,
		loading:   make(map[string]int),
		gens:      make(map[string]uint64),
	}
}

// SaveProgress stores a position report. Reports without a usable duration
// are ignored and return nil, nil. Reports older than the stored record
// fail with repository.ErrStaleProgress.
func (s *ProgressService) SaveProgress(ctx context.Context, in SaveInput) (*domain.ContinueWatchingItem, error) {
	if in.UserID == "" || in.MovieID == "" {
		return nil, fmt.Errorf("%w: userId and movieId are required", ErrValidation)
	}

	progress, ok := domain.ComputeProgress(in.CurrentTime, in.Duration)
	if !ok {
		s.logger.Debug().
			Str("userId", in.UserID).
			Str("movieId", in.MovieID).
			Msg("Ignoring progress report without duration")
		return nil, nil
	}

	now := s.now().UnixMilli()
	ts := in.Timestamp
	if ts > now {
		s.logger.Debug().
			Str("userId", in.UserID).
			Str("movieId", in.MovieID).
			Int64("timestamp", ts).
			Msg("Clamping progress timestamp ahead of server clock")
	}
	if ts <= 0 || ts > now {
		ts = now
	}

	item := &domain.ContinueWatchingItem{
		UserID:      in.UserID,
		MovieID:     in.MovieID,
		Title:       in.Metadata.Title,
		Poster:      in.Metadata.Poster,
		Backdrop:    in.Metadata.Backdrop,
		Progress:    progress,
		CurrentTime: in.CurrentTime,
		Duration:    in.Duration,
		Timestamp:   ts,
		IsSeries:    in.IsSeries,
	}
	if in.IsSeries {
		item.Episode = in.Episode
	}

	if err := s.repo.Upsert(ctx, item); err != nil {
		if errors.Is(err, repository.ErrStaleProgress) {
			s.logger.Debug().
				Str("userId", in.UserID).
				Str("movieId", in.MovieID).
				Msg("Dropped stale progress report")
			return nil, err
		}
		s.logger.Error().
			Err(err).
			Str("userId", in.UserID).
			Str("movieId", in.MovieID).
			Msg("Failed to save progress")
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	s.invalidate(in.UserID)
	return item, nil
}

// GetProgress returns the stored record for one title. A warm user list is
// served from cache; otherwise the single record is read.
func (s *ProgressService) GetProgress(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error) {
	if userID == "" || movieID == "" {
		return nil, fmt.Errorf("%w: userId and movieId are required", ErrValidation)
	}

	if items, ok := s.cache.Get(userID); ok {
		for _, item := range items {
			if item.MovieID == movieID {
				return item, nil
			}
		}
		return nil, repository.ErrProgressNotFound
	}

	item, err := s.repo.Get(ctx, userID, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrProgressNotFound) {
			return nil, err
		}
		s.logger.Error().
			Err(err).
			Str("userId", userID).
			Str("movieId", movieID).
			Msg("Failed to load progress")
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return item, nil
}

// ContinueWatching returns unfinished titles, most recent first.
func (s *ProgressService) ContinueWatching(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error) {
	items, err := s.userItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.ContinueWatchingItem, 0, len(items))
	for _, item := range items {
		if domain.InContinueWatching(item.Progress) {
			result = append(result, item)
		}
	}
	return result, nil
}

func (s *ProgressService) RemoveFromContinueWatching(ctx context.Context, userID, movieID string) error {
	if err := s.repo.Delete(ctx, userID, movieID); err != nil {
		if errors.Is(err, repository.ErrProgressNotFound) {
			return err
		}
		return fmt.Errorf("failed to remove progress: %w", err)
	}

	s.invalidate(userID)
	return nil
}

// PurgeCompleted deletes finished titles untouched for the retention period.
func (s *ProgressService) PurgeCompleted(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention).UnixMilli()

	n, err := s.repo.PurgeCompleted(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to purge completed progress")
		return 0, fmt.Errorf("failed to purge completed progress: %w", err)
	}
	if n > 0 {
		s.clear()
	}
	return n, nil
}

func (s *ProgressService) CacheMetrics() cache.Metrics {
	return s.cache.Metrics()
}

func (s *ProgressService) Close() {
	s.cache.Close()
}

func (s *ProgressService) userItems(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if items, ok := s.cache.Get(userID); ok {
		return items, nil
	}

	ticket := s.beginLoad(userID)
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.endLoad(userID, ticket, nil, false)
		s.logger.Error().
			Err(err).
			Str("userId", userID).
			Msg("Failed to load progress")
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	s.endLoad(userID, ticket, items, true)
	return items, nil
}

func (s *ProgressService) beginLoad(userID string) loadTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[userID]++
	return loadTicket{gen: s.gens[userID], epoch: s.epoch}
}

// endLoad caches items only if no write for the user landed while they were
// being read.
func (s *ProgressService) endLoad(userID string, t loadTicket, items []*domain.ContinueWatchingItem, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok && s.gens[userID] == t.gen && s.epoch == t.epoch {
		s.cache.Set(userID, items)
	}

	s.loading[userID]--
	if s.loading[userID] <= 0 {
		delete(s.loading, userID)
		delete(s.gens, userID)
	}
}

func (s *ProgressService) invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(userID)
	if s.loading[userID] > 0 {
		s.gens[userID]++
	}
}

func (s *ProgressService) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
	s.epoch++
}
