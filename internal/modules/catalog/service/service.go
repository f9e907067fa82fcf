package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gaborage/go-bricks/logger"
	"github.com/google/uuid"

	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/tmdb"
)

const (
	maxTitleLength = 200
	posterSize     = "w500"
	backdropSize   = "original"
)

// TitleSource looks up external metadata. *tmdb.Client satisfies it.
type TitleSource interface {
	Search(ctx context.Context, query, mediaType string) ([]tmdb.Title, error)
	Details(ctx context.Context, id int, mediaType string) (*tmdb.Title, error)
	ImageURL(path, size string) string
}

type MovieService struct {
	repository repository.Repository
	titles     TitleSource
	logger     logger.Logger
}

func NewService(repo repository.Repository, titles TitleSource, log logger.Logger) *MovieService {
	return &MovieService{
		repository: repo,
		titles:     titles,
		logger:     log,
	}
}

// CreateMovie validates and stores a new title
func (s *MovieService) CreateMovie(ctx context.Context, in domain.MovieInput) (*domain.Movie, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	movie := domain.New(id, in)

	if err := movie.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.repository.Create(ctx, movie); err != nil {
		s.logger.Error().Err(err).Str("movieId", id).Msg("Failed to create movie")
		return nil, fmt.Errorf("failed to create movie: %w", err)
	}

	s.logger.Info().Str("movieId", id).Str("title", movie.Title).Msg("Movie created successfully")
	return movie, nil
}

// GetMovie retrieves a title by id
func (s *MovieService) GetMovie(ctx context.Context, id string) (*domain.Movie, error) {
	movie, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("movieId", id).Msg("Failed to get movie")
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	return movie, nil
}

// ListMovies retrieves a page of titles, newest upload first
func (s *MovieService) ListMovies(ctx context.Context, page, pageSize int) ([]*domain.Movie, int, error) {
	if page < 1 {
		return nil, 0, fmt.Errorf("%w: page must be greater than 0", ErrValidation)
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, 0, fmt.Errorf("%w: pageSize must be between 1 and 100", ErrValidation)
	}

	offset := (page - 1) * pageSize

	movies, total, err := s.repository.List(ctx, pageSize, offset)
	if err != nil {
		s.logger.Error().Err(err).Int("page", page).Int("pageSize", pageSize).Msg("Failed to list movies")
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}

	return movies, total, nil
}

// ListAll returns the whole catalog.
func (s *MovieService) ListAll(ctx context.Context) ([]*domain.Movie, error) {
	movies, err := s.repository.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list catalog")
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return movies, nil
}

// IncrementViews bumps the lifetime views counter of a title.
func (s *MovieService) IncrementViews(ctx context.Context, id string) error {
	if err := s.repository.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return err
		}
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// UpdateMovie performs a partial update
func (s *MovieService) UpdateMovie(ctx context.Context, id string, upd domain.MovieUpdate) (*domain.Movie, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	updates := make(map[string]any)

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if upd.Overview != nil {
		updates["overview"] = *upd.Overview
	}
	for column, value := range map[string]*string{
		"poster_url":   upd.PosterURL,
		"backdrop_url": upd.BackdropURL,
		"video_url":    upd.VideoURL,
	} {
		if value == nil {
			continue
		}
		if err := validateURL(*value); err != nil {
			return nil, fmt.Errorf("%w: invalid %s: %v", ErrValidation, column, err)
		}
		updates[column] = *value
	}
	if upd.IsSeries != nil {
		updates["is_series"] = *upd.IsSeries
	}
	if upd.Year != nil {
		updates["year"] = *upd.Year
	}
	if upd.Rating != nil {
		if err := validateRating(*upd.Rating); err != nil {
			return nil, err
		}
		updates["rating"] = *upd.Rating
	}

	updates["updated_date"] = time.Now().UTC()

	if err := s.repository.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("movieId", id).Msg("Failed to update movie")
		return nil, fmt.Errorf("failed to update movie: %w", err)
	}

	movie, err := s.repository.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("movieId", id).Msg("Failed to fetch updated movie")
		return nil, fmt.Errorf("failed to fetch updated movie: %w", err)
	}

	s.logger.Info().Str("movieId", id).Msg("Movie updated successfully")
	return movie, nil
}

// DeleteMovie removes a title
func (s *MovieService) DeleteMovie(ctx context.Context, id string) error {
	if err := s.repository.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("movieId", id).Msg("Failed to delete movie")
		return fmt.Errorf("failed to delete movie: %w", err)
	}

	s.logger.Info().Str("movieId", id).Msg("Movie deleted successfully")
	return nil
}

// SearchTMDB proxies a TMDB search for the admin import form.
func (s *MovieService) SearchTMDB(ctx context.Context, query, mediaType string) ([]tmdb.Title, error) {
	titles, err := s.titles.Search(ctx, query, mediaType)
	if err != nil {
		if errors.Is(err, tmdb.ErrInvalidMediaType) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.logger.Error().Err(err).Str("query", query).Msg("TMDB search failed")
		return nil, fmt.Errorf("failed to search TMDB: %w", err)
	}
	return titles, nil
}

// ImportFromTMDB creates a catalog title from TMDB details. Image paths are
// expanded to absolute URLs.
func (s *MovieService) ImportFromTMDB(ctx context.Context, tmdbID int, mediaType, videoURL string) (*domain.Movie, error) {
	if tmdbID <= 0 {
		return nil, fmt.Errorf("%w: tmdbId must be positive", ErrValidation)
	}

	details, err := s.titles.Details(ctx, tmdbID, mediaType)
	if err != nil {
		switch {
		case errors.Is(err, tmdb.ErrInvalidMediaType):
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		case errors.Is(err, tmdb.ErrNotFound):
			return nil, err
		}
		s.logger.Error().Err(err).Int("tmdbId", tmdbID).Msg("TMDB details lookup failed")
		return nil, fmt.Errorf("failed to fetch TMDB details: %w", err)
	}

	rating := details.Rating
	if rating > 10 {
		rating = 10
	}

	return s.CreateMovie(ctx, domain.MovieInput{
		TMDBID:      details.ID,
		Title:       details.Title,
		Overview:    details.Overview,
		PosterURL:   s.titles.ImageURL(details.PosterPath, posterSize),
		BackdropURL: s.titles.ImageURL(details.BackdropPath, backdropSize),
		VideoURL:    videoURL,
		IsSeries:    details.MediaType == tmdb.MediaTV,
		Year:        details.Year,
		Rating:      rating,
	})
}

func validateInput(in domain.MovieInput) error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateRating(in.Rating); err != nil {
		return err
	}
	for name, value := range map[string]string{
		"poster URL":   in.PosterURL,
		"backdrop URL": in.BackdropURL,
		"video URL":    in.VideoURL,
	} {
		if err := validateURL(value); err != nil {
			return fmt.Errorf("%w: invalid %s: %v", ErrValidation, name, err)
		}
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}
	return nil
}

func validateRating(rating float64) error {
	if rating < 0 || rating > 10 {
		return fmt.Errorf("%w: rating must be between 0 and 10", ErrValidation)
	}
	return nil
}

// validateURL accepts an empty string or an absolute http(s) URL.
func validateURL(urlStr string) error {
	if urlStr == "" {
		return nil
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}

	return nil
}
