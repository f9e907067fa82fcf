// Package service resolves catalog metadata for download requests and
// manages their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaborage/go-bricks/logger"

	catalogdomain "github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/downloader"
)

var ErrValidation = errors.New("validation error")

// Catalog looks up titles for download metadata.
type Catalog interface {
	GetMovie(ctx context.Context, id string) (*catalogdomain.Movie, error)
}

// Engine runs downloads and owns their records.
type Engine interface {
	Start(ctx context.Context, req downloader.Request) (*domain.Download, error)
	Remove(id string) error
}

// Records reads download state.
type Records interface {
	Get(id string) (*domain.Download, error)
	List() []*domain.Download
}

// EnqueueInput is a request to download a title or episode. SourceURL
// defaults to the catalog video URL.
type EnqueueInput struct {
	MovieID      string
	Season       int
	Episode      int
	EpisodeTitle string
	SourceURL    string
}

type DownloadService struct {
	catalog Catalog
	engine  Engine
	records Records
	logger  logger.Logger
}

func NewService(catalog Catalog, engine Engine, records Records, log logger.Logger) *DownloadService {
	return &DownloadService{
		catalog: catalog,
		engine:  engine,
		records: records,
		logger:  log,
	}
}

func (s *DownloadService) Enqueue(ctx context.Context, in EnqueueInput) (*domain.Download, error) {
	if in.MovieID == "" {
		return nil, fmt.Errorf("%w: movieId is required", ErrValidation)
	}
	if in.Season < 0 || in.Episode < 0 {
		return nil, fmt.Errorf("%w: season and episode must be non-negative", ErrValidation)
	}

	movie, err := s.catalog.GetMovie(ctx, in.MovieID)
	if err != nil {
		return nil, err
	}

	source := in.SourceURL
	if source == "" {
		source = movie.VideoURL
	}
	if source == "" {
		return nil, fmt.Errorf("%w: %s has no video to download", ErrValidation, movie.ID)
	}

	dl, err := s.engine.Start(ctx, downloader.Request{
		MovieID:      movie.ID,
		Title:        movie.Title,
		Poster:       movie.PosterURL,
		Backdrop:     movie.BackdropURL,
		EpisodeTitle: in.EpisodeTitle,
		Season:       in.Season,
		Episode:      in.Episode,
		SourceURL:    source,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("movieId", in.MovieID).
			Msg("Failed to start download")
		return nil, fmt.Errorf("failed to start download: %w", err)
	}

	return dl, nil
}

func (s *DownloadService) Get(_ context.Context, id string) (*domain.Download, error) {
	return s.records.Get(id)
}

func (s *DownloadService) List(_ context.Context) []*domain.Download {
	return s.records.List()
}

// Delete cancels the download if running and removes its record and file.
func (s *DownloadService) Delete(_ context.Context, id string) error {
	if err := s.engine.Remove(id); err != nil {
		return err
	}
	s.logger.Info().Str("downloadId", id).Msg("Download removed")
	return nil
}
