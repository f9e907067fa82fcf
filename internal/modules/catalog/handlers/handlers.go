// Package handlers provides HTTP handlers for the catalog module.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/tmdb"
)

type CreateMovieRequest struct {
	TMDBID      int     `json:"tmdbId"`
	Title       string  `json:"title" binding:"required"`
	Overview    string  `json:"overview"`
	PosterURL   string  `json:"posterUrl"`
	BackdropURL string  `json:"backdropUrl"`
	VideoURL    string  `json:"videoUrl"`
	IsSeries    bool    `json:"isSeries"`
	Year        int     `json:"year"`
	Rating      float64 `json:"rating"`
}

type UpdateMovieRequest struct {
	ID          string   `param:"id" binding:"required"`
	Title       *string  `json:"title"`
	Overview    *string  `json:"overview"`
	PosterURL   *string  `json:"posterUrl"`
	BackdropURL *string  `json:"backdropUrl"`
	VideoURL    *string  `json:"videoUrl"`
	IsSeries    *bool    `json:"isSeries"`
	Year        *int     `json:"year"`
	Rating      *float64 `json:"rating"`
}

type GetMovieRequest struct {
	ID string `param:"id" binding:"required"`
}

type ListMoviesRequest struct {
	Page     int `query:"page"`
	PageSize int `query:"pageSize"`
}

type DeleteMovieRequest struct {
	ID string `param:"id" binding:"required"`
}

type SearchTMDBRequest struct {
	Query string `query:"query" binding:"required"`
	Type  string `query:"type"`
}

type ImportRequest struct {
	TMDBID   int    `json:"tmdbId" binding:"required"`
	Type     string `json:"type"`
	VideoURL string `json:"videoUrl"`
}

type MovieResponse struct {
	ID          string  `json:"id"`
	TMDBID      int     `json:"tmdbId,omitempty"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterURL   string  `json:"posterUrl"`
	BackdropURL string  `json:"backdropUrl"`
	VideoURL    string  `json:"videoUrl"`
	IsSeries    bool    `json:"isSeries"`
	Year        int     `json:"year,omitempty"`
	Rating      float64 `json:"rating"`
	Views       int64   `json:"views"`
	UploadDate  string  `json:"uploadDate"`
	UpdatedDate string  `json:"updatedDate"`
}

type ListMoviesResponse struct {
	Movies   []MovieResponse `json:"movies"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

type SearchTMDBResponse struct {
	Results []tmdb.Title `json:"results"`
}

func ToMovieResponse(m *domain.Movie) *MovieResponse {
	return &MovieResponse{
		ID:          m.ID,
		TMDBID:      m.TMDBID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterURL:   m.PosterURL,
		BackdropURL: m.BackdropURL,
		VideoURL:    m.VideoURL,
		IsSeries:    m.IsSeries,
		Year:        m.Year,
		Rating:      m.Rating,
		Views:       m.Views,
		UploadDate:  m.UploadDate.Format(time.RFC3339),
		UpdatedDate: m.UpdatedDate.Format(time.RFC3339),
	}
}

// MovieServiceInterface defines the service contract for handlers
type MovieServiceInterface interface {
	CreateMovie(ctx context.Context, in domain.MovieInput) (*domain.Movie, error)
	GetMovie(ctx context.Context, id string) (*domain.Movie, error)
	ListMovies(ctx context.Context, page, pageSize int) ([]*domain.Movie, int, error)
	UpdateMovie(ctx context.Context, id string, upd domain.MovieUpdate) (*domain.Movie, error)
	DeleteMovie(ctx context.Context, id string) error
	SearchTMDB(ctx context.Context, query, mediaType string) ([]tmdb.Title, error)
	ImportFromTMDB(ctx context.Context, tmdbID int, mediaType, videoURL string) (*domain.Movie, error)
}

type MovieHandler struct {
	service MovieServiceInterface
	logger  logger.Logger
}

func NewMovieHandler(s MovieServiceInterface, l logger.Logger) *MovieHandler {
	return &MovieHandler{
		service: s,
		logger:  l,
	}
}

// toAPIError maps service errors onto API errors.
func (h *MovieHandler) toAPIError(err error, msg string) server.IAPIError {
	switch {
	case errors.Is(err, repository.ErrMovieNotFound):
		return server.NewNotFoundError("Movie")
	case errors.Is(err, tmdb.ErrNotFound):
		return server.NewNotFoundError("TMDB title")
	case errors.Is(err, service.ErrValidation):
		return server.NewBadRequestError(err.Error())
	default:
		return server.NewInternalServerError(msg)
	}
}

func (h *MovieHandler) GetMovie(req GetMovieRequest, ctx server.HandlerContext) (*MovieResponse, server.IAPIError) {
	movie, err := h.service.GetMovie(ctx.Echo.Request().Context(), req.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrMovieNotFound) {
			h.logger.Error().Err(err).Str("movieId", req.ID).Msg("Failed to get movie")
		}
		return nil, h.toAPIError(err, "Failed to retrieve movie")
	}

	return ToMovieResponse(movie), nil
}

func (h *MovieHandler) ListMovies(req ListMoviesRequest, ctx server.HandlerContext) (*ListMoviesResponse, server.IAPIError) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	movies, total, err := h.service.ListMovies(ctx.Echo.Request().Context(), req.Page, req.PageSize)
	if err != nil {
		h.logger.Error().Err(err).Int("page", req.Page).Int("pageSize", req.PageSize).Msg("Failed to list movies")
		return nil, h.toAPIError(err, "Failed to retrieve movies")
	}

	responses := make([]MovieResponse, len(movies))
	for i, m := range movies {
		responses[i] = *ToMovieResponse(m)
	}

	return &ListMoviesResponse{
		Movies:   responses,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

func (h *MovieHandler) CreateMovie(req CreateMovieRequest, ctx server.HandlerContext) (server.Result[*MovieResponse], server.IAPIError) {
	movie, err := h.service.CreateMovie(ctx.Echo.Request().Context(), domain.MovieInput{
		TMDBID:      req.TMDBID,
		Title:       req.Title,
		Overview:    req.Overview,
		PosterURL:   req.PosterURL,
		BackdropURL: req.BackdropURL,
		VideoURL:    req.VideoURL,
		IsSeries:    req.IsSeries,
		Year:        req.Year,
		Rating:      req.Rating,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("title", req.Title).Msg("Failed to create movie")
		return server.Result[*MovieResponse]{}, h.toAPIError(err, "Failed to create movie")
	}

	return server.Created(ToMovieResponse(movie)), nil
}

func (h *MovieHandler) UpdateMovie(req UpdateMovieRequest, ctx server.HandlerContext) (*MovieResponse, server.IAPIError) {
	movie, err := h.service.UpdateMovie(ctx.Echo.Request().Context(), req.ID, domain.MovieUpdate{
		Title:       req.Title,
		Overview:    req.Overview,
		PosterURL:   req.PosterURL,
		BackdropURL: req.BackdropURL,
		VideoURL:    req.VideoURL,
		IsSeries:    req.IsSeries,
		Year:        req.Year,
		Rating:      req.Rating,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("movieId", req.ID).Msg("Failed to update movie")
		return nil, h.toAPIError(err, "Failed to update movie")
	}

	return ToMovieResponse(movie), nil
}

func (h *MovieHandler) DeleteMovie(req DeleteMovieRequest, ctx server.HandlerContext) (server.NoContentResult, server.IAPIError) {
	if err := h.service.DeleteMovie(ctx.Echo.Request().Context(), req.ID); err != nil {
		h.logger.Error().Err(err).Str("movieId", req.ID).Msg("Failed to delete movie")
		return server.NoContentResult{}, h.toAPIError(err, "Failed to delete movie")
	}

	return server.NoContent(), nil
}

func (h *MovieHandler) SearchTMDB(req SearchTMDBRequest, ctx server.HandlerContext) (*SearchTMDBResponse, server.IAPIError) {
	results, err := h.service.SearchTMDB(ctx.Echo.Request().Context(), req.Query, req.Type)
	if err != nil {
		h.logger.Error().Err(err).Str("query", req.Query).Msg("TMDB search failed")
		return nil, h.toAPIError(err, "TMDB search failed")
	}

	return &SearchTMDBResponse{Results: results}, nil
}

func (h *MovieHandler) Import(req ImportRequest, ctx server.HandlerContext) (server.Result[*MovieResponse], server.IAPIError) {
	movie, err := h.service.ImportFromTMDB(ctx.Echo.Request().Context(), req.TMDBID, req.Type, req.VideoURL)
	if err != nil {
		h.logger.Error().Err(err).Int("tmdbId", req.TMDBID).Msg("TMDB import failed")
		return server.Result[*MovieResponse]{}, h.toAPIError(err, "TMDB import failed")
	}

	return server.Created(ToMovieResponse(movie)), nil
}

// RegisterRoutes registers catalog HTTP routes
func (h *MovieHandler) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.GET(hr, r, "/catalog/movies/:id", h.GetMovie)
	server.GET(hr, r, "/catalog/movies", h.ListMovies)
	server.POST(hr, r, "/catalog/movies", h.CreateMovie)
	server.PUT(hr, r, "/catalog/movies/:id", h.UpdateMovie)
	server.DELETE(hr, r, "/catalog/movies/:id", h.DeleteMovie)
	server.GET(hr, r, "/catalog/tmdb/search", h.SearchTMDB, server.WithTags("catalog"))
	server.POST(hr, r, "/catalog/import", h.Import, server.WithTags("catalog"))
}
