// Package handlers provides HTTP handlers for the trending module.
package handlers

import (
	"context"
	"errors"

	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"

	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/scorer"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/service"
)

// Request types

// RecordViewRequest is the body of POST /views.
type RecordViewRequest struct {
	MovieID string `json:"movieId" binding:"required"`
	Type    string `json:"type"`
}

// TrendingRequest is the query of GET /trending.
type TrendingRequest struct {
	Limit int `query:"limit"`
}

// MovieStatsRequest is the path of GET /trending/:movieId/stats.
type MovieStatsRequest struct {
	MovieID string `param:"movieId" binding:"required"`
}

// Response types

// TrendingItem is a ranked title with its scoring breakdown.
type TrendingItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	PosterURL   string       `json:"posterUrl"`
	BackdropURL string       `json:"backdropUrl"`
	IsSeries    bool         `json:"isSeries"`
	Year        int          `json:"year,omitempty"`
	Rating      float64      `json:"rating"`
	Views       int64        `json:"views"`
	Stats       scorer.Stats `json:"stats"`
}

// TrendingResponse is the response of GET /trending.
type TrendingResponse struct {
	Items []TrendingItem `json:"items"`
}

// ToTrendingItems flattens ranked movies for the wire.
func ToTrendingItems(ranked []*domain.RankedMovie) []TrendingItem {
	items := make([]TrendingItem, len(ranked))
	for i, r := range ranked {
		items[i] = TrendingItem{
			ID:          r.Movie.ID,
			Title:       r.Movie.Title,
			PosterURL:   r.Movie.PosterURL,
			BackdropURL: r.Movie.BackdropURL,
			IsSeries:    r.Movie.IsSeries,
			Year:        r.Movie.Year,
			Rating:      r.Movie.Rating,
			Views:       r.Movie.Views,
			Stats:       r.Stats,
		}
	}
	return items
}

// TrendingServiceInterface defines the service contract for handlers.
type TrendingServiceInterface interface {
	TrackView(ctx context.Context, movieID, viewType string) error
	Trending(ctx context.Context, limit int) ([]*domain.RankedMovie, error)
	MovieStats(ctx context.Context, movieID string) (*scorer.Stats, error)
}

// TrendingHandler handles HTTP requests for trending operations.
type TrendingHandler struct {
	service TrendingServiceInterface
	logger  logger.Logger
}

func NewTrendingHandler(s TrendingServiceInterface, l logger.Logger) *TrendingHandler {
	return &TrendingHandler{
		service: s,
		logger:  l,
	}
}

// RecordView handles POST /views.
func (h *TrendingHandler) RecordView(req RecordViewRequest, ctx server.HandlerContext) (server.NoContentResult, server.IAPIError) {
	err := h.service.TrackView(ctx.Echo.Request().Context(), req.MovieID, req.Type)
	if err != nil {
		h.logger.Error().Err(err).Str("movieId", req.MovieID).Msg("Failed to record view")
		if errors.Is(err, service.ErrValidation) {
			return server.NoContentResult{}, server.NewBadRequestError(err.Error())
		}
		return server.NoContentResult{}, server.NewInternalServerError("Failed to record view")
	}

	return server.NoContent(), nil
}

// GetTrending handles GET /trending.
func (h *TrendingHandler) GetTrending(req TrendingRequest, ctx server.HandlerContext) (*TrendingResponse, server.IAPIError) {
	if req.Limit < 0 {
		return nil, server.NewBadRequestError("limit must be non-negative")
	}

	ranked, err := h.service.Trending(ctx.Echo.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error().Err(err).Int("limit", req.Limit).Msg("Failed to compute trending")
		return nil, server.NewInternalServerError("Failed to retrieve trending titles")
	}

	return &TrendingResponse{Items: ToTrendingItems(ranked)}, nil
}

// GetMovieStats handles GET /trending/:movieId/stats.
func (h *TrendingHandler) GetMovieStats(req MovieStatsRequest, ctx server.HandlerContext) (*scorer.Stats, server.IAPIError) {
	stats, err := h.service.MovieStats(ctx.Echo.Request().Context(), req.MovieID)
	if err != nil {
		if errors.Is(err, catalogrepo.ErrMovieNotFound) {
			return nil, server.NewNotFoundError("Movie")
		}
		h.logger.Error().Err(err).Str("movieId", req.MovieID).Msg("Failed to get movie stats")
		return nil, server.NewInternalServerError("Failed to retrieve movie statistics")
	}

	return stats, nil
}

// RegisterRoutes registers trending HTTP routes.
func (h *TrendingHandler) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.POST(hr, r, "/views", h.RecordView)
	server.GET(hr, r, "/trending", h.GetTrending)
	server.GET(hr, r, "/trending/:movieId/stats", h.GetMovieStats)
}
