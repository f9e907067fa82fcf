// Package handlers serves the response shapes of the original mobile client.
// Routes are registered with WithRawResponse so the bodies are written
// without the APIResponse envelope.
package handlers

import (
	"context"

	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"

	progressdomain "github.com/ugawatch/ugawatch-api/internal/modules/progress/domain"
	trendingdomain "github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
)

// ProgressSource lists a user's unfinished titles.
type ProgressSource interface {
	ContinueWatching(ctx context.Context, userID string) ([]*progressdomain.ContinueWatchingItem, error)
}

// TrendingSource ranks the catalog.
type TrendingSource interface {
	Trending(ctx context.Context, limit int) ([]*trendingdomain.RankedMovie, error)
}

// Request types

type ContinueWatchingRequest struct {
	UserID string `param:"userId" binding:"required"`
}

type TrendingRequest struct {
	Limit int `query:"limit"`
}

// Response types

// ContinueWatchingTree is keyed by movieId, the shape of the realtime
// database node "users/{userId}/continueWatching" whose children live at
// "users/{userId}/continueWatching/{movieId}".
type ContinueWatchingTree map[string]*progressdomain.ContinueWatchingItem

// TrendingMovie is one element of the legacy trending array.
type TrendingMovie struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	PosterURL     string  `json:"posterUrl"`
	BackdropURL   string  `json:"backdropUrl"`
	VideoURL      string  `json:"videoUrl"`
	IsSeries      bool    `json:"isSeries"`
	Views         int64   `json:"views"`
	UploadDate    int64   `json:"uploadDate"`
	TrendingScore float64 `json:"trendingScore"`
	RecentViews   int     `json:"recentViews"`
}

type LegacyHandler struct {
	progress ProgressSource
	trending TrendingSource
	logger   logger.Logger
}

func NewLegacyHandler(p ProgressSource, t TrendingSource, l logger.Logger) *LegacyHandler {
	return &LegacyHandler{
		progress: p,
		trending: t,
		logger:   l,
	}
}

// GetContinueWatching handles GET /legacy/users/:userId/continueWatching.
func (h *LegacyHandler) GetContinueWatching(req ContinueWatchingRequest, ctx server.HandlerContext) (ContinueWatchingTree, server.IAPIError) {
	items, err := h.progress.ContinueWatching(ctx.Echo.Request().Context(), req.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to list continue watching")
		return nil, server.NewInternalServerError("Failed to retrieve continue watching")
	}

	tree := make(ContinueWatchingTree, len(items))
	for _, item := range items {
		tree[item.MovieID] = item
	}
	return tree, nil
}

// GetTrending handles GET /legacy/trending.
func (h *LegacyHandler) GetTrending(req TrendingRequest, ctx server.HandlerContext) ([]TrendingMovie, server.IAPIError) {
	if req.Limit < 0 {
		return nil, server.NewBadRequestError("limit must be non-negative")
	}

	ranked, err := h.trending.Trending(ctx.Echo.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute trending")
		return nil, server.NewInternalServerError("Failed to retrieve trending titles")
	}

	out := make([]TrendingMovie, len(ranked))
	for i, r := range ranked {
		var uploaded int64
		if !r.Movie.UploadDate.IsZero() {
			uploaded = r.Movie.UploadDate.UnixMilli()
		}
		out[i] = TrendingMovie{
			ID:            r.Movie.ID,
			Title:         r.Movie.Title,
			PosterURL:     r.Movie.PosterURL,
			BackdropURL:   r.Movie.BackdropURL,
			VideoURL:      r.Movie.VideoURL,
			IsSeries:      r.Movie.IsSeries,
			Views:         r.Movie.Views,
			UploadDate:    uploaded,
			TrendingScore: r.Stats.FinalScore,
			RecentViews:   r.Stats.Last24h,
		}
	}
	return out, nil
}

// RegisterRoutes registers legacy routes with WithRawResponse().
func (h *LegacyHandler) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.GET(hr, r, "/legacy/users/:userId/continueWatching", h.GetContinueWatching,
		server.WithRawResponse(),
		server.WithTags("legacy"),
	)
	server.GET(hr, r, "/legacy/trending", h.GetTrending,
		server.WithRawResponse(),
		server.WithTags("legacy"),
	)
}
