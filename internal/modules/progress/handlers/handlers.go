// Package handlers provides HTTP handlers for watch progress.
package handlers

import (
	"context"
	"errors"

	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/modules/progress/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/service"
)

// Request types

type EpisodeRequest struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title"`
}

// SaveProgressRequest is the body of PUT /users/:userId/progress/:movieId.
type SaveProgressRequest struct {
	UserID      string          `param:"userId" binding:"required"`
	MovieID     string          `param:"movieId" binding:"required"`
	Title       string          `json:"title"`
	Poster      string          `json:"poster"`
	Backdrop    string          `json:"backdrop"`
	CurrentTime float64         `json:"currentTime"`
	Duration    float64         `json:"duration"`
	IsSeries    bool            `json:"isSeries"`
	Episode     *EpisodeRequest `json:"episode"`
	Timestamp   int64           `json:"timestamp"`
}

type ProgressRequest struct {
	UserID  string `param:"userId" binding:"required"`
	MovieID string `param:"movieId" binding:"required"`
}

type UserRequest struct {
	UserID string `param:"userId" binding:"required"`
}

// Response types

type SaveProgressResponse struct {
	Saved bool                         `json:"saved"`
	Item  *domain.ContinueWatchingItem `json:"item,omitempty"`
}

type ProgressResponse struct {
	*domain.ContinueWatchingItem
	Resumable bool    `json:"resumable"`
	ResumeAt  float64 `json:"resumeAt"`
}

type ContinueWatchingResponse struct {
	Items []*domain.ContinueWatchingItem `json:"items"`
}

// ProgressServiceInterface defines the service contract for handlers.
type ProgressServiceInterface interface {
	SaveProgress(ctx context.Context, in service.SaveInput) (*domain.ContinueWatchingItem, error)
	GetProgress(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error)
	ContinueWatching(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error)
	RemoveFromContinueWatching(ctx context.Context, userID, movieID string) error
}

type ProgressHandler struct {
	service ProgressServiceInterface
	logger  logger.Logger
}

func NewProgressHandler(s ProgressServiceInterface, l logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: s,
		logger:  l,
	}
}

// SaveProgress handles PUT /users/:userId/progress/:movieId.
func (h *ProgressHandler) SaveProgress(req SaveProgressRequest, ctx server.HandlerContext) (*SaveProgressResponse, server.IAPIError) {
	in := service.SaveInput{
		UserID:      req.UserID,
		MovieID:     req.MovieID,
		Metadata:    domain.Metadata{Title: req.Title, Poster: req.Poster, Backdrop: req.Backdrop},
		CurrentTime: req.CurrentTime,
		Duration:    req.Duration,
		IsSeries:    req.IsSeries,
		Timestamp:   req.Timestamp,
	}
	if req.Episode != nil {
		in.Episode = &domain.Episode{Season: req.Episode.Season, Episode: req.Episode.Episode, Title: req.Episode.Title}
	}

	item, err := h.service.SaveProgress(ctx.Echo.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return nil, server.NewBadRequestError(err.Error())
		case errors.Is(err, repository.ErrStaleProgress):
			return nil, server.NewConflictError("A newer progress report is already stored")
		}
		h.logger.Error().
			Err(err).
			Str("userId", req.UserID).
			Str("movieId", req.MovieID).
			Msg("Failed to save progress")
		return nil, server.NewInternalServerError("Failed to save progress")
	}

	return &SaveProgressResponse{Saved: item != nil, Item: item}, nil
}

// GetProgress handles GET /users/:userId/progress/:movieId.
func (h *ProgressHandler) GetProgress(req ProgressRequest, ctx server.HandlerContext) (*ProgressResponse, server.IAPIError) {
	item, err := h.service.GetProgress(ctx.Echo.Request().Context(), req.UserID, req.MovieID)
	if err != nil {
		if errors.Is(err, repository.ErrProgressNotFound) {
			return nil, server.NewNotFoundError("Progress")
		}
		h.logger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to get progress")
		return nil, server.NewInternalServerError("Failed to retrieve progress")
	}

	return &ProgressResponse{
		ContinueWatchingItem: item,
		Resumable:            domain.ShouldOfferResume(item.Progress),
		ResumeAt:             domain.ResumePosition(item),
	}, nil
}

// ContinueWatching handles GET /users/:userId/continue-watching.
func (h *ProgressHandler) ContinueWatching(req UserRequest, ctx server.HandlerContext) (*ContinueWatchingResponse, server.IAPIError) {
	items, err := h.service.ContinueWatching(ctx.Echo.Request().Context(), req.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to list continue watching")
		return nil, server.NewInternalServerError("Failed to retrieve continue watching")
	}

	return &ContinueWatchingResponse{Items: items}, nil
}

// RemoveFromContinueWatching handles DELETE /users/:userId/continue-watching/:movieId.
func (h *ProgressHandler) RemoveFromContinueWatching(req ProgressRequest, ctx server.HandlerContext) (server.NoContentResult, server.IAPIError) {
	err := h.service.RemoveFromContinueWatching(ctx.Echo.Request().Context(), req.UserID, req.MovieID)
	if err != nil {
		if errors.Is(err, repository.ErrProgressNotFound) {
			return server.NoContentResult{}, server.NewNotFoundError("Progress")
		}
		h.logger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to remove progress")
		return server.NoContentResult{}, server.NewInternalServerError("Failed to remove progress")
	}

	return server.NoContent(), nil
}

func (h *ProgressHandler) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.PUT(hr, r, "/users/:userId/progress/:movieId", h.SaveProgress)
	server.GET(hr, r, "/users/:userId/progress/:movieId", h.GetProgress)
	server.GET(hr, r, "/users/:userId/continue-watching", h.ContinueWatching)
	server.DELETE(hr, r, "/users/:userId/continue-watching/:movieId", h.RemoveFromContinueWatching)
}
