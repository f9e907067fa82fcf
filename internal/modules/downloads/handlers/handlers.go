// Package handlers provides HTTP handlers for offline downloads.
package handlers

import (
	"context"
	"errors"

	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"

	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/store"
)

// Request types

type StartDownloadRequest struct {
	MovieID      string `json:"movieId" binding:"required"`
	Season       int    `json:"season"`
	Episode      int    `json:"episode"`
	EpisodeTitle string `json:"episodeTitle"`
	SourceURL    string `json:"sourceUrl"`
}

type DownloadRequest struct {
	ID string `param:"id" binding:"required"`
}

type ListDownloadsRequest struct{}

// Response types

type ListDownloadsResponse struct {
	Downloads []*domain.Download `json:"downloads"`
	Total     int                `json:"total"`
}

// DownloadServiceInterface defines the service contract for handlers.
type DownloadServiceInterface interface {
	Enqueue(ctx context.Context, in service.EnqueueInput) (*domain.Download, error)
	Get(ctx context.Context, id string) (*domain.Download, error)
	List(ctx context.Context) []*domain.Download
	Delete(ctx context.Context, id string) error
}

type DownloadHandler struct {
	service DownloadServiceInterface
	logger  logger.Logger
}

func NewDownloadHandler(s DownloadServiceInterface, l logger.Logger) *DownloadHandler {
	return &DownloadHandler{
		service: s,
		logger:  l,
	}
}

// StartDownload handles POST /downloads.
func (h *DownloadHandler) StartDownload(req StartDownloadRequest, ctx server.HandlerContext) (server.Result[*domain.Download], server.IAPIError) {
	dl, err := h.service.Enqueue(ctx.Echo.Request().Context(), service.EnqueueInput{
		MovieID:      req.MovieID,
		Season:       req.Season,
		Episode:      req.Episode,
		EpisodeTitle: req.EpisodeTitle,
		SourceURL:    req.SourceURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return server.Result[*domain.Download]{}, server.NewBadRequestError(err.Error())
		case errors.Is(err, catalogrepo.ErrMovieNotFound):
			return server.Result[*domain.Download]{}, server.NewNotFoundError("Movie")
		}
		h.logger.Error().Err(err).Str("movieId", req.MovieID).Msg("Failed to start download")
		return server.Result[*domain.Download]{}, server.NewInternalServerError("Failed to start download")
	}

	return server.Created(dl), nil
}

// ListDownloads handles GET /downloads.
func (h *DownloadHandler) ListDownloads(_ ListDownloadsRequest, ctx server.HandlerContext) (*ListDownloadsResponse, server.IAPIError) {
	downloads := h.service.List(ctx.Echo.Request().Context())
	return &ListDownloadsResponse{Downloads: downloads, Total: len(downloads)}, nil
}

// GetDownload handles GET /downloads/:id.
func (h *DownloadHandler) GetDownload(req DownloadRequest, ctx server.HandlerContext) (*domain.Download, server.IAPIError) {
	dl, err := h.service.Get(ctx.Echo.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, store.ErrDownloadNotFound) {
			return nil, server.NewNotFoundError("Download")
		}
		h.logger.Error().Err(err).Str("downloadId", req.ID).Msg("Failed to get download")
		return nil, server.NewInternalServerError("Failed to retrieve download")
	}
	return dl, nil
}

// DeleteDownload handles DELETE /downloads/:id.
func (h *DownloadHandler) DeleteDownload(req DownloadRequest, ctx server.HandlerContext) (server.NoContentResult, server.IAPIError) {
	if err := h.service.Delete(ctx.Echo.Request().Context(), req.ID); err != nil {
		if errors.Is(err, store.ErrDownloadNotFound) {
			return server.NoContentResult{}, server.NewNotFoundError("Download")
		}
		h.logger.Error().Err(err).Str("downloadId", req.ID).Msg("Failed to delete download")
		return server.NoContentResult{}, server.NewInternalServerError("Failed to delete download")
	}
	return server.NoContent(), nil
}

func (h *DownloadHandler) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.POST(hr, r, "/downloads", h.StartDownload)
	server.GET(hr, r, "/downloads", h.ListDownloads)
	server.GET(hr, r, "/downloads/:id", h.GetDownload)
	server.DELETE(hr, r, "/downloads/:id", h.DeleteDownload)
}
