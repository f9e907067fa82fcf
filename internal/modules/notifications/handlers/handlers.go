// Package handlers provides HTTP handlers for push notifications.
package handlers

import (
	"context"
	"errors"

	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/service"
)

// Request types

type RegisterTokenRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

type TokenRequest struct {
	Token string `param:"token" binding:"required"`
}

type SendRequest struct {
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body" binding:"required"`
	ImageURL string `json:"imageUrl"`
	MovieID  string `json:"movieId"`
	UserID   string `json:"userId"`
}

// NotificationServiceInterface defines the service contract for handlers.
type NotificationServiceInterface interface {
	RegisterToken(ctx context.Context, userID, token, platform string) error
	UnregisterToken(ctx context.Context, token string) error
	Send(ctx context.Context, n service.Notification) (*service.SendResult, error)
}

type NotificationHandler struct {
	service NotificationServiceInterface
	logger  logger.Logger
}

func NewNotificationHandler(s NotificationServiceInterface, l logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: s,
		logger:  l,
	}
}

// RegisterToken handles POST /notifications/tokens.
func (h *NotificationHandler) RegisterToken(req RegisterTokenRequest, ctx server.HandlerContext) (server.NoContentResult, server.IAPIError) {
	if err := h.service.RegisterToken(ctx.Echo.Request().Context(), req.UserID, req.Token, req.Platform); err != nil {
		if errors.Is(err, service.ErrValidation) {
			return server.NoContentResult{}, server.NewBadRequestError(err.Error())
		}
		return server.NoContentResult{}, server.NewInternalServerError("Failed to register device token")
	}
	return server.NoContent(), nil
}

// UnregisterToken handles DELETE /notifications/tokens/:token.
func (h *NotificationHandler) UnregisterToken(req TokenRequest, ctx server.HandlerContext) (server.NoContentResult, server.IAPIError) {
	if err := h.service.UnregisterToken(ctx.Echo.Request().Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			return server.NoContentResult{}, server.NewNotFoundError("Device token")
		}
		h.logger.Error().Err(err).Msg("Failed to remove device token")
		return server.NoContentResult{}, server.NewInternalServerError("Failed to remove device token")
	}
	return server.NoContent(), nil
}

// Send handles POST /notifications/send.
func (h *NotificationHandler) Send(req SendRequest, ctx server.HandlerContext) (*service.SendResult, server.IAPIError) {
	result, err := h.service.Send(ctx.Echo.Request().Context(), service.Notification{
		Title:    req.Title,
		Body:     req.Body,
		ImageURL: req.ImageURL,
		MovieID:  req.MovieID,
		UserID:   req.UserID,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return nil, server.NewBadRequestError(err.Error())
		}
		h.logger.Error().Err(err).Msg("Failed to send notification")
		return nil, server.NewInternalServerError("Failed to send notification")
	}
	return result, nil
}

func (h *NotificationHandler) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.POST(hr, r, "/notifications/tokens", h.RegisterToken)
	server.DELETE(hr, r, "/notifications/tokens/:token", h.UnregisterToken)
	server.POST(hr, r, "/notifications/send", h.Send)
}
