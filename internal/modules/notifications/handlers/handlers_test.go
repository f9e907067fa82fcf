package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaborage/go-bricks/config"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"
	"github.com/labstack/echo/v5"

	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/service"
)

type mockService struct {
	registerFunc   func(ctx context.Context, userID, token, platform string) error
	unregisterFunc func(ctx context.Context, token string) error
	sendFunc       func(ctx context.Context, n service.Notification) (*service.SendResult, error)
}

func (m *mockService) RegisterToken(ctx context.Context, userID, token, platform string) error {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, userID, token, platform)
	}
	return errors.New("not implemented")
}

func (m *mockService) UnregisterToken(ctx context.Context, token string) error {
	if m.unregisterFunc != nil {
		return m.unregisterFunc(ctx, token)
	}
	return errors.New("not implemented")
}

func (m *mockService) Send(ctx context.Context, n service.Notification) (*service.SendResult, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, n)
	}
	return nil, errors.New("not implemented")
}

func newHandlerContext() server.HandlerContext {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return server.HandlerContext{
		Echo: e.NewContext(req, rec),
		Config: &config.Config{
			App: config.AppConfig{Name: "test", Version: "1.0.0", Env: "test", Debug: true},
		},
	}
}

func TestRegisterToken(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "registered", wantStatus: http.StatusNoContent},
		{name: "invalid platform", err: fmt.Errorf("%w: platform", service.ErrValidation), wantStatus: http.StatusBadRequest},
		{name: "storage failure", err: errors.New("database error"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewNotificationHandler(&mockService{
				registerFunc: func(ctx context.Context, userID, token, platform string) error {
					return tt.err
				},
			}, logger.New("info", false))

			result, apiErr := handler.RegisterToken(RegisterTokenRequest{UserID: "u1", Token: "tok", Platform: "ios"}, newHandlerContext())
			if apiErr != nil {
				if apiErr.HTTPStatus() != tt.wantStatus {
					t.Errorf("RegisterToken() status = %v, want %v", apiErr.HTTPStatus(), tt.wantStatus)
				}
				return
			}
			if status, _, _ := result.ResultMeta(); status != tt.wantStatus {
				t.Errorf("RegisterToken() status = %v, want %v", status, tt.wantStatus)
			}
		})
	}
}

func TestUnregisterToken(t *testing.T) {
	handler := NewNotificationHandler(&mockService{
		unregisterFunc: func(ctx context.Context, token string) error {
			if token == "missing" {
				return service.ErrTokenNotFound
			}
			return nil
		},
	}, logger.New("info", false))

	if _, apiErr := handler.UnregisterToken(TokenRequest{Token: "tok"}, newHandlerContext()); apiErr != nil {
		t.Errorf("UnregisterToken() unexpected error = %v", apiErr)
	}
	if _, apiErr := handler.UnregisterToken(TokenRequest{Token: "missing"}, newHandlerContext()); apiErr == nil || apiErr.ErrorCode() != "NOT_FOUND" {
		t.Errorf("UnregisterToken(missing) error = %v, want NOT_FOUND", apiErr)
	}
}

func TestSend(t *testing.T) {
	var got service.Notification
	handler := NewNotificationHandler(&mockService{
		sendFunc: func(ctx context.Context, n service.Notification) (*service.SendResult, error) {
			got = n
			return &service.SendResult{Sent: 2, Failed: 1, Pruned: 1}, nil
		},
	}, logger.New("info", false))

	result, apiErr := handler.Send(SendRequest{Title: "New", Body: "Queen of Katwe", MovieID: "m1"}, newHandlerContext())
	if apiErr != nil {
		t.Fatalf("Send() unexpected error = %v", apiErr)
	}
	if result.Sent != 2 || result.Pruned != 1 {
		t.Errorf("Send() = %+v", result)
	}
	if got.MovieID != "m1" || got.UserID != "" {
		t.Errorf("service notification = %+v", got)
	}
}
