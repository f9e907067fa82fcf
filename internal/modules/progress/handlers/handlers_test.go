package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaborage/go-bricks/config"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/server"
	"github.com/labstack/echo/v5"

	"github.com/ugawatch/ugawatch-api/internal/modules/progress/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/service"
)

type mockService struct {
	saveFunc     func(ctx context.Context, in service.SaveInput) (*domain.ContinueWatchingItem, error)
	getFunc      func(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error)
	continueFunc func(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error)
	removeFunc   func(ctx context.Context, userID, movieID string) error
}

func (m *mockService) SaveProgress(ctx context.Context, in service.SaveInput) (*domain.ContinueWatchingItem, error) {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetProgress(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, movieID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ContinueWatching(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error) {
	if m.continueFunc != nil {
		return m.continueFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) RemoveFromContinueWatching(ctx context.Context, userID, movieID string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, userID, movieID)
	}
	return errors.New("not implemented")
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

func TestSaveProgress(t *testing.T) {
	tests := []struct {
		name       string
		item       *domain.ContinueWatchingItem
		err        error
		wantSaved  bool
		wantStatus int
	}{
		{name: "saved", item: &domain.ContinueWatchingItem{MovieID: "m1", Progress: 40}, wantSaved: true},
		{name: "no-op", wantSaved: false},
		{name: "validation", err: service.ErrValidation, wantStatus: http.StatusBadRequest},
		{name: "stale", err: repository.ErrStaleProgress, wantStatus: http.StatusConflict},
		{name: "storage failure", err: errors.New("database error"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.SaveInput
			handler := NewProgressHandler(&mockService{
				saveFunc: func(ctx context.Context, in service.SaveInput) (*domain.ContinueWatchingItem, error) {
					got = in
					return tt.item, tt.err
				},
			}, logger.New("info", false))

			resp, apiErr := handler.SaveProgress(SaveProgressRequest{
				UserID: "u1", MovieID: "m1", Title: "Show", CurrentTime: 1440, Duration: 3600, IsSeries: true,
				Episode: &EpisodeRequest{Season: 1, Episode: 3, Title: "Pilot"},
			}, newHandlerContext())

			if tt.wantStatus != 0 {
				if apiErr == nil || apiErr.HTTPStatus() != tt.wantStatus {
					t.Fatalf("SaveProgress() error = %v, want status %d", apiErr, tt.wantStatus)
				}
				return
			}
			if apiErr != nil {
				t.Fatalf("SaveProgress() unexpected error = %v", apiErr)
			}
			if resp.Saved != tt.wantSaved {
				t.Errorf("SaveProgress() saved = %v, want %v", resp.Saved, tt.wantSaved)
			}
			if got.Episode == nil || got.Episode.Episode != 3 || got.Metadata.Title != "Show" {
				t.Errorf("service input = %+v", got)
			}
		})
	}
}

func TestGetProgress(t *testing.T) {
	handler := NewProgressHandler(&mockService{
		getFunc: func(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error) {
			switch movieID {
			case "missing":
				return nil, repository.ErrProgressNotFound
			case "finished":
				return &domain.ContinueWatchingItem{MovieID: movieID, Progress: 98, CurrentTime: 3500}, nil
			}
			return &domain.ContinueWatchingItem{MovieID: movieID, Progress: 40, CurrentTime: 1440}, nil
		},
	}, logger.New("info", false))

	resp, apiErr := handler.GetProgress(ProgressRequest{UserID: "u1", MovieID: "m1"}, newHandlerContext())
	if apiErr != nil {
		t.Fatalf("GetProgress() unexpected error = %v", apiErr)
	}
	if !resp.Resumable || resp.ResumeAt != 1440 {
		t.Errorf("GetProgress() resumable = %v resumeAt = %v", resp.Resumable, resp.ResumeAt)
	}

	resp, _ = handler.GetProgress(ProgressRequest{UserID: "u1", MovieID: "finished"}, newHandlerContext())
	if resp.Resumable || resp.ResumeAt != 0 {
		t.Errorf("GetProgress(finished) resumable = %v resumeAt = %v", resp.Resumable, resp.ResumeAt)
	}

	_, apiErr = handler.GetProgress(ProgressRequest{UserID: "u1", MovieID: "missing"}, newHandlerContext())
	if apiErr == nil || apiErr.ErrorCode() != "NOT_FOUND" {
		t.Errorf("GetProgress(missing) error = %v, want NOT_FOUND", apiErr)
	}
}

func TestContinueWatching(t *testing.T) {
	handler := NewProgressHandler(&mockService{
		continueFunc: func(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error) {
			return []*domain.ContinueWatchingItem{{MovieID: "m2"}, {MovieID: "m1"}}, nil
		},
	}, logger.New("info", false))

	resp, apiErr := handler.ContinueWatching(UserRequest{UserID: "u1"}, newHandlerContext())
	if apiErr != nil {
		t.Fatalf("ContinueWatching() unexpected error = %v", apiErr)
	}
	if len(resp.Items) != 2 {
		t.Errorf("ContinueWatching() returned %d items, want 2", len(resp.Items))
	}
}

func TestRemoveFromContinueWatching(t *testing.T) {
	handler := NewProgressHandler(&mockService{
		removeFunc: func(ctx context.Context, userID, movieID string) error {
			if movieID == "missing" {
				return repository.ErrProgressNotFound
			}
			return nil
		},
	}, logger.New("info", false))

	result, apiErr := handler.RemoveFromContinueWatching(ProgressRequest{UserID: "u1", MovieID: "m1"}, newHandlerContext())
	if apiErr != nil {
		t.Fatalf("RemoveFromContinueWatching() unexpected error = %v", apiErr)
	}
	if status, _, _ := result.ResultMeta(); status != http.StatusNoContent {
		t.Errorf("RemoveFromContinueWatching() status = %d, want 204", status)
	}

	_, apiErr = handler.RemoveFromContinueWatching(ProgressRequest{UserID: "u1", MovieID: "missing"}, newHandlerContext())
	if apiErr == nil || apiErr.HTTPStatus() != http.StatusNotFound {
		t.Errorf("RemoveFromContinueWatching(missing) error = %v, want 404", apiErr)
	}
}
