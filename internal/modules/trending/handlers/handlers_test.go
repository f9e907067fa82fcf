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

	catalogdomain "github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/scorer"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/service"
)

type mockService struct {
	trackViewFunc  func(ctx context.Context, movieID, viewType string) error
	trendingFunc   func(ctx context.Context, limit int) ([]*domain.RankedMovie, error)
	movieStatsFunc func(ctx context.Context, movieID string) (*scorer.Stats, error)
}

func (m *mockService) TrackView(ctx context.Context, movieID, viewType string) error {
	if m.trackViewFunc != nil {
		return m.trackViewFunc(ctx, movieID, viewType)
	}
	return errors.New("not implemented")
}

func (m *mockService) Trending(ctx context.Context, limit int) ([]*domain.RankedMovie, error) {
	if m.trendingFunc != nil {
		return m.trendingFunc(ctx, limit)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) MovieStats(ctx context.Context, movieID string) (*scorer.Stats, error) {
	if m.movieStatsFunc != nil {
		return m.movieStatsFunc(ctx, movieID)
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

func TestRecordView(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "recorded", wantStatus: http.StatusNoContent},
		{name: "invalid type", serviceErr: fmt.Errorf("%w: type must be play or visit", service.ErrValidation), wantStatus: http.StatusBadRequest},
		{name: "storage failure", serviceErr: errors.New("database error"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTrendingHandler(&mockService{
				trackViewFunc: func(ctx context.Context, movieID, viewType string) error {
					return tt.serviceErr
				},
			}, logger.New("info", false))

			result, apiErr := handler.RecordView(RecordViewRequest{MovieID: "m1", Type: "play"}, newHandlerContext())
			if apiErr != nil {
				if apiErr.HTTPStatus() != tt.wantStatus {
					t.Errorf("RecordView() status = %v, want %v", apiErr.HTTPStatus(), tt.wantStatus)
				}
				return
			}
			if status, _, _ := result.ResultMeta(); status != tt.wantStatus {
				t.Errorf("RecordView() status = %v, want %v", status, tt.wantStatus)
			}
		})
	}
}

func TestGetTrending(t *testing.T) {
	var gotLimit int
	handler := NewTrendingHandler(&mockService{
		trendingFunc: func(ctx context.Context, limit int) ([]*domain.RankedMovie, error) {
			gotLimit = limit
			return []*domain.RankedMovie{
				{Movie: &catalogdomain.Movie{ID: "a", Title: "A", Views: 3}, Stats: scorer.Stats{MovieID: "a", FinalScore: 12}},
			}, nil
		},
	}, logger.New("info", false))

	response, apiErr := handler.GetTrending(TrendingRequest{Limit: 10}, newHandlerContext())
	if apiErr != nil {
		t.Fatalf("GetTrending() unexpected error = %v", apiErr)
	}
	if gotLimit != 10 {
		t.Errorf("limit passed = %d, want 10", gotLimit)
	}
	if len(response.Items) != 1 || response.Items[0].Stats.FinalScore != 12 {
		t.Errorf("GetTrending() items = %+v", response.Items)
	}

	if _, apiErr := handler.GetTrending(TrendingRequest{Limit: -1}, newHandlerContext()); apiErr == nil || apiErr.ErrorCode() != "BAD_REQUEST" {
		t.Errorf("GetTrending(-1) error = %v, want BAD_REQUEST", apiErr)
	}
}

func TestGetMovieStats(t *testing.T) {
	handler := NewTrendingHandler(&mockService{
		movieStatsFunc: func(ctx context.Context, movieID string) (*scorer.Stats, error) {
			if movieID == "missing" {
				return nil, catalogrepo.ErrMovieNotFound
			}
			return &scorer.Stats{MovieID: movieID, RecencyBonus: 35}, nil
		},
	}, logger.New("info", false))

	stats, apiErr := handler.GetMovieStats(MovieStatsRequest{MovieID: "m1"}, newHandlerContext())
	if apiErr != nil || stats.RecencyBonus != 35 {
		t.Errorf("GetMovieStats() = %+v, %v", stats, apiErr)
	}

	_, apiErr = handler.GetMovieStats(MovieStatsRequest{MovieID: "missing"}, newHandlerContext())
	if apiErr == nil || apiErr.HTTPStatus() != http.StatusNotFound {
		t.Errorf("GetMovieStats(missing) error = %v, want 404", apiErr)
	}
}
