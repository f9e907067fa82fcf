package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/config"
	catalogdomain "github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/scorer"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type mockRepository struct {
	recordViewFunc func(ctx context.Context, view *domain.ViewEvent) error
	historiesFunc  func(ctx context.Context, since time.Time) (map[string]scorer.History, error)
	historyFunc    func(ctx context.Context, movieID string, since time.Time) (scorer.History, error)
	rollupFunc     func(ctx context.Context, cutoff time.Time, tz string) (int64, error)
}

func (m *mockRepository) RecordView(ctx context.Context, view *domain.ViewEvent) error {
	if m.recordViewFunc != nil {
		return m.recordViewFunc(ctx, view)
	}
	return nil
}

func (m *mockRepository) Histories(ctx context.Context, since time.Time) (map[string]scorer.History, error) {
	if m.historiesFunc != nil {
		return m.historiesFunc(ctx, since)
	}
	return map[string]scorer.History{}, nil
}

func (m *mockRepository) History(ctx context.Context, movieID string, since time.Time) (scorer.History, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, movieID, since)
	}
	return scorer.History{}, nil
}

func (m *mockRepository) Rollup(ctx context.Context, cutoff time.Time, tz string) (int64, error) {
	if m.rollupFunc != nil {
		return m.rollupFunc(ctx, cutoff, tz)
	}
	return 0, nil
}

type mockCatalog struct {
	movies       []*catalogdomain.Movie
	listErr      error
	incrementErr error
	incremented  []string
}

func (m *mockCatalog) ListAll(ctx context.Context) ([]*catalogdomain.Movie, error) {
	return m.movies, m.listErr
}

func (m *mockCatalog) GetMovie(ctx context.Context, id string) (*catalogdomain.Movie, error) {
	for _, movie := range m.movies {
		if movie.ID == id {
			return movie, nil
		}
	}
	return nil, catalogrepo.ErrMovieNotFound
}

func (m *mockCatalog) IncrementViews(ctx context.Context, id string) error {
	m.incremented = append(m.incremented, id)
	return m.incrementErr
}

func newTestService(repo *mockRepository, catalog *mockCatalog) *TrendingService {
	svc := NewService(repo, catalog, config.TrendingConfig{
		Timezone:  "UTC",
		Limit:     50,
		Retention: 8 * 24 * time.Hour,
	}, logger.New("info", false))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func movie(id string, views int64, age time.Duration) *catalogdomain.Movie {
	return &catalogdomain.Movie{ID: id, Title: id, Views: views, UploadDate: fixedNow.Add(-age)}
}

func TestTrackView(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		movieID      string
		viewType     string
		repoErr      error
		incrementErr error
		wantErr      bool
		wantType     domain.ViewType
	}{
		{name: "play", movieID: "m1", viewType: "play", wantType: domain.ViewPlay},
		{name: "default type is play", movieID: "m1", wantType: domain.ViewPlay},
		{name: "visit", movieID: "m1", viewType: "visit", wantType: domain.ViewVisit},
		{name: "unknown type", movieID: "m1", viewType: "download", wantErr: true},
		{name: "missing movie id", viewType: "play", wantErr: true},
		{name: "repository error", movieID: "m1", repoErr: errors.New("database error"), wantErr: true},
		{name: "counter failure is not fatal", movieID: "m1", incrementErr: errors.New("database error"), wantType: domain.ViewPlay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recorded *domain.ViewEvent
			catalog := &mockCatalog{incrementErr: tt.incrementErr}
			svc := newTestService(&mockRepository{
				recordViewFunc: func(ctx context.Context, view *domain.ViewEvent) error {
					recorded = view
					return tt.repoErr
				},
			}, catalog)

			err := svc.TrackView(ctx, tt.movieID, tt.viewType)

			if tt.wantErr {
				if err == nil {
					t.Error("TrackView() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("TrackView() unexpected error = %v", err)
			}
			if recorded.Type != tt.wantType {
				t.Errorf("recorded type = %v, want %v", recorded.Type, tt.wantType)
			}
			if !recorded.Timestamp.Equal(fixedNow) {
				t.Errorf("recorded timestamp = %v, want %v", recorded.Timestamp, fixedNow)
			}
			if len(catalog.incremented) != 1 {
				t.Errorf("IncrementViews calls = %d, want 1", len(catalog.incremented))
			}
		})
	}
}

func TestTrackViewValidation(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockCatalog{})

	if err := svc.TrackView(context.Background(), "m1", "bogus"); !errors.Is(err, ErrValidation) {
		t.Errorf("TrackView() error = %v, want %v", err, ErrValidation)
	}
}

func TestTrending(t *testing.T) {
	ctx := context.Background()
	catalog := &mockCatalog{movies: []*catalogdomain.Movie{
		movie("legacy", 100, 90*24*time.Hour),
		movie("hot", 0, 30*24*time.Hour),
		movie("nothing", 0, 90*24*time.Hour),
	}}

	var since time.Time
	svc := newTestService(&mockRepository{
		historiesFunc: func(ctx context.Context, s time.Time) (map[string]scorer.History, error) {
			since = s
			events := make([]time.Time, 10)
			for i := range events {
				events[i] = fixedNow.Add(-time.Duration(i+1) * time.Minute)
			}
			return map[string]scorer.History{"hot": {Events: events, Total: 10}}, nil
		},
	}, catalog)

	ranked, err := svc.Trending(ctx, 0)
	if err != nil {
		t.Fatalf("Trending() unexpected error = %v", err)
	}
	if !since.Equal(fixedNow.Add(-7 * 24 * time.Hour)) {
		t.Errorf("history window start = %v", since)
	}
	if len(ranked) != 2 {
		t.Fatalf("Trending() returned %d items, want 2", len(ranked))
	}
	if ranked[0].Movie.ID != "hot" || ranked[1].Movie.ID != "legacy" {
		t.Errorf("Trending() order = %s, %s", ranked[0].Movie.ID, ranked[1].Movie.ID)
	}
	if ranked[1].Stats.FinalScore != 50 {
		t.Errorf("legacy FinalScore = %v, want 50", ranked[1].Stats.FinalScore)
	}
}

func TestTrendingDegradesWhenHistoryFails(t *testing.T) {
	catalog := &mockCatalog{movies: []*catalogdomain.Movie{
		movie("a", 10, 90*24*time.Hour),
		movie("b", 30, 90*24*time.Hour),
	}}
	svc := newTestService(&mockRepository{
		historiesFunc: func(ctx context.Context, since time.Time) (map[string]scorer.History, error) {
			return nil, errors.New("analytics database down")
		},
	}, catalog)

	ranked, err := svc.Trending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Trending() unexpected error = %v", err)
	}
	if len(ranked) != 2 || ranked[0].Movie.ID != "b" {
		t.Errorf("Trending() should rank by lifetime views, got %+v", ranked)
	}
}

func TestTrendingCatalogError(t *testing.T) {
	svc := newTestService(&mockRepository{}, &mockCatalog{listErr: errors.New("database error")})

	if _, err := svc.Trending(context.Background(), 10); err == nil {
		t.Error("Trending() expected error, got nil")
	}
}

func TestMovieStats(t *testing.T) {
	catalog := &mockCatalog{movies: []*catalogdomain.Movie{movie("m1", 4, 0)}}
	svc := newTestService(&mockRepository{
		historyFunc: func(ctx context.Context, movieID string, since time.Time) (scorer.History, error) {
			return scorer.History{Events: []time.Time{fixedNow.Add(-time.Hour)}, Total: 4}, nil
		},
	}, catalog)

	stats, err := svc.MovieStats(context.Background(), "m1")
	if err != nil {
		t.Fatalf("MovieStats() unexpected error = %v", err)
	}
	if stats.RecencyBonus != 35 {
		t.Errorf("RecencyBonus = %v, want 35", stats.RecencyBonus)
	}
	if stats.TodayViews != 1 || stats.TotalViews != 4 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := svc.MovieStats(context.Background(), "missing"); !errors.Is(err, catalogrepo.ErrMovieNotFound) {
		t.Errorf("MovieStats() error = %v, want %v", err, catalogrepo.ErrMovieNotFound)
	}
}

func TestRollupUsesRetention(t *testing.T) {
	var gotCutoff time.Time
	var gotTZ string
	svc := newTestService(&mockRepository{
		rollupFunc: func(ctx context.Context, cutoff time.Time, tz string) (int64, error) {
			gotCutoff, gotTZ = cutoff, tz
			return 12, nil
		},
	}, &mockCatalog{})

	moved, err := svc.Rollup(context.Background())
	if err != nil {
		t.Fatalf("Rollup() unexpected error = %v", err)
	}
	if moved != 12 {
		t.Errorf("Rollup() = %d, want 12", moved)
	}
	if !gotCutoff.Equal(fixedNow.Add(-8 * 24 * time.Hour)) {
		t.Errorf("cutoff = %v", gotCutoff)
	}
	if gotTZ != "UTC" {
		t.Errorf("tz = %v, want UTC", gotTZ)
	}
}
