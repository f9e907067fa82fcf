// Package domain contains the domain models for the trending module.
package domain

import (
	"time"

	catalog "github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/scorer"
)

// ViewType distinguishes a playback start from a detail-page visit.
type ViewType string

const (
	ViewPlay  ViewType = "play"
	ViewVisit ViewType = "visit"
)

// ParseViewType defaults an empty type to play.
func ParseViewType(s string) (ViewType, bool) {
	switch ViewType(s) {
	case "", ViewPlay:
		return ViewPlay, true
	case ViewVisit:
		return ViewVisit, true
	default:
		return "", false
	}
}

// ViewEvent is a single append-only view record.
type ViewEvent struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movieId"`
	Timestamp time.Time `json:"timestamp"`
	Type      ViewType  `json:"type"`
}

// ViewEventEntity is the database entity for view events.
type ViewEventEntity struct {
	ID       string    `db:"id"`
	MovieID  string    `db:"movie_id"`
	ViewedAt time.Time `db:"viewed_at"`
	Type     string    `db:"view_type"`
}

func (e *ViewEventEntity) TableName() string {
	return "movie_views"
}

func NewViewEvent(movieID string, viewType ViewType, at time.Time) *ViewEvent {
	return &ViewEvent{
		MovieID:   movieID,
		Timestamp: at.UTC(),
		Type:      viewType,
	}
}

func (v *ViewEvent) ToEntity() *ViewEventEntity {
	return &ViewEventEntity{
		ID:       v.ID,
		MovieID:  v.MovieID,
		ViewedAt: v.Timestamp,
		Type:     string(v.Type),
	}
}

// RankedMovie is one entry of the trending list.
type RankedMovie struct {
	Movie *catalog.Movie
	Stats scorer.Stats
}

// ScorerInput converts catalog records into scorer input, preserving order.
func ScorerInput(movies []*catalog.Movie) []scorer.Movie {
	in := make([]scorer.Movie, len(movies))
	for i, m := range movies {
		in[i] = scorer.Movie{ID: m.ID, Views: m.Views, UploadDate: m.UploadDate}
	}
	return in
}
