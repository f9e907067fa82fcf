// Package domain holds watch-progress records and the playback thresholds
// that decide when a title is resumable or finished.
package domain

import (
	"math"
)

const (
	// ResumeMinPercent is the exclusive lower bound for offering resume.
	ResumeMinPercent = 5
	// CompletedPercent is the point at which a title counts as watched.
	CompletedPercent = 95
)

// Episode identifies the episode a series record refers to.
type Episode struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title"`
}

// Metadata is the display data copied onto each record.
type Metadata struct {
	Title    string
	Poster   string
	Backdrop string
}

// ContinueWatchingItem is the resume state for one (user, title) pair. For a
// series it holds the most recently watched episode only.
type ContinueWatchingItem struct {
	UserID      string   `json:"-"`
	MovieID     string   `json:"movieId"`
	Title       string   `json:"title"`
	Poster      string   `json:"poster"`
	Backdrop    string   `json:"backdrop"`
	Progress    int      `json:"progress"`
	CurrentTime float64  `json:"currentTime"`
	Duration    float64  `json:"duration"`
	Timestamp   int64    `json:"timestamp"`
	IsSeries    bool     `json:"isSeries"`
	Episode     *Episode `json:"episode,omitempty"`
}

// ComputeProgress returns the watched percentage rounded to an integer in
// [0, 100]. ok is false when duration is zero, negative or not finite, or
// currentTime is not finite.
func ComputeProgress(currentTime, duration float64) (int, bool) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return 0, false
	}
	if math.IsNaN(currentTime) || math.IsInf(currentTime, 0) {
		return 0, false
	}

	p := math.Round(currentTime / duration * 100)
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	return int(p), true
}

func InContinueWatching(progress int) bool {
	return progress < CompletedPercent
}

func ShouldOfferResume(progress int) bool {
	return progress > ResumeMinPercent && progress < CompletedPercent
}

func IsCompleted(progress int) bool {
	return progress >= CompletedPercent
}

// ResumePosition is where playback should start: the saved position when
// resume is offered, otherwise the beginning.
func ResumePosition(item *ContinueWatchingItem) float64 {
	if item == nil || !ShouldOfferResume(item.Progress) {
		return 0
	}
	return item.CurrentTime
}

// ProgressEntity is the database entity. Episode columns are zero for movies.
type ProgressEntity struct {
	UserID       string  `db:"user_id"`
	MovieID      string  `db:"movie_id"`
	Title        string  `db:"title"`
	Poster       string  `db:"poster"`
	Backdrop     string  `db:"backdrop"`
	Progress     int     `db:"progress"`
	Position     float64 `db:"position_seconds"`
	Duration     float64 `db:"duration_seconds"`
	UpdatedAt    int64   `db:"updated_at"`
	IsSeries     bool    `db:"is_series"`
	Season       int     `db:"season"`
	EpisodeNum   int     `db:"episode"`
	EpisodeTitle string  `db:"episode_title"`
}

func (e *ProgressEntity) TableName() string {
	return "watch_progress"
}

func (e *ProgressEntity) Columns() []string {
	return []string{"user_id", "movie_id", "title", "poster", "backdrop", "progress", "position_seconds",
		"duration_seconds", "updated_at", "is_series", "season", "episode", "episode_title"}
}

func (e *ProgressEntity) ScanTargets() []any {
	return []any{&e.UserID, &e.MovieID, &e.Title, &e.Poster, &e.Backdrop, &e.Progress, &e.Position,
		&e.Duration, &e.UpdatedAt, &e.IsSeries, &e.Season, &e.EpisodeNum, &e.EpisodeTitle}
}

func (e *ProgressEntity) Values() []any {
	return []any{e.UserID, e.MovieID, e.Title, e.Poster, e.Backdrop, e.Progress, e.Position,
		e.Duration, e.UpdatedAt, e.IsSeries, e.Season, e.EpisodeNum, e.EpisodeTitle}
}

func ToEntity(item *ContinueWatchingItem) *ProgressEntity {
	e := &ProgressEntity{
		UserID:    item.UserID,
		MovieID:   item.MovieID,
		Title:     item.Title,
		Poster:    item.Poster,
		Backdrop:  item.Backdrop,
		Progress:  item.Progress,
		Position:  item.CurrentTime,
		Duration:  item.Duration,
		UpdatedAt: item.Timestamp,
		IsSeries:  item.IsSeries,
	}
	if item.Episode != nil {
		e.Season = item.Episode.Season
		e.EpisodeNum = item.Episode.Episode
		e.EpisodeTitle = item.Episode.Title
	}
	return e
}

func ToItem(e *ProgressEntity) *ContinueWatchingItem {
	item := &ContinueWatchingItem{
		UserID:      e.UserID,
		MovieID:     e.MovieID,
		Title:       e.Title,
		Poster:      e.Poster,
		Backdrop:    e.Backdrop,
		Progress:    e.Progress,
		CurrentTime: e.Position,
		Duration:    e.Duration,
		Timestamp:   e.UpdatedAt,
		IsSeries:    e.IsSeries,
	}
	if e.IsSeries && (e.Season > 0 || e.EpisodeNum > 0 || e.EpisodeTitle != "") {
		item.Episode = &Episode{Season: e.Season, Episode: e.EpisodeNum, Title: e.EpisodeTitle}
	}
	return item
}
