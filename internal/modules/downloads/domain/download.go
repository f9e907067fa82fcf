// Package domain holds offline download records.
package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Download is one offline copy of a movie or episode. Times are epoch milliseconds.
type Download struct {
	ID           string `json:"id"`
	MovieID      string `json:"movieId"`
	Title        string `json:"title"`
	Poster       string `json:"poster"`
	Backdrop     string `json:"backdrop,omitempty"`
	EpisodeTitle string `json:"episodeTitle,omitempty"`
	Season       int    `json:"season,omitempty"`
	Episode      int    `json:"episode,omitempty"`
	SourceURL    string `json:"sourceUrl"`
	Status       Status `json:"status"`
	Progress     int    `json:"progress"`
	FileSize     int64  `json:"fileSize,omitempty"`
	Error        string `json:"error,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	DownloadedAt int64  `json:"downloadedAt,omitempty"`
}

// Clone returns a copy safe to hand to callers outside the store.
func (d *Download) Clone() *Download {
	c := *d
	return &c
}

// Finished reports whether the download reached a terminal status.
func (d *Download) Finished() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}

// NewID builds "movieId_season_episode_unixms"; season and episode are 0 for movies.
func NewID(movieID string, season, episode int, at time.Time) string {
	return fmt.Sprintf("%s_%d_%d_%d", movieID, season, episode, at.UnixMilli())
}
