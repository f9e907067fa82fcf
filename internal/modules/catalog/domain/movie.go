// Package domain holds the catalog's movie and series records.
package domain

import (
	"fmt"
	"time"
)

var (
	ErrInvalidMovie = fmt.Errorf("invalid movie data")
)

// Movie is a catalog title. Views is the denormalized lifetime play counter
// that trending falls back to when a title has no recorded view events.
type Movie struct {
	ID          string    `json:"id"`
	TMDBID      int       `json:"tmdbId"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	PosterURL   string    `json:"posterUrl"`
	BackdropURL string    `json:"backdropUrl"`
	VideoURL    string    `json:"videoUrl"`
	IsSeries    bool      `json:"isSeries"`
	Year        int       `json:"year"`
	Rating      float64   `json:"rating"`
	Views       int64     `json:"views"`
	UploadDate  time.Time `json:"uploadDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

// MovieInput carries the fields accepted when creating a title.
type MovieInput struct {
	TMDBID      int
	Title       string
	Overview    string
	PosterURL   string
	BackdropURL string
	VideoURL    string
	IsSeries    bool
	Year        int
	Rating      float64
}

// MovieUpdate is a partial update; nil fields are left unchanged.
type MovieUpdate struct {
	Title       *string
	Overview    *string
	PosterURL   *string
	BackdropURL *string
	VideoURL    *string
	IsSeries    *bool
	Year        *int
	Rating      *float64
}

func (u MovieUpdate) Empty() bool {
	return u.Title == nil && u.Overview == nil && u.PosterURL == nil && u.BackdropURL == nil &&
		u.VideoURL == nil && u.IsSeries == nil && u.Year == nil && u.Rating == nil
}

func New(id string, in MovieInput) *Movie {
	timestamp := time.Now().UTC()
	return &Movie{
		ID:          id,
		TMDBID:      in.TMDBID,
		Title:       in.Title,
		Overview:    in.Overview,
		PosterURL:   in.PosterURL,
		BackdropURL: in.BackdropURL,
		VideoURL:    in.VideoURL,
		IsSeries:    in.IsSeries,
		Year:        in.Year,
		Rating:      in.Rating,
		UploadDate:  timestamp,
		UpdatedDate: timestamp,
	}
}

func (m *Movie) Validate() error {
	if m.Title == "" {
		return ErrInvalidMovie
	}
	if m.Rating < 0 || m.Rating > 10 {
		return ErrInvalidMovie
	}
	if m.Views < 0 {
		return ErrInvalidMovie
	}
	return nil
}

type MovieEntity struct {
	ID          string    `db:"id"`
	TMDBID      int       `db:"tmdb_id"`
	Title       string    `db:"title"`
	Overview    string    `db:"overview"`
	PosterURL   string    `db:"poster_url"`
	BackdropURL string    `db:"backdrop_url"`
	VideoURL    string    `db:"video_url"`
	IsSeries    bool      `db:"is_series"`
	Year        int       `db:"year"`
	Rating      float64   `db:"rating"`
	Views       int64     `db:"views"`
	UploadDate  time.Time `db:"upload_date"`
	UpdatedDate time.Time `db:"updated_date"`
}

func (e *MovieEntity) TableName() string {
	return "movies"
}

// Columns lists the entity columns in scan order.
func (e *MovieEntity) Columns() []string {
	return []string{"id", "tmdb_id", "title", "overview", "poster_url", "backdrop_url", "video_url",
		"is_series", "year", "rating", "views", "upload_date", "updated_date"}
}

// ScanTargets returns pointers matching Columns.
func (e *MovieEntity) ScanTargets() []any {
	return []any{&e.ID, &e.TMDBID, &e.Title, &e.Overview, &e.PosterURL, &e.BackdropURL, &e.VideoURL,
		&e.IsSeries, &e.Year, &e.Rating, &e.Views, &e.UploadDate, &e.UpdatedDate}
}

func ToMovieEntity(m *Movie) *MovieEntity {
	return &MovieEntity{
		ID:          m.ID,
		TMDBID:      m.TMDBID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterURL:   m.PosterURL,
		BackdropURL: m.BackdropURL,
		VideoURL:    m.VideoURL,
		IsSeries:    m.IsSeries,
		Year:        m.Year,
		Rating:      m.Rating,
		Views:       m.Views,
		UploadDate:  m.UploadDate,
		UpdatedDate: m.UpdatedDate,
	}
}

func ToMovie(e *MovieEntity) *Movie {
	return &Movie{
		ID:          e.ID,
		TMDBID:      e.TMDBID,
		Title:       e.Title,
		Overview:    e.Overview,
		PosterURL:   e.PosterURL,
		BackdropURL: e.BackdropURL,
		VideoURL:    e.VideoURL,
		IsSeries:    e.IsSeries,
		Year:        e.Year,
		Rating:      e.Rating,
		Views:       e.Views,
		UploadDate:  e.UploadDate,
		UpdatedDate: e.UpdatedDate,
	}
}

func ToMovieList(entities []*MovieEntity) []*Movie {
	movies := make([]*Movie, len(entities))
	for i, e := range entities {
		movies[i] = ToMovie(e)
	}
	return movies
}
