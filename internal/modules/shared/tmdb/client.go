// Package tmdb is a small client for The Movie Database v3 REST API used by
// the catalog importer. Requests are rate limited and pass through a circuit
// breaker so a TMDB outage does not pile up admin requests.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/go-bricks/logger"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ugawatch/ugawatch-api/internal/config"
)

const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

var (
	ErrNotFound         = errors.New("tmdb: not found")
	ErrInvalidMediaType = errors.New("tmdb: media type must be movie or tv")
	ErrUnavailable      = errors.New("tmdb: service unavailable")
)

// KeySource supplies the API key. secrets.CredentialStore satisfies it.
type KeySource interface {
	TMDBAPIKey(ctx context.Context) (string, error)
}

// Title is a movie or series as returned by search and details calls,
// normalized across the two media types.
type Title struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"mediaType"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"posterPath"`
	BackdropPath string  `json:"backdropPath"`
	ReleaseDate  string  `json:"releaseDate"`
	Year         int     `json:"year"`
	Rating       float64 `json:"rating"`
}

type rawTitle struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
}

func (r rawTitle) normalize(mediaType string) Title {
	t := Title{
		ID:           r.ID,
		MediaType:    mediaType,
		Title:        r.Title,
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  r.ReleaseDate,
		Rating:       r.VoteAverage,
	}
	if mediaType == MediaTV {
		t.Title = r.Name
		t.ReleaseDate = r.FirstAirDate
	}
	if len(t.ReleaseDate) >= 4 {
		t.Year, _ = strconv.Atoi(t.ReleaseDate[:4])
	}
	return t
}

type searchResponse struct {
	Results []rawTitle `json:"results"`
}

// Client calls the TMDB API.
type Client struct {
	http    *http.Client
	keys    KeySource
	baseURL string
	images  string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	logger  logger.Logger
}

func NewClient(cfg config.TMDBConfig, keys KeySource, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		http:    &http.Client{Timeout: timeout},
		keys:    keys,
		baseURL: strings.TrimRight(cfg.API, "/"),
		images:  strings.TrimRight(cfg.Images, "/"),
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), burst),
		logger:  log,
	}

	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb-api",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing title is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("TMDB circuit breaker state changed")
		},
	})

	return c
}

// Search finds movies or series matching query.
func (c *Client) Search(ctx context.Context, query, mediaType string) ([]Title, error) {
	if mediaType == "" {
		mediaType = MediaMovie
	}
	if mediaType != MediaMovie && mediaType != MediaTV {
		return nil, ErrInvalidMediaType
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []Title{}, nil
	}

	body, err := c.get(ctx, "/search/"+mediaType, url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode TMDB search response: %w", err)
	}

	titles := make([]Title, len(resp.Results))
	for i, r := range resp.Results {
		titles[i] = r.normalize(mediaType)
	}
	return titles, nil
}

// Details fetches a single movie or series by TMDB id.
func (c *Client) Details(ctx context.Context, id int, mediaType string) (*Title, error) {
	if mediaType == "" {
		mediaType = MediaMovie
	}
	if mediaType != MediaMovie && mediaType != MediaTV {
		return nil, ErrInvalidMediaType
	}

	body, err := c.get(ctx, fmt.Sprintf("/%s/%d", mediaType, id), nil)
	if err != nil {
		return nil, err
	}

	var raw rawTitle
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode TMDB details response: %w", err)
	}

	title := raw.normalize(mediaType)
	return &title, nil
}

// ImageURL expands a TMDB image path ("/abc.jpg") to a full URL at the given size.
// Empty paths stay empty.
func (c *Client) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "original"
	}
	return c.images + "/" + size + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb rate limiter: %w", err)
	}

	key, err := c.keys.TMDBAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve TMDB API key: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", key)
	endpoint := c.baseURL + path + "?" + params.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Err(err).Str("path", path).Msg("TMDB request rejected by circuit breaker")
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build TMDB request: %w", redactURLError(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TMDB request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read TMDB response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("TMDB returned status %d", resp.StatusCode)
	}
	return body, nil
}

// redactURLError drops the query string, which carries the API key, from
// errors that embed the request URL.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL, _, _ = strings.Cut(urlErr.URL, "?")
	}
	return err
}

// State reports the breaker state, for diagnostics.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}
