// Package repository stores view events in the analytics database. Raw events
// are kept for the scoring window; older ones are folded into per-day buckets.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gaborage/go-bricks/database"
	"github.com/google/uuid"

	"github.com/ugawatch/ugawatch-api/internal/modules/trending/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/scorer"
)

const (
	dbUnavailableErrMsg = "failed to get analytics database connection: %w"
)

// Repository defines the interface for view event data access.
type Repository interface {
	RecordView(ctx context.Context, view *domain.ViewEvent) error
	Histories(ctx context.Context, since time.Time) (map[string]scorer.History, error)
	History(ctx context.Context, movieID string, since time.Time) (scorer.History, error)
	Rollup(ctx context.Context, cutoff time.Time, tz string) (int64, error)
}

type ViewRepository struct {
	getDB func(context.Context) (database.Interface, error)
}

// NewViewRepository creates a repository over the analytics database getter.
func NewViewRepository(getDB func(context.Context) (database.Interface, error)) *ViewRepository {
	return &ViewRepository{
		getDB: getDB,
	}
}

// RecordView appends a view event.
func (r *ViewRepository) RecordView(ctx context.Context, view *domain.ViewEvent) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	if view.ID == "" {
		view.ID = uuid.New().String()
	}
	entity := view.ToEntity()

	qb := database.NewQueryBuilder(database.PostgreSQL)
	query, args, err := qb.Insert(entity.TableName()).
		Columns("id", "movie_id", "viewed_at", "view_type").
		Values(entity.ID, entity.MovieID, entity.ViewedAt, entity.Type).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert view event: %w", err)
	}

	return nil
}

// totalsQuery counts raw events plus rolled-up buckets per title.
const totalsQuery = `
	SELECT movie_id, SUM(views)::BIGINT AS total FROM (
		SELECT movie_id, COUNT(*) AS views FROM movie_views GROUP BY movie_id
		UNION ALL
		SELECT movie_id, views FROM movie_view_daily
	) AS counts
	GROUP BY movie_id
`

// Histories loads raw events newer than since and lifetime totals for every title.
func (r *ViewRepository) Histories(ctx context.Context, since time.Time) (map[string]scorer.History, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	histories := make(map[string]scorer.History)
	if err := loadRecent(ctx, db, since, histories); err != nil {
		return nil, err
	}
	if err := loadTotals(ctx, db, histories); err != nil {
		return nil, err
	}

	return histories, nil
}

func loadRecent(ctx context.Context, db database.Interface, since time.Time, into map[string]scorer.History) error {
	rows, err := db.Query(ctx, `SELECT movie_id, viewed_at FROM movie_views WHERE viewed_at > $1`, since)
	if err != nil {
		return fmt.Errorf("failed to query recent views: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var movieID string
		var viewedAt time.Time
		if err := rows.Scan(&movieID, &viewedAt); err != nil {
			return fmt.Errorf("failed to scan view event: %w", err)
		}
		h := into[movieID]
		h.Events = append(h.Events, viewedAt)
		into[movieID] = h
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating view events: %w", err)
	}
	return nil
}

func loadTotals(ctx context.Context, db database.Interface, into map[string]scorer.History) error {
	rows, err := db.Query(ctx, totalsQuery)
	if err != nil {
		return fmt.Errorf("failed to query view totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var movieID string
		var total int64
		if err := rows.Scan(&movieID, &total); err != nil {
			return fmt.Errorf("failed to scan view total: %w", err)
		}
		h := into[movieID]
		h.Total = total
		into[movieID] = h
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating view totals: %w", err)
	}
	return nil
}

// History loads the same data as Histories for a single title.
func (r *ViewRepository) History(ctx context.Context, movieID string, since time.Time) (scorer.History, error) {
	var h scorer.History

	db, err := r.getDB(ctx)
	if err != nil {
		return h, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	events, err := recentFor(ctx, db, movieID, since)
	if err != nil {
		return h, err
	}
	h.Events = events

	query := `
		SELECT (
			(SELECT COUNT(*) FROM movie_views WHERE movie_id = $1) +
			(SELECT COALESCE(SUM(views), 0) FROM movie_view_daily WHERE movie_id = $1)
		)::BIGINT
	`
	if err := db.QueryRow(ctx, query, movieID).Scan(&h.Total); err != nil {
		return h, fmt.Errorf("failed to query view total: %w", err)
	}

	return h, nil
}

// rollupQuery moves raw events older than $1 into per-day buckets in time zone $2
// and reports how many events were moved. Runs as a single statement.
const rollupQuery = `
	WITH moved AS (
		DELETE FROM movie_views WHERE viewed_at < $1
		RETURNING movie_id, viewed_at
	), buckets AS (
		INSERT INTO movie_view_daily (movie_id, day, views)
		SELECT movie_id, (viewed_at AT TIME ZONE $2)::date, COUNT(*)
		FROM moved
		GROUP BY 1, 2
		ON CONFLICT (movie_id, day) DO UPDATE SET views = movie_view_daily.views + EXCLUDED.views
	)
	SELECT COUNT(*) FROM moved
`

// Rollup folds raw events older than cutoff into daily buckets and deletes them.
func (r *ViewRepository) Rollup(ctx context.Context, cutoff time.Time, tz string) (int64, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return 0, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	var moved int64
	if err := db.QueryRow(ctx, rollupQuery, cutoff, tz).Scan(&moved); err != nil {
		return 0, fmt.Errorf("failed to roll up view events: %w", err)
	}

	return moved, nil
}

func recentFor(ctx context.Context, db database.Interface, movieID string, since time.Time) ([]time.Time, error) {
	rows, err := db.Query(ctx, `SELECT viewed_at FROM movie_views WHERE movie_id = $1 AND viewed_at > $2`, movieID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent views: %w", err)
	}
	defer rows.Close()

	var events []time.Time
	for rows.Next() {
		var viewedAt time.Time
		if err := rows.Scan(&viewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan view event: %w", err)
		}
		events = append(events, viewedAt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view events: %w", err)
	}
	return events, nil
}
