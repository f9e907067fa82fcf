// Package repository persists watch progress, one row per (user, title).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gaborage/go-bricks/database"

	"github.com/ugawatch/ugawatch-api/internal/modules/progress/domain"
)

var (
	ErrProgressNotFound = errors.New("progress not found")
	// ErrStaleProgress is returned when a newer record already exists.
	ErrStaleProgress = errors.New("stale progress update")
)

const (
	dbUnavailableErrMsg = "failed to get database connection: %w"
)

// Repository defines the interface for progress data access.
type Repository interface {
	Upsert(ctx context.Context, item *domain.ContinueWatchingItem) error
	Get(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error)
	Delete(ctx context.Context, userID, movieID string) error
	PurgeCompleted(ctx context.Context, olderThanMs int64) (int64, error)
}

type ProgressRepository struct {
	getDB func(context.Context) (database.Interface, error)
}

func NewProgressRepository(getDB func(context.Context) (database.Interface, error)) *ProgressRepository {
	return &ProgressRepository{getDB: getDB}
}

var upsertQuery = buildUpsertQuery()

// buildUpsertQuery writes a record unless the stored one carries a newer
// timestamp. Equal timestamps overwrite.
func buildUpsertQuery() string {
	cols := (&domain.ProgressEntity{}).Columns()
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if c != "user_id" && c != "movie_id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}

	return fmt.Sprintf(`INSERT INTO watch_progress (%s) VALUES (%s)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET %s
		WHERE watch_progress.updated_at <= EXCLUDED.updated_at`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

// Upsert creates or replaces the record for item's (user, title) pair.
func (r *ProgressRepository) Upsert(ctx context.Context, item *domain.ContinueWatchingItem) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	result, err := db.Exec(ctx, upsertQuery, domain.ToEntity(item).Values()...)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleProgress
	}

	return nil
}

func (r *ProgressRepository) Get(ctx context.Context, userID, movieID string) (*domain.ContinueWatchingItem, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	var entity domain.ProgressEntity
	query := fmt.Sprintf("SELECT %s FROM watch_progress WHERE user_id = $1 AND movie_id = $2",
		strings.Join(entity.Columns(), ", "))

	if err := db.QueryRow(ctx, query, userID, movieID).Scan(entity.ScanTargets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	return domain.ToItem(&entity), nil
}

// ListByUser returns every record for the user, most recent first.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ContinueWatchingItem, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	query := fmt.Sprintf("SELECT %s FROM watch_progress WHERE user_id = $1 ORDER BY updated_at DESC",
		strings.Join((&domain.ProgressEntity{}).Columns(), ", "))

	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var items []*domain.ContinueWatchingItem
	for rows.Next() {
		var entity domain.ProgressEntity
		if err := rows.Scan(entity.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		items = append(items, domain.ToItem(&entity))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}

	return items, nil
}

func (r *ProgressRepository) Delete(ctx context.Context, userID, movieID string) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	result, err := db.Exec(ctx, "DELETE FROM watch_progress WHERE user_id = $1 AND movie_id = $2", userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrProgressNotFound
	}

	return nil
}

// PurgeCompleted removes finished titles last touched before olderThanMs.
func (r *ProgressRepository) PurgeCompleted(ctx context.Context, olderThanMs int64) (int64, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return 0, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	result, err := db.Exec(ctx, "DELETE FROM watch_progress WHERE progress >= $1 AND updated_at < $2",
		domain.CompletedPercent, olderThanMs)
	if err != nil {
		return 0, fmt.Errorf("failed to purge completed progress: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
