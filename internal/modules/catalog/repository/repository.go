package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gaborage/go-bricks/database"

	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/domain"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
)

// Repository defines the interface for catalog data access
type Repository interface {
	Create(ctx context.Context, movie *domain.Movie) error
	GetByID(ctx context.Context, id string) (*domain.Movie, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Movie, int, error)
	ListAll(ctx context.Context) ([]*domain.Movie, error)
	Update(ctx context.Context, id string, updates map[string]any) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

const (
	dbUnavailableErrMsg = "failed to get database connection: %w"
	moviesTable         = "movies"
)

type MovieRepository struct {
	getDB func(context.Context) (database.Interface, error)
}

func NewSQLMovieRepository(getDB func(context.Context) (database.Interface, error)) *MovieRepository {
	return &MovieRepository{
		getDB: getDB,
	}
}

// Create inserts a new movie
func (r *MovieRepository) Create(ctx context.Context, movie *domain.Movie) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	entity := domain.ToMovieEntity(movie)

	qb := database.NewQueryBuilder(database.PostgreSQL)
	query, args, err := qb.Insert(entity.TableName()).
		Columns(entity.Columns()...).
		Values(entity.ID, entity.TMDBID, entity.Title, entity.Overview, entity.PosterURL, entity.BackdropURL,
			entity.VideoURL, entity.IsSeries, entity.Year, entity.Rating, entity.Views, entity.UploadDate, entity.UpdatedDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	_, err = db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}

	return nil
}

// GetByID retrieves a movie by its ID
func (r *MovieRepository) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	var entity domain.MovieEntity

	qb := database.NewQueryBuilder(database.PostgreSQL)
	query, args, err := qb.Select(entity.Columns()).
		From(moviesTable).
		Where(qb.Filter().Eq("id", id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	row := db.QueryRow(ctx, query, args...)
	if err := row.Scan(entity.ScanTargets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to scan movie: %w", err)
	}

	return domain.ToMovie(&entity), nil
}

// List retrieves a page of movies, newest upload first, with the total count
func (r *MovieRepository) List(ctx context.Context, limit, offset int) ([]*domain.Movie, int, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	qb := database.NewQueryBuilder(database.PostgreSQL)

	countQuery, countArgs, err := qb.Select("COUNT(*)").
		From(moviesTable).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	query, args, err := qb.Select((&domain.MovieEntity{}).Columns()).
		From(moviesTable).
		OrderBy("upload_date DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	movies, err := r.query(ctx, db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// ListAll returns every title. Trending scores the whole catalog on each request.
func (r *MovieRepository) ListAll(ctx context.Context) ([]*domain.Movie, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	qb := database.NewQueryBuilder(database.PostgreSQL)
	query, args, err := qb.Select((&domain.MovieEntity{}).Columns()).
		From(moviesTable).
		OrderBy("upload_date DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	return r.query(ctx, db, query, args...)
}

func (r *MovieRepository) query(ctx context.Context, db database.Interface, query string, args ...any) ([]*domain.Movie, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	var entities []*domain.MovieEntity
	for rows.Next() {
		var entity domain.MovieEntity
		if err := rows.Scan(entity.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		entities = append(entities, &entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movies: %w", err)
	}

	return domain.ToMovieList(entities), nil
}

// Update performs a partial update on a movie
func (r *MovieRepository) Update(ctx context.Context, id string, updates map[string]any) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	qb := database.NewQueryBuilder(database.PostgreSQL)
	updateBuilder := qb.Update(moviesTable)

	for key, value := range updates {
		updateBuilder = updateBuilder.Set(key, value)
	}

	query, args, err := updateBuilder.
		Where(qb.Filter().Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	return r.execOne(ctx, db, "update movie", query, args...)
}

// Delete removes a movie
func (r *MovieRepository) Delete(ctx context.Context, id string) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	qb := database.NewQueryBuilder(database.PostgreSQL)
	query, args, err := qb.Delete(moviesTable).
		Where(qb.Filter().Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	return r.execOne(ctx, db, "delete movie", query, args...)
}

// IncrementViews bumps the lifetime views counter in place.
func (r *MovieRepository) IncrementViews(ctx context.Context, id string) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	query := `UPDATE movies SET views = views + 1 WHERE id = $1`
	return r.execOne(ctx, db, "increment views", query, id)
}

// execOne runs a statement that must touch exactly one movie row.
func (r *MovieRepository) execOne(ctx context.Context, db database.Interface, op, query string, args ...any) error {
	result, err := db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrMovieNotFound
	}

	return nil
}
