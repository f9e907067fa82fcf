// Package repository stores FCM device tokens.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaborage/go-bricks/database"

	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/domain"
)

const (
	dbUnavailableErrMsg = "failed to get database connection: %w"
)

// Repository defines the interface for device token data access.
type Repository interface {
	Upsert(ctx context.Context, token *domain.DeviceToken) error
	Delete(ctx context.Context, token string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.DeviceToken, error)
	ListAll(ctx context.Context) ([]*domain.DeviceToken, error)
}

type TokenRepository struct {
	getDB func(context.Context) (database.Interface, error)
}

func NewTokenRepository(getDB func(context.Context) (database.Interface, error)) *TokenRepository {
	return &TokenRepository{getDB: getDB}
}

// Upsert registers token, moving it to a new owner if it was already known.
func (r *TokenRepository) Upsert(ctx context.Context, token *domain.DeviceToken) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return fmt.Errorf(dbUnavailableErrMsg, err)
	}

	e := domain.ToEntity(token)
	query := `INSERT INTO fcm_tokens (token, user_id, platform, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform`
	if _, err := db.Exec(ctx, query, e.Token, e.UserID, e.Platform, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert device token: %w", err)
	}
	return nil
}

// Delete removes token and reports whether it existed.
func (r *TokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return false, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	qb := database.NewQueryBuilder(database.PostgreSQL)
	query, args, err := qb.Delete("fcm_tokens").
		Where(qb.Filter().Eq("token", token)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete device token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]*domain.DeviceToken, error) {
	return r.list(ctx, " WHERE user_id = $1", userID)
}

func (r *TokenRepository) ListAll(ctx context.Context) ([]*domain.DeviceToken, error) {
	return r.list(ctx, "")
}

func (r *TokenRepository) list(ctx context.Context, where string, args ...any) ([]*domain.DeviceToken, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, fmt.Errorf(dbUnavailableErrMsg, err)
	}

	query := fmt.Sprintf("SELECT %s FROM fcm_tokens%s ORDER BY created_at",
		strings.Join((&domain.TokenEntity{}).Columns(), ", "), where)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.DeviceToken
	for rows.Next() {
		var e domain.TokenEntity
		if err := rows.Scan(e.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, domain.ToDeviceToken(&e))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}
	return tokens, nil
}
