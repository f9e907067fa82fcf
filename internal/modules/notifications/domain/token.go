// Package domain holds push notification device tokens.
package domain

import (
	"time"
)

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return Platform(s), true
	case "":
		return PlatformAndroid, true
	}
	return "", false
}

// DeviceToken is an FCM registration token owned by a user.
type DeviceToken struct {
	Token     string
	UserID    string
	Platform  Platform
	CreatedAt time.Time
}

// Redact shortens a token for logging.
func Redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:8] + "****"
}

// TokenEntity is the database entity.
type TokenEntity struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	Platform  string    `db:"platform"`
	CreatedAt time.Time `db:"created_at"`
}

func (e *TokenEntity) TableName() string {
	return "fcm_tokens"
}

func (e *TokenEntity) Columns() []string {
	return []string{"token", "user_id", "platform", "created_at"}
}

func (e *TokenEntity) ScanTargets() []any {
	return []any{&e.Token, &e.UserID, &e.Platform, &e.CreatedAt}
}

func ToEntity(t *DeviceToken) *TokenEntity {
	return &TokenEntity{
		Token:     t.Token,
		UserID:    t.UserID,
		Platform:  string(t.Platform),
		CreatedAt: t.CreatedAt,
	}
}

func ToDeviceToken(e *TokenEntity) *DeviceToken {
	return &DeviceToken{
		Token:     e.Token,
		UserID:    e.UserID,
		Platform:  Platform(e.Platform),
		CreatedAt: e.CreatedAt,
	}
}
