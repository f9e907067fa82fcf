// Package service registers device tokens and fans notifications out to them.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/fcm"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/repository"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrTokenNotFound = errors.New("device token not found")
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg fcm.Message) error
}

// Notification is the payload fanned out by Send. An empty UserID targets
// every registered device.
type Notification struct {
	Title    string
	Body     string
	ImageURL string
	MovieID  string
	UserID   string
}

// SendResult counts deliveries. Pruned tokens are also counted as failed.
type SendResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Pruned int `json:"pruned"`
}

type NotificationService struct {
	repo   repository.Repository
	sender Sender
	logger logger.Logger
	now    func() time.Time
}

func NewService(repo repository.Repository, sender Sender, log logger.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		sender: sender,
		logger: log,
		now:    time.Now,
	}
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID, token, platform string) error {
	if userID == "" || token == "" {
		return fmt.Errorf("%w: userId and token are required", ErrValidation)
	}
	p, ok := domain.ParsePlatform(platform)
	if !ok {
		return fmt.Errorf("%w: platform must be android, ios or web", ErrValidation)
	}

	err := s.repo.Upsert(ctx, &domain.DeviceToken{Token: token, UserID: userID, Platform: p, CreatedAt: s.now()})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("userId", userID).
			Str("token", domain.Redact(token)).
			Msg("Failed to register device token")
		return fmt.Errorf("failed to register device token: %w", err)
	}
	return nil
}

func (s *NotificationService) UnregisterToken(ctx context.Context, token string) error {
	found, err := s.repo.Delete(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to remove device token: %w", err)
	}
	if !found {
		return ErrTokenNotFound
	}
	return nil
}

// Send delivers n to its target devices one at a time. Tokens that FCM
// reports as unregistered are deleted.
func (s *NotificationService) Send(ctx context.Context, n Notification) (*SendResult, error) {
	if n.Title == "" || n.Body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrValidation)
	}

	var tokens []*domain.DeviceToken
	var err error
	if n.UserID != "" {
		tokens, err = s.repo.ListByUser(ctx, n.UserID)
	} else {
		tokens, err = s.repo.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}

	var data map[string]string
	if n.MovieID != "" {
		data = map[string]string{"movieId": n.MovieID}
	}

	result := &SendResult{}
	for _, t := range tokens {
		err := s.sender.Send(ctx, fcm.Message{
			Token:    t.Token,
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.ImageURL,
			Data:     data,
		})
		switch {
		case err == nil:
			result.Sent++
		case errors.Is(err, fcm.ErrUnregistered):
			result.Failed++
			if _, derr := s.repo.Delete(ctx, t.Token); derr != nil {
				s.logger.Warn().Err(derr).Str("token", domain.Redact(t.Token)).Msg("Failed to prune device token")
				continue
			}
			result.Pruned++
		default:
			result.Failed++
			s.logger.Warn().
				Err(err).
				Str("token", domain.Redact(t.Token)).
				Msg("Failed to send notification")
		}
	}

	s.logger.Info().
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Int("pruned", result.Pruned).
		Msg("Notification dispatched")

	return result, nil
}
