package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gaborage/go-bricks/logger"
	"github.com/goccy/go-json"

	"github.com/ugawatch/ugawatch-api/internal/config"
)

// StaticCredentialStore serves credentials from configuration, for local
// development and tests. The service account is read from a key file on first use.
type StaticCredentialStore struct {
	tmdbKey            string
	serviceAccountFile string
	logger             logger.Logger

	mu             sync.Mutex
	serviceAccount *ServiceAccount
}

func NewStaticCredentialStore(log logger.Logger, cfg config.SecretsConfig) *StaticCredentialStore {
	return &StaticCredentialStore{
		tmdbKey:            cfg.TMDBKey,
		serviceAccountFile: cfg.ServiceAccount,
		logger:             log,
	}
}

func (s *StaticCredentialStore) TMDBAPIKey(_ context.Context) (string, error) {
	if s.tmdbKey == "" {
		return "", fmt.Errorf("%w: TMDB API key not configured", ErrCredentialNotFound)
	}
	return s.tmdbKey, nil
}

func (s *StaticCredentialStore) FirebaseServiceAccount(_ context.Context) (*ServiceAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serviceAccount != nil {
		return s.serviceAccount, nil
	}
	if s.serviceAccountFile == "" {
		return nil, fmt.Errorf("%w: service account file not configured", ErrCredentialNotFound)
	}

	data, err := os.ReadFile(s.serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: failed to parse service account file: %v", ErrInvalidCredential, err)
	}
	if err := sa.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("client_email", sa.ClientEmail).
		Str("project_id", sa.ProjectID).
		Msg("Loaded Firebase service account from file")

	s.serviceAccount = &sa
	return s.serviceAccount, nil
}

// SetServiceAccount replaces the service account, bypassing the key file.
func (s *StaticCredentialStore) SetServiceAccount(sa *ServiceAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceAccount = sa
}

// NewCredentialStore picks the store named by cfg.Provider.
func NewCredentialStore(ctx context.Context, log logger.Logger, cfg config.SecretsConfig) (CredentialStore, error) {
	switch cfg.Provider {
	case "aws":
		store, err := NewAWSCredentialStore(ctx, log, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "", "static":
		return NewStaticCredentialStore(log, cfg), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
}
