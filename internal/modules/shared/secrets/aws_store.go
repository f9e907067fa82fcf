package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/gaborage/go-bricks/logger"
	"github.com/goccy/go-json"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/cache"
)

const (
	tmdbSecretSuffix           = "tmdb"
	serviceAccountSecretSuffix = "firebase/service-account"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSCredentialStore reads credentials from AWS Secrets Manager under
// "<prefix>/tmdb" and "<prefix>/firebase/service-account", caching the raw
// secret strings.
type AWSCredentialStore struct {
	client SecretsManagerAPI
	cache  *cache.Cache[string]
	prefix string
	logger logger.Logger
}

// NewAWSCredentialStore loads the default AWS configuration and builds a store.
func NewAWSCredentialStore(ctx context.Context, log logger.Logger, cfg config.SecretsConfig) (*AWSCredentialStore, error) {
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("AWS Secrets Manager prefix cannot be empty")
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewAWSCredentialStoreWithClient(secretsmanager.NewFromConfig(awsCfg), log, cfg), nil
}

// NewAWSCredentialStoreWithClient builds a store around an existing client.
func NewAWSCredentialStoreWithClient(client SecretsManagerAPI, log logger.Logger, cfg config.SecretsConfig) *AWSCredentialStore {
	ttl := 5 * time.Minute
	size := 100
	if cfg.Cache.TTL > 0 {
		ttl = cfg.Cache.TTL
	}
	if cfg.Cache.Size > 0 {
		size = cfg.Cache.Size
	}

	log.Info().
		Str("prefix", cfg.Prefix).
		Dur("cache_ttl", ttl).
		Int("cache_max_size", size).
		Msg("Initializing AWS Secrets Manager credential store")

	return &AWSCredentialStore{
		client: client,
		cache:  cache.New[string](ttl, size),
		prefix: cfg.Prefix,
		logger: log,
	}
}

// TMDBAPIKey returns the TMDB v3 API key.
func (s *AWSCredentialStore) TMDBAPIKey(ctx context.Context) (string, error) {
	raw, err := s.secret(ctx, tmdbSecretSuffix)
	if err != nil {
		return "", err
	}

	var secret tmdbSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return "", fmt.Errorf("%w: failed to parse TMDB secret: %v", ErrInvalidCredential, err)
	}
	if secret.APIKey == "" {
		return "", fmt.Errorf("%w: TMDB apiKey is empty", ErrInvalidCredential)
	}
	return secret.APIKey, nil
}

// FirebaseServiceAccount returns the parsed service-account key.
func (s *AWSCredentialStore) FirebaseServiceAccount(ctx context.Context) (*ServiceAccount, error) {
	raw, err := s.secret(ctx, serviceAccountSecretSuffix)
	if err != nil {
		return nil, err
	}

	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, fmt.Errorf("%w: failed to parse service account: %v", ErrInvalidCredential, err)
	}
	if err := sa.Validate(); err != nil {
		return nil, err
	}
	return &sa, nil
}

// Invalidate drops a cached secret so the next read goes to AWS.
func (s *AWSCredentialStore) Invalidate(suffix string) {
	s.cache.Delete(s.secretName(suffix))
}

func (s *AWSCredentialStore) CacheMetrics() cache.Metrics {
	return s.cache.Metrics()
}

// Close releases resources used by the store.
func (s *AWSCredentialStore) Close() error {
	s.cache.Close()
	return nil
}

func (s *AWSCredentialStore) secret(ctx context.Context, suffix string) (string, error) {
	name := s.secretName(suffix)

	if cached, ok := s.cache.Get(name); ok {
		s.logger.Debug().Str("secret", name).Msg("Retrieved secret from cache")
		return cached, nil
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, name)
		}
		s.logger.Error().Err(err).Str("secret", name).Msg("Failed to fetch secret from AWS Secrets Manager")
		return "", fmt.Errorf("failed to retrieve secret %s: %w", name, err)
	}

	if result.SecretString == nil || *result.SecretString == "" {
		return "", fmt.Errorf("%w: secret %s is empty", ErrInvalidCredential, name)
	}

	s.cache.Set(name, *result.SecretString)
	return *result.SecretString, nil
}

func (s *AWSCredentialStore) secretName(suffix string) string {
	return fmt.Sprintf("%s/%s", s.prefix, suffix)
}

// loadAWSConfig supports a custom endpoint (LocalStack).
func loadAWSConfig(ctx context.Context, cfg config.SecretsConfig) (aws.Config, error) {
	result, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return result, err
	}

	if cfg.Endpoint != "" {
		result.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return result, nil
}
