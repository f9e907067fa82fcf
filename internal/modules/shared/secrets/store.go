// Package secrets resolves third-party credentials (TMDB API key, Firebase
// service account) from AWS Secrets Manager or from static configuration.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidCredential  = errors.New("invalid credential")
)

// CredentialStore is implemented by every credential source.
type CredentialStore interface {
	TMDBAPIKey(ctx context.Context) (string, error)
	FirebaseServiceAccount(ctx context.Context) (*ServiceAccount, error)
}

// ServiceAccount is the subset of a Google service-account key file used to
// mint OAuth access tokens for FCM.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// Validate checks the fields needed to sign an assertion and fills the token URI default.
func (sa *ServiceAccount) Validate() error {
	if sa.ClientEmail == "" {
		return fmt.Errorf("%w: client_email is empty", ErrInvalidCredential)
	}
	if sa.PrivateKey == "" {
		return fmt.Errorf("%w: private_key is empty", ErrInvalidCredential)
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	return nil
}

// tmdbSecret is the JSON layout of the TMDB secret.
type tmdbSecret struct {
	APIKey string `json:"apiKey"`
}
