// Package fcm sends push notifications through the FCM HTTP v1 API,
// authenticating with a Google service account.
package fcm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gaborage/go-bricks/logger"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/secrets"
)

const (
	messagingScope   = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionTTL     = time.Hour
	tokenRefreshSkew = time.Minute
	maxErrorBody     = 64 << 10
)

var (
	// ErrUnregistered means the device token is no longer valid and should be dropped.
	ErrUnregistered = errors.New("device token unregistered")
	ErrNoProject    = errors.New("firebase project id not configured")
)

// CredentialSource provides the service account used to sign assertions.
type CredentialSource interface {
	FirebaseServiceAccount(ctx context.Context) (*secrets.ServiceAccount, error)
}

// Message is a notification for a single device.
type Message struct {
	Token    string
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

type Client struct {
	endpoint string
	project  string
	creds    CredentialSource
	http     *http.Client
	logger   logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewClient(cfg config.FCMConfig, creds CredentialSource, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		project:  cfg.Project,
		creds:    creds,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
		now:      time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type sendRequest struct {
	Message wireMessage `json:"message"`
}

type wireMessage struct {
	Token        string            `json:"token"`
	Notification wireNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type wireNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// Send delivers msg. It returns ErrUnregistered when FCM reports the token
// as gone.
func (c *Client) Send(ctx context.Context, msg Message) error {
	sa, err := c.creds.FirebaseServiceAccount(ctx)
	if err != nil {
		return fmt.Errorf("failed to load service account: %w", err)
	}

	project := c.project
	if project == "" {
		project = sa.ProjectID
	}
	if project == "" {
		return ErrNoProject
	}

	token, err := c.token(ctx, sa)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{Message: wireMessage{
		Token:        msg.Token,
		Notification: wireNotification{Title: msg.Title, Body: msg.Body, Image: msg.ImageURL},
		Data:         msg.Data,
	}})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/messages:send", c.endpoint, url.PathEscape(project))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build FCM request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if isUnregistered(raw) {
		return ErrUnregistered
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate()
	}
	return fmt.Errorf("FCM returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// isUnregistered reports whether FCM rejected the token itself. A bare 404 or
// NOT_FOUND status also comes back for a wrong or deleted project, so only the
// UNREGISTERED error code marks the token as dead.
func isUnregistered(raw []byte) bool {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return true
		}
	}
	return false
}

// token returns a cached access token, exchanging a fresh assertion when
// the cached one is within a minute of expiry.
func (c *Client) token(ctx context.Context, sa *secrets.ServiceAccount) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt.Add(-tokenRefreshSkew)) {
		return c.accessToken, nil
	}

	assertion, err := c.signAssertion(sa)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	c.accessToken = tr.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)

	c.logger.Debug().
		Str("client_email", sa.ClientEmail).
		Dur("expires_in", time.Duration(tr.ExpiresIn)*time.Second).
		Msg("Obtained FCM access token")

	return c.accessToken, nil
}

func (c *Client) signAssertion(sa *secrets.ServiceAccount) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse private key: %v", secrets.ErrInvalidCredential, err)
	}

	now := c.now()
	claims := jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"scope": messagingScope,
		"aud":   sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if sa.PrivateKeyID != "" {
		token.Header["kid"] = sa.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.expiresAt = time.Time{}
}
