package affipay

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Static OAuth client credentials fixed by the gateway protocol; merchant
// identity travels in the password-grant body, not here.
const (
	oauthClientID     = "blumon_pay_ecommerce_api"
	oauthClientSecret = "blumon_pay_ecommerce_api_password"
)

const tokenPath = "/oauth/token"

// expirySlack is subtracted from the reported token lifetime so a token is
// refreshed shortly before the gateway would start rejecting it.
const expirySlack = 30 * time.Second

// HashPassword returns the lowercase hex SHA-256 digest of the merchant
// password. The gateway requires the password pre-hashed exactly like this;
// it is a protocol fixture, not a security control.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", sum)
}

// TokenStore owns the current access token for one merchant account. Token
// reports ok=false when no usable token is held; Store replaces the token,
// Clear drops it.
type TokenStore interface {
	Token() (string, bool)
	Store(token string, expiresIn time.Duration)
	Clear()
}

type memoryTokenStore struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewMemoryTokenStore returns the default in-process TokenStore.
func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{}
}

func (s *memoryTokenStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt) {
		return s.token, false
	}
	return s.token, true
}

func (s *memoryTokenStore) Store(token string, expiresIn time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = time.Time{}
	if expiresIn > 0 {
		s.expiresAt = time.Now().Add(expiresIn - expirySlack)
	}
}

func (s *memoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

// TokenManager refreshes the bearer token via the gateway's password grant.
// Refreshes are serialized per manager so concurrent charge attempts under
// one account do not storm the auth endpoint; the retry contract above it is
// unchanged.
type TokenManager struct {
	transport *Transport
	store     TokenStore
	authURL   string
	username  string
	password  string
	logger    *slog.Logger

	mu sync.Mutex
}

func NewTokenManager(logger *slog.Logger, transport *Transport, store TokenStore, authURL, username, password string) *TokenManager {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	return &TokenManager{
		transport: transport,
		store:     store,
		authURL:   authURL,
		username:  username,
		password:  password,
		logger:    logger,
	}
}

// EnsureToken returns a usable access token, refreshing when forced, when no
// token is held, or when the stored one has passed its reported lifetime. On
// failure the previously held token is left untouched.
func (m *TokenManager) EnsureToken(ctx context.Context, force bool) (string, error) {
	prev, ok := m.store.Token()
	if !force && ok {
		return prev, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A concurrent caller may have refreshed while this one waited.
	if cur, ok := m.store.Token(); ok && (!force || cur != prev) {
		return cur, nil
	}
	return m.refresh(ctx)
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {m.username},
		"password":   {HashPassword(m.password)},
	}
	header := http.Header{
		"Authorization": {"Basic " + basicCredentials()},
	}

	raw, err := m.transport.PostForm(ctx, m.authURL+tokenPath, header, form)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return "", &AuthError{Code: apiErr.Code, Description: apiErr.Description, Err: err}
		}
		return "", &AuthError{Err: err}
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", &AuthError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if res.AccessToken == "" {
		m.logger.Error("auth response carried no access token")
		return "", &AuthError{Code: defaultErrorCode, Description: "no access token given"}
	}

	m.store.Store(res.AccessToken, time.Duration(res.ExpiresIn)*time.Second)
	m.logger.Debug("access token refreshed")
	return res.AccessToken, nil
}

func basicCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(oauthClientID + ":" + oauthClientSecret))
}
