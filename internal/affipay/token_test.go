package affipay

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

func TestHashPassword(t *testing.T) {
	// Reference SHA-256 vector; the gateway expects exactly this digest.
	require.Equal(t,
		"2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b",
		HashPassword("secret"))
}

func TestTokenManagerRefresh(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/oauth/token", r.URL.Path)

		expected := base64.StdEncoding.EncodeToString([]byte("blumon_pay_ecommerce_api:blumon_pay_ecommerce_api_password"))
		require.Equal(t, "Basic "+expected, r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		require.Equal(t, "merchant-1", r.PostForm.Get("username"))
		require.Equal(t, HashPassword("hunter2"), r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok-1", "expires_in": 3600}`))
	}))
	defer srv.Close()

	tm := NewTokenManager(testLogger(), NewTransport(testLogger(), 0), nil, srv.URL, "merchant-1", "hunter2")

	tok, err := tm.EnsureToken(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
	require.Equal(t, 1, calls)

	// A held, unexpired token is reused without a refresh.
	tok, err = tm.EnsureToken(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
	require.Equal(t, 1, calls)

	// Forcing always refreshes.
	_, err = tm.EnsureToken(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestTokenManagerRefreshFailureKeepsPriorToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "bad credentials"}`))
	}))
	defer srv.Close()

	store := NewMemoryTokenStore()
	store.Store("old-token", 0)

	tm := NewTokenManager(testLogger(), NewTransport(testLogger(), 0), store, srv.URL, "merchant-1", "hunter2")

	_, err := tm.EnsureToken(context.Background(), true)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "invalid_grant", authErr.Code)

	tok, ok := store.Token()
	require.True(t, ok)
	require.Equal(t, "old-token", tok)
}

func TestTokenManagerMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type": "bearer"}`))
	}))
	defer srv.Close()

	tm := NewTokenManager(testLogger(), NewTransport(testLogger(), 0), nil, srv.URL, "merchant-1", "hunter2")

	_, err := tm.EnsureToken(context.Background(), false)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	store := NewMemoryTokenStore()

	// No reported lifetime: token never expires locally.
	store.Store("tok", 0)
	tok, ok := store.Token()
	require.True(t, ok)
	require.Equal(t, "tok", tok)

	// A lifetime inside the safety margin is already stale.
	store.Store("tok", 5*time.Second)
	_, ok = store.Token()
	require.False(t, ok)

	store.Store("tok", time.Hour)
	_, ok = store.Token()
	require.True(t, ok)

	store.Clear()
	_, ok = store.Token()
	require.False(t, ok)
}
