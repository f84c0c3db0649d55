package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jkor2/lifeof/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeTokenEndpoint counts hits and serves a fixed bundle, echoing back the
// grant_type it saw on the last request.
type fakeTokenEndpoint struct {
	hits      atomic.Int64
	lastGrant atomic.Value
	status    int
	bundle    tokenResponse
}

func (f *fakeTokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		_ = r.ParseForm()
		f.lastGrant.Store(r.PostFormValue("grant_type"))
		if f.status != 0 && f.status != http.StatusOK {
			w.WriteHeader(f.status)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.bundle)
	}
}

func newAuthService(t *testing.T, db *gorm.DB, tokenURL string) *WhoopAuthService {
	t.Helper()
	return &WhoopAuthService{
		db:           db,
		client:       &http.Client{Timeout: 5 * time.Second},
		log:          zerolog.Nop(),
		clientID:     "test-client",
		clientSecret: "test-secret",
		redirectURI:  "http://localhost:8080/whoop/callback",
		tokenURL:     tokenURL,
		authURL:      whoopAuthURL,
	}
}

func seedToken(t *testing.T, db *gorm.DB, tok models.WhoopToken) {
	t.Helper()
	require.NoError(t, db.Create(&tok).Error)
}

func TestEnsureValidTokenWithoutCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, whoopTokenURL)

	_, err := svc.EnsureValidToken(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "not authorized")
}

func TestEnsureValidTokenReturnsStoredAccessToken(t *testing.T) {
	db := newTestDB(t)
	ep := &fakeTokenEndpoint{}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	seedToken(t, db, models.WhoopToken{
		AccessToken:  "still-good",
		RefreshToken: "r1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	svc := newAuthService(t, db, srv.URL)

	access, err := svc.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still-good", access)
	assert.EqualValues(t, 0, ep.hits.Load(), "valid token must not trigger a refresh")
}

func TestEnsureValidTokenRefreshesExpiredBundle(t *testing.T) {
	db := newTestDB(t)
	ep := &fakeTokenEndpoint{bundle: tokenResponse{
		AccessToken:  "fresh",
		RefreshToken: "r2",
		ExpiresIn:    7200,
		Scope:        "offline",
	}}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	seedToken(t, db, models.WhoopToken{
		AccessToken:  "stale",
		RefreshToken: "r1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	svc := newAuthService(t, db, srv.URL)

	access, err := svc.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", access)
	assert.EqualValues(t, 1, ep.hits.Load())
	assert.Equal(t, "refresh_token", ep.lastGrant.Load())

	stored, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.AccessToken)
	assert.Equal(t, "r2", stored.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), stored.ExpiresAt, 10*time.Second)

	var count int64
	require.NoError(t, db.Model(&models.WhoopToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "refresh must overwrite the single credential row")
}

func TestRefreshWithoutRefreshTokenFailsBeforeHTTP(t *testing.T) {
	db := newTestDB(t)
	ep := &fakeTokenEndpoint{}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	svc := newAuthService(t, db, srv.URL)
	_, err := svc.Refresh(context.Background(), &models.WhoopToken{AccessToken: "a"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "offline scope")
	assert.EqualValues(t, 0, ep.hits.Load())
}

func TestRefreshProviderRejection(t *testing.T) {
	db := newTestDB(t)
	ep := &fakeTokenEndpoint{status: http.StatusBadRequest}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	svc := newAuthService(t, db, srv.URL)
	_, err := svc.Refresh(context.Background(), &models.WhoopToken{RefreshToken: "revoked"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "400")
}

func TestExchangePersistsBundle(t *testing.T) {
	db := newTestDB(t)
	ep := &fakeTokenEndpoint{bundle: tokenResponse{
		AccessToken:  "first",
		RefreshToken: "rt",
		ExpiresIn:    3600,
		Scope:        whoopScopes,
	}}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	svc := newAuthService(t, db, srv.URL)
	tok, err := svc.Exchange(context.Background(), "auth-code-123")
	require.NoError(t, err)
	assert.Equal(t, "first", tok.AccessToken)
	assert.Equal(t, "authorization_code", ep.lastGrant.Load())
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 10*time.Second)
}

func TestExchangeRequiresCode(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, whoopTokenURL)

	_, err := svc.Exchange(context.Background(), "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "code", vErr.Field)
}

func TestStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, whoopTokenURL)
	ctx := context.Background()

	st := svc.Status(ctx)
	assert.False(t, st.Connected)

	seedToken(t, db, models.WhoopToken{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(30 * time.Minute),
	})
	st = svc.Status(ctx)
	assert.True(t, st.Connected)
	assert.True(t, st.HasRefreshToken)
	assert.Greater(t, st.ExpiresIn, 0)
}
