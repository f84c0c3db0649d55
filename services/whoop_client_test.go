package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jkor2/lifeof/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func newTestClient(t *testing.T, db *gorm.DB, apiURL, tokenURL string) *WhoopClient {
	t.Helper()
	return &WhoopClient{
		auth:    newAuthService(t, db, tokenURL),
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     zerolog.Nop(),
		base:    apiURL,
	}
}

func pageBody(next string, ids ...int) any {
	records := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		records = append(records, map[string]any{"cycle_id": id})
	}
	return map[string]any{"records": records, "next_token": next}
}

func TestFetchAllWalksEveryPage(t *testing.T) {
	db := newTestDB(t)
	seedToken(t, db, models.WhoopToken{
		AccessToken: "ok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("nextToken"))
		assert.Equal(t, "Bearer ok", r.Header.Get("Authorization"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		var body any
		switch r.URL.Query().Get("nextToken") {
		case "":
			body = pageBody("p2", 1, 2)
		case "p2":
			body = pageBody("p3", 3)
		default:
			body = pageBody("", 4, 5)
		}
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := newTestClient(t, db, srv.URL, whoopTokenURL)
	records, err := c.FetchAll(context.Background(), "/recovery", 25)
	require.NoError(t, err)

	require.Len(t, records, 5)
	assert.Equal(t, []string{"", "p2", "p3"}, tokens)
	// UseNumber keeps ids as json.Number, never float64.
	first, ok := records[0]["cycle_id"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "1", first.String())
}

func TestFetchAllKeepsAccumulatedOnMidWalkFailure(t *testing.T) {
	db := newTestDB(t)
	seedToken(t, db, models.WhoopToken{
		AccessToken: "ok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("nextToken") == "p2" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "upstream unavailable")
			return
		}
		json.NewEncoder(w).Encode(pageBody("p2", 1, 2, 3))
	}))
	defer srv.Close()

	c := newTestClient(t, db, srv.URL, whoopTokenURL)
	records, err := c.FetchAll(context.Background(), "/activity/sleep", 25)

	require.NoError(t, err, "a truncated walk is a partial success, not a failure")
	assert.Len(t, records, 3)
}

func TestFetchAllPropagatesAuthFailure(t *testing.T) {
	db := newTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be called without credentials")
	}))
	defer srv.Close()

	c := newTestClient(t, db, srv.URL, whoopTokenURL)
	_, err := c.FetchAll(context.Background(), "/recovery", 25)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestGetRetriesOnceAfter401(t *testing.T) {
	db := newTestDB(t)
	seedToken(t, db, models.WhoopToken{
		AccessToken:  "revoked-server-side",
		RefreshToken: "r1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  "brand-new",
			RefreshToken: "r2",
			ExpiresIn:    3600,
		})
	}))
	defer tokenSrv.Close()

	apiCalls := 0
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		if r.Header.Get("Authorization") != "Bearer brand-new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(pageBody("", 7))
	}))
	defer apiSrv.Close()

	c := newTestClient(t, db, apiSrv.URL, tokenSrv.URL)
	records, err := c.FetchLatest(context.Background(), "/activity/workout", 1)
	require.NoError(t, err)

	assert.Equal(t, 2, apiCalls)
	require.Len(t, records, 1)

	stored, err := c.auth.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "brand-new", stored.AccessToken)
}

func TestFetchLatestSurfacesAPIError(t *testing.T) {
	db := newTestDB(t)
	seedToken(t, db, models.WhoopToken{
		AccessToken: "ok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, db, srv.URL, whoopTokenURL)
	_, err := c.FetchLatest(context.Background(), "/recovery", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
