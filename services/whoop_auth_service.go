package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jkor2/lifeof/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	whoopAuthURL  = "https://api.prod.whoop.com/oauth/oauth2/auth"
	whoopTokenURL = "https://api.prod.whoop.com/oauth/oauth2/token"
	whoopScopes   = "offline read:recovery read:cycles read:sleep read:workout read:profile read:body_measurement"
)

// WhoopAuthService owns the single WHOOP credential row: the authorize-code
// exchange, expiry tracking and refresh. Refreshes are not mutually excluded;
// two concurrent refreshes both succeed and the last write wins, which is
// fine for a single-tenant credential.
type WhoopAuthService struct {
	db           *gorm.DB
	client       *http.Client
	log          zerolog.Logger
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	authURL      string
}

func NewWhoopAuthService(db *gorm.DB, log zerolog.Logger) *WhoopAuthService {
	return &WhoopAuthService{
		db:           db,
		client:       &http.Client{Timeout: 10 * time.Second},
		log:          log.With().Str("service", "whoop_auth").Logger(),
		clientID:     os.Getenv("WHOOP_CLIENT_ID"),
		clientSecret: os.Getenv("WHOOP_CLIENT_SECRET"),
		redirectURI:  os.Getenv("WHOOP_REDIRECT_URI"),
		tokenURL:     whoopTokenURL,
		authURL:      whoopAuthURL,
	}
}

// AuthURL builds the WHOOP authorization redirect with the offline scope so
// the exchange returns a refresh token.
func (s *WhoopAuthService) AuthURL() string {
	q := url.Values{}
	q.Set("client_id", s.clientID)
	q.Set("response_type", "code")
	q.Set("scope", whoopScopes)
	q.Set("redirect_uri", s.redirectURI)
	q.Set("state", uuid.NewString())
	return s.authURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Exchange trades an authorization code for the first token bundle.
func (s *WhoopAuthService) Exchange(ctx context.Context, code string) (*models.WhoopToken, error) {
	if code == "" {
		return nil, newValidationError("code", "missing authorization code")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.redirectURI)
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	return s.requestToken(ctx, form)
}

// Load returns the stored bundle, or ErrNotFound when never authorized.
func (s *WhoopAuthService) Load(ctx context.Context) (*models.WhoopToken, error) {
	var tok models.WhoopToken
	err := s.db.WithContext(ctx).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *WhoopAuthService) expired(tok *models.WhoopToken) bool {
	return !time.Now().Before(tok.ExpiresAt)
}

// Refresh exchanges the refresh token for a new bundle and persists it.
func (s *WhoopAuthService) Refresh(ctx context.Context, tok *models.WhoopToken) (*models.WhoopToken, error) {
	if tok.RefreshToken == "" {
		return nil, &AuthError{Reason: "missing refresh_token, reauthorize WHOOP with offline scope"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tok.RefreshToken)
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("scope", "offline")

	s.log.Info().Msg("refreshing WHOOP token")
	return s.requestToken(ctx, form)
}

// EnsureValidToken returns a usable access token, refreshing at most once.
func (s *WhoopAuthService) EnsureValidToken(ctx context.Context) (string, error) {
	tok, err := s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return "", &AuthError{Reason: "not authorized, connect WHOOP via /whoop/auth first"}
	}
	if err != nil {
		return "", err
	}

	if s.expired(tok) {
		tok, err = s.Refresh(ctx, tok)
		if err != nil {
			return "", err
		}
	}
	return tok.AccessToken, nil
}

// ForceRefresh is used by the API client when a request comes back 401 even
// though the stored expiry had not passed yet.
func (s *WhoopAuthService) ForceRefresh(ctx context.Context) (string, error) {
	tok, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	tok, err = s.Refresh(ctx, tok)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (s *WhoopAuthService) requestToken(ctx context.Context, form url.Values) (*models.WhoopToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call WHOOP token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Reason: fmt.Sprintf("WHOOP token endpoint returned %d: %s", resp.StatusCode, string(body))}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	return s.save(ctx, tr)
}

// save overwrites the single credential row, recomputing the absolute expiry
// from the returned lifetime.
func (s *WhoopAuthService) save(ctx context.Context, tr tokenResponse) (*models.WhoopToken, error) {
	if tr.ExpiresIn == 0 {
		tr.ExpiresIn = 3600
	}

	tok := models.WhoopToken{}
	if err := s.db.WithContext(ctx).First(&tok).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tok.AccessToken = tr.AccessToken
	tok.RefreshToken = tr.RefreshToken
	tok.ExpiresIn = tr.ExpiresIn
	tok.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	tok.Scope = tr.Scope

	if err := s.db.WithContext(ctx).Save(&tok).Error; err != nil {
		return nil, err
	}
	return &tok, nil
}

type WhoopStatus struct {
	Connected       bool   `json:"connected"`
	Message         string `json:"message"`
	ExpiresIn       int    `json:"expires_in,omitempty"`
	HasRefreshToken bool   `json:"has_refresh_token"`
}

func (s *WhoopAuthService) Status(ctx context.Context) WhoopStatus {
	tok, err := s.Load(ctx)
	if err != nil {
		return WhoopStatus{Connected: false, Message: "Not connected to WHOOP"}
	}

	if s.expired(tok) {
		return WhoopStatus{
			Connected:       false,
			Message:         "Token expired, reconnect required",
			HasRefreshToken: tok.RefreshToken != "",
		}
	}
	return WhoopStatus{
		Connected:       true,
		Message:         "Connected to WHOOP",
		ExpiresIn:       int(time.Until(tok.ExpiresAt).Seconds()),
		HasRefreshToken: tok.RefreshToken != "",
	}
}
