package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const whoopAPIBase = "https://api.prod.whoop.com/developer/v2"

// WhoopClient walks the cursor-paginated WHOOP API. Requests are
// rate-limited client-side so a full-history walk stays under the provider's
// limits, and a 401 mid-walk triggers one forced refresh before giving up.
type WhoopClient struct {
	auth    *WhoopAuthService
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	base    string
}

func NewWhoopClient(auth *WhoopAuthService, log zerolog.Logger) *WhoopClient {
	return &WhoopClient{
		auth:    auth,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(4), 4),
		log:     log.With().Str("service", "whoop_client").Logger(),
		base:    whoopAPIBase,
	}
}

type whoopPage struct {
	Records   []map[string]any `json:"records"`
	NextToken string           `json:"next_token"`
}

// FetchAll accumulates every page of one endpoint in fetch order. A failed
// request mid-walk truncates the walk but keeps everything fetched so far;
// the truncation is logged here and the partial result is still usable.
func (c *WhoopClient) FetchAll(ctx context.Context, path string, limit int) ([]map[string]any, error) {
	var all []map[string]any
	nextToken := ""

	for {
		page, err := c.fetchPage(ctx, path, limit, nextToken)
		if err != nil {
			// Auth failures and cancellation propagate; anything else
			// truncates the walk but keeps the accumulated pages.
			var authErr *AuthError
			if errors.As(err, &authErr) || ctx.Err() != nil {
				return all, err
			}
			c.log.Warn().Err(err).Str("path", path).Int("accumulated", len(all)).
				Msg("page walk truncated")
			return all, nil
		}
		all = append(all, page.Records...)
		if page.NextToken == "" {
			c.log.Info().Str("path", path).Int("records", len(all)).Msg("fetched all pages")
			return all, nil
		}
		nextToken = page.NextToken
	}
}

// FetchLatest requests a single page of the given size without paginating.
func (c *WhoopClient) FetchLatest(ctx context.Context, path string, limit int) ([]map[string]any, error) {
	page, err := c.fetchPage(ctx, path, limit, "")
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

func (c *WhoopClient) fetchPage(ctx context.Context, path string, limit int, nextToken string) (*whoopPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if nextToken != "" {
		q.Set("nextToken", nextToken)
	}
	u := c.base + path + "?" + q.Encode()

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var page whoopPage
	dec := json.NewDecoder(body)
	dec.UseNumber() // keep cycle ids and metrics precise
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to parse WHOOP response: %w", err)
	}
	return &page, nil
}

// get performs a bearer-authenticated GET, retrying once with a forced token
// refresh when the provider answers 401.
func (c *WhoopClient) get(ctx context.Context, u string) (io.Reader, error) {
	token, err := c.auth.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, body, err := c.do(ctx, u, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn().Str("url", u).Msg("WHOOP returned 401, forcing token refresh")
		token, err = c.auth.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}
		resp, body, err = c.do(ctx, u, token)
		if err != nil {
			return nil, err
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("WHOOP API error %d: %s", resp.StatusCode, string(body))
	}
	return bytes.NewReader(body), nil
}

func (c *WhoopClient) do(ctx context.Context, u, token string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call WHOOP API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read WHOOP response: %w", err)
	}
	return resp, body, nil
}
