package valorantapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

var (
	// ErrNotFound means the API has no usable data for the query: the match
	// isn't over yet, never started, or the player is unknown.
	ErrNotFound = errors.New("valorantapi: not found")
	// ErrRateLimited means the API itself signalled throttling (HTTP 429).
	// Callers must treat this as "retry later", never as a failure.
	ErrRateLimited = errors.New("valorantapi: rate limited by upstream")
)

const defaultBaseURL = "https://api.henrikdev.xyz"

// Client talks to the HenrikDev Valorant API. Every outbound request passes
// through the shared rate limiter first.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    *RateLimiter
}

func NewClient(limiter *RateLimiter) *Client {
	baseURL := os.Getenv("VALORANT_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  os.Getenv("VALORANT_API_KEY"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Limiter: limiter,
	}
}

// RecentMatches fetches the player's recent match history for one region.
func (c *Client) RecentMatches(ctx context.Context, region string, ident PlayerIdentity) ([]APIMatch, error) {
	path := fmt.Sprintf("/valorant/v3/matches/%s/%s/%s",
		url.PathEscape(region), url.PathEscape(ident.Name), url.PathEscape(ident.Tag))

	var resp matchListResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNotFound
	}
	return resp.Data, nil
}

// RecentMatchesAnyRegion queries the primary region first, then falls back to
// the remaining regions before giving up. A rate-limit signal aborts the
// fallback chain immediately.
func (c *Client) RecentMatchesAnyRegion(ctx context.Context, primary string, ident PlayerIdentity) ([]APIMatch, string, error) {
	tried := map[string]bool{}
	order := append([]string{primary}, Regions...)

	var lastErr error = ErrNotFound
	for _, region := range order {
		if region == "" || tried[region] {
			continue
		}
		tried[region] = true

		matches, err := c.RecentMatches(ctx, region, ident)
		if err == nil {
			return matches, region, nil
		}
		if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
			return nil, "", err
		}
		log.Printf("[VALAPI] region %s gave no history for %s#%s: %v", region, ident.Name, ident.Tag, err)
		lastErr = err
	}
	return nil, "", lastErr
}

// CurrentMMR fetches the player's current competitive standing.
func (c *Client) CurrentMMR(ctx context.Context, region string, ident PlayerIdentity) (*MMRData, error) {
	path := fmt.Sprintf("/valorant/v2/mmr/%s/%s/%s",
		url.PathEscape(region), url.PathEscape(ident.Name), url.PathEscape(ident.Tag))

	var resp mmrResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.CurrentData, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.Limiter.Acquire(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("valorant API request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("valorant API returned %d for %s: %s", resp.StatusCode, path, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode valorant API response: %w", err)
	}
	return nil
}
