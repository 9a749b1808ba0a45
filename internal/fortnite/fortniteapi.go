package fortnite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/metrics"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/models"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// Config carries the connection settings for the Fortnite API client
type Config struct {
	LookupURL     string
	StatsURL      string
	SeasonsURL    string
	Token         string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	RetryDelayCap time.Duration
}

// Client is the fortniteapi.io client. A single instance is shared by all
// workers: it bounds concurrent upstream requests and owns the retry policy
// for all three endpoints, so lookup, stats and seasons calls cannot drift
// apart in retry behavior.
type Client struct {
	cfg         Config
	http        *retryablehttp.Client
	rateLimiter chan struct{} // Rate limiting semaphore
}

// NewClient creates a new Fortnite API client
func NewClient(cfg Config) *Client {
	// Rate limiter (max 4 concurrent requests)
	rateLimiter := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		rateLimiter <- struct{}{}
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryDelay
	rc.RetryWaitMax = cfg.RetryDelayCap
	rc.Logger = retryLogger{}
	// Keep the last response so exhausted retries can still be classified
	// by status code.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		cfg:         cfg,
		http:        rc,
		rateLimiter: rateLimiter,
	}
}

// get performs a GET request with rate limiting, retries and metrics. The
// retry policy (429/5xx/network, Retry-After aware) lives in the underlying
// retryablehttp client. Returns body and status for 200 and 404 responses;
// every other outcome is a typed error.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, params map[string]string) ([]byte, int, error) {
	// Rate limiting: acquire semaphore
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case <-c.rateLimiter:
		defer func() { c.rateLimiter <- struct{}{} }()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	// Add headers
	req.Header.Set("Authorization", c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fortnite-stats-collector/1.0")

	// Add query parameters
	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("endpoint", endpoint).
		Str("url", req.URL.String()).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.http.Do(req)
	if resp == nil {
		metrics.RecordAPIRequest(endpoint, "error", time.Since(start).Seconds())
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: %s request failed after retries: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotFound:
		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", readErr)
		}
		return body, resp.StatusCode, nil

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, fmt.Errorf("%w (status %d): %s", ErrAuthFailure, resp.StatusCode, truncate(body, 200))

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, fmt.Errorf("%w: %s still throttled after %d retries", ErrRateLimited, endpoint, c.cfg.MaxRetries)

	default:
		return nil, resp.StatusCode, fmt.Errorf("%w: %s returned status %d: %s", ErrUpstream, endpoint, resp.StatusCode, truncate(body, 200))
	}
}

// Lookup resolves a display name to a PlayerIdentity via the lookup endpoint.
// Returns ErrPlayerNotFound when the API answers 404 or a body with no
// account id, ErrAuthFailure on a rejected token.
func (c *Client) Lookup(ctx context.Context, displayName string) (*models.PlayerIdentity, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("display name must not be empty")
	}

	params := map[string]string{
		"username": displayName,
		"strict":   "true",
	}

	body, status, err := c.get(ctx, "lookup", c.cfg.LookupURL, params)
	if err != nil {
		return nil, fmt.Errorf("lookup for %s: %w", displayName, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, displayName)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: lookup for %s: %v", ErrMalformedResponse, displayName, err)
	}
	if flag, ok := data["result"].(bool); ok && !flag {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, displayName)
	}

	accountID := extractAccountID(data)
	if accountID == "" {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, displayName)
	}

	identity := &models.PlayerIdentity{
		DisplayName: displayName,
		AccountID:   accountID,
		Platform:    asString(data["platform"]),
	}

	log.Debug().
		Str("player", displayName).
		Str("account_id", accountID).
		Msg("Player resolved")

	return identity, nil
}

// Stats fetches the raw stats document for a resolved player. The season
// filter is applied when a descriptor is supplied. Returns ErrPlayerPrivate
// when the profile hides its stats and ErrMalformedResponse when the body
// cannot be used.
func (c *Client) Stats(ctx context.Context, identity *models.PlayerIdentity, season *models.SeasonDescriptor) (*models.StatsDocument, error) {
	params := map[string]string{
		"account": identity.AccountID,
	}
	if season != nil {
		params["season"] = strconv.Itoa(season.ID)
	}

	body, status, err := c.get(ctx, "stats", c.cfg.StatsURL, params)
	if err != nil {
		return nil, fmt.Errorf("stats for %s: %w", identity.DisplayName, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: account %s", ErrPlayerNotFound, identity.AccountID)
	}

	var input models.StatsInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, fmt.Errorf("%w: stats for %s: %v", ErrMalformedResponse, identity.DisplayName, err)
	}

	// The API reports privacy and other refusals through result=false.
	// A false result with stats attached is still usable.
	if !input.Result && len(input.GlobalStats) == 0 {
		if strings.Contains(strings.ToLower(input.Error), "private") {
			return nil, fmt.Errorf("%w: %s", ErrPlayerPrivate, identity.DisplayName)
		}
		return nil, fmt.Errorf("%w: stats for %s: %s", ErrMalformedResponse, identity.DisplayName, input.Error)
	}

	return input.ToDocument(), nil
}

// Seasons enumerates all known seasons, oldest first. Any failure leaves the
// caller in degraded mode, so everything non-200 maps to an error.
func (c *Client) Seasons(ctx context.Context) ([]models.SeasonDescriptor, error) {
	params := map[string]string{
		"lang": "en",
	}

	body, status, err := c.get(ctx, "seasons", c.cfg.SeasonsURL, params)
	if err != nil {
		return nil, fmt.Errorf("seasons list: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: seasons returned status %d", ErrUpstream, status)
	}

	var input struct {
		Seasons []models.SeasonInput `json:"seasons"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, fmt.Errorf("%w: seasons list: %v", ErrMalformedResponse, err)
	}
	if len(input.Seasons) == 0 {
		return nil, fmt.Errorf("%w: seasons list is empty", ErrMalformedResponse)
	}

	seasons := make([]models.SeasonDescriptor, 0, len(input.Seasons))
	for i := range input.Seasons {
		seasons = append(seasons, *input.Seasons[i].ToSeason())
	}
	sort.SliceStable(seasons, func(i, j int) bool { return seasons[i].ID < seasons[j].ID })

	log.Debug().
		Int("count", len(seasons)).
		Msg("Seasons enumerated")

	return seasons, nil
}

// extractAccountID pulls the account id out of a lookup response. The API
// has served three shapes over time: the id at the root, inside a result
// object, and inside an account object.
func extractAccountID(data map[string]interface{}) string {
	if id := asString(data["account_id"]); id != "" {
		return id
	}
	if result, ok := data["result"].(map[string]interface{}); ok {
		if id := asString(result["account_id"]); id != "" {
			return id
		}
	}
	if account, ok := data["account"].(map[string]interface{}); ok {
		if id := asString(account["id"]); id != "" {
			return id
		}
	}
	return ""
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// truncate keeps error messages bounded when the API returns HTML error pages
func truncate(body []byte, max int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
