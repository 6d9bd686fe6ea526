// Package sam implements the client side of the SAM.gov opportunity search
// API: one classification-code query per call, bounded 429 retries, and
// normalization of raw records into the canonical Opportunity shape.
package sam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oakline/sam-radar/internal/models"
)

const (
	// DefaultBaseURL is the production opportunity search endpoint.
	DefaultBaseURL = "https://api.sam.gov/opportunities/v2/search"

	// pageLimit is the fixed server-side page size. The caller's display
	// limit is applied downstream, after dedup.
	pageLimit = 500

	// maxRetries bounds extra attempts after a 429.
	maxRetries = 3

	// baseBackoff doubles per retry: 500ms, 1s, 2s.
	baseBackoff = 500 * time.Millisecond
)

// Client queries the opportunity search endpoint. Sleep is injectable so
// tests can run the retry loop without wall-clock waits.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	Logger     *slog.Logger
	Sleep      func(ctx context.Context, d time.Duration) error
	MaxRetries int
}

// NewClient builds a client with production defaults. A nil httpClient gets
// a 30s-timeout default.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    baseURL,
		HTTP:       httpClient,
		Logger:     logger,
		Sleep:      sleepContext,
		MaxRetries: maxRetries,
	}
}

// Fetch performs a single classification-code query. All failure modes come
// back as a failed FetchResult, never as an error the caller must catch; a
// transient 429 is retried with exponential backoff before being surfaced.
func (c *Client) Fetch(ctx context.Context, code string, spec models.QuerySpec, apiKey string) models.FetchResult {
	reqURL := c.buildURL(code, spec, apiKey)

	for attempt := 0; ; attempt++ {
		result, retryable := c.attempt(ctx, code, reqURL)
		if !retryable {
			return result
		}
		if attempt >= c.MaxRetries {
			return failedResult(code,
				fmt.Sprintf("Rate limit exceeded after %d attempts", attempt+1),
				http.StatusTooManyRequests, models.ErrorTypeRateLimit)
		}
		backoff := baseBackoff << uint(attempt)
		c.Logger.Warn("rate limited by SAM.gov, backing off",
			"code", code, "attempt", attempt+1, "backoff", backoff)
		if err := c.Sleep(ctx, backoff); err != nil {
			return failedResult(code, "Network error: "+err.Error(), 0, models.ErrorTypeNetworkError)
		}
	}
}

// attempt runs one HTTP round trip. The second return value is true only for
// a 429, the sole status the retry loop handles.
func (c *Client) attempt(ctx context.Context, code, reqURL string) (models.FetchResult, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failedResult(code, "Network error: "+err.Error(), 0, models.ErrorTypeNetworkError), false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return failedResult(code, "Network error: "+err.Error(), 0, models.ErrorTypeNetworkError), false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return models.FetchResult{}, true
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errType := classifyStatus(resp.StatusCode)
		c.Logger.Warn("SAM.gov request failed",
			"code", code, "status", resp.StatusCode, "category", errType)
		// The body is deliberately not echoed into the message; statusCode
		// is preserved for programmatic branching.
		return failedResult(code, "SAM.gov API request failed", resp.StatusCode, errType), false
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failedResult(code, "Unexpected response structure from API", resp.StatusCode, models.ErrorTypeDataError), false
	}

	opportunities := make([]models.Opportunity, 0, len(payload.OpportunitiesData))
	for _, rec := range payload.OpportunitiesData {
		opportunities = append(opportunities, normalizeRecord(rec))
	}

	return models.FetchResult{
		Success:       true,
		Code:          code,
		Opportunities: opportunities,
		Count:         len(opportunities),
		TotalRecords:  payload.TotalRecords,
		Cached:        false,
	}, false
}

func (c *Client) buildURL(code string, spec models.QuerySpec, apiKey string) string {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("postedFrom", spec.PostedFrom)
	q.Set("postedTo", spec.PostedTo)
	q.Set("ncode", code)
	q.Set("ptype", strings.Join(spec.NoticeTypeCodes, ","))
	if spec.State != "" {
		q.Set("state", spec.State)
	}
	q.Set("limit", strconv.Itoa(pageLimit))
	return c.BaseURL + "?" + q.Encode()
}

func classifyStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ErrorTypeAuthentication
	case status == http.StatusNotFound:
		return models.ErrorTypeEndpointNotFound
	case status >= 500:
		return models.ErrorTypeServerError
	default:
		return models.ErrorTypeClientError
	}
}

func failedResult(code, message string, status int, errType string) models.FetchResult {
	return models.FetchResult{
		Success:       false,
		Code:          code,
		Opportunities: []models.Opportunity{},
		Error:         message,
		StatusCode:    status,
		ErrorType:     errType,
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
