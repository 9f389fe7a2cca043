package anticheat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxQueryLength is the longest query the search API accepts
const maxQueryLength = 256

// SearchClient queries a web search API for verbatim matches of answer
// fragments. The response shape follows the Custom Search JSON API.
type SearchClient struct {
	baseURL    string
	apiKey     string
	engineID   string
	httpClient *http.Client
}

// NewSearchClient creates a search client with its own request timeout
func NewSearchClient(baseURL, apiKey, engineID string, timeout time.Duration) *SearchClient {
	return &SearchClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		engineID: engineID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// MaxQueryLength returns the query-length limit callers must truncate to
func (c *SearchClient) MaxQueryLength() int {
	return maxQueryLength
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Found reports whether the query matches anything in the search index.
// Missing credentials are reported as an error so the caller can decide how
// to degrade.
func (c *SearchClient) Found(ctx context.Context, query string) (bool, error) {
	if c.apiKey == "" || c.engineID == "" {
		return false, fmt.Errorf("search credentials not configured")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false, fmt.Errorf("invalid search base URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", fmt.Sprintf("%q", query))
	q.Set("num", "1")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return len(sr.Items) > 0, nil
}
