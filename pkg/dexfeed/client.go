package dexfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MaxPages is the hard ceiling on pages fetched for a single token window.
// The feed cursor is opaque and not resumable mid-window, so a runaway
// pagination loop must be cut off rather than retried.
const MaxPages = 200

// Client represents a swap-indexing API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new swap feed API client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.dexfeed.io/v1",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:       10 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// SetBaseURL overrides the API endpoint (staging, local stub).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// RawSwap represents one swap row as returned by the feed, before
// normalization into a canonical trade.
type RawSwap struct {
	TxHash        string `json:"txHash"`
	BlockNumber   uint64 `json:"blockNumber"`
	Timestamp     int64  `json:"timestamp"`
	WalletAddress string `json:"walletAddress"`
	TokenIn       string `json:"tokenIn"`
	TokenOut      string `json:"tokenOut"`
	AmountIn      string `json:"amountIn"`  // base units
	AmountOut     string `json:"amountOut"` // base units
	PriceUsd      string `json:"priceUsd"`
	Source        string `json:"source"`
}

// swapsPage is one page of the paginated swaps response. The cursor is
// opaque to us; an empty Swaps slice terminates pagination.
type swapsPage struct {
	Swaps      []RawSwap `json:"swaps"`
	NextCursor string    `json:"nextCursor"`
}

// SwapQueryOptions represents the query parameters for FetchSwaps
type SwapQueryOptions struct {
	FromTime *int64 `json:"fromTime,omitempty"`
	ToTime   *int64 `json:"toTime,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
}

// PageError reports a failed page fetch. Fetched carries the number of swaps
// accumulated from the pages that did succeed, so the caller can record how
// far the window got before aborting.
type PageError struct {
	Page    int
	Fetched int
	Err     error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("swap feed page %d failed after %d swaps: %v", e.Page, e.Fetched, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// PageFunc is invoked after every successfully fetched page with the page
// index (starting at 0) and the cumulative swap count.
type PageFunc func(pageIndex, cumulative int)

// FetchSwaps retrieves all swaps for a token within an optional time window,
// paginating until an empty page or MaxPages. A failed page aborts the whole
// call: the cursor cannot be resumed reliably, so retries happen at the
// whole-run level, never per page.
func (c *Client) FetchSwaps(ctx context.Context, token string, opts *SwapQueryOptions, onPage PageFunc) ([]RawSwap, error) {
	var all []RawSwap
	cursor := ""

	for page := 0; page < MaxPages; page++ {
		result, err := c.fetchSwapPage(ctx, token, opts, cursor)
		if err != nil {
			return nil, &PageError{Page: page, Fetched: len(all), Err: err}
		}

		if len(result.Swaps) == 0 {
			break
		}

		all = append(all, result.Swaps...)
		if onPage != nil {
			onPage(page, len(all))
		}

		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return all, nil
}

func (c *Client) fetchSwapPage(ctx context.Context, token string, opts *SwapQueryOptions, cursor string) (*swapsPage, error) {
	baseURL := fmt.Sprintf("%s/tokens/%s/swaps", c.baseURL, token)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Add("api-key", c.apiKey)

	if opts != nil {
		if opts.FromTime != nil {
			q.Add("fromTime", fmt.Sprintf("%d", *opts.FromTime))
		}
		if opts.ToTime != nil {
			q.Add("toTime", fmt.Sprintf("%d", *opts.ToTime))
		}
		if opts.Limit != nil {
			q.Add("limit", fmt.Sprintf("%d", *opts.Limit))
		}
	}
	if cursor != "" {
		q.Add("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var pageResp swapsPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &pageResp, nil
}

// holdersResponse is the feed's holder-list payload
type holdersResponse struct {
	Holders []string `json:"holders"`
}

// FetchHolders retrieves the feed's view of current holders for a token.
// Used as the API strategy of holder discovery.
func (c *Client) FetchHolders(ctx context.Context, token string) ([]string, error) {
	baseURL := fmt.Sprintf("%s/tokens/%s/holders", c.baseURL, token)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Add("api-key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var holdersResp holdersResponse
	if err := json.NewDecoder(resp.Body).Decode(&holdersResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return holdersResp.Holders, nil
}

// Ping issues a trivial one-row query and reports whether the feed answered.
// Used as a pre-flight connectivity probe before a sync run starts.
func (c *Client) Ping(ctx context.Context) bool {
	baseURL := fmt.Sprintf("%s/health", c.baseURL)
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}

	q := u.Query()
	q.Add("api-key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Helper function to create an int pointer
func IntPtr(i int) *int {
	return &i
}

// Helper function to create an int64 pointer
func Int64Ptr(i int64) *int64 {
	return &i
}
