package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultMinInterval  = 600 * time.Millisecond
	defaultRetryBackoff = 2 * time.Second
	pageSize            = 250
)

// APIError carries the status code and body of a non-success catalog response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client is a rate-limited catalog API client. It enforces a minimum interval
// between outbound calls, measured from the start of the previous call, and
// retries a rate-limited (429) call exactly once after a fixed backoff.
//
// The limiter state lives on the instance so independent clients (e.g. in
// tests) never interfere with each other.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// MinInterval is the floor between call starts; RetryBackoff is the wait
	// before the single 429 retry. Both default in NewClient.
	MinInterval  time.Duration
	RetryBackoff time.Duration

	mu       sync.Mutex
	lastCall time.Time

	nowFunc func() time.Time
	sleepFn func(time.Duration)
}

// NewClient returns a Client for a Shopify-style admin API.
// shopDomain is e.g. "example.myshopify.com"; apiVersion e.g. "2024-01".
func NewClient(shopDomain, token, apiVersion string) *Client {
	return &Client{
		BaseURL:      fmt.Sprintf("https://%s/admin/api/%s", shopDomain, apiVersion),
		Token:        token,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		MinInterval:  defaultMinInterval,
		RetryBackoff: defaultRetryBackoff,
		nowFunc:      time.Now,
		sleepFn:      time.Sleep,
	}
}

// pace blocks until the minimum inter-call interval has elapsed, then stamps
// the start of the new call.
func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastCall.IsZero() {
		if remain := c.MinInterval - c.nowFunc().Sub(c.lastCall); remain > 0 {
			c.sleepFn(remain)
		}
	}
	c.lastCall = c.nowFunc()
}

// do issues one API call, decoding a JSON response into out (when non-nil).
// It returns the response headers so callers can follow pagination links.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	retried := false
	for {
		c.pace()

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if retried {
				return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
			}
			retried = true
			c.sleepFn(c.RetryBackoff)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.Header, nil
	}
}

// ListProducts fetches the entire catalog, following the Link header's
// rel="next" page_info cursor until no next page remains.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	query := url.Values{"limit": {fmt.Sprintf("%d", pageSize)}}
	var all []Product
	for {
		var page struct {
			Products []Product `json:"products"`
		}
		hdr, err := c.do(ctx, http.MethodGet, "/products.json", query, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		all = append(all, page.Products...)

		next := nextPageInfo(hdr.Get("Link"))
		if next == "" {
			return all, nil
		}
		query = url.Values{
			"limit":     {fmt.Sprintf("%d", pageSize)},
			"page_info": {next},
		}
	}
}

// GetBundleStructure reads the product's bundle component metafield value.
// Returns "" when the metafield is absent.
func (c *Client) GetBundleStructure(ctx context.Context, productID int64) (string, error) {
	var out struct {
		Metafields []struct {
			Namespace string `json:"namespace"`
			Key       string `json:"key"`
			Value     string `json:"value"`
		} `json:"metafields"`
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return "", fmt.Errorf("get metafields for product %d: %w", productID, err)
	}
	for _, mf := range out.Metafields {
		if mf.Namespace == "bundles" && mf.Key == "structure" {
			return mf.Value, nil
		}
	}
	return "", nil
}

// UpdateTags replaces the product's entire tag string.
func (c *Client) UpdateTags(ctx context.Context, productID int64, tags []string) error {
	body := map[string]interface{}{
		"product": map[string]interface{}{
			"id":   productID,
			"tags": JoinTags(tags),
		},
	}
	path := fmt.Sprintf("/products/%d.json", productID)
	if _, err := c.do(ctx, http.MethodPut, path, nil, body, nil); err != nil {
		return fmt.Errorf("update tags for product %d: %w", productID, err)
	}
	return nil
}

// GetVariantQuantity fetches a single variant's quantity. Fallback path only;
// the snapshot covers the normal case.
func (c *Client) GetVariantQuantity(ctx context.Context, variantID string) (int, error) {
	var out struct {
		Variant struct {
			InventoryQuantity int `json:"inventory_quantity"`
		} `json:"variant"`
	}
	path := fmt.Sprintf("/variants/%s.json", variantID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return 0, fmt.Errorf("get variant %s: %w", variantID, err)
	}
	return out.Variant.InventoryQuantity, nil
}

// nextPageInfo extracts the page_info cursor from a Link header's rel="next"
// entry, e.g. `<https://x/products.json?page_info=abc&limit=250>; rel="next"`.
func nextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}
