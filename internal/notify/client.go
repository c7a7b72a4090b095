// Package notify talks to the notification/profile platform and fans out
// back-in-stock notifications to pending subscribers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const apiRevision = "2024-02-15"

// API is the notification-platform surface the dispatcher needs. The concrete
// Client implements it; tests provide fakes.
type API interface {
	SubscribeProfile(ctx context.Context, email, phone string, smsConsent bool) error
	FindProfileID(ctx context.Context, email string) (string, error)
	UpdateProfileProperties(ctx context.Context, profileID string, props map[string]interface{}) error
	TrackEvent(ctx context.Context, metric, email string, props map[string]interface{}) error
}

// APIError carries a failed platform call's status and message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notify API error: status=%d message=%s", e.StatusCode, e.Message)
}

// Client is a Klaviyo-style platform client bound to one audience list.
type Client struct {
	BaseURL    string
	APIKey     string
	ListID     string
	HTTPClient *http.Client
}

// NewClient returns a Client for the notification platform.
func NewClient(apiKey, listID string) *Client {
	return &Client{
		BaseURL:    "https://a.klaviyo.com",
		APIKey:     apiKey,
		ListID:     listID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.APIKey)
	req.Header.Set("revision", apiRevision)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// SubscribeProfile adds the profile to the back-in-stock audience list.
// Email marketing consent is always granted; SMS consent only when the
// subscriber opted in and has a valid phone.
func (c *Client) SubscribeProfile(ctx context.Context, email, phone string, smsConsent bool) error {
	attrs := map[string]interface{}{
		"email": email,
		"subscriptions": map[string]interface{}{
			"email": map[string]interface{}{
				"marketing": map[string]interface{}{"consent": "SUBSCRIBED"},
			},
		},
	}
	if smsConsent && phone != "" {
		attrs["phone_number"] = phone
		attrs["subscriptions"].(map[string]interface{})["sms"] = map[string]interface{}{
			"marketing": map[string]interface{}{"consent": "SUBSCRIBED"},
		}
	}

	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "profile-subscription-bulk-create-job",
			"attributes": map[string]interface{}{
				"profiles": map[string]interface{}{
					"data": []interface{}{
						map[string]interface{}{
							"type":       "profile",
							"attributes": attrs,
						},
					},
				},
			},
			"relationships": map[string]interface{}{
				"list": map[string]interface{}{
					"data": map[string]interface{}{"type": "list", "id": c.ListID},
				},
			},
		},
	}
	return c.do(ctx, http.MethodPost, "/api/profile-subscription-bulk-create-jobs/", body, nil)
}

// FindProfileID looks up a profile id by exact email match.
// Returns "" when no profile exists.
func (c *Client) FindProfileID(ctx context.Context, email string) (string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	filter := url.QueryEscape(fmt.Sprintf(`equals(email,"%s")`, email))
	if err := c.do(ctx, http.MethodGet, "/api/profiles/?filter="+filter, nil, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].ID, nil
}

// UpdateProfileProperties patches custom properties onto a profile.
func (c *Client) UpdateProfileProperties(ctx context.Context, profileID string, props map[string]interface{}) error {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "profile",
			"id":   profileID,
			"attributes": map[string]interface{}{
				"properties": props,
			},
		},
	}
	return c.do(ctx, http.MethodPatch, "/api/profiles/"+profileID+"/", body, nil)
}

// TrackEvent emits a tracked event against the profile identified by email.
func (c *Client) TrackEvent(ctx context.Context, metric, email string, props map[string]interface{}) error {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "event",
			"attributes": map[string]interface{}{
				"properties": props,
				"metric": map[string]interface{}{
					"data": map[string]interface{}{
						"type":       "metric",
						"attributes": map[string]interface{}{"name": metric},
					},
				},
				"profile": map[string]interface{}{
					"data": map[string]interface{}{
						"type":       "profile",
						"attributes": map[string]interface{}{"email": email},
					},
				},
			},
		},
	}
	return c.do(ctx, http.MethodPost, "/api/events/", body, nil)
}
