// Package remote wraps the destination commerce platform's admin API.
// Two operations are consumed: a bulk absolute-quantity inventory write
// and a variant-to-inventory-item lookup. Every response carries
// rate-limit telemetry that callers feed back into the throttle.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
)

const (
	headerAccessToken        = "X-Api-Access-Token"
	headerCallLimit          = "X-Api-Call-Limit"
	responseBodyReadLimit    = int64(4096)
	defaultRequestTimeout    = 30 * time.Second
	defaultAPIVersion        = "2024-10"
	inventorySetQuantityPath = "inventory/set_quantities"
)

var errBaseURLRequired = errors.New("remote base url is required")

// Credentials identifies one shop against the admin API.
type Credentials struct {
	Domain      string
	AccessToken string
}

// InventoryQuantity is one absolute quantity write in a bulk mutation.
type InventoryQuantity struct {
	InventoryItemID string `json:"inventory_item_id"`
	LocationID      string `json:"location_id,omitempty"`
	Available       int    `json:"available"`
}

// CostBudget mirrors the cost-based throttle extension in responses.
type CostBudget struct {
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
	MaximumAvailable   float64 `json:"maximumAvailable"`
}

// RateLimitInfo is the raw throttle telemetry attached to a response.
type RateLimitInfo struct {
	CallLimit string
	Budget    *CostBudget
}

// WriteResult reports a bulk write plus its throttle telemetry. The
// telemetry is populated even when the write itself was throttled.
type WriteResult struct {
	RateLimit RateLimitInfo
}

// Client talks to the admin API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIVersion overrides the admin API version segment.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(version)
		if trimmed != "" {
			c.apiVersion = trimmed
		}
	}
}

// NewClient builds an admin API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SetInventoryQuantities issues one bulk absolute-quantity write. On a
// 429 the returned error carries the rate-limit code and the result
// still holds whatever telemetry the response exposed.
func (c *Client) SetInventoryQuantities(ctx context.Context, creds Credentials, quantities []InventoryQuantity) (*WriteResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote client not configured")
	}
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one quantity is required")
	}

	body, err := json.Marshal(struct {
		Updates []InventoryQuantity `json:"updates"`
	}{Updates: quantities})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal inventory quantities")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(creds.Domain, inventorySetQuantityPath), bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build inventory write request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAccessToken, creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute inventory write")
	}
	defer func() { _ = resp.Body.Close() }()

	result := &WriteResult{RateLimit: RateLimitInfo{CallLimit: resp.Header.Get(headerCallLimit)}}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))

	var decoded struct {
		Success    bool `json:"success"`
		Extensions struct {
			Cost *struct {
				ThrottleStatus *CostBudget `json:"throttleStatus"`
			} `json:"cost"`
		} `json:"extensions"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Extensions.Cost != nil {
			result.RateLimit.Budget = decoded.Extensions.Cost.ThrottleStatus
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return result, pkgerrors.New(pkgerrors.CodeRateLimit, "inventory write throttled")
	case resp.StatusCode != http.StatusOK:
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))),
			"inventory write failed")
	case len(decoded.Errors) > 0:
		return result, pkgerrors.New(pkgerrors.CodeDependency, "inventory write rejected: "+decoded.Errors[0].Message)
	}

	return result, nil
}

// GetInventoryItemID resolves the inventory item behind a variant.
func (c *Client) GetInventoryItemID(ctx context.Context, creds Credentials, variantID string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "remote client not configured")
	}
	if err := validateCredentials(creds); err != nil {
		return "", err
	}
	if strings.TrimSpace(variantID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "variant ID is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(creds.Domain, "variants/"+variantID), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build variant lookup request")
	}
	req.Header.Set(headerAccessToken, creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute variant lookup")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "variant not found on destination shop")
	case http.StatusTooManyRequests:
		return "", pkgerrors.New(pkgerrors.CodeRateLimit, "variant lookup throttled")
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"variant lookup failed")
	}

	var decoded struct {
		Variant struct {
			InventoryItemID string `json:"inventory_item_id"`
		} `json:"variant"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode variant lookup response")
	}
	if decoded.Variant.InventoryItemID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "variant lookup returned no inventory item")
	}
	return decoded.Variant.InventoryItemID, nil
}

func (c *Client) buildURL(domain, path string) string {
	return fmt.Sprintf("%s/%s/api/%s/%s", c.baseURL, strings.TrimSpace(domain), c.apiVersion, strings.TrimLeft(path, "/"))
}

func validateCredentials(creds Credentials) error {
	if strings.TrimSpace(creds.Domain) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop domain is required")
	}
	if strings.TrimSpace(creds.AccessToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop access token is required")
	}
	return nil
}
