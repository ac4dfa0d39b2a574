// Package httpprovider implements the HTTP Reference Providers (SPEC_FULL.md §4.10, component
// C10): polling HTTP clients for the tariff, PV, and weather provider contracts of spec.md §6.
// Grounded on the teacher's axleclient.Client (src/axleclient/client.go): a small http.Client
// wrapper with a base URL, a static bearer token, and JSON decode-on-200.
package httpprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client is a shared HTTP client for the tariff, PV, and weather reference providers. One Client
// backs all three feeds; the caller constructs a *TariffProvider, *PVProvider, or
// *WeatherProvider wrapping it with the feed-specific endpoint.
type Client struct {
	httpClient http.Client
	baseURL    string
	authToken  string
}

// New constructs a Client against baseURL, authorizing every request with a static bearer token
// (empty to disable the header entirely, matching an unauthenticated feed).
func New(httpClient http.Client, baseURL, authToken string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		authToken:  authToken,
	}
}

// get performs a GET against path, decoding a 200 JSON response into out. A non-200 status or
// transport failure is wrapped so the caller's Forecast surfaces a single diagnosable error
// rather than a raw *http.Response. The request is not retried; pipeline.BuildTick fails the
// whole tick with the wrapped error.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status code: %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
