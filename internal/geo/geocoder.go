package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/david/volunteer-connect/internal/ingest"
)

// Client talks to the external geocoding service over its JSON API. There is
// deliberately no retry or cache here: the pipeline treats any failure as
// "no coordinates" and moves on.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResponse struct {
	NormalizedAddress string  `json:"normalized_address"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Accuracy          int     `json:"accuracy"`
}

func (c *Client) Geocode(ctx context.Context, address string) (*ingest.GeocodeResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("geocoder not configured")
	}

	reqURL := c.baseURL + "/geocode?q=" + url.QueryEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode request build failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode response decode failed: %w", err)
	}
	if body.Latitude == 0 && body.Longitude == 0 {
		return nil, fmt.Errorf("geocoder returned no match for %q", address)
	}

	return &ingest.GeocodeResult{
		NormalizedAddress: body.NormalizedAddress,
		Latitude:          body.Latitude,
		Longitude:         body.Longitude,
		Accuracy:          body.Accuracy,
	}, nil
}
