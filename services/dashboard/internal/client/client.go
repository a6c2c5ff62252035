// Package client talks to the snow-cannon REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// Client fetches cannons from the legacy routes, which answer with bare bodies.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client rooted at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ListCannons fetches GET /snowCannons with the server-side filter applied.
func (c *Client) ListCannons(ctx context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error) {
	var out []cannon.EnrichedCannon
	if err := c.get(ctx, "/snowCannons", query(f), &out); err != nil {
		return nil, fmt.Errorf("list cannons: %w", err)
	}
	if out == nil {
		out = []cannon.EnrichedCannon{}
	}
	return out, nil
}

// GetCannon fetches GET /snowCannons/:id. A 404 yields nil, nil.
func (c *Client) GetCannon(ctx context.Context, id int) (*cannon.EnrichedCannon, error) {
	var out cannon.EnrichedCannon
	err := c.get(ctx, "/snowCannons/"+strconv.Itoa(id), nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cannon %d: %w", id, err)
	}
	return &out, nil
}

// GeoJSON fetches the enriched layer from GET /snowCannons/geojson.
func (c *Client) GeoJSON(ctx context.Context) (*geojson.FeatureCollection, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/snowCannons/geojson", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch geojson: %w", err)
	}
	fc, err := geo.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch geojson: %w", err)
	}
	return fc, nil
}

func query(f cannon.Filter) url.Values {
	q := url.Values{}
	if f.Sector != nil {
		q.Set("secteur", strconv.Itoa(*f.Sector))
	}
	if f.Type != nil {
		q.Set("type", string(*f.Type))
	}
	if f.MinConsumption != nil {
		q.Set("minConsumption", strconv.FormatFloat(*f.MinConsumption, 'f', -1, 64))
	}
	if f.MaxConsumption != nil {
		q.Set("maxConsumption", strconv.FormatFloat(*f.MaxConsumption, 'f', -1, 64))
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
