package facades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/climatescope/climatescope/internal/logger"
)

// ErrNotConfigured is returned when no geocoding API key is configured.
var ErrNotConfigured = errors.New("geocoding service not configured")

// GeocodeResult is the single best match for a free-text location query.
type GeocodeResult struct {
	Label string  // human-readable location label
	Lat   float64 // latitude of the best match
	Lng   float64 // longitude of the best match
}

// GeocoderFacade resolves free-text city names to coordinates via the
// OpenCage forward geocoding API.
type GeocoderFacade struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeocoderFacade creates a geocoder facade. The client should carry a
// bounded timeout; a failed or slow call aborts the whole report generation.
func NewGeocoderFacade(apiKey, baseURL string, client *http.Client) *GeocoderFacade {
	return &GeocoderFacade{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

// Geocode resolves "city" or "city, country" to a single coordinate pair.
// The returned label is the submitted query string, which is what gets
// persisted as the report's location name.
func (f *GeocoderFacade) Geocode(ctx context.Context, city, country string) (*GeocodeResult, error) {
	if f.apiKey == "" {
		logger.Log.Error("geocoding API key is not configured")
		return nil, ErrNotConfigured
	}

	query := city
	if country != "" {
		query = fmt.Sprintf("%s, %s", city, country)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", f.apiKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", f.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Log.Errorw("geocoding request failed", "query", query, "error", err)
		return nil, &UpstreamError{Provider: "geocoder", Message: err.Error()}
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Formatted string `json:"formatted"`
			Geometry  struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"geometry"`
		} `json:"results"`
		Status struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && resp.StatusCode < 300 {
		logger.Log.Errorw("geocoding response decode failed", "query", query, "error", err)
		return nil, &UpstreamError{Provider: "geocoder", Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(payload.Results) == 0 {
		reason := payload.Status.Message
		if reason == "" {
			reason = "unknown error"
		}
		logger.Log.Errorw("geocoding failed", "query", query, "status", resp.StatusCode, "reason", reason)
		return nil, &UpstreamError{
			Provider: "geocoder",
			Message:  fmt.Sprintf("geocoding failed for location %s: %s", query, reason),
		}
	}

	best := payload.Results[0]
	logger.Log.Infow("geocoded location", "query", query, "lat", best.Geometry.Lat, "lng", best.Geometry.Lng)

	return &GeocodeResult{
		Label: query,
		Lat:   best.Geometry.Lat,
		Lng:   best.Geometry.Lng,
	}, nil
}
