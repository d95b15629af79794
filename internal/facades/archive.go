package facades

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/climatescope/climatescope/internal/logger"
	"github.com/climatescope/climatescope/internal/models"
)

// ArchiveFacade fetches historical daily weather series from the
// Open-Meteo archive API.
type ArchiveFacade struct {
	baseURL string
	client  *http.Client
}

// NewArchiveFacade creates a weather archive facade.
func NewArchiveFacade(baseURL string, client *http.Client) *ArchiveFacade {
	return &ArchiveFacade{
		baseURL: baseURL,
		client:  client,
	}
}

// FetchDaily fetches the daily series for the given coordinates and ISO date
// range in one response. Timezone resolution is delegated to the provider.
func (f *ArchiveFacade) FetchDaily(
	ctx context.Context,
	lat, lng float64,
	startDate, endDate string,
	variables []string,
) (*models.ArchiveResponse, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)
	params.Set("daily", strings.Join(variables, ","))
	params.Set("timezone", "auto")

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, params.Encode())
	logger.Log.Infow("fetching weather archive", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Log.Errorw("weather archive request failed", "error", err)
		return nil, &UpstreamError{Provider: "weather-archive", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Reason string `json:"reason"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Reason == "" {
			failure.Reason = "unknown error"
		}
		logger.Log.Errorw("weather archive error", "status", resp.StatusCode, "reason", failure.Reason)
		return nil, &UpstreamError{
			Provider: "weather-archive",
			Message:  fmt.Sprintf("failed to fetch weather data: %s", failure.Reason),
		}
	}

	var archive models.ArchiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		logger.Log.Errorw("weather archive decode failed", "error", err)
		return nil, &UpstreamError{Provider: "weather-archive", Message: err.Error()}
	}

	return &archive, nil
}
