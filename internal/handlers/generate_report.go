package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/climatescope/climatescope/internal/facades"
	"github.com/climatescope/climatescope/internal/jwt"
	"github.com/climatescope/climatescope/internal/logger"
	"github.com/climatescope/climatescope/internal/models"
)

// GenerateReportTokener defines only the methods needed by this handler.
type GenerateReportTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// ReportGenerator defines the interface that the service must implement.
type ReportGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, city, country, startDate, endDate string, variables []string) (*models.ReportDB, *models.ReportPayload, error)
}

// GenerateReportRequest represents the JSON body for report generation
// swagger:model GenerateReportRequest
type GenerateReportRequest struct {
	// City to geocode
	// required: true
	// default: Paris
	City string `json:"city" validate:"required"`

	// Optional country to narrow the geocoding query
	// default: France
	Country string `json:"country"`

	// Start of the requested period, inclusive
	// required: true
	// default: 2020-01-01
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`

	// End of the requested period, inclusive
	// required: true
	// default: 2020-01-03
	EndDate string `json:"endDate" validate:"required,datetime=2006-01-02"`

	// Daily weather variables to fetch
	// required: true
	// default: ["temperature_2m_mean","precipitation_sum"]
	Variables []string `json:"variables" validate:"required,min=1,dive,required"`
}

// GenerateReportResponse represents a successful report generation response
// swagger:model GenerateReportResponse
type GenerateReportResponse struct {
	// Success message
	// default: Report generated and saved successfully!
	Message string `json:"message"`

	// Identifier of the persisted report
	ReportID string `json:"reportId"`

	// The assembled report payload
	Data *models.ReportPayload `json:"data"`
}

// GenerateReportErrorResponse represents an error response for report generation
// swagger:model GenerateReportErrorResponse
type GenerateReportErrorResponse struct {
	// Error message
	// default: Validation failed
	Message string `json:"message"`

	// Per-field validation messages, present on 400 responses only
	Errors map[string]string `json:"errors,omitempty"`

	// Upstream provider detail, present on 500 responses only
	Error string `json:"error,omitempty"`
}

// NewGenerateReportHandler returns an HTTP handler for report generation.
// @Summary Generate a weather report
// @Description Geocodes the city, fetches the historical daily weather series for the requested period and persists the combined report under the authenticated user.
// @Tags reports
// @Accept json
// @Produce json
// @Param generateReportRequest body handlers.GenerateReportRequest true "Report generation request"
// @Success 200 {object} handlers.GenerateReportResponse "Report generated and saved"
// @Failure 400 {object} handlers.GenerateReportErrorResponse "Validation failed"
// @Failure 401 {object} handlers.GenerateReportErrorResponse "Unauthorized"
// @Failure 500 {object} handlers.GenerateReportErrorResponse "Upstream or internal failure"
// @Router /api/generate-report [post]
// @Security BearerAuth
func NewGenerateReportHandler(
	svc ReportGenerator,
	tokenGetter GenerateReportTokener,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Content-Type", "application/json")

		tokenStr, err := tokenGetter.GetTokenFromRequest(ctx, r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(GenerateReportErrorResponse{
				Message: "Unauthorized. Please log in to generate a report.",
			})
			return
		}

		claims, err := tokenGetter.GetClaims(ctx, tokenStr)
		if err != nil {
			logger.Log.Errorw("failed to parse token claims", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(GenerateReportErrorResponse{
				Message: "Unauthorized. Please log in to generate a report.",
			})
			return
		}

		var req GenerateReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GenerateReportErrorResponse{
				Message: "Invalid request body",
			})
			return
		}

		if err := validate.Struct(req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GenerateReportErrorResponse{
				Message: "Validation failed",
				Errors:  validationErrors(err),
			})
			return
		}
		if req.EndDate < req.StartDate {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GenerateReportErrorResponse{
				Message: "Validation failed",
				Errors:  map[string]string{"endDate": "must not be before startDate"},
			})
			return
		}

		report, payload, err := svc.Generate(ctx, claims.UserID,
			req.City, req.Country, req.StartDate, req.EndDate, req.Variables)
		if err != nil {
			var upstream *facades.UpstreamError
			switch {
			case errors.Is(err, facades.ErrNotConfigured):
				logger.Log.Errorw("geocoding service misconfigured", "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(GenerateReportErrorResponse{
					Message: "Geocoding service not configured on server.",
				})
			case errors.As(err, &upstream):
				logger.Log.Errorw("upstream failure during report generation", "provider", upstream.Provider, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(GenerateReportErrorResponse{
					Message: "An unexpected error occurred on the server.",
					Error:   upstream.Error(),
				})
			default:
				logger.Log.Errorw("failed to generate report", "userID", claims.UserID, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(GenerateReportErrorResponse{
					Message: "An unexpected error occurred on the server.",
				})
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(GenerateReportResponse{
			Message:  "Report generated and saved successfully!",
			ReportID: report.ReportID.String(),
			Data:     payload,
		})
	}
}
