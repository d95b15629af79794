package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/climatescope/climatescope/internal/jwt"
	"github.com/climatescope/climatescope/internal/logger"
	"github.com/climatescope/climatescope/internal/models"
	"github.com/climatescope/climatescope/internal/services"
)

// GetReportTokener defines only the methods needed by this handler.
type GetReportTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// ReportGetter defines the interface that the service must implement.
type ReportGetter interface {
	GetByID(ctx context.Context, userID uuid.UUID, reportID string) (*models.ReportDB, error)
}

// GetReportErrorResponse represents an error response for report retrieval
// swagger:model GetReportErrorResponse
type GetReportErrorResponse struct {
	// Error message
	// default: Report not found.
	Message string `json:"message"`
}

// NewGetReportHandler returns an HTTP handler that loads a stored report.
// @Summary Get a stored weather report
// @Description Returns the persisted report document. Reports are only visible to their owner.
// @Tags reports
// @Produce json
// @Param reportId path string true "Report identifier"
// @Success 200 {object} models.ReportDB "Stored report"
// @Failure 400 {object} handlers.GetReportErrorResponse "Invalid report ID format"
// @Failure 401 {object} handlers.GetReportErrorResponse "Unauthorized"
// @Failure 403 {object} handlers.GetReportErrorResponse "Report owned by another user"
// @Failure 404 {object} handlers.GetReportErrorResponse "Report not found"
// @Router /api/report/{reportId} [get]
// @Security BearerAuth
func NewGetReportHandler(
	svc ReportGetter,
	tokenGetter GetReportTokener,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Content-Type", "application/json")

		tokenStr, err := tokenGetter.GetTokenFromRequest(ctx, r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(GetReportErrorResponse{
				Message: "Unauthorized",
			})
			return
		}

		claims, err := tokenGetter.GetClaims(ctx, tokenStr)
		if err != nil {
			logger.Log.Errorw("failed to parse token claims", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(GetReportErrorResponse{
				Message: "Unauthorized",
			})
			return
		}

		reportID := chi.URLParam(r, "reportId")
		report, err := svc.GetByID(ctx, claims.UserID, reportID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrMalformedReportID):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(GetReportErrorResponse{
					Message: "Invalid Report ID format.",
				})
			case errors.Is(err, services.ErrReportNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(GetReportErrorResponse{
					Message: "Report not found.",
				})
			case errors.Is(err, services.ErrNotReportOwner):
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(GetReportErrorResponse{
					Message: "Unauthorized to view this report.",
				})
			default:
				logger.Log.Errorw("failed to fetch report", "reportID", reportID, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(GetReportErrorResponse{
					Message: "Server error fetching report.",
				})
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(report)
	}
}
