package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/climatescope/climatescope/internal/jwt"
	"github.com/climatescope/climatescope/internal/logger"
)

// ListReportsTokener defines only the methods needed by this handler.
type ListReportsTokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// ReportLister defines the interface that the service must implement.
type ReportLister interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ListReportsResponse represents the caller's report identifiers
// swagger:model ListReportsResponse
type ListReportsResponse struct {
	// Report identifiers, newest first
	Reports []string `json:"reports"`
}

// ListReportsErrorResponse represents an error response for report listing
// swagger:model ListReportsErrorResponse
type ListReportsErrorResponse struct {
	// Error message
	// default: Unauthorized
	Message string `json:"message"`
}

// NewListReportsHandler returns an HTTP handler that lists the caller's reports.
// @Summary List stored weather reports
// @Description Returns the identifiers of all reports owned by the authenticated user, newest first.
// @Tags reports
// @Produce json
// @Success 200 {object} handlers.ListReportsResponse "Report identifiers"
// @Failure 401 {object} handlers.ListReportsErrorResponse "Unauthorized"
// @Failure 500 {object} handlers.ListReportsErrorResponse "Internal server error"
// @Router /api/reports [get]
// @Security BearerAuth
func NewListReportsHandler(
	svc ReportLister,
	tokenGetter ListReportsTokener,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Content-Type", "application/json")

		tokenStr, err := tokenGetter.GetTokenFromRequest(ctx, r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ListReportsErrorResponse{
				Message: "Unauthorized",
			})
			return
		}

		claims, err := tokenGetter.GetClaims(ctx, tokenStr)
		if err != nil {
			logger.Log.Errorw("failed to parse token claims", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ListReportsErrorResponse{
				Message: "Unauthorized",
			})
			return
		}

		ids, err := svc.ListByUserID(ctx, claims.UserID)
		if err != nil {
			logger.Log.Errorw("failed to list reports", "userID", claims.UserID, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ListReportsErrorResponse{
				Message: "Server error fetching reports.",
			})
			return
		}

		reports := make([]string, 0, len(ids))
		for _, id := range ids {
			reports = append(reports, id.String())
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(ListReportsResponse{Reports: reports})
	}
}
