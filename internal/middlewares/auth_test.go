package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/climatescope/climatescope/internal/jwt"
)

func TestAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	claims := &jwt.Claims{
		UserID:           uuid.New(),
		RegisteredClaims: jwtlib.RegisteredClaims{ID: "jti-1"},
	}

	tests := []struct {
		name             string
		mockSetup        func(tokener *MockTokener, revocations *MockRevocationChecker)
		expectedStatus   int
		expectNextCalled bool
	}{
		{
			name: "NoToken",
			mockSetup: func(tokener *MockTokener, revocations *MockRevocationChecker) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("", errors.New("no token"))
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "InvalidToken",
			mockSetup: func(tokener *MockTokener, revocations *MockRevocationChecker) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("sometoken", nil)
				tokener.EXPECT().Validate(gomock.Any(), "sometoken").
					Return(errors.New("invalid token"))
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "RevokedToken",
			mockSetup: func(tokener *MockTokener, revocations *MockRevocationChecker) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("revokedtoken", nil)
				tokener.EXPECT().Validate(gomock.Any(), "revokedtoken").Return(nil)
				tokener.EXPECT().GetClaims(gomock.Any(), "revokedtoken").Return(claims, nil)
				revocations.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(true, nil)
			},
			expectedStatus:   http.StatusUnauthorized,
			expectNextCalled: false,
		},
		{
			name: "RevocationCheckFails",
			mockSetup: func(tokener *MockTokener, revocations *MockRevocationChecker) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("sometoken", nil)
				tokener.EXPECT().Validate(gomock.Any(), "sometoken").Return(nil)
				tokener.EXPECT().GetClaims(gomock.Any(), "sometoken").Return(claims, nil)
				revocations.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, errors.New("redis down"))
			},
			expectedStatus:   http.StatusInternalServerError,
			expectNextCalled: false,
		},
		{
			name: "ValidToken",
			mockSetup: func(tokener *MockTokener, revocations *MockRevocationChecker) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).
					Return("validtoken", nil)
				tokener.EXPECT().Validate(gomock.Any(), "validtoken").Return(nil)
				tokener.EXPECT().GetClaims(gomock.Any(), "validtoken").Return(claims, nil)
				revocations.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, nil)
			},
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTokener := NewMockTokener(ctrl)
			mockRevocations := NewMockRevocationChecker(ctrl)
			tt.mockSetup(mockTokener, mockRevocations)

			nextCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			handler := AuthMiddleware(mockTokener, mockRevocations)(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectNextCalled, nextCalled)
		})
	}
}
