package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func TestLogoutHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name         string
		mockSetup    func(svc *MockLogouter, tokener *MockLogoutTokener)
		expectedCode int
		expectedMsg  string
	}{
		{
			name: "success",
			mockSetup: func(svc *MockLogouter, tokener *MockLogoutTokener) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("token123", nil)
				svc.EXPECT().Logout(gomock.Any(), "token123").Return(nil)
			},
			expectedCode: http.StatusOK,
			expectedMsg:  "Logged out successfully",
		},
		{
			name: "missing token",
			mockSetup: func(svc *MockLogouter, tokener *MockLogoutTokener) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("", errors.New("no token"))
			},
			expectedCode: http.StatusUnauthorized,
			expectedMsg:  "Unauthorized",
		},
		{
			name: "revocation failure",
			mockSetup: func(svc *MockLogouter, tokener *MockLogoutTokener) {
				tokener.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("token123", nil)
				svc.EXPECT().Logout(gomock.Any(), "token123").Return(errors.New("redis down"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := NewMockLogouter(ctrl)
			mockTokener := NewMockLogoutTokener(ctrl)
			tt.mockSetup(mockSvc, mockTokener)

			handler := NewLogoutHandler(mockSvc, mockTokener)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			var resp map[string]string
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedMsg, resp["message"])
		})
	}
}
