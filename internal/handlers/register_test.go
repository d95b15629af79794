package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/climatescope/climatescope/internal/services"
)

func TestRegisterHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()

	tests := []struct {
		name          string
		reqBody       RegisterRequest
		rawBody       string
		mockSetup     func(m *MockRegisterer)
		expectedCode  int
		expectedMsg   string
		expectedError string // key in the errors map expected to be present
	}{
		{
			name:    "success",
			reqBody: RegisterRequest{Name: "John Doe", Email: "john@example.com", Password: "secret123"},
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().
					Register(gomock.Any(), "John Doe", "john@example.com", "secret123").
					Return(userID, nil)
			},
			expectedCode: http.StatusCreated,
			expectedMsg:  "User registered successfully!",
		},
		{
			name:    "email already registered",
			reqBody: RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "secret123"},
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().
					Register(gomock.Any(), "Alice", "alice@example.com", "secret123").
					Return(uuid.Nil, services.ErrEmailAlreadyRegistered)
			},
			expectedCode: http.StatusConflict,
			expectedMsg:  "User with this email already exists.",
		},
		{
			name:          "missing name",
			reqBody:       RegisterRequest{Email: "bob@example.com", Password: "secret123"},
			expectedCode:  http.StatusBadRequest,
			expectedMsg:   "Validation failed",
			expectedError: "name",
		},
		{
			name:          "invalid email",
			reqBody:       RegisterRequest{Name: "Bob", Email: "not-an-email", Password: "secret123"},
			expectedCode:  http.StatusBadRequest,
			expectedMsg:   "Validation failed",
			expectedError: "email",
		},
		{
			name:          "password too short",
			reqBody:       RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "short"},
			expectedCode:  http.StatusBadRequest,
			expectedMsg:   "Validation failed",
			expectedError: "password",
		},
		{
			name:    "internal server error",
			reqBody: RegisterRequest{Name: "Eve", Email: "eve@example.com", Password: "secret123"},
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().
					Register(gomock.Any(), "Eve", "eve@example.com", "secret123").
					Return(uuid.Nil, errors.New("database failure"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "An unexpected error occurred during registration.",
		},
		{
			name:         "invalid json",
			rawBody:      "{invalid json}",
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := NewMockRegisterer(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockSvc)
			}

			handler := NewRegisterHandler(mockSvc)

			var req *http.Request
			if tt.rawBody != "" {
				req = httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(tt.rawBody))
			} else {
				bodyBytes, _ := json.Marshal(tt.reqBody)
				req = httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBuffer(bodyBytes))
			}

			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			var resp RegisterErrorResponse
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedMsg, resp.Message)
			if tt.expectedError != "" {
				assert.Contains(t, resp.Errors, tt.expectedError)
			}

			if tt.expectedCode == http.StatusCreated {
				var success RegisterResponse
				assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &success))
				assert.Equal(t, userID.String(), success.UserID)
			}
		})
	}
}
