package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/climatescope/climatescope/internal/jwt"
	"github.com/climatescope/climatescope/internal/models"
	"github.com/climatescope/climatescope/internal/services"
	"github.com/golang/mock/gomock"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name         string
		userName     string
		email        string
		lookupEmail  string
		password     string
		existingUser *models.UserDB
		readerErr    error
		writerErr    error
		wantErr      error
	}{
		{
			name:        "successful registration",
			userName:    "Alice",
			email:       "alice@example.com",
			lookupEmail: "alice@example.com",
			password:    "password123",
		},
		{
			name:        "email is case normalized",
			userName:    "Alice",
			email:       "  Alice@Example.COM ",
			lookupEmail: "alice@example.com",
			password:    "password123",
		},
		{
			name:         "email already registered",
			userName:     "Bob",
			email:        "bob@example.com",
			lookupEmail:  "bob@example.com",
			password:     "password123",
			existingUser: &models.UserDB{UserID: uuid.New()},
			wantErr:      services.ErrEmailAlreadyRegistered,
		},
		{
			name:        "reader error",
			userName:    "Eve",
			email:       "eve@example.com",
			lookupEmail: "eve@example.com",
			password:    "password123",
			readerErr:   errors.New("db error"),
			wantErr:     errors.New("db error"),
		},
		{
			name:        "writer error",
			userName:    "Carol",
			email:       "carol@example.com",
			lookupEmail: "carol@example.com",
			password:    "password123",
			writerErr:   errors.New("save error"),
			wantErr:     errors.New("save error"),
		},
		{
			name:        "concurrent registration loses unique constraint race",
			userName:    "Dave",
			email:       "dave@example.com",
			lookupEmail: "dave@example.com",
			password:    "password123",
			writerErr:   &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			wantErr:     services.ErrEmailAlreadyRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockReader := services.NewMockUserReader(ctrl)
			mockWriter := services.NewMockUserWriter(ctrl)
			mockJWT := services.NewMockJWTGenerator(ctrl)
			mockRevoker := services.NewMockTokenRevoker(ctrl)

			svc := services.NewAuthService(mockReader, mockWriter, mockJWT, mockRevoker)

			mockReader.EXPECT().
				GetByEmail(gomock.Any(), tt.lookupEmail).
				Return(tt.existingUser, tt.readerErr)

			wantID := uuid.New()
			if tt.existingUser == nil && tt.readerErr == nil {
				mockWriter.EXPECT().
					Save(gomock.Any(), tt.userName, tt.lookupEmail, gomock.Not(tt.password)).
					DoAndReturn(func(ctx context.Context, name, email, hash string) (uuid.UUID, error) {
						assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.password)),
							"stored password must be a hash of the submitted one")
						if tt.writerErr != nil {
							return uuid.Nil, tt.writerErr
						}
						return wantID, nil
					})
			}

			userID, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.EqualError(t, err, tt.wantErr.Error())
				assert.Equal(t, uuid.Nil, userID)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, wantID, userID)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	password := "secret-password"
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userID := uuid.New()

	tests := []struct {
		name      string
		email     string
		loginPass string
		user      *models.UserDB
		readerErr error
		jwtErr    error
		wantErr   error
		wantToken string
	}{
		{
			name:      "successful login",
			email:     "alice@example.com",
			loginPass: password,
			user:      &models.UserDB{UserID: userID, Email: "alice@example.com", PasswordHash: string(hashed)},
			wantToken: "token123",
		},
		{
			name:      "unknown email",
			email:     "nobody@example.com",
			loginPass: password,
			wantErr:   services.ErrInvalidCredentials,
		},
		{
			name:      "wrong password",
			email:     "alice@example.com",
			loginPass: "wrong-password",
			user:      &models.UserDB{UserID: userID, Email: "alice@example.com", PasswordHash: string(hashed)},
			wantErr:   services.ErrInvalidCredentials,
		},
		{
			name:      "reader error",
			email:     "eve@example.com",
			loginPass: password,
			readerErr: errors.New("db error"),
			wantErr:   errors.New("db error"),
		},
		{
			name:      "token generation error",
			email:     "alice@example.com",
			loginPass: password,
			user:      &models.UserDB{UserID: userID, Email: "alice@example.com", PasswordHash: string(hashed)},
			jwtErr:    errors.New("jwt error"),
			wantErr:   errors.New("jwt error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockReader := services.NewMockUserReader(ctrl)
			mockWriter := services.NewMockUserWriter(ctrl)
			mockJWT := services.NewMockJWTGenerator(ctrl)
			mockRevoker := services.NewMockTokenRevoker(ctrl)

			svc := services.NewAuthService(mockReader, mockWriter, mockJWT, mockRevoker)

			mockReader.EXPECT().
				GetByEmail(gomock.Any(), tt.email).
				Return(tt.user, tt.readerErr)

			if tt.user != nil && tt.readerErr == nil && tt.loginPass == password {
				mockJWT.EXPECT().
					Generate(gomock.Any(), tt.user.UserID).
					Return(tt.wantToken, tt.jwtErr)
			}

			token, err := svc.Login(context.Background(), tt.email, tt.loginPass)
			if tt.wantErr != nil {
				assert.EqualError(t, err, tt.wantErr.Error())
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
			}
		})
	}
}

func TestAuthService_Login_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hashed, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)

	mockReader := services.NewMockUserReader(ctrl)
	mockWriter := services.NewMockUserWriter(ctrl)
	mockJWT := services.NewMockJWTGenerator(ctrl)
	mockRevoker := services.NewMockTokenRevoker(ctrl)
	svc := services.NewAuthService(mockReader, mockWriter, mockJWT, mockRevoker)

	mockReader.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, nil)
	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "whatever")

	mockReader.EXPECT().GetByEmail(gomock.Any(), "known@example.com").
		Return(&models.UserDB{UserID: uuid.New(), PasswordHash: string(hashed)}, nil)
	_, errWrongPass := svc.Login(context.Background(), "known@example.com", "wrong")

	assert.Equal(t, errUnknown, errWrongPass, "both failures must be indistinguishable")
}

func TestAuthService_Logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReader := services.NewMockUserReader(ctrl)
	mockWriter := services.NewMockUserWriter(ctrl)
	mockJWT := services.NewMockJWTGenerator(ctrl)
	mockRevoker := services.NewMockTokenRevoker(ctrl)
	svc := services.NewAuthService(mockReader, mockWriter, mockJWT, mockRevoker)

	t.Run("revokes token for remaining lifetime", func(t *testing.T) {
		claims := &jwt.Claims{
			UserID: uuid.New(),
			RegisteredClaims: jwtlib.RegisteredClaims{
				ID:        "jti-1",
				ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}

		mockJWT.EXPECT().GetClaims(gomock.Any(), "sometoken").Return(claims, nil)
		mockRevoker.EXPECT().
			Revoke(gomock.Any(), "jti-1", gomock.Any()).
			Return(nil)

		err := svc.Logout(context.Background(), "sometoken")
		assert.NoError(t, err)
	})

	t.Run("invalid token", func(t *testing.T) {
		mockJWT.EXPECT().GetClaims(gomock.Any(), "badtoken").Return(nil, errors.New("invalid token"))

		err := svc.Logout(context.Background(), "badtoken")
		assert.Error(t, err)
	})

	t.Run("revoker error", func(t *testing.T) {
		claims := &jwt.Claims{
			UserID: uuid.New(),
			RegisteredClaims: jwtlib.RegisteredClaims{
				ID:        "jti-2",
				ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}

		mockJWT.EXPECT().GetClaims(gomock.Any(), "sometoken").Return(claims, nil)
		mockRevoker.EXPECT().Revoke(gomock.Any(), "jti-2", gomock.Any()).Return(errors.New("redis down"))

		err := svc.Logout(context.Background(), "sometoken")
		assert.Error(t, err)
	})
}
