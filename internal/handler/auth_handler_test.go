package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/auth"
	"github.com/storefront/user-service/internal/cqrs"
	"github.com/storefront/user-service/internal/models"
)

type mockAuthQuerier struct {
	loginFn   func(cqrs.LoginCommand) (auth.LoginResult, error)
	refreshFn func(cqrs.RefreshTokenCommand) (string, error)
}

func (m *mockAuthQuerier) Login(_ context.Context, cmd cqrs.LoginCommand) (auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(cmd)
	}
	return auth.LoginResult{}, fmt.Errorf("not configured")
}

func (m *mockAuthQuerier) RefreshToken(cmd cqrs.RefreshTokenCommand) (string, error) {
	if m.refreshFn != nil {
		return m.refreshFn(cmd)
	}
	return "", fmt.Errorf("not configured")
}

func newAuthTestRouter(q AuthQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAuthHandler(q).Register(r.Group("/v1/auth"))
	return r
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		loginFn        func(cqrs.LoginCommand) (auth.LoginResult, error)
		expectedStatus int
	}{
		{
			name: "success - valid credentials return token and profile",
			body: map[string]string{"email": "alice@example.com", "password": "securepass123"},
			loginFn: func(cmd cqrs.LoginCommand) (auth.LoginResult, error) {
				return auth.LoginResult{
					Token:   "mock.jwt.token",
					Profile: models.Profile{ID: "acc-1", Email: cmd.Email, CanPlaceOrders: true},
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unauthorised - invalid credentials",
			body: map[string]string{"email": "alice@example.com", "password": "wrongpass"},
			loginFn: func(cmd cqrs.LoginCommand) (auth.LoginResult, error) {
				return auth.LoginResult{}, apperr.ErrInvalidCredentials
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - missing password",
			body:           map[string]string{"email": "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing email",
			body:           map[string]string{"password": "securepass123"},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(&mockAuthQuerier{loginFn: tt.loginFn})
			w := doRequest(router, http.MethodPost, "/v1/auth/login", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				var res auth.LoginResult
				if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if res.Token == "" || res.Profile.ID != "acc-1" {
					t.Errorf("[%s] unexpected login result: %+v", tt.name, res)
				}
			}
		})
	}
}

func TestLoginFailureBodyDoesNotRevealCause(t *testing.T) {
	router := newAuthTestRouter(&mockAuthQuerier{loginFn: func(cqrs.LoginCommand) (auth.LoginResult, error) {
		return auth.LoginResult{}, apperr.ErrInvalidCredentials
	}})

	unknown := doRequest(router, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ghost@example.com", "password": "x"})
	wrong := doRequest(router, http.MethodPost, "/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "y"})
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("expected identical bodies, got %q and %q", unknown.Body.String(), wrong.Body.String())
	}
}

func TestRefreshToken(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		refreshFn      func(cqrs.RefreshTokenCommand) (string, error)
		expectedStatus int
	}{
		{
			name:           "success - valid token returns new JWT",
			body:           map[string]string{"token": "valid.jwt.token"},
			refreshFn:      func(cmd cqrs.RefreshTokenCommand) (string, error) { return "new.jwt.token", nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unauthorised - invalid token",
			body:           map[string]string{"token": "invalid.jwt.token"},
			refreshFn:      func(cmd cqrs.RefreshTokenCommand) (string, error) { return "", auth.ErrInvalidToken },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - missing token field",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(&mockAuthQuerier{refreshFn: tt.refreshFn})
			w := doRequest(router, http.MethodPost, "/v1/auth/refresh", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}
