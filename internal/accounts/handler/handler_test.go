package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"eam/internal/accounts/service"
	"eam/internal/platform/logger"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/testutil"
)

type stubAuth struct{}

func (stubAuth) Login(_ context.Context, username, password string) (*service.Session, error) {
	if username != "alice" || password != "correct horse" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}
	return &service.Session{
		AccessToken: "tok",
		TokenType:   "Bearer",
		ExpiresAt:   time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC),
		Username:    "alice",
		Role:        "viewer",
	}, nil
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	New(stubAuth{}, logger.Discard()).Register(r)
	return r
}

func TestLogin(t *testing.T) {
	rr := testutil.DoRequest(newRouter(), testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
		LoginRequest{Username: " alice ", Password: "correct horse"}))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[service.Session](t, rr)
	assert.Equal(t, "tok", got.AccessToken)
	assert.Equal(t, "Bearer", got.TokenType)
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized, "unauthorized"},
		{"missing password", `{"username":"alice"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown field", `{"username":"alice","password":"x","otp":1}`, http.StatusBadRequest, "bad_request"},
		{"empty body", ``, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(newRouter(), testutil.NewRequestWithBody(t, http.MethodPost, "/auth/login", tt.body))
			testutil.AssertStatusAndError(t, rr, tt.status, tt.code)
		})
	}
}
