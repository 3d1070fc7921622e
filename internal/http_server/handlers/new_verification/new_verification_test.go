package newVerification

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signin_service/internal/auth"
	"signin_service/internal/auth/tokens"
	"signin_service/internal/lib/logger/handlers/slogdiscard"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct{ err error }

func (f fakeVerifier) VerifyUser(_ context.Context, _ string) error {
	return f.err
}

func TestNewVerification(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"verified", `{"token":"t"}`, nil, http.StatusOK, "Email verified!"},
		{"missing token", `{}`, nil, http.StatusBadRequest, ""},
		{"bad json", `{"token":`, nil, http.StatusBadRequest, "Failed to decode request"},
		{"unknown token", `{"token":"t"}`,
			fmt.Errorf("auth.VerifyUser: %w", tokens.ErrTokenNotFound), http.StatusNotFound, "Token does not exist!"},
		{"expired token", `{"token":"t"}`,
			fmt.Errorf("auth.VerifyUser: %w", tokens.ErrTokenExpired), http.StatusBadRequest, "Token has expired!"},
		{"user gone", `{"token":"t"}`,
			fmt.Errorf("auth.VerifyUser: %w", auth.ErrUserNotFound), http.StatusNotFound, "Email does not exist!"},
		{"storage down", `{"token":"t"}`,
			assert.AnError, http.StatusInternalServerError, "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(slogdiscard.NewDiscardLogger(), validator.New(), fakeVerifier{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/auth/new-verification", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}
