package resendEmail

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signin_service/internal/auth"
	"signin_service/internal/lib/apperr"
	"signin_service/internal/lib/logger/handlers/slogdiscard"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type fakeResender struct {
	err    error
	called string
}

func (f *fakeResender) ResendVerification(_ context.Context, email string) error {
	f.called = email
	return f.err
}

func TestResend(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "sent",
			body:       `{"email":"a@example.com"}`,
			wantStatus: http.StatusOK,
			wantBody:   "Confirmation email sent!",
		},
		{
			name:       "bad json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Failed to decode request",
		},
		{
			name:       "invalid email",
			body:       `{"email":"nope"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown email",
			body:       `{"email":"ghost@example.com"}`,
			err:        fmt.Errorf("auth.ResendVerification: %w", auth.ErrUserNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   "Email does not exist!",
		},
		{
			name:       "dependency failure",
			body:       `{"email":"a@example.com"}`,
			err:        apperr.Dependency("storage", assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resender := &fakeResender{err: tt.err}
			h := New(slogdiscard.NewDiscardLogger(), validator.New(), resender)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/verify/resend", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}
