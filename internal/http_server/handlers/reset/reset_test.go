package reset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signin_service/internal/auth"
	"signin_service/internal/lib/logger/handlers/slogdiscard"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type fakeResetter struct {
	err   error
	email string
}

func (f *fakeResetter) RequestPasswordReset(_ context.Context, email string) error {
	f.email = email
	return f.err
}

func TestReset(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		resetter := &fakeResetter{}
		rr := serve(t, resetter, `{"email":"a@example.com"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Reset email sent!")
		assert.Equal(t, "a@example.com", resetter.email)
	})

	t.Run("unknown email", func(t *testing.T) {
		rr := serve(t, &fakeResetter{err: auth.ErrUserNotFound}, `{"email":"ghost@example.com"}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "Email not found!")
	})

	t.Run("invalid email", func(t *testing.T) {
		resetter := &fakeResetter{}
		rr := serve(t, resetter, `{"email":"not-an-email"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, resetter.email)
	})

	t.Run("internal error", func(t *testing.T) {
		rr := serve(t, &fakeResetter{err: assert.AnError}, `{"email":"a@example.com"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func serve(t *testing.T, resetter *fakeResetter, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := New(slogdiscard.NewDiscardLogger(), validator.New(), resetter)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}
