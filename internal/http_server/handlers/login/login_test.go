package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signin_service/internal/auth"
	"signin_service/internal/auth/tokens"
	"signin_service/internal/lib/logger/handlers/slogdiscard"
	"signin_service/internal/middleware/routeguard"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	res  auth.LoginResult
	err  error
	code string
}

func (f *fakeAuth) Login(_ context.Context, _, _, code string) (auth.LoginResult, error) {
	f.code = code
	return f.res, f.err
}

func doLogin(t *testing.T, a Authenticator, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := New(slogdiscard.NewDiscardLogger(), validator.New(), a, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func TestLoginSuccessSetsCookie(t *testing.T) {
	a := &fakeAuth{res: auth.LoginResult{SessionToken: "jwt-token"}}

	rr := doLogin(t, a, `{"email":"a@x.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var got Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "jwt-token", got.SessionToken)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, routeguard.SessionCookie, cookies[0].Name)
	assert.Equal(t, "jwt-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginTwoFactorStep(t *testing.T) {
	a := &fakeAuth{res: auth.LoginResult{TwoFactorRequired: true}}

	rr := doLogin(t, a, `{"email":"a@x.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var got Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.TwoFactor)
	assert.Empty(t, got.SessionToken)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "invalid email", body: `{"email":"nope","password":"x"}`, want: http.StatusBadRequest},
		{name: "bad code format", body: `{"email":"a@x.com","password":"x","code":"12ab56"}`, want: http.StatusBadRequest},
		{name: "wrong password", body: `{"email":"a@x.com","password":"x"}`, err: auth.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "not verified", body: `{"email":"a@x.com","password":"x"}`, err: auth.ErrEmailNotVerified, want: http.StatusForbidden},
		{name: "wrong code", body: `{"email":"a@x.com","password":"x","code":"123456"}`, err: tokens.ErrInvalidCode, want: http.StatusUnauthorized},
		{name: "expired code", body: `{"email":"a@x.com","password":"x","code":"123456"}`, err: tokens.ErrTokenExpired, want: http.StatusUnauthorized},
		{name: "denied", body: `{"email":"a@x.com","password":"x","code":"123456"}`, err: auth.ErrAccessDenied, want: http.StatusForbidden},
		{name: "dependency", body: `{"email":"a@x.com","password":"x"}`, err: errors.New("db down"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doLogin(t, &fakeAuth{err: tt.err}, tt.body)
			assert.Equal(t, tt.want, rr.Code)
			assert.Contains(t, rr.Body.String(), `"status":"error"`)
		})
	}
}
