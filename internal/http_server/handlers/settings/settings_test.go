package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signin_service/internal/auth"
	"signin_service/internal/lib/logger/handlers/slogdiscard"
	"signin_service/internal/middleware/routeguard"
	"signin_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	user   models.User
	got    auth.Settings
	gotID  string
	err    error
	called bool
}

func (f *fakeService) CurrentUser(_ context.Context, _ string) (models.User, error) {
	return f.user, nil
}

func (f *fakeService) UpdateSettings(_ context.Context, userID string, in auth.Settings) error {
	f.called = true
	f.gotID = userID
	f.got = in
	return f.err
}

func withSession(r *http.Request) *http.Request {
	return r.WithContext(routeguard.WithSession(r.Context(), models.Session{
		User: &models.SessionUser{ID: "u1"},
	}))
}

func TestGetRequiresSession(t *testing.T) {
	h := Get(slogdiscard.NewDiscardLogger(), &fakeService{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/settings", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGet(t *testing.T) {
	svc := &fakeService{user: models.User{ID: "u1", Email: "a@x.com", Role: models.RoleAdmin}}
	h := Get(slogdiscard.NewDiscardLogger(), svc)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/settings", nil)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"ADMIN"`)
	assert.Contains(t, rr.Body.String(), `"is_oauth":true`)
}

func TestPatch(t *testing.T) {
	svc := &fakeService{}
	h := Patch(slogdiscard.NewDiscardLogger(), validator.New(), svc)

	body := `{"name":"New","role":"ADMIN","password":"old123","new_password":"new123"}`
	req := withSession(httptest.NewRequest(http.MethodPatch, "/settings", strings.NewReader(body)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, svc.called)
	assert.Equal(t, "u1", svc.gotID)
	require.NotNil(t, svc.got.Role)
	assert.Equal(t, models.RoleAdmin, *svc.got.Role)
	assert.Equal(t, "new123", *svc.got.NewPassword)
	assert.Nil(t, svc.got.Email)
}

func TestPatchRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "unknown role", body: `{"role":"ROOT"}`, want: http.StatusBadRequest},
		{name: "new password without current", body: `{"new_password":"new123"}`, want: http.StatusBadRequest},
		{name: "current password without new", body: `{"password":"old123"}`, want: http.StatusBadRequest},
		{name: "wrong current password", body: `{"password":"bad","new_password":"new123"}`, err: auth.ErrInvalidCredentials, want: http.StatusBadRequest},
		{name: "email taken", body: `{"email":"b@x.com"}`, err: auth.ErrUserExists, want: http.StatusConflict},
		{name: "role change by non-admin", body: `{"role":"ADMIN"}`, err: auth.ErrRoleChangeForbidden, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Patch(slogdiscard.NewDiscardLogger(), validator.New(), &fakeService{err: tt.err})

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodPatch, "/settings", strings.NewReader(tt.body))))

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
