package register

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signin_service/internal/auth"
	"signin_service/internal/lib/logger/handlers/slogdiscard"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type fakeRegisterer struct {
	id  string
	err error
}

func (f fakeRegisterer) RegisterNewUser(_ context.Context, _, _, _ string) (string, error) {
	return f.id, f.err
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		registerer fakeRegisterer
		wantStatus int
		wantBody   string
	}{
		{"registered", `{"email":"a@example.com","name":"A","password":"secret-pass"}`,
			fakeRegisterer{id: "user-1"}, http.StatusOK, `"user_id":"user-1"`},
		{"bad json", `{"email":`,
			fakeRegisterer{}, http.StatusBadRequest, "Failed to decode request"},
		{"invalid email", `{"email":"nope","name":"A","password":"secret-pass"}`,
			fakeRegisterer{}, http.StatusBadRequest, ""},
		{"short password", `{"email":"a@example.com","name":"A","password":"123"}`,
			fakeRegisterer{}, http.StatusBadRequest, ""},
		{"missing name", `{"email":"a@example.com","password":"secret-pass"}`,
			fakeRegisterer{}, http.StatusBadRequest, ""},
		{"duplicate email", `{"email":"a@example.com","name":"A","password":"secret-pass"}`,
			fakeRegisterer{err: fmt.Errorf("auth.RegisterNewUser: %w", auth.ErrUserExists)},
			http.StatusConflict, "Email already in use!"},
		{"storage down", `{"email":"a@example.com","name":"A","password":"secret-pass"}`,
			fakeRegisterer{err: assert.AnError}, http.StatusInternalServerError, "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(slogdiscard.NewDiscardLogger(), validator.New(), tt.registerer)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}
