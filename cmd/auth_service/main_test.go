package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"signin_service/internal/config"
	"signin_service/internal/lib/logger/handlers/slogdiscard"
	"signin_service/internal/models"
	"signin_service/internal/storage/memory"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (p *capturePublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) lastToken(t *testing.T, purpose string) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.msgs) - 1; i >= 0; i-- {
		if p.msgs[i].Purpose != purpose {
			continue
		}
		u, err := url.Parse(p.msgs[i].Link)
		require.NoError(t, err)
		return u.Query().Get("token")
	}

	t.Fatalf("no %s message published", purpose)
	return ""
}

func newTestRouter(t *testing.T) (*chi.Mux, *capturePublisher) {
	t.Helper()

	return newTestRouterWith(t, func(*config.Config) {})
}

func newTestRouterWith(t *testing.T, tweak func(*config.Config)) (*chi.Mux, *capturePublisher) {
	t.Helper()

	cfg := &config.Config{
		Env:     envLocal,
		Storage: config.StorageMemory,
		Auth: config.Auth{
			SignInPath:      "/auth/login",
			ErrorPath:       "/auth/error",
			SessionStrategy: "jwt",
			DefaultRedirect: "/settings",
			BaseURL:         "http://localhost:8080",
			BcryptCost:      4,
		},
		Tokens: config.Tokens{
			SessionTTL:           time.Hour,
			SessionSecret:        "router-secret",
			VerificationTokenTTL: time.Hour,
			PasswordResetTTL:     time.Hour,
			TwoFactorCodeTTL:     5 * time.Minute,
		},
	}

	tweak(cfg)

	log := slogdiscard.NewDiscardLogger()
	store := memory.New()
	pub := &capturePublisher{}

	authService, sessions := setupAuth(log, cfg, store, store, pub)

	return setupRouter(log, cfg, authService, sessions), pub
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func TestRouterSignInFlow(t *testing.T) {
	router, pub := newTestRouter(t)

	rr := do(t, router, http.MethodPost, "/api/auth/register",
		`{"email":"flow@example.com","name":"Flow","password":"secret-pass"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"flow@example.com","password":"secret-pass"}`, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/auth/new-verification",
		`{"token":"`+pub.lastToken(t, models.PurposeVerification)+`"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"flow@example.com","password":"secret-pass"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var loginResp struct {
		SessionToken string `json:"session_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.SessionToken)

	rr = do(t, router, http.MethodGet, "/api/auth/session", "", loginResp.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"flow@example.com"`)
	assert.Contains(t, rr.Body.String(), `"role":"USER"`)

	rr = do(t, router, http.MethodGet, "/settings", "", loginResp.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Flow"`)

	rr = do(t, router, http.MethodGet, "/auth/login", "", loginResp.SessionToken)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/settings", rr.Header().Get("Location"))
}

func TestRouterGuestIsRedirectedFromSettings(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/settings?tab=security", "", "")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/login?callbackUrl=%2Fsettings%3Ftab%3Dsecurity", rr.Header().Get("Location"))
}

func TestRouterSessionWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/api/auth/session", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"session":null`)
}

func TestRouterCustomAuthPagesAreReachable(t *testing.T) {
	router, _ := newTestRouterWith(t, func(cfg *config.Config) {
		cfg.Auth.SignInPath = "/login"
		cfg.Auth.ErrorPath = "/oops"
	})

	rr := do(t, router, http.MethodGet, "/settings", "", "")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fsettings", rr.Header().Get("Location"))

	// guests reach the sign-in and error pages instead of bouncing back to them
	for _, page := range []string{"/login", "/oops"} {
		rr = do(t, router, http.MethodGet, page, "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code, page)
	}
}
