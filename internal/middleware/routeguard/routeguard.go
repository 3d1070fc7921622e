// Package routeguard redirects requests according to the route category and
// whether the caller carries a valid session.
package routeguard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"signin_service/internal/models"
	"signin_service/internal/routes"

	"github.com/go-chi/chi/middleware"
)

const SessionCookie = "session_token"

type ctxKey struct{}

type SessionReader interface {
	Session(token string) (models.Session, error)
}

type Options struct {
	SignInPath      string
	DefaultRedirect string
}

// * New возвращает middleware: api-auth пропускается, auth-only уводит вошедших на DefaultRedirect,
// остальные закрытые страницы отправляют гостя на страницу входа с callbackUrl.
func New(log *slog.Logger, classifier *routes.Classifier, sessions SessionReader, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.routeguard"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			category := classifier.Classify(r.URL.Path)
			if category == routes.APIAuth {
				next.ServeHTTP(w, r)
				return
			}

			session, loggedIn := readSession(r, sessions)
			if loggedIn {
				r = r.WithContext(WithSession(r.Context(), session))
			}

			switch {
			case category == routes.AuthOnly && loggedIn:
				http.Redirect(w, r, opts.DefaultRedirect, http.StatusFound)
				return
			case !loggedIn && category == routes.Protected:
				log.Debug("redirecting guest to sign-in", slog.String("path", r.URL.Path))
				http.Redirect(w, r, signInURL(opts.SignInPath, r.URL), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(models.Session)
	return s, ok && s.User != nil
}

// * Token достает сессионный токен из заголовка Authorization или cookie
func Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}

	return ""
}

func readSession(r *http.Request, sessions SessionReader) (models.Session, bool) {
	token := Token(r)
	if token == "" {
		return models.Session{}, false
	}

	s, err := sessions.Session(token)
	if err != nil || s.User == nil {
		return models.Session{}, false
	}

	return s, true
}

func signInURL(signInPath string, u *url.URL) string {
	callback := u.Path
	if u.RawQuery != "" {
		callback += "?" + u.RawQuery
	}

	return signInPath + "?callbackUrl=" + url.QueryEscape(callback)
}
