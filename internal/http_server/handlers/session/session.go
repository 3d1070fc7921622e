package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	authsession "signin_service/internal/auth/session"
	"signin_service/internal/http_server/handlers/login"
	resp "signin_service/internal/lib/api/response"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/middleware/routeguard"
	"signin_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Session *models.Session `json:"session"`
}

type RefreshResponse struct {
	resp.Response
	SessionToken string `json:"session_token"`
}

type SessionReader interface {
	Session(token string) (models.Session, error)
}

type SessionRefresher interface {
	Refresh(ctx context.Context, token string) (string, error)
}

// Get godoc
// @Summary      Текущая сессия
// @Description  Возвращает сессию по токену из Authorization или cookie. Без валидного токена session = null.
// @Tags         session
// @Produce      json
// @Success      200  {object}  Response
// @Router       /api/auth/session [get]
func Get(log *slog.Logger, sessions SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.Get"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := routeguard.Token(r)
		if token == "" {
			render.JSON(w, r, Response{Response: resp.OK()})

			return
		}

		s, err := sessions.Session(token)
		if err != nil {
			log.Debug("invalid session token", sl.Err(err))

			render.JSON(w, r, Response{Response: resp.OK()})

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Session:  &s,
		})
	}
}

// Refresh godoc
// @Summary      Обновление сессии
// @Description  Перевыпускает сессионный токен с актуальной ролью пользователя.
// @Tags         session
// @Produce      json
// @Success      200  {object}  RefreshResponse
// @Failure      401  {object}  resp.Response
// @Failure      500  {object}  resp.Response
// @Router       /api/auth/session/refresh [post]
func Refresh(log *slog.Logger, refresher SessionRefresher, sessionTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.Refresh"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := routeguard.Token(r)
		if token == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		newToken, err := refresher.Refresh(ctx, token)
		if err != nil {
			if errors.Is(err, authsession.ErrInvalidSession) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			log.Error("failed to refresh session", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		login.SetSessionCookie(w, newToken, sessionTTL)

		render.JSON(w, r, RefreshResponse{
			Response:     resp.OK(),
			SessionToken: newToken,
		})
	}
}
