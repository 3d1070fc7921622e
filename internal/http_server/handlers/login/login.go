package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"signin_service/internal/auth"
	"signin_service/internal/auth/tokens"
	resp "signin_service/internal/lib/api/response"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/middleware/routeguard"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required"`
	Code  string `json:"code,omitempty" validate:"omitempty,len=6,numeric"`
}

type Response struct {
	resp.Response
	SessionToken string `json:"session_token,omitempty"`
	TwoFactor    bool   `json:"two_factor,omitempty"`
	Message      string `json:"message,omitempty"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password, code string) (auth.LoginResult, error)
}

// New godoc
// @Summary      Вход по email и паролю
// @Description  Проверяет пароль и подтверждение email. Если у пользователя включена 2FA,
// @Description  первый запрос без code отправляет код на почту и возвращает two_factor=true.
// @Description  Повторный запрос с code выдает сессионный токен.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      401  {object}  resp.Response
// @Failure      403  {object}  Response
// @Failure      500  {object}  resp.Response
// @Router       /api/auth/login [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authenticator Authenticator,
	sessionTTL time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := authenticator.Login(ctx, req.Email, req.Pass, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid credentials"))
			case errors.Is(err, auth.ErrEmailNotVerified):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, Response{
					Response: resp.Error("Email is not verified"),
					Message:  "Confirmation email sent!",
				})
			case errors.Is(err, tokens.ErrInvalidCode):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid code"))
			case errors.Is(err, tokens.ErrTokenExpired):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Code expired"))
			case errors.Is(err, auth.ErrAccessDenied):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Access denied"))
			default:
				log.Error("failed to login user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		if res.TwoFactorRequired {
			render.JSON(w, r, Response{
				Response:  resp.OK(),
				TwoFactor: true,
			})

			return
		}

		SetSessionCookie(w, res.SessionToken, sessionTTL)

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			SessionToken: res.SessionToken,
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     routeguard.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
