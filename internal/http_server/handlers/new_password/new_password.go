package newPassword

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Token string `json:"token" validate:"required"`
	Pass  string `json:"password" validate:"required,min=6"`
}

type Response struct {
	resp.Response
	Message string `json:"message,omitempty"`
}

type PasswordUpdater interface {
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// New godoc
// @Summary      Установка нового пароля
// @Description  Погашает токен сброса из письма и сохраняет новый пароль.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      404  {object}  resp.Response
// @Failure      500  {object}  resp.Response
// @Router       /api/auth/new-password [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	updater PasswordUpdater,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.newPassword.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := updater.ResetPassword(ctx, req.Token, req.Pass); err != nil {
			switch {
			case errors.Is(err, tokens.ErrTokenNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Invalid token!"))
			case errors.Is(err, tokens.ErrTokenExpired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Token has expired!"))
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Email does not exist!"))
			default:
				log.Error("failed to reset password", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Password updated!",
		})
	}
}
