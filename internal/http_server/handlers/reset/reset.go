package reset

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"signin_service/internal/auth"
	resp "signin_service/internal/lib/api/response"
	sl "signin_service/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
	Message string `json:"message,omitempty"`
}

type PasswordResetter interface {
	RequestPasswordReset(ctx context.Context, email string) error
}

// New godoc
// @Summary      Запрос сброса пароля
// @Description  Отправляет на почту ссылку для установки нового пароля.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      404  {object}  resp.Response  "Email не найден"
// @Failure      500  {object}  resp.Response
// @Router       /api/auth/reset [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	resetter PasswordResetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reset.New"

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

		if err := resetter.RequestPasswordReset(ctx, req.Email); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Email not found!"))

				return
			}

			log.Error("failed to request password reset", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Reset email sent!",
		})
	}
}
