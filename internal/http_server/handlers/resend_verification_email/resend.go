package resendEmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"signin_service/internal/auth"
	resp "signin_service/internal/lib/api/response"
	"signin_service/internal/lib/apperr"
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

type VerificationResender interface {
	ResendVerification(ctx context.Context, email string) error
}

// New godoc
// @Summary      Повторная отправка письма верификации
// @Description  Выпускает новый токен подтверждения (старый удаляется) и отправляет ссылку на почту.
// @Description  Для уже подтвержденного email ничего не отправляется, ответ все равно 200.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body  Request  true  "Email пользователя"
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response  "Ошибка валидации"
// @Failure      404  {object}  resp.Response  "Email не найден"
// @Failure      429  {object}  resp.Response  "Слишком много запросов"
// @Failure      500  {object}  resp.Response
// @Router       /api/auth/verify/resend [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	resender VerificationResender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendVerificationEmail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Debug("bad resend request", sl.Err(err))

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

		if err := resender.ResendVerification(ctx, req.Email); err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Email does not exist!"))

				return
			case errors.Is(err, apperr.ErrValidation):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid email"))

				return
			}

			log.Error("failed to resend verification email", sl.Err(err), slog.String("email", req.Email))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Confirmation email sent!",
		})
	}
}
