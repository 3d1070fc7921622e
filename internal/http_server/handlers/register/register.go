package register

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
	Name  string `json:"name" validate:"required"`
	Pass  string `json:"password" validate:"required,min=6"`
}

type Response struct {
	resp.Response
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type UserRegisterer interface {
	RegisterNewUser(ctx context.Context, email, name, pass string) (string, error)
}

// New godoc
// @Summary      Регистрация пользователя
// @Description  Создает пользователя с неподтвержденным email и отправляет письмо верификации.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  resp.Response
// @Failure      409  {object}  resp.Response  "Email уже используется"
// @Failure      500  {object}  resp.Response
// @Router       /api/auth/register [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	registerer UserRegisterer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := registerer.RegisterNewUser(ctx, req.Email, req.Name, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Email already in use!"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User registered", slog.String("id", userID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			UserID:   userID,
			Message:  "Confirmation email sent!",
		})
	}
}
