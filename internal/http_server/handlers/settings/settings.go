package settings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"signin_service/internal/auth"
	resp "signin_service/internal/lib/api/response"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/middleware/routeguard"
	"signin_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type User struct {
	ID                 string      `json:"id"`
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	Role               models.Role `json:"role"`
	IsTwoFactorEnabled bool        `json:"is_two_factor_enabled"`
	IsOAuth            bool        `json:"is_oauth"`
}

type GetResponse struct {
	resp.Response
	User User `json:"user"`
}

type PatchRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	Role               *string `json:"role,omitempty" validate:"omitempty,oneof=USER ADMIN"`
	IsTwoFactorEnabled *bool   `json:"is_two_factor_enabled,omitempty"`
	Password           *string `json:"password,omitempty" validate:"required_with=NewPassword"`
	NewPassword        *string `json:"new_password,omitempty" validate:"omitempty,min=6"`
}

type PatchResponse struct {
	resp.Response
	Message string `json:"message"`
}

type Service interface {
	CurrentUser(ctx context.Context, userID string) (models.User, error)
	UpdateSettings(ctx context.Context, userID string, in auth.Settings) error
}

// Get godoc
// @Summary      Настройки пользователя
// @Tags         settings
// @Produce      json
// @Success      200  {object}  GetResponse
// @Failure      401  {object}  resp.Response
// @Router       /settings [get]
func Get(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.settings.Get"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s, ok := routeguard.SessionFromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := svc.CurrentUser(ctx, s.User.ID)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			log.Error("failed to load user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, GetResponse{
			Response: resp.OK(),
			User: User{
				ID:                 user.ID,
				Email:              user.Email,
				Name:               user.Name,
				Role:               user.Role,
				IsTwoFactorEnabled: user.IsTwoFactorEnabled,
				IsOAuth:            user.IsOAuthOnly(),
			},
		})
	}
}

// Patch godoc
// @Summary      Изменение настроек
// @Description  Имя, роль, 2FA, смена пароля (нужен текущий пароль) и смена email с повторной верификацией.
// @Description  Для OAuth аккаунтов email, пароль и 2FA игнорируются.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Success      200  {object}  PatchResponse
// @Failure      400  {object}  resp.Response
// @Failure      401  {object}  resp.Response
// @Failure      409  {object}  resp.Response
// @Failure      500  {object}  resp.Response
// @Router       /settings [patch]
func Patch(log *slog.Logger, validate *validator.Validate, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.settings.Patch"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s, ok := routeguard.SessionFromContext(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		var req PatchRequest

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

		if req.Password != nil && req.NewPassword == nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("New password is required!"))

			return
		}

		in := auth.Settings{
			Name:               req.Name,
			Email:              req.Email,
			IsTwoFactorEnabled: req.IsTwoFactorEnabled,
			Password:           req.Password,
			NewPassword:        req.NewPassword,
		}
		if req.Role != nil {
			role := models.Role(*req.Role)
			in.Role = &role
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.UpdateSettings(ctx, s.User.ID, in); err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Incorrect password!"))
			case errors.Is(err, auth.ErrUserExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Email already in use!"))
			case errors.Is(err, auth.ErrInvalidRole):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid role"))
			case errors.Is(err, auth.ErrRoleChangeForbidden):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Only admins can change role"))
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))
			default:
				log.Error("failed to update settings", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, PatchResponse{
			Response: resp.OK(),
			Message:  "Settings updated!",
		})
	}
}
