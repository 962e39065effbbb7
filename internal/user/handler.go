// AngelaMos | 2026
// handler.go

package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/middleware"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes registers the caller's own identity endpoint.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticate func(role.Role) func(http.Handler) http.Handler,
) {
	r.With(authenticate(role.Noob)).Get("/me", h.GetMe)
}

// RegisterAdminRoutes registers user management on a router already
// mounted under the admin prefix.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticate func(role.Role) func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticate(role.Superadmin))

		r.Get("/users", h.ListUsers)
		r.Get("/users/{email}", h.GetUser)
		r.Patch("/users/{email}/{role}", h.ChangeRole)
	})

	r.Post("/generate_sa/{email}/{password}", h.GenerateSuperadmin)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		core.Unauthorized(w, "authentication required")
		return
	}

	core.OK(w, auth.ToIdentityResponse(id))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToUserResponseList(users))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), core.PathParam(r, "email"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

// ChangeRole validates the new role against the allow-list before the
// store is touched.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	req := ChangeRoleRequest{
		Email: core.PathParam(r, "email"),
		Role:  core.PathParam(r, "role"),
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.ChangeRole(r.Context(), req.Email, req.Role)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) GenerateSuperadmin(w http.ResponseWriter, r *http.Request) {
	req := GenerateSuperadminRequest{
		Email:  core.PathParam(r, "email"),
		Secret: core.PathParam(r, "password"),
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.GenerateSuperadmin(r.Context(), req.Email, req.Secret)
	if err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "invalid superadmin secret")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToUserResponse(user))
}
