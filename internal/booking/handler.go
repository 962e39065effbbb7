// AngelaMos | 2026
// handler.go

package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

// RegisterRoutes registers the reservation endpoints on a router mounted
// under the api prefix. Listing is public; everything else needs an
// identity. limitWrites, when set, wraps every mutating route after the
// caller is resolved.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticate func(role.Role) func(http.Handler) http.Handler,
	limitWrites func(http.Handler) http.Handler,
) {
	if limitWrites == nil {
		limitWrites = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(role.Noob))

			r.Get("/filter/{rooms}/{begin_time}/{end_time}", h.Filter)
			r.Get("/{id}", h.Get)

			r.With(limitWrites).Post("/", h.Create)
			r.With(limitWrites).Patch("/{id}", h.Update)
			r.With(limitWrites).Delete("/{id}", h.Delete)
		})

		r.With(authenticate(role.Approver), limitWrites).Post("/{id}/approve", h.Approve)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "reservation")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req NewReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	id, err := h.service.Create(
		r.Context(),
		middleware.IdentityFromContext(r.Context()),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, CreatedResponse{ID: id})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if req.BeginTime != nil && req.EndTime != nil &&
		!req.EndTime.After(*req.BeginTime) {
		core.BadRequest(w, "end_time must be after begin_time")
		return
	}

	res, err := h.service.Update(
		r.Context(),
		middleware.IdentityFromContext(r.Context()),
		id,
		req,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "reservation")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := h.service.Delete(
		r.Context(),
		middleware.IdentityFromContext(r.Context()),
		id,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "reservation")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

// Approve always answers 200 for an existing reservation; the approved
// field tells whether a conflict prevented the approval.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	approved, err := h.service.Approve(
		r.Context(),
		middleware.IdentityFromContext(r.Context()),
		id,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "reservation")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ApproveResponse{ID: id, Approved: approved})
}

func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	rooms, err := strconv.ParseUint(core.PathParam(r, "rooms"), 10, 8)
	if err != nil {
		core.BadRequest(w, "rooms must be a small unsigned integer")
		return
	}

	from, err := time.Parse(time.RFC3339, core.PathParam(r, "begin_time"))
	if err != nil {
		core.BadRequest(w, "begin_time must be an RFC3339 timestamp")
		return
	}

	to, err := time.Parse(time.RFC3339, core.PathParam(r, "end_time"))
	if err != nil {
		core.BadRequest(w, "end_time must be an RFC3339 timestamp")
		return
	}

	list, err := h.service.Filter(r.Context(), Rooms(rooms), from, to)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, list)
}

func parseID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(core.PathParam(r, "id"), 10, 64)
	if err != nil {
		core.BadRequest(w, "invalid reservation id")
		return 0, false
	}
	return id, true
}
