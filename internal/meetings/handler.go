package meetings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes meetings over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers meeting routes behind the manageMeetings feature.
// RSVP is an "rsvp" action so flags can open it to residents through
// custom permissions while scheduling stays with the committee.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/meetings", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireAction(rbac.FeatureManageMeetings, "rsvp"))
			r.Get("/", h.handleList)
			r.Get("/{meetingID}", h.handleGet)
			r.Post("/{meetingID}/rsvp", h.handleRSVP)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureManageMeetings))
			r.Post("/", h.handleSchedule)
			r.Post("/{meetingID}/cancel", h.handleCancel)
			r.Get("/{meetingID}/attendance", h.handleAttendance)
		})
	})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	m, err := h.service.Schedule(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "schedule meeting", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	m, err := h.service.Cancel(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "meetingID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "cancel meeting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	items, total, err := h.service.List(r.Context(), ListRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Status:    r.URL.Query().Get("status"),
		Upcoming:  r.URL.Query().Get("upcoming") == "true",
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list meetings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "meetingID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get meeting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleRSVP(w http.ResponseWriter, r *http.Request) {
	var req RSVPRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	v, err := h.service.Respond(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "meetingID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "rsvp meeting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Attendance(r.Context(), rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "meetingID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "meeting attendance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}
