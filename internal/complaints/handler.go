package complaints

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes the complaint workflow over HTTP.
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

// MountRoutes registers complaint routes. Raising and viewing one's own
// complaints needs raiseComplaint; triage actions need manageComplaints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/complaints", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureRaiseComplaint))
			r.Post("/", h.handleRaise)
			r.Get("/mine", h.handleListMine)
			r.Get("/{complaintID}", h.handleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureManageComplaints))
			r.Get("/", h.handleList)
			r.Post("/{complaintID}/transition", h.handleTransition)
		})
	})
}

func (h *Handler) handleRaise(w http.ResponseWriter, r *http.Request) {
	var req RaiseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	c, err := h.service.Raise(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "raise complaint", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listRequest(r *http.Request, limit, offset int) ListRequest {
	return ListRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Status:    r.URL.Query().Get("status"),
		Category:  r.URL.Query().Get("category"),
		Limit:     limit,
		Offset:    offset,
	}
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	limit, offset := shared.ListQuery(r)
	req := h.listRequest(r, limit, offset)
	req.RaisedBy = identity.UserID
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list own complaints", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	items, total, err := h.service.List(r.Context(), h.listRequest(r, limit, offset))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list complaints", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "complaintID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get complaint", err)
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	if c.RaisedBy != identity.UserID {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "not your complaint")
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	c, err := h.service.Transition(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "complaintID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "transition complaint", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
