package notices

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes the notice board over HTTP.
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

// MountRoutes registers notice routes. Reads are open to any society member;
// writes require the manageNotices feature.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/notices", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{noticeID}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureManageNotices))
			r.Post("/", h.handleCreate)
			r.Patch("/{noticeID}", h.handleUpdate)
			r.Delete("/{noticeID}", h.handleDelete)
		})
	})
}

func (h *Handler) targetSociety(w http.ResponseWriter, r *http.Request) (string, bool) {
	if id := rbac.SocietyFromContext(r.Context()); id != "" {
		return id, true
	}
	id := shared.TargetSociety(r)
	if id == "" {
		if identity, ok := shared.IdentityFromContext(r.Context()); ok {
			id = identity.SocietyID
		}
	}
	if id == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.ErrMissingSociety.Error())
		return "", false
	}
	return id, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	societyID, ok := h.targetSociety(w, r)
	if !ok {
		return
	}
	limit, offset := shared.ListQuery(r)
	items, total, err := h.service.List(r.Context(), ListRequest{
		SocietyID:      societyID,
		Category:       r.URL.Query().Get("category"),
		IncludeExpired: r.URL.Query().Get("includeExpired") == "true",
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list notices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	societyID, ok := h.targetSociety(w, r)
	if !ok {
		return
	}
	n, err := h.service.Get(r.Context(), societyID, chi.URLParam(r, "noticeID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get notice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	n, err := h.service.Publish(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "publish notice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	n, err := h.service.Edit(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "noticeID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "edit notice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	err := h.service.Remove(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "noticeID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "remove notice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
