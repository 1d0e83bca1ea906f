package vendors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes the vendor directory over HTTP.
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

// MountRoutes registers directory routes. Reads use the "view" action so
// flags can open the directory to residents; writes require the full feature.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vendors", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireAction(rbac.FeatureVendorDirectory, "view"))
			r.Get("/", h.handleList)
			r.Get("/{vendorID}", h.handleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureVendorDirectory))
			r.Post("/", h.handleAdd)
			r.Put("/{vendorID}", h.handleReplace)
			r.Delete("/{vendorID}", h.handleRemove)
		})
	})
}

func (h *Handler) decodeUpsert(w http.ResponseWriter, r *http.Request) (UpsertRequest, bool) {
	var req UpsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}
	sub, _ := rbac.SubjectFromContext(r.Context())
	v, err := h.service.Add(r.Context(), sub.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "add vendor", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	items, total, err := h.service.List(r.Context(), ListRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Category:  r.URL.Query().Get("category"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list vendors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "vendorID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get vendor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUpsert(w, r)
	if !ok {
		return
	}
	v, err := h.service.Replace(r.Context(), rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "vendorID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "replace vendor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	err := h.service.Remove(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "vendorID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "remove vendor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
