package parking

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes parking management over HTTP.
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

// MountRoutes registers parking routes behind the manageParking feature.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/parking", func(r chi.Router) {
		r.Use(h.gate.Require(rbac.FeatureManageParking))

		r.Post("/slots", h.handleCreateSlot)
		r.Get("/slots", h.handleList)
		r.Get("/slots/{slotID}", h.handleGet)
		r.Post("/slots/{slotID}/allocate", h.handleAllocate)
		r.Post("/slots/{slotID}/release", h.handleRelease)
	})
}

func (h *Handler) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	slot, err := h.service.CreateSlot(r.Context(), rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "create parking slot", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, slot)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	items, total, err := h.service.List(r.Context(), ListRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Status:    r.URL.Query().Get("status"),
		Kind:      r.URL.Query().Get("kind"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list parking slots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	slot, err := h.service.Get(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "slotID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get parking slot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, slot)
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	slot, err := h.service.Allocate(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "slotID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "allocate parking slot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, slot)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	err := h.service.Release(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "slotID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "release parking slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
