package users

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes resident registration and approval over HTTP.
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

// MountRoutes registers user routes. Registration is open; approval and
// member listing require the approveResidents feature.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Get("/me", h.handleProfile)
		r.Patch("/me", h.handleUpdateProfile)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureApproveResidents))
			r.Get("/", h.handleList)
			r.Get("/{userID}", h.handleGet)
			r.Post("/{userID}/approve", h.handleApprove)
			r.Post("/{userID}/reject", h.handleReject)
		})
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "register user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	u, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.UpdateProfile(r.Context(), identity.UserID, req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	items, total, err := h.service.List(r.Context(), ListRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Status:    r.URL.Query().Get("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	u, err := h.service.Approve(r.Context(), identity.UserID, chi.URLParam(r, "userID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "approve user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Reject(r.Context(), identity.UserID, chi.URLParam(r, "userID")); err != nil {
		httpx.LogAndRespond(w, h.logger, "reject user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
