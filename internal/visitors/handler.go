package visitors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes the gate pass workflow over HTTP.
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

// MountRoutes registers gate pass routes behind the visitorGatePass feature.
// Verification is rate limited per client to blunt code guessing at the gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/gate-passes", func(r chi.Router) {
		r.Use(h.gate.Require(rbac.FeatureVisitorGatePass))

		r.Post("/", h.handleIssue)
		r.Get("/", h.handleList)
		r.Get("/{passID}", h.handleGet)
		r.Post("/{passID}/cancel", h.handleCancel)
		r.Post("/{passID}/check-out", h.handleCheckOut)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.Post("/verify", h.handleVerify)
			r.Post("/check-in", h.handleCheckIn)
		})
	})
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.Issue(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "issue gate pass", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	req := ListRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Status:    r.URL.Query().Get("status"),
		Limit:     limit,
		Offset:    offset,
	}
	if r.URL.Query().Get("mine") == "true" {
		identity, _ := shared.IdentityFromContext(r.Context())
		req.ResidentID = identity.UserID
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list gate passes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "passID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get gate pass", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.Cancel(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "passID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "cancel gate pass", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) decodeVerify(w http.ResponseWriter, r *http.Request) (VerifyRequest, bool) {
	var req VerifyRequest
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

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVerify(w, r)
	if !ok {
		return
	}
	p, err := h.service.Verify(r.Context(), rbac.SocietyFromContext(r.Context()), req.Code)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "verify gate pass", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVerify(w, r)
	if !ok {
		return
	}
	p, err := h.service.CheckIn(r.Context(), rbac.SocietyFromContext(r.Context()), req.Code)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "check in visitor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.CheckOut(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "passID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "check out visitor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
