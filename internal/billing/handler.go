package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// Handler exposes society billing over HTTP.
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

// MountRoutes registers billing routes. Administration needs manageBilling;
// residents see their own bills through viewBills.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureManageBilling))
			r.Post("/configs", h.handleDefineCharge)
			r.Get("/configs", h.handleListCharges)
			r.Post("/generate", h.handleGenerate)
			r.Get("/bills", h.handleListBills)
			r.Post("/bills/{billID}/payment", h.handleRecordPayment)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(rbac.FeatureViewBills))
			r.Get("/bills/mine", h.handleListMyBills)
			r.Get("/bills/{billID}", h.handleGetBill)
		})
	})
}

func (h *Handler) handleDefineCharge(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	c, err := h.service.DefineCharge(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "define charge", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListCharges(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListCharges(r.Context(), rbac.SocietyFromContext(r.Context()))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list charges", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": configs})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	report, err := h.service.GenerateDues(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "generate dues", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) billsRequest(r *http.Request, limit, offset int) ListBillsRequest {
	return ListBillsRequest{
		SocietyID: rbac.SocietyFromContext(r.Context()),
		Period:    r.URL.Query().Get("period"),
		Status:    r.URL.Query().Get("status"),
		Limit:     limit,
		Offset:    offset,
	}
}

func (h *Handler) handleListBills(w http.ResponseWriter, r *http.Request) {
	limit, offset := shared.ListQuery(r)
	req := h.billsRequest(r, limit, offset)
	req.UserID = r.URL.Query().Get("userId")
	items, total, err := h.service.ListBills(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list bills", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleListMyBills(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	limit, offset := shared.ListQuery(r)
	req := h.billsRequest(r, limit, offset)
	req.UserID = identity.UserID
	items, total, err := h.service.ListBills(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list own bills", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": shared.NewPagination(limit, offset, total)})
}

func (h *Handler) handleGetBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBill(r.Context(), rbac.SocietyFromContext(r.Context()), chi.URLParam(r, "billID"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get bill", err)
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	if b.UserID != identity.UserID {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "not your bill")
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	b, err := h.service.RecordPayment(r.Context(), identity.UserID, rbac.SocietyFromContext(r.Context()),
		chi.URLParam(r, "billID"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}
