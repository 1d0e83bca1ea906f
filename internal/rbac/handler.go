package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

// Handler exposes the RBAC administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	flags     *FlagService
	migrator  *Migrator
	gate      Gate
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, flags *FlagService, migrator *Migrator, gate Gate) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		flags:     flags,
		migrator:  migrator,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers RBAC administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rbac", func(r chi.Router) {
		r.Get("/roles", h.listRoles)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(FeatureManageRoles))
			r.Post("/associations", h.assign)
			r.Delete("/users/{userID}/associations/{associationID}", h.revoke)
			r.Get("/users/{userID}/associations", h.listEffective)
			r.Get("/roles/{role}/permissions", h.roleSummary)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(FeatureManageFeatureFlags))
			r.Get("/flags", h.listFlags)
			r.Put("/flags/{key}", h.upsertFlag)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require(FeatureRunMigrations))
			r.Post("/migrations/legacy-roles", h.runMigration)
		})
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	type roleInfo struct {
		Role          Role `json:"role"`
		LoginEligible bool `json:"loginEligible"`
		Resident      bool `json:"resident"`
	}
	roles := make([]roleInfo, 0, len(catalogRoles))
	for _, role := range AllRoles() {
		roles = append(roles, roleInfo{Role: role, LoginEligible: LoginEligible(role), Resident: ResidentRole(role)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := SubjectFromContext(r.Context())
	assoc, err := h.service.Assign(r.Context(), actor, RequestPlatform(r), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "assign role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assoc)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	associationID := chi.URLParam(r, "associationID")
	actor, _ := SubjectFromContext(r.Context())
	if err := h.service.Revoke(r.Context(), actor, RequestPlatform(r), userID, associationID); err != nil {
		httpx.LogAndRespond(w, h.logger, "revoke role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEffective(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	societyID := SocietyFromContext(r.Context())
	assocs, err := h.service.ListEffective(r.Context(), userID, societyID)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list associations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"associations": assocs})
}

func (h *Handler) roleSummary(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if !KnownRole(role) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	societyID := SocietyFromContext(r.Context())
	summary, err := h.flags.SummarizeRole(r.Context(), societyID, role)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "summarize role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listFlags(w http.ResponseWriter, r *http.Request) {
	societyID := SocietyFromContext(r.Context())
	flags, err := h.flags.ListForSociety(r.Context(), societyID)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list flags", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"flags": flags})
}

func (h *Handler) upsertFlag(w http.ResponseWriter, r *http.Request) {
	var flag FeatureFlag
	if err := httpx.DecodeJSON(r, &flag); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	flag.Key = chi.URLParam(r, "key")
	flag.SocietyID = SocietyFromContext(r.Context())
	actor, _ := SubjectFromContext(r.Context())
	saved, err := h.flags.Upsert(r.Context(), flag, actor.UserID)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "upsert flag", err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) runMigration(w http.ResponseWriter, r *http.Request) {
	report, err := h.migrator.Run(r.Context())
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "run legacy role migration", err)
		return
	}
	// Partial-failure model: always 200 with per-item counts.
	httpx.JSON(w, http.StatusOK, report)
}
