package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nivaas-labs/nivaas/internal/billing"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/visitors"
)

// NewMigrateLegacyRolesHandler binds the migrator to its task type.
func NewMigrateLegacyRolesHandler(m *rbac.Migrator, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MigrateLegacyRolesPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		report, err := m.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("legacy role migration finished",
			slog.String("requested_by", payload.RequestedBy),
			slog.Int("scanned", report.Scanned),
			slog.Int("migrated", report.Migrated),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed))
		return nil
	}
}

// NewGenerateDuesHandler binds the billing service to its task type.
func NewGenerateDuesHandler(svc *billing.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload GenerateDuesPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		report, err := svc.GenerateDues(ctx, payload.RequestedBy, payload.SocietyID,
			billing.GenerateRequest{Period: payload.Period})
		if err != nil {
			return err
		}
		logger.Info("dues generation finished",
			slog.String("society_id", payload.SocietyID),
			slog.String("period", report.Period),
			slog.Int("generated", report.Generated),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed))
		return nil
	}
}

// NewExpireGatePassesHandler binds the visitors service to its task type.
func NewExpireGatePassesHandler(svc *visitors.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExpireGatePassesPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		n, err := svc.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Info("gate pass sweep finished", slog.Int64("expired", n))
		return nil
	}
}
