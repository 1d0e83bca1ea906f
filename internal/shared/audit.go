package shared

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogger writes administrative actions into audit_logs. Recording is
// fire and forget: a failed insert is logged server-side, never surfaced to
// the caller, so audit failures cannot fail the mutation they describe.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool, logger: slog.Default()}
}

// Record persists one audit entry.
func (l *AuditLogger) Record(ctx context.Context, actorID, societyID, action, entity, entityID string, meta map[string]any) {
	if l == nil || action == "" || entity == "" {
		return
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		l.logger.Warn("encode audit meta", slog.String("action", action), slog.Any("error", err))
		return
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, actor_id, society_id, action, entity, entity_id, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), actorID, societyID, action, entity, entityID, metaJSON, time.Now().UTC())
	if err != nil {
		l.logger.Warn("write audit log", slog.String("action", action), slog.Any("error", err))
	}
}
