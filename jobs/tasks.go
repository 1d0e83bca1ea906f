package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskMigrateLegacyRoles runs the legacy role migration batch.
	TaskMigrateLegacyRoles = "rbac:migrate_legacy_roles"
	// TaskGenerateDues generates the month's maintenance bills for a society.
	TaskGenerateDues = "billing:generate_dues"
	// TaskExpireGatePasses sweeps lapsed visitor passes.
	TaskExpireGatePasses = "gatepass:expire"
)

// MigrateLegacyRolesPayload carries scheduling metadata for the migration run.
type MigrateLegacyRolesPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewMigrateLegacyRolesTask constructs the migration task.
func NewMigrateLegacyRolesTask(requestedBy string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(MigrateLegacyRolesPayload{RequestedBy: requestedBy, ScheduledAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMigrateLegacyRoles, body, asynq.Queue(QueueDefault)), nil
}

// GenerateDuesPayload names the society and billing period to generate.
type GenerateDuesPayload struct {
	SocietyID   string `json:"society_id"`
	Period      string `json:"period"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// NewGenerateDuesTask constructs a dues generation task.
func NewGenerateDuesTask(payload GenerateDuesPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGenerateDues, body, asynq.Queue(QueueDefault)), nil
}

// ExpireGatePassesPayload carries scheduling metadata for the sweep.
type ExpireGatePassesPayload struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewExpireGatePassesTask constructs the gate pass expiry task.
func NewExpireGatePassesTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ExpireGatePassesPayload{ScheduledAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpireGatePasses, body, asynq.Queue(QueueDefault)), nil
}
