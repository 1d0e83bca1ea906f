package shared_test

import (
	"github.com/nivaas-labs/nivaas/internal/billing"
	"github.com/nivaas-labs/nivaas/internal/complaints"
	"github.com/nivaas-labs/nivaas/internal/meetings"
	"github.com/nivaas-labs/nivaas/internal/notices"
	"github.com/nivaas-labs/nivaas/internal/parking"
	"github.com/nivaas-labs/nivaas/internal/rbac"
	"github.com/nivaas-labs/nivaas/internal/shared"
	"github.com/nivaas-labs/nivaas/internal/users"
)

// One concrete audit logger backs every domain's Auditor port; these
// assertions keep the wiring in cmd/nivaas honest.
var (
	_ users.Auditor      = (*shared.AuditLogger)(nil)
	_ notices.Auditor    = (*shared.AuditLogger)(nil)
	_ complaints.Auditor = (*shared.AuditLogger)(nil)
	_ billing.Auditor    = (*shared.AuditLogger)(nil)
	_ meetings.Auditor   = (*shared.AuditLogger)(nil)
	_ parking.Auditor    = (*shared.AuditLogger)(nil)
	_ rbac.Auditor       = (*shared.AuditLogger)(nil)
)
