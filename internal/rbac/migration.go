package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxReportedErrors caps the failure list in a migration report.
const maxReportedErrors = 25

// MigrationCursor marks the last scanned row of the keyset walk over the
// users table. The zero value starts from the beginning.
type MigrationCursor struct {
	CreatedAt time.Time
	ID        string
}

// MigrationRepositoryPort defines data access for the legacy-role migration.
type MigrationRepositoryPort interface {
	ListUnmigrated(ctx context.Context, after MigrationCursor, limit int) ([]Subject, MigrationCursor, error)
	SaveAssociations(ctx context.Context, userID string, assocs []RoleAssociation) error
}

// MigrationError describes one user that could not be migrated.
type MigrationError struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// MigrationReport summarizes a batch run. Bulk operations use a
// partial-failure model: successes commit per user, failures are collected.
type MigrationReport struct {
	Scanned  int              `json:"scanned"`
	Migrated int              `json:"migrated"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Errors   []MigrationError `json:"errors,omitempty"`
}

// Migrator upgrades user documents from the legacy single-role schema to the
// association list. Re-running on migrated users is a no-op because the
// selection excludes documents with a non-empty association list.
type Migrator struct {
	repo        MigrationRepositoryPort
	logger      *slog.Logger
	parallelism int
	batchSize   int
	now         func() time.Time
}

// NewMigrator constructs a Migrator.
func NewMigrator(repo MigrationRepositoryPort, logger *slog.Logger, parallelism int) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	if parallelism <= 0 {
		parallelism = 8
	}
	return &Migrator{repo: repo, logger: logger, parallelism: parallelism, batchSize: 500, now: time.Now}
}

// Run migrates every unmigrated user. Users are processed in parallel with no
// ordering requirement between them; within a single user the read, derive,
// persist sequence is sequential. One user's failure never aborts the batch.
func (m *Migrator) Run(ctx context.Context) (MigrationReport, error) {
	var (
		report MigrationReport
		mu     sync.Mutex
	)
	// The cursor advances past every scanned row, converted or not, so a
	// window full of skipped or failed users never stalls the walk.
	var cursor MigrationCursor
	for {
		subjects, next, err := m.repo.ListUnmigrated(ctx, cursor, m.batchSize)
		if err != nil {
			return report, err
		}
		if len(subjects) == 0 {
			break
		}
		cursor = next

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.parallelism)
		for _, sub := range subjects {
			sub := sub
			mu.Lock()
			report.Scanned++
			mu.Unlock()
			g.Go(func() error {
				outcome, failure := m.migrateOne(gctx, sub)
				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case migrated:
					report.Migrated++
				case skipped:
					report.Skipped++
				case failed:
					report.Failed++
					if len(report.Errors) < maxReportedErrors {
						report.Errors = append(report.Errors, *failure)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		if len(subjects) < m.batchSize {
			break
		}
	}

	m.logger.Info("legacy role migration finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("migrated", report.Migrated),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, nil
}

type migrationOutcome int

const (
	migrated migrationOutcome = iota
	skipped
	failed
)

func (m *Migrator) migrateOne(ctx context.Context, sub Subject) (migrationOutcome, *MigrationError) {
	if sub.LegacyRole == "" {
		// Nothing to derive an association from.
		return skipped, nil
	}
	if sub.LegacySocietyID == "" {
		// A legacy role without a society cannot be migrated automatically.
		return failed, &MigrationError{UserID: sub.UserID, Reason: "legacy role without society id"}
	}
	if !KnownRole(sub.LegacyRole) {
		return failed, &MigrationError{UserID: sub.UserID, Reason: fmt.Sprintf("unknown legacy role %q", sub.LegacyRole)}
	}

	assoc := RoleAssociation{
		ID:         uuid.NewString(),
		UserID:     sub.UserID,
		Role:       sub.LegacyRole,
		SocietyID:  sub.LegacySocietyID,
		IsActive:   true,
		AssignedAt: m.now().UTC(),
		AssignedBy: "migration",
	}
	if err := m.repo.SaveAssociations(ctx, sub.UserID, []RoleAssociation{assoc}); err != nil {
		m.logger.Warn("migrate user", slog.String("user_id", sub.UserID), slog.Any("error", err))
		return failed, &MigrationError{UserID: sub.UserID, Reason: err.Error()}
	}
	return migrated, nil
}
