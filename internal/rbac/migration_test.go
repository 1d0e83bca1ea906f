package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMigrationRepo struct {
	mu    sync.Mutex
	users map[string]*Subject
	order []string

	saveErr map[string]error
}

func newMockMigrationRepo(subjects ...Subject) *mockMigrationRepo {
	repo := &mockMigrationRepo{users: make(map[string]*Subject), saveErr: make(map[string]error)}
	for i := range subjects {
		sub := subjects[i]
		repo.users[sub.UserID] = &sub
		repo.order = append(repo.order, sub.UserID)
	}
	return repo
}

func (m *mockMigrationRepo) ListUnmigrated(_ context.Context, after MigrationCursor, limit int) ([]Subject, MigrationCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if after.ID != "" {
		for i, id := range m.order {
			if id == after.ID {
				start = i + 1
				break
			}
		}
	}
	var out []Subject
	cursor := after
	for _, id := range m.order[start:] {
		sub := m.users[id]
		if len(sub.Associations) != 0 {
			continue
		}
		out = append(out, *sub)
		cursor.ID = id
		if len(out) >= limit {
			break
		}
	}
	return out, cursor, nil
}

func (m *mockMigrationRepo) SaveAssociations(_ context.Context, userID string, assocs []RoleAssociation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[userID]; err != nil {
		return err
	}
	sub, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	sub.Associations = assocs
	return nil
}

func TestMigratorDerivesAssociationFromLegacyFields(t *testing.T) {
	repo := newMockMigrationRepo(
		Subject{UserID: "u1", LegacyRole: RoleSocietyAdmin, LegacySocietyID: "S1"},
		Subject{UserID: "u2", LegacyRole: RoleResidentOwner, LegacySocietyID: "S2"},
	)
	migrator := NewMigrator(repo, nil, 4)

	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Migrated)
	assert.Zero(t, report.Failed)

	sub := repo.users["u1"]
	require.Len(t, sub.Associations, 1)
	assert.Equal(t, RoleSocietyAdmin, sub.Associations[0].Role)
	assert.Equal(t, "S1", sub.Associations[0].SocietyID)
	assert.True(t, sub.Associations[0].IsActive)
	assert.Equal(t, "migration", sub.Associations[0].AssignedBy)
	assert.NotEmpty(t, sub.Associations[0].ID)
}

func TestMigratorIsIdempotent(t *testing.T) {
	repo := newMockMigrationRepo(
		Subject{UserID: "u1", LegacyRole: RoleSocietyAdmin, LegacySocietyID: "S1"},
	)
	migrator := NewMigrator(repo, nil, 2)

	_, err := migrator.Run(context.Background())
	require.NoError(t, err)
	report, err := migrator.Run(context.Background())
	require.NoError(t, err)

	// Second run selects nothing; exactly one association exists, not two.
	assert.Zero(t, report.Scanned)
	assert.Zero(t, report.Migrated)
	require.Len(t, repo.users["u1"].Associations, 1)
}

func TestMigratorReportsLegacyRoleWithoutSociety(t *testing.T) {
	repo := newMockMigrationRepo(
		Subject{UserID: "broken", LegacyRole: RoleTreasurer},
		Subject{UserID: "ok", LegacyRole: RoleTreasurer, LegacySocietyID: "S1"},
	)
	migrator := NewMigrator(repo, nil, 2)

	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "broken", report.Errors[0].UserID)
	assert.Contains(t, report.Errors[0].Reason, "without society id")
	// The error is reported, not silently skipped.
	assert.Zero(t, report.Skipped)
}

func TestMigratorSkipsUsersWithoutLegacyRole(t *testing.T) {
	repo := newMockMigrationRepo(Subject{UserID: "fresh"})
	migrator := NewMigrator(repo, nil, 2)

	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Empty(t, repo.users["fresh"].Associations)
}

func TestMigratorWalksPastNonMigratableWindow(t *testing.T) {
	// Two role-less users fill the first selection window entirely; the walk
	// must still reach the migratable user behind them.
	repo := newMockMigrationRepo(
		Subject{UserID: "fresh1"},
		Subject{UserID: "fresh2"},
		Subject{UserID: "legacy", LegacyRole: RoleResidentOwner, LegacySocietyID: "S1"},
	)
	migrator := NewMigrator(repo, nil, 2)
	migrator.batchSize = 2

	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, repo.users["legacy"].Associations, 1)
}

func TestMigratorPartialFailureDoesNotAbortBatch(t *testing.T) {
	repo := newMockMigrationRepo(
		Subject{UserID: "u1", LegacyRole: RoleSocietyAdmin, LegacySocietyID: "S1"},
		Subject{UserID: "u2", LegacyRole: RoleSocietyAdmin, LegacySocietyID: "S1"},
		Subject{UserID: "u3", LegacyRole: RoleSocietyAdmin, LegacySocietyID: "S1"},
	)
	repo.saveErr["u2"] = errors.New("write conflict")
	migrator := NewMigrator(repo, nil, 1)

	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Migrated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "u2", report.Errors[0].UserID)

	// The failed user remains unmigrated and safe to retry.
	assert.Empty(t, repo.users["u2"].Associations)
	assert.Len(t, repo.users["u1"].Associations, 1)
	assert.Len(t, repo.users["u3"].Associations, 1)
}

func TestMigratorRejectsUnknownLegacyRole(t *testing.T) {
	repo := newMockMigrationRepo(
		Subject{UserID: "u1", LegacyRole: "janitor", LegacySocietyID: "S1"},
	)
	migrator := NewMigrator(repo, nil, 2)

	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Reason, "unknown legacy role")
}
