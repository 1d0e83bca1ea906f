package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
)

type mockAssocRepo struct {
	subjects map[string]*Subject
}

func newMockAssocRepo(subjects ...Subject) *mockAssocRepo {
	repo := &mockAssocRepo{subjects: make(map[string]*Subject)}
	for i := range subjects {
		sub := subjects[i]
		repo.subjects[sub.UserID] = &sub
	}
	return repo
}

func (m *mockAssocRepo) Subject(_ context.Context, userID string) (Subject, error) {
	if sub, ok := m.subjects[userID]; ok {
		return *sub, nil
	}
	return Subject{}, ErrNotFound
}

func (m *mockAssocRepo) SaveAssociations(_ context.Context, userID string, assocs []RoleAssociation) error {
	sub, ok := m.subjects[userID]
	if !ok {
		return ErrNotFound
	}
	sub.Associations = assocs
	return nil
}

type auditEntry struct {
	ActorID   string
	SocietyID string
	Action    string
	EntityID  string
}

type recordingAuditor struct {
	logs []auditEntry
}

func (a *recordingAuditor) Record(_ context.Context, actorID, societyID, action, _, entityID string, _ map[string]any) {
	a.logs = append(a.logs, auditEntry{ActorID: actorID, SocietyID: societyID, Action: action, EntityID: entityID})
}

// adminResolver returns a resolver whose flag store allows manageRoles for
// society admins in S1 only.
func adminResolver() *Resolver {
	flag := enabledFlag(FeatureManageRoles, "S1", map[Role]bool{RoleSocietyAdmin: true})
	return newTestResolver(newMemFlagStore(flag), &memTierSource{})
}

func adminSubject() Subject {
	return Subject{UserID: "admin", Associations: []RoleAssociation{activeAssociation("admin", RoleSocietyAdmin, "S1")}}
}

func TestAssignCreatesActiveAssociation(t *testing.T) {
	repo := newMockAssocRepo(Subject{UserID: "resident"})
	audit := &recordingAuditor{}
	svc := NewService(repo, adminResolver(), audit)
	svc.now = fixedNow

	assoc, err := svc.Assign(context.Background(), adminSubject(), PlatformWeb, AssignRequest{
		UserID:     "resident",
		Role:       RoleResidentOwner,
		SocietyID:  "S1",
		FlatNumber: "B-204",
	})
	require.NoError(t, err)
	assert.True(t, assoc.IsActive)
	assert.Equal(t, "admin", assoc.AssignedBy)
	assert.Equal(t, "B-204", assoc.FlatNumber)
	assert.NotEmpty(t, assoc.ID)
	require.Len(t, repo.subjects["resident"].Associations, 1)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "rbac.assign", audit.logs[0].Action)
	assert.Equal(t, "admin", audit.logs[0].ActorID)
}

func TestAssignRejectsUnknownRole(t *testing.T) {
	repo := newMockAssocRepo(Subject{UserID: "resident"})
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	_, err := svc.Assign(context.Background(), adminSubject(), PlatformWeb, AssignRequest{
		UserID:    "resident",
		Role:      "superhero",
		SocietyID: "S1",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAssignRejectsPastExpiry(t *testing.T) {
	repo := newMockAssocRepo(Subject{UserID: "resident"})
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	yesterday := fixedNow().Add(-24 * time.Hour)
	_, err := svc.Assign(context.Background(), adminSubject(), PlatformWeb, AssignRequest{
		UserID:    "resident",
		Role:      RoleResidentOwner,
		SocietyID: "S1",
		ExpiresAt: &yesterday,
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAssignRequiresAdministrativeRole(t *testing.T) {
	repo := newMockAssocRepo(Subject{UserID: "resident"})
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	// Actor holds only a resident role, which manageRoles does not allow.
	actor := Subject{UserID: "plain", Associations: []RoleAssociation{activeAssociation("plain", RoleResidentOwner, "S1")}}
	_, err := svc.Assign(context.Background(), actor, PlatformWeb, AssignRequest{
		UserID:    "resident",
		Role:      RoleResidentOwner,
		SocietyID: "S1",
	})
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestRevokeDeactivatesWithoutDeleting(t *testing.T) {
	target := Subject{UserID: "resident", Associations: []RoleAssociation{activeAssociation("resident", RoleResidentOwner, "S1")}}
	repo := newMockAssocRepo(target)
	audit := &recordingAuditor{}
	svc := NewService(repo, adminResolver(), audit)
	svc.now = fixedNow

	err := svc.Revoke(context.Background(), adminSubject(), PlatformWeb, "resident", target.Associations[0].ID)
	require.NoError(t, err)

	// History is preserved: the association still exists, inactive.
	require.Len(t, repo.subjects["resident"].Associations, 1)
	assert.False(t, repo.subjects["resident"].Associations[0].IsActive)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "rbac.revoke", audit.logs[0].Action)
}

func TestAssignUnknownUserIsNotFound(t *testing.T) {
	repo := newMockAssocRepo()
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	_, err := svc.Assign(context.Background(), adminSubject(), PlatformWeb, AssignRequest{
		UserID:    "ghost",
		Role:      RoleResidentOwner,
		SocietyID: "S1",
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListEffectiveUnknownUserIsNotFound(t *testing.T) {
	repo := newMockAssocRepo()
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	_, err := svc.ListEffective(context.Background(), "ghost", "S1")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestRevokeUnknownAssociation(t *testing.T) {
	repo := newMockAssocRepo(Subject{UserID: "resident"})
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	err := svc.Revoke(context.Background(), adminSubject(), PlatformWeb, "resident", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestListEffectiveFiltersExpiredAndForeign(t *testing.T) {
	yesterday := fixedNow().Add(-time.Hour)
	expired := activeAssociation("resident", RoleTreasurer, "S1")
	expired.ID = "expired"
	expired.ExpiresAt = &yesterday
	foreign := activeAssociation("resident", RoleResidentOwner, "S2")
	foreign.ID = "foreign"
	current := activeAssociation("resident", RoleResidentOwner, "S1")
	current.ID = "current"

	repo := newMockAssocRepo(Subject{UserID: "resident", Associations: []RoleAssociation{expired, foreign, current}})
	svc := NewService(repo, adminResolver(), nil)
	svc.now = fixedNow

	assocs, err := svc.ListEffective(context.Background(), "resident", "S1")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, "current", assocs[0].ID)

	// Without a society filter both effective associations appear.
	assocs, err = svc.ListEffective(context.Background(), "resident", "")
	require.NoError(t, err)
	assert.Len(t, assocs, 2)
}
