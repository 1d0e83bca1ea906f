package users

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/rbac"
)

type mockUserRepo struct {
	byID     map[string]*User
	byEmail  map[string]string
	hashes   map[string]string
	deleteID string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:    map[string]*User{},
		byEmail: map[string]string{},
		hashes:  map[string]string{},
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *User, hash string) error {
	if _, exists := m.byEmail[u.Email]; exists {
		return fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	m.hashes[u.ID] = hash
	return nil
}

func (m *mockUserRepo) Get(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", httpx.ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) List(_ context.Context, req ListRequest) ([]User, int, error) {
	var out []User
	for _, u := range m.byID {
		if u.SocietyID == req.SocietyID && (req.Status == "" || u.Status == req.Status) {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return fmt.Errorf("%w: user %s", httpx.ErrNotFound, u.ID)
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("%w: user %s", httpx.ErrNotFound, id)
	}
	m.deleteID = id
	delete(m.byID, id)
	return nil
}

type recordingAuditor struct {
	actions []string
}

func (a *recordingAuditor) Record(_ context.Context, _, _, action, _, _ string, _ map[string]any) {
	a.actions = append(a.actions, action)
}

func newTestService(repo *mockUserRepo, audit *recordingAuditor) *Service {
	svc := NewService(repo, audit, slog.Default())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:      "asha@example.com",
		Password:   "s3cret-pass",
		Name:       "Asha Rao",
		SocietyID:  "soc-1",
		FlatNumber: "A-101",
		Role:       rbac.RoleResidentOwner,
	}
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &recordingAuditor{})

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, u.Status)
	assert.Equal(t, rbac.RoleResidentOwner, u.PrimaryRole)
	assert.Empty(t, u.RoleAssociations, "no association until approval")

	hash := repo.hashes[u.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
}

func TestRegisterRejectsPrivilegedRoles(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &recordingAuditor{})

	for _, role := range []rbac.Role{rbac.RoleOwnerApp, rbac.RoleOps, rbac.RoleVendor} {
		req := validRegistration()
		req.Role = role
		_, err := svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, httpx.ErrValidation, "role %s", role)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &recordingAuditor{})

	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestApproveGrantsFirstAssociation(t *testing.T) {
	repo := newMockUserRepo()
	audit := &recordingAuditor{}
	svc := newTestService(repo, audit)

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), "admin-1", u.ID, ApproveRequest{})
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, approved.Status)
	require.Len(t, approved.RoleAssociations, 1)
	assoc := approved.RoleAssociations[0]
	assert.Equal(t, rbac.RoleResidentOwner, assoc.Role)
	assert.Equal(t, "soc-1", assoc.SocietyID)
	assert.Equal(t, "A-101", assoc.FlatNumber)
	assert.True(t, assoc.IsActive)
	assert.Equal(t, "admin-1", assoc.AssignedBy)
	assert.Contains(t, audit.actions, "user.approve")
}

func TestApproveCanOverrideRequestedRole(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &recordingAuditor{})

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), "admin-1", u.ID, ApproveRequest{Role: rbac.RoleResidentTenant})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleResidentTenant, approved.RoleAssociations[0].Role)
}

func TestApproveTwiceConflicts(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &recordingAuditor{})

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "admin-1", u.ID, ApproveRequest{})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "admin-1", u.ID, ApproveRequest{})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestRejectDeletesPendingOnly(t *testing.T) {
	repo := newMockUserRepo()
	audit := &recordingAuditor{}
	svc := newTestService(repo, audit)

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), "admin-1", u.ID))
	assert.Equal(t, u.ID, repo.deleteID)
	assert.Contains(t, audit.actions, "user.reject")

	other, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ravi@example.com", Password: "s3cret-pass", Name: "Ravi",
		SocietyID: "soc-1", Role: rbac.RoleResidentTenant,
	})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), "admin-1", other.ID, ApproveRequest{})
	require.NoError(t, err)

	err = svc.Reject(context.Background(), "admin-1", other.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateProfileAppliesPartialEdits(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &recordingAuditor{})

	u, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	name := "Asha R."
	updated, err := svc.UpdateProfile(context.Background(), u.ID, UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", updated.Name)
	assert.Equal(t, u.Phone, updated.Phone)
}
