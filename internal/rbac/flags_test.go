package rbac

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFlagRepo struct {
	mu       sync.Mutex
	flags    map[string]FeatureFlag
	subjects []Subject
	upserts  int
}

func newMockFlagRepo() *mockFlagRepo {
	return &mockFlagRepo{flags: make(map[string]FeatureFlag)}
}

func (m *mockFlagRepo) Flag(_ context.Context, societyID, key string) (*FeatureFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flags[societyID+"/"+key]; ok {
		out := f
		return &out, nil
	}
	return nil, ErrNotFound
}

func (m *mockFlagRepo) ListFlags(_ context.Context, societyID string) ([]FeatureFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FeatureFlag
	for _, f := range m.flags {
		if f.SocietyID == societyID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFlagRepo) UpsertFlag(_ context.Context, flag *FeatureFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.flags[flag.SocietyID+"/"+flag.Key] = *flag
	return nil
}

func (m *mockFlagRepo) SubjectsWithRole(_ context.Context, societyID string, role Role) ([]Subject, error) {
	var out []Subject
	for _, sub := range m.subjects {
		for _, a := range sub.Associations {
			if a.SocietyID == societyID && a.Role == role {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}

func TestListForSocietySynthesizesDefaults(t *testing.T) {
	repo := newMockFlagRepo()
	svc := NewFlagService(repo, nil, 0, nil)
	svc.now = fixedNow

	flags, err := svc.ListForSociety(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, flags, len(FeatureCatalog))
	assert.Equal(t, len(FeatureCatalog), repo.upserts)

	for _, flag := range flags {
		assert.True(t, flag.Enabled)
		assert.Equal(t, "S1", flag.SocietyID)
		for _, platform := range []Platform{PlatformWeb, PlatformMobile} {
			cfg, ok := flag.Platforms[platform]
			require.True(t, ok, "flag %s missing platform %s", flag.Key, platform)
			assert.True(t, cfg.Enabled)
			for _, role := range AllRoles() {
				assert.True(t, cfg.Roles[role], "flag %s platform %s role %s", flag.Key, platform, role)
			}
		}
		assert.True(t, flag.Tiers[FeatureTier(flag.Key)])
	}

	// Second request returns the persisted set without re-synthesizing.
	again, err := svc.ListForSociety(context.Background(), "S1")
	require.NoError(t, err)
	assert.Len(t, again, len(FeatureCatalog))
	assert.Equal(t, len(FeatureCatalog), repo.upserts)
}

func TestFlagSynthesizesDefaultsOnFirstEvaluation(t *testing.T) {
	repo := newMockFlagRepo()
	svc := NewFlagService(repo, nil, 0, nil)
	svc.now = fixedNow

	// A society with zero flags must not require manual seeding before the
	// resolver can answer for a catalog feature.
	flag, err := svc.Flag(context.Background(), "S1", FeatureManageNotices)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.True(t, flag.Enabled)
	assert.Equal(t, len(FeatureCatalog), repo.upserts)
}

func TestFlagMissWithExistingFlagsStaysNotFound(t *testing.T) {
	repo := newMockFlagRepo()
	existing := DefaultFlag(FeatureManageNotices, "S1", fixedNow())
	repo.flags["S1/"+FeatureManageNotices] = existing

	svc := NewFlagService(repo, nil, 0, nil)
	svc.now = fixedNow

	// The society already has flags, so a missing key is a genuine miss and
	// falls through to the global tenant, not a re-synthesis.
	_, err := svc.Flag(context.Background(), "S1", FeatureManageParking)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, repo.upserts)
}

func TestFreshSocietyAdmitsPlatformOperator(t *testing.T) {
	repo := newMockFlagRepo()
	svc := NewFlagService(repo, nil, 0, nil)
	svc.now = fixedNow

	resolver := NewResolver(svc, nil)
	operator := Subject{UserID: "op", Associations: []RoleAssociation{activeAssociation("op", RoleOwnerApp, "S1")}}

	decision, err := resolver.Evaluate(context.Background(), operator, Access{
		Feature:   FeatureManageFeatureFlags,
		SocietyID: "S1",
		Platform:  PlatformWeb,
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonSuperRole, decision.Reason)
}

func TestDefaultFlagTierSeeding(t *testing.T) {
	flag := DefaultFlag(FeatureManageParking, "S1", fixedNow())
	assert.True(t, flag.Tiers[TierPremium])
	assert.False(t, flag.Tiers[TierFree])

	free := DefaultFlag(FeatureManageNotices, "S1", fixedNow())
	// Free features stay available on every paid tier too.
	assert.True(t, free.Tiers[TierFree])
	assert.True(t, free.Tiers[TierStandard])
	assert.True(t, free.Tiers[TierPremium])
}

func TestUpsertStampsProvenance(t *testing.T) {
	repo := newMockFlagRepo()
	svc := NewFlagService(repo, nil, 0, nil)
	svc.now = fixedNow

	flag := FeatureFlag{Key: FeatureManageNotices, SocietyID: "S1", Enabled: true}
	saved, err := svc.Upsert(context.Background(), flag, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", saved.CreatedBy)
	assert.Equal(t, "admin-1", saved.ModifiedBy)
	assert.Equal(t, fixedNow().UTC(), saved.UpdatedAt)

	_, err = svc.Upsert(context.Background(), FeatureFlag{SocietyID: "S1"}, "admin-1")
	require.Error(t, err)
}

func TestSummarizeRoleUnionsCustomPermissions(t *testing.T) {
	repo := newMockFlagRepo()

	a1 := activeAssociation("u1", RoleCommitteeMember, "S1")
	a1.CustomPermissions = map[string][]string{
		FeatureManageNotices: {"Create"},
	}
	a2 := activeAssociation("u2", RoleCommitteeMember, "S1")
	a2.CustomPermissions = map[string][]string{
		FeatureManageNotices:  {"Create", "Delete"},
		FeatureManageMeetings: {"Update"},
	}
	// Expired association: its permissions must not leak into the summary.
	yesterday := fixedNow().Add(-1)
	a3 := activeAssociation("u3", RoleCommitteeMember, "S1")
	a3.ExpiresAt = &yesterday
	a3.CustomPermissions = map[string][]string{FeatureManageBilling: {"Read"}}

	repo.subjects = []Subject{
		{UserID: "u1", Associations: []RoleAssociation{a1}},
		{UserID: "u2", Associations: []RoleAssociation{a2}},
		{UserID: "u3", Associations: []RoleAssociation{a3}},
	}

	svc := NewFlagService(repo, nil, 0, nil)
	svc.now = fixedNow

	summary, err := svc.SummarizeRole(context.Background(), "S1", RoleCommitteeMember)
	require.NoError(t, err)
	assert.Equal(t, RoleCommitteeMember, summary.Role)
	assert.ElementsMatch(t, []string{"Create", "Delete"}, summary.Features[FeatureManageNotices])
	assert.ElementsMatch(t, []string{"Update"}, summary.Features[FeatureManageMeetings])
	assert.NotContains(t, summary.Features, FeatureManageBilling)
}
