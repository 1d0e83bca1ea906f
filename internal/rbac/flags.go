package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// FlagRepositoryPort defines data access for feature-flag documents.
type FlagRepositoryPort interface {
	Flag(ctx context.Context, societyID, key string) (*FeatureFlag, error)
	ListFlags(ctx context.Context, societyID string) ([]FeatureFlag, error)
	UpsertFlag(ctx context.Context, flag *FeatureFlag) error
	SubjectsWithRole(ctx context.Context, societyID string, role Role) ([]Subject, error)
}

// FlagService manages feature-flag documents: default synthesis for societies
// without flags, administrative upserts, and the read-side permission summary.
type FlagService struct {
	repo     FlagRepositoryPort
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
	synth    singleflight.Group
	now      func() time.Time
}

// NewFlagService builds a FlagService. cache may be nil; flags are then read
// straight from the repository on every evaluation.
func NewFlagService(repo FlagRepositoryPort, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *FlagService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlagService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Flag implements FlagStore for the resolver, reading through the cache.
func (s *FlagService) Flag(ctx context.Context, societyID, key string) (*FeatureFlag, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, flagCacheKey(societyID, key)).Bytes(); err == nil {
			var flag FeatureFlag
			if err := json.Unmarshal(data, &flag); err == nil {
				return &flag, nil
			}
		}
	}
	flag, err := s.repo.Flag(ctx, societyID, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) && KnownFeature(key) {
			return s.flagAfterSynthesis(ctx, societyID, key)
		}
		return nil, err
	}
	s.cachePut(ctx, flag)
	return flag, nil
}

// flagAfterSynthesis handles a resolver miss for a catalog feature. A society
// with zero flags gets its defaults synthesized on first evaluation, so a
// fresh install is usable without seeding; a society that already has flags
// but not this key stays a miss and falls back to the global tenant.
func (s *FlagService) flagAfterSynthesis(ctx context.Context, societyID, key string) (*FeatureFlag, error) {
	flags, err := s.ListForSociety(ctx, societyID)
	if err != nil {
		return nil, err
	}
	for i := range flags {
		if flags[i].Key == key {
			flag := flags[i]
			s.cachePut(ctx, &flag)
			return &flag, nil
		}
	}
	return nil, ErrNotFound
}

// ListForSociety returns the society's flags, synthesizing defaults the first
// time a society with zero flags is requested. Concurrent first requests for
// the same society collapse onto one synthesis.
func (s *FlagService) ListForSociety(ctx context.Context, societyID string) ([]FeatureFlag, error) {
	flags, err := s.repo.ListFlags(ctx, societyID)
	if err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		return flags, nil
	}

	result, err, _ := s.synth.Do(societyID, func() (any, error) {
		// Re-check inside the flight; a racing caller may have persisted.
		existing, err := s.repo.ListFlags(ctx, societyID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return existing, nil
		}
		return s.synthesizeDefaults(ctx, societyID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]FeatureFlag), nil
}

// synthesizeDefaults persists one flag per catalog feature with every known
// role granted on both platforms and tiers seeded from the feature→tier table.
func (s *FlagService) synthesizeDefaults(ctx context.Context, societyID string) ([]FeatureFlag, error) {
	now := s.now().UTC()
	flags := make([]FeatureFlag, 0, len(FeatureCatalog))
	for _, key := range FeatureCatalog {
		flag := DefaultFlag(key, societyID, now)
		if err := s.repo.UpsertFlag(ctx, &flag); err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	s.logger.Info("synthesized default feature flags",
		slog.String("society_id", societyID), slog.Int("count", len(flags)))
	return flags, nil
}

// DefaultFlag builds the catalog default for one feature key.
func DefaultFlag(key, societyID string, now time.Time) FeatureFlag {
	roles := make(map[Role]bool, len(catalogRoles))
	for _, role := range catalogRoles {
		roles[role] = true
	}
	tier := FeatureTier(key)
	tiers := map[Tier]bool{tier: true}
	// Higher tiers include everything below them.
	switch tier {
	case TierFree:
		tiers[TierStandard] = true
		tiers[TierPremium] = true
	case TierStandard:
		tiers[TierPremium] = true
	}
	return FeatureFlag{
		Key:       key,
		SocietyID: societyID,
		Enabled:   true,
		Platforms: map[Platform]PlatformConfig{
			PlatformWeb:    {Enabled: true, Roles: cloneRoles(roles)},
			PlatformMobile: {Enabled: true, Roles: cloneRoles(roles)},
		},
		Roles:        roles,
		Environments: map[string]bool{"development": true, "demo": true, "production": true},
		Tiers:        tiers,
		CreatedAt:    touchTime(now),
		UpdatedAt:    touchTime(now),
		CreatedBy:    "system",
		ModifiedBy:   "system",
	}
}

// Upsert stores an administrative flag edit and drops the cache entry.
func (s *FlagService) Upsert(ctx context.Context, flag FeatureFlag, actorID string) (FeatureFlag, error) {
	if flag.Key == "" || flag.SocietyID == "" {
		return FeatureFlag{}, errors.New("rbac: flag key and society required")
	}
	now := s.now().UTC()
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = now
		flag.CreatedBy = actorID
	}
	flag.UpdatedAt = now
	flag.ModifiedBy = actorID
	if err := s.repo.UpsertFlag(ctx, &flag); err != nil {
		return FeatureFlag{}, err
	}
	s.cacheDrop(ctx, flag.SocietyID, flag.Key)
	return flag, nil
}

// RolePermissionSummary is the read-side aggregation for administrative UI:
// the set union of custom permissions per feature across every user holding
// the role in a society. Never consulted by the resolver.
type RolePermissionSummary struct {
	Role     Role                `json:"role"`
	Features map[string][]string `json:"features"`
}

// SummarizeRole merges customPermissions across all users sharing a role.
func (s *FlagService) SummarizeRole(ctx context.Context, societyID string, role Role) (RolePermissionSummary, error) {
	subjects, err := s.repo.SubjectsWithRole(ctx, societyID, role)
	if err != nil {
		return RolePermissionSummary{}, err
	}
	now := s.now()
	merged := make(map[string]map[string]struct{})
	for _, sub := range subjects {
		for _, a := range sub.effectiveAssociations(societyID, now) {
			if a.Role != role {
				continue
			}
			for feature, actions := range a.CustomPermissions {
				if merged[feature] == nil {
					merged[feature] = make(map[string]struct{})
				}
				for _, action := range actions {
					merged[feature][action] = struct{}{}
				}
			}
		}
	}
	features := make(map[string][]string, len(merged))
	for feature, actions := range merged {
		list := make([]string, 0, len(actions))
		for action := range actions {
			list = append(list, action)
		}
		sort.Strings(list)
		features[feature] = list
	}
	return RolePermissionSummary{Role: role, Features: features}, nil
}

func (s *FlagService) cachePut(ctx context.Context, flag *FeatureFlag) {
	if s.cache == nil || flag == nil {
		return
	}
	data, err := json.Marshal(flag)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, flagCacheKey(flag.SocietyID, flag.Key), data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("flag cache set", slog.Any("error", err))
	}
}

func (s *FlagService) cacheDrop(ctx context.Context, societyID, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, flagCacheKey(societyID, key)).Err(); err != nil {
		s.logger.Warn("flag cache del", slog.Any("error", err))
	}
}

func flagCacheKey(societyID, key string) string {
	return "flag:" + societyID + ":" + key
}

func cloneRoles(src map[Role]bool) map[Role]bool {
	out := make(map[Role]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var _ FlagStore = (*FlagService)(nil)
