package rbac

import (
	"encoding/json"
	"time"
)

// GlobalSociety is the reserved tenant id whose flags apply to every society
// lacking an override.
const GlobalSociety = "global"

// RoleAssociation binds a user to a role within one society.
//
// A user record exclusively owns its association list; associations have no
// existence outside the owning user document.
type RoleAssociation struct {
	ID                string              `json:"id"`
	UserID            string              `json:"userId"`
	Role              Role                `json:"role"`
	SocietyID         string              `json:"societyId"`
	FlatNumber        string              `json:"flatNumber,omitempty"`
	IsActive          bool                `json:"isActive"`
	AssignedAt        time.Time           `json:"assignedAt"`
	ExpiresAt         *time.Time          `json:"expiresAt,omitempty"`
	AssignedBy        string              `json:"assignedBy"`
	CustomPermissions map[string][]string `json:"customPermissions,omitempty"`
}

// EffectiveAt reports whether the association may contribute to an allow
// decision at the given instant. Expiry is a policy invariant checked here,
// never enforced by storage.
func (a RoleAssociation) EffectiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
		return false
	}
	return true
}

// GrantsCustom reports whether the association's custom permissions cover the
// feature. An empty action matches any stored permission for the feature;
// custom permissions only ever add allowances, they cannot deny.
func (a RoleAssociation) GrantsCustom(feature, action string) bool {
	actions, ok := a.CustomPermissions[feature]
	if !ok || len(actions) == 0 {
		return false
	}
	if action == "" {
		return true
	}
	for _, granted := range actions {
		if granted == action {
			return true
		}
	}
	return false
}

// PlatformConfig gates a feature on one client platform.
// A nil Roles map falls back to the flag's legacy top-level role list.
type PlatformConfig struct {
	Enabled bool          `json:"enabled"`
	Roles   map[Role]bool `json:"roles,omitempty"`
}

// FeatureFlag is the per-(key, society) capability document.
type FeatureFlag struct {
	Key          string                      `json:"key"`
	SocietyID    string                      `json:"societyId"`
	Enabled      bool                        `json:"enabled"`
	Platforms    map[Platform]PlatformConfig `json:"platforms,omitempty"`
	Roles        map[Role]bool               `json:"roles,omitempty"`
	Environments map[string]bool             `json:"environments,omitempty"`
	Tiers        map[Tier]bool               `json:"tiers,omitempty"`
	ABTestConfig json.RawMessage             `json:"abTestConfig,omitempty"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
	CreatedBy    string                      `json:"createdBy,omitempty"`
	ModifiedBy   string                      `json:"modifiedBy,omitempty"`
}

// PlatformRoles resolves the two-tier role override for a platform:
// platform-specific roles when present, otherwise the legacy global list.
func (f *FeatureFlag) PlatformRoles(p Platform) map[Role]bool {
	if cfg, ok := f.Platforms[p]; ok && cfg.Roles != nil {
		return cfg.Roles
	}
	return f.Roles
}

// PlatformEnabled reports whether the feature is switched on for a platform.
// Flags written before platform gating existed carry no platform map at all;
// those remain enabled everywhere.
func (f *FeatureFlag) PlatformEnabled(p Platform) bool {
	if len(f.Platforms) == 0 {
		return true
	}
	cfg, ok := f.Platforms[p]
	if !ok {
		return false
	}
	return cfg.Enabled
}

// Subject is the evaluation view of a user: its association list plus the
// legacy single-role fields kept for records that predate associations.
type Subject struct {
	UserID          string
	LegacyRole      Role
	LegacySocietyID string
	Associations    []RoleAssociation
}

// EffectiveRoles collects the subject's roles for one society at an instant:
// active, non-expired, society-matched associations, falling back to the
// legacy (primaryRole, societyId) pair only when the subject has no
// association at all for that society.
func (s Subject) EffectiveRoles(societyID string, now time.Time) []Role {
	var roles []Role
	seen := make(map[Role]struct{})
	hasAny := false
	for _, a := range s.Associations {
		if a.SocietyID != societyID {
			continue
		}
		hasAny = true
		if !a.EffectiveAt(now) {
			continue
		}
		if _, dup := seen[a.Role]; dup {
			continue
		}
		seen[a.Role] = struct{}{}
		roles = append(roles, a.Role)
	}
	if !hasAny && s.LegacyRole != "" && s.LegacySocietyID == societyID {
		roles = append(roles, s.LegacyRole)
	}
	return roles
}

// effectiveAssociations returns the associations that may carry custom
// permissions for one society at an instant.
func (s Subject) effectiveAssociations(societyID string, now time.Time) []RoleAssociation {
	var out []RoleAssociation
	for _, a := range s.Associations {
		if a.SocietyID == societyID && a.EffectiveAt(now) {
			out = append(out, a)
		}
	}
	return out
}
