package rbac

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Denial reasons surfaced on decisions. Useful for logs and metrics, never
// returned to end users verbatim.
const (
	ReasonNoFlag           = "no_flag"
	ReasonFeatureDisabled  = "feature_disabled"
	ReasonTierBlocked      = "tier_blocked"
	ReasonSuperRole        = "super_role"
	ReasonCustomPermission = "custom_permission"
	ReasonPlatformDisabled = "platform_disabled"
	ReasonRoleAllowed      = "role_allowed"
	ReasonRoleDenied       = "role_denied"
	ReasonBadRequest       = "bad_request"
)

// Access describes one permission question: can the subject use Feature in
// SocietyID on Platform, optionally narrowed to a single Action.
type Access struct {
	Feature   string
	SocietyID string
	Platform  Platform
	Action    string
}

// Decision is the resolver's answer.
type Decision struct {
	Allowed bool
	Reason  string
}

func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }
func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }

// FlagStore loads the effective flag document for a (society, key) pair.
// Implementations return ErrNotFound when no document exists.
type FlagStore interface {
	Flag(ctx context.Context, societyID, key string) (*FeatureFlag, error)
}

// TierSource reports the pricing tier a society currently subscribes to.
type TierSource interface {
	SocietyTier(ctx context.Context, societyID string) (Tier, error)
}

// Resolver answers feature-access questions. Evaluation is pure: it reads the
// flag store and tier source but never writes, so concurrent evaluations need
// no coordination.
type Resolver struct {
	flags FlagStore
	tiers TierSource
	now   func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(flags FlagStore, tiers TierSource) *Resolver {
	return &Resolver{flags: flags, tiers: tiers, now: time.Now}
}

// Evaluate decides the access question. The rules run in precedence order;
// the first decisive rule wins. Malformed feature keys resolve to deny, not
// an error; only store failures surface as errors.
func (r *Resolver) Evaluate(ctx context.Context, sub Subject, req Access) (Decision, error) {
	if req.Feature == "" || req.SocietyID == "" || !KnownPlatform(req.Platform) {
		return deny(ReasonBadRequest), nil
	}

	flag, err := r.effectiveFlag(ctx, req.SocietyID, req.Feature)
	if err != nil {
		return deny(ReasonNoFlag), err
	}
	if flag == nil {
		// Closed by default: no flag for the society and no global fallback.
		return deny(ReasonNoFlag), nil
	}

	if !flag.Enabled {
		// Master switch overrides everything below.
		return deny(ReasonFeatureDisabled), nil
	}

	if r.tiers != nil {
		tier, err := r.tiers.SocietyTier(ctx, req.SocietyID)
		if err != nil {
			return deny(ReasonTierBlocked), err
		}
		if !flag.Tiers[tier] {
			return deny(ReasonTierBlocked), nil
		}
	}

	now := r.now()
	roles := sub.EffectiveRoles(req.SocietyID, now)
	for _, role := range roles {
		if SuperRole(role) {
			return allow(ReasonSuperRole), nil
		}
	}

	for _, a := range sub.effectiveAssociations(req.SocietyID, now) {
		if a.GrantsCustom(req.Feature, req.Action) {
			return allow(ReasonCustomPermission), nil
		}
	}

	if !flag.PlatformEnabled(req.Platform) {
		return deny(ReasonPlatformDisabled), nil
	}

	// Permissive union: any one allowed role decides.
	allowed := flag.PlatformRoles(req.Platform)
	for _, role := range roles {
		if allowed[role] {
			return allow(ReasonRoleAllowed), nil
		}
	}
	return deny(ReasonRoleDenied), nil
}

// effectiveFlag resolves (key, society), falling back to (key, global).
func (r *Resolver) effectiveFlag(ctx context.Context, societyID, key string) (*FeatureFlag, error) {
	flag, err := r.flags.Flag(ctx, societyID, key)
	if err == nil {
		return flag, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	flag, err = r.flags.Flag(ctx, GlobalSociety, key)
	if err == nil {
		return flag, nil
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return nil, err
}
