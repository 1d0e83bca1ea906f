package rbac

// Role identifies a permission grouping from the static catalog.
type Role string

// Catalog roles.
const (
	RoleOwnerApp        Role = "owner_app"
	RoleOps             Role = "ops"
	RoleSocietyAdmin    Role = "society_admin"
	RoleCommitteeMember Role = "committee_member"
	RoleTreasurer       Role = "treasurer"
	RoleResidentOwner   Role = "resident_owner"
	RoleResidentTenant  Role = "resident_tenant"
	RoleSecurityGuard   Role = "security_guard"
	RoleFacilityManager Role = "facility_manager"
	RoleVendor          Role = "vendor"
)

// Platform distinguishes the client surface a request originates from.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformMobile Platform = "mobile"
)

// Tier is the pricing tier a society subscribes to.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Feature keys. Stable strings, used as storage ids within a society partition.
const (
	FeatureManageNotices      = "manageNotices"
	FeatureManageComplaints   = "manageComplaints"
	FeatureRaiseComplaint     = "raiseComplaint"
	FeatureVisitorGatePass    = "visitorGatePass"
	FeatureApproveResidents   = "approveResidents"
	FeatureManageBilling      = "manageBilling"
	FeatureViewBills          = "viewBills"
	FeatureManageMeetings     = "manageMeetings"
	FeatureVendorDirectory    = "vendorDirectory"
	FeatureManageParking      = "manageParking"
	FeatureManageRoles        = "manageRoles"
	FeatureManageFeatureFlags = "manageFeatureFlags"
	FeatureRunMigrations      = "runMigrations"
)

var catalogRoles = []Role{
	RoleOwnerApp,
	RoleOps,
	RoleSocietyAdmin,
	RoleCommitteeMember,
	RoleTreasurer,
	RoleResidentOwner,
	RoleResidentTenant,
	RoleSecurityGuard,
	RoleFacilityManager,
	RoleVendor,
}

// superRoles bypass platform and role allow-lists entirely.
var superRoles = map[Role]struct{}{
	RoleOwnerApp: {},
	RoleOps:      {},
}

var loginEligible = map[Role]struct{}{
	RoleOwnerApp:        {},
	RoleOps:             {},
	RoleSocietyAdmin:    {},
	RoleCommitteeMember: {},
	RoleTreasurer:       {},
	RoleResidentOwner:   {},
	RoleResidentTenant:  {},
	RoleSecurityGuard:   {},
	RoleFacilityManager: {},
}

var residentRoles = map[Role]struct{}{
	RoleResidentOwner:  {},
	RoleResidentTenant: {},
}

// FeatureCatalog enumerates every feature key the platform knows about.
var FeatureCatalog = []string{
	FeatureManageNotices,
	FeatureManageComplaints,
	FeatureRaiseComplaint,
	FeatureVisitorGatePass,
	FeatureApproveResidents,
	FeatureManageBilling,
	FeatureViewBills,
	FeatureManageMeetings,
	FeatureVendorDirectory,
	FeatureManageParking,
	FeatureManageRoles,
	FeatureManageFeatureFlags,
	FeatureRunMigrations,
}

// featureTiers maps features to the pricing tier they nominally belong to.
// Features missing here default to the free tier.
var featureTiers = map[string]Tier{
	FeatureManageBilling:   TierStandard,
	FeatureViewBills:       TierStandard,
	FeatureManageMeetings:  TierStandard,
	FeatureVendorDirectory: TierStandard,
	FeatureManageParking:   TierPremium,
}

// AllRoles returns the role catalog in declaration order.
func AllRoles() []Role {
	out := make([]Role, len(catalogRoles))
	copy(out, catalogRoles)
	return out
}

// KnownRole reports whether r is part of the catalog.
func KnownRole(r Role) bool {
	for _, known := range catalogRoles {
		if known == r {
			return true
		}
	}
	return false
}

// KnownFeature reports whether key is part of the feature catalog.
func KnownFeature(key string) bool {
	for _, known := range FeatureCatalog {
		if known == key {
			return true
		}
	}
	return false
}

// KnownPlatform reports whether p is a supported client platform.
func KnownPlatform(p Platform) bool {
	return p == PlatformWeb || p == PlatformMobile
}

// SuperRole reports whether r short-circuits role/platform gating.
func SuperRole(r Role) bool {
	_, ok := superRoles[r]
	return ok
}

// LoginEligible reports whether the role may authenticate interactively.
func LoginEligible(r Role) bool {
	_, ok := loginEligible[r]
	return ok
}

// ResidentRole reports whether the role is bound to a flat.
func ResidentRole(r Role) bool {
	_, ok := residentRoles[r]
	return ok
}

// FeatureTier returns the pricing tier a feature nominally belongs to.
func FeatureTier(key string) Tier {
	if t, ok := featureTiers[key]; ok {
		return t
	}
	return TierFree
}
