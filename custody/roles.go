package custody

import (
	"fmt"
	"strings"
)

// Role is the viewer class a request acts as
type Role string

// Roles
const (
	RolePolice    Role = "POLICE"
	RoleLawyerNGO Role = "LAWYER_NGO"
	RolePublic    Role = "PUBLIC"
)

// Permission gates a read or a mutation
type Permission string

// Permissions
const (
	PermViewPublicLedger   Permission = "VIEW_PUBLIC_LEDGER"
	PermViewInternalLedger Permission = "VIEW_INTERNAL_LEDGER"
	PermCreateIntake       Permission = "CREATE_INTAKE"
	PermUpdateStatus       Permission = "UPDATE_STATUS"
	PermViewRiskAnalysis   Permission = "VIEW_RISK_ANALYSIS"
	PermTriggerEmergency   Permission = "TRIGGER_EMERGENCY"
	PermArchiveRecords     Permission = "ARCHIVE_RECORDS"
	PermAccessLiveFeed     Permission = "ACCESS_LIVE_FEED"
	PermAttachFiles        Permission = "ATTACH_FILES"
)

var rolePermissions = map[Role][]Permission{
	RolePolice: {
		PermViewPublicLedger,
		PermViewInternalLedger,
		PermCreateIntake,
		PermUpdateStatus,
		PermViewRiskAnalysis,
		PermTriggerEmergency,
		PermArchiveRecords,
		PermAccessLiveFeed,
		PermAttachFiles,
	},
	RoleLawyerNGO: {
		PermViewPublicLedger,
		PermViewInternalLedger,
		PermUpdateStatus,
		PermViewRiskAnalysis,
		PermArchiveRecords,
		PermAccessLiveFeed,
	},
	RolePublic: {
		PermViewPublicLedger,
		PermTriggerEmergency,
		PermAccessLiveFeed,
	},
}

// ParseRole accepts the role names case-insensitively. "LAWYER" and "NGO"
// are accepted as aliases of LAWYER_NGO.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POLICE":
		return RolePolice, nil
	case "LAWYER_NGO", "LAWYER", "NGO":
		return RoleLawyerNGO, nil
	case "PUBLIC":
		return RolePublic, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Can reports whether the role holds p
func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// Authorize returns a ForbiddenError when the role lacks p
func (r Role) Authorize(p Permission) error {
	if !r.Can(p) {
		return &ForbiddenError{Role: r, Permission: p}
	}
	return nil
}
