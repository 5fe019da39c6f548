// Package authz is the authorization gate: role checks over the tenant
// context plus casbin object/action policies for admin-grade operations.
package authz

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"github.com/stridehq/stride/internal/tenant"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// RequireGlobalAdmin rejects anonymous callers first, then non-admins.
func RequireGlobalAdmin(tc *tenant.Context) error {
	if tc == nil || !tc.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !tc.IsGlobalAdmin() {
		return ErrForbidden
	}
	return nil
}

// RequireTeamAccess checks membership in teamID and a minimum role there.
// Global admins pass unconditionally.
func RequireTeamAccess(tc *tenant.Context, teamID snowflake.ID, minRole string) error {
	if tc == nil || !tc.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if tc.IsGlobalAdmin() {
		return nil
	}
	if !tc.CanAccessTeam(teamID) {
		return ErrForbidden
	}
	if !teamdomain.AtLeast(tc.RoleIn(teamID), minRole) {
		return ErrForbidden
	}
	return nil
}

// RequireTeamOwnership is RequireTeamAccess at the OWNER rank.
func RequireTeamOwnership(tc *tenant.Context, teamID snowflake.ID) error {
	return RequireTeamAccess(tc, teamID, teamdomain.RoleOwner)
}

// CanAccessTeam is the boolean form of membership access; deny never errors.
func CanAccessTeam(tc *tenant.Context, teamID snowflake.ID) bool {
	if tc == nil || !tc.IsAuthenticated() {
		return false
	}
	return tc.CanAccessTeam(teamID)
}

// IsTeamOwner reports whether the caller owns teamID. Global admins are not
// owners; callers wanting the bypass use RequireTeamOwnership.
func IsTeamOwner(tc *tenant.Context, teamID snowflake.ID) bool {
	if tc == nil || !tc.IsAuthenticated() {
		return false
	}
	return tc.RoleIn(teamID) == teamdomain.RoleOwner
}
