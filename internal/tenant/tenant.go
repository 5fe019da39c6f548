// Package tenant carries the per-request principal and active team context.
package tenant

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/claims"
	"github.com/stridehq/stride/internal/observability/logger"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"go.uber.org/zap"
)

// Context is assembled by the auth middleware for each request. The zero
// value is an anonymous request with no tenant pinned.
type Context struct {
	UserID        snowflake.ID
	Email         string
	Authenticated bool
	GlobalAdmin   bool

	teamID     snowflake.ID
	subdomain  string
	TeamRole   string
	MemberType string

	Memberships []claims.Membership

	repo teamdomain.Repository
}

// New builds a request context. repo may be nil for claims-only resolution.
func New(repo teamdomain.Repository) *Context {
	return &Context{repo: repo}
}

// FromClaims populates the principal fields from a verified token.
func (t *Context) FromClaims(access *claims.Access, log *zap.Logger) {
	t.UserID = access.UserID()
	t.Email = access.Email
	t.Authenticated = t.UserID != 0
	t.GlobalAdmin = access.IsGlobalAdmin
	t.Memberships = access.ValidMemberships(log)
}

func (t *Context) IsAuthenticated() bool { return t.Authenticated }
func (t *Context) IsGlobalAdmin() bool   { return t.GlobalAdmin }
func (t *Context) TeamID() snowflake.ID  { return t.teamID }
func (t *Context) Subdomain() string     { return t.subdomain }

// SetTeamID pins the active tenant. The first writer wins; later calls are
// ignored so a handler cannot silently repoint a resolved tenant.
func (t *Context) SetTeamID(id snowflake.ID) {
	if t.teamID != 0 || id == 0 {
		return
	}
	t.teamID = id
}

// SetTeamSubdomain records the requested subdomain. First writer wins.
func (t *Context) SetTeamSubdomain(sub string) {
	if t.subdomain != "" || sub == "" {
		return
	}
	t.subdomain = sub
}

// ResolveFromSubdomain pins the tenant by looking up the pinned subdomain.
// Lookup failures resolve to false rather than escaping as errors; the
// request proceeds untenanted and authorization fails downstream.
func (t *Context) ResolveFromSubdomain(ctx context.Context) bool {
	if t.subdomain == "" || t.repo == nil {
		return false
	}
	team, err := t.repo.GetTeamBySubdomain(ctx, t.subdomain)
	if err != nil {
		logger.FromContext(ctx).Debug("tenant subdomain lookup failed",
			zap.String("subdomain", t.subdomain), zap.Error(err))
		return false
	}
	t.SetTeamID(team.ID)
	t.applyMembershipFor(team.ID)
	return true
}

// ResolveFromClaims pins the tenant from the token's membership list. With a
// subdomain already recorded it must match a membership entry; without one,
// a single membership is unambiguous and wins, anything else fails closed.
func (t *Context) ResolveFromClaims(ctx context.Context) bool {
	if t.teamID != 0 {
		return true
	}
	if t.subdomain != "" {
		for _, m := range t.Memberships {
			if m.TeamSubdomain == t.subdomain {
				id, err := snowflake.ParseString(m.TeamID)
				if err != nil {
					return false
				}
				t.SetTeamID(id)
				t.TeamRole = m.TeamRole
				t.MemberType = m.MemberType
				return true
			}
		}
		return false
	}
	if len(t.Memberships) != 1 {
		if len(t.Memberships) > 1 {
			logger.FromContext(ctx).Debug("ambiguous tenant, no subdomain pinned",
				zap.Int("memberships", len(t.Memberships)))
		}
		return false
	}
	m := t.Memberships[0]
	id, err := snowflake.ParseString(m.TeamID)
	if err != nil {
		return false
	}
	t.SetTeamID(id)
	t.TeamRole = m.TeamRole
	t.MemberType = m.MemberType
	return true
}

// CanAccessTeam reports whether the principal may touch the given team.
// Global admins may touch everything.
func (t *Context) CanAccessTeam(teamID snowflake.ID) bool {
	if t.GlobalAdmin {
		return true
	}
	return t.membershipFor(teamID) != nil
}

// RoleIn returns the principal's role in the given team, or "".
func (t *Context) RoleIn(teamID snowflake.ID) string {
	if m := t.membershipFor(teamID); m != nil {
		return m.TeamRole
	}
	return ""
}

// HasMinimumRole reports whether the active-team role meets min. Global
// admins always pass.
func (t *Context) HasMinimumRole(min string) bool {
	if t.GlobalAdmin {
		return true
	}
	return teamdomain.AtLeast(t.TeamRole, min)
}

func (t *Context) membershipFor(teamID snowflake.ID) *claims.Membership {
	want := teamID.String()
	for i := range t.Memberships {
		if t.Memberships[i].TeamID == want {
			return &t.Memberships[i]
		}
	}
	return nil
}

func (t *Context) applyMembershipFor(teamID snowflake.ID) {
	if m := t.membershipFor(teamID); m != nil {
		t.TeamRole = m.TeamRole
		t.MemberType = m.MemberType
	}
}
