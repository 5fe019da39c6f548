package server

import (
	"net"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stridehq/stride/internal/authz"
	"github.com/stridehq/stride/internal/claims"
	obscontext "github.com/stridehq/stride/internal/observability/context"
	"github.com/stridehq/stride/internal/observability/logger"
	"github.com/stridehq/stride/internal/tenant"
	"go.uber.org/zap"
)

const contextTenantKey = "tenant_context"

// subdomainFromHost extracts the tenant label from a request host under the
// configured base domain. "oslo.stride.local:8080" -> "oslo".
func (s *Server) subdomainFromHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == s.cfg.BaseDomain || !strings.HasSuffix(host, "."+s.cfg.BaseDomain) {
		return ""
	}
	label := strings.TrimSuffix(host, "."+s.cfg.BaseDomain)
	if strings.Contains(label, ".") {
		// Nested labels are not tenant subdomains.
		return ""
	}
	switch label {
	case "www", "api", "app", "admin":
		return ""
	}
	return label
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired verifies the bearer token and installs the tenant context.
// The host subdomain wins tenant resolution when present; otherwise the
// token's memberships decide.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, authz.ErrUnauthenticated)
			return
		}
		access, err := claims.Parse(raw, []byte(s.cfg.AuthJWTSecret))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		tc := tenant.New(s.teamRepo)
		tc.FromClaims(access, log)
		if !tc.IsAuthenticated() {
			AbortWithError(c, authz.ErrUnauthenticated)
			return
		}

		if sub := s.subdomainFromHost(c.Request.Host); sub != "" {
			tc.SetTeamSubdomain(sub)
			tc.ResolveFromSubdomain(ctx)
		}
		if tc.TeamID() == 0 {
			tc.ResolveFromClaims(ctx)
		}

		ctx = obscontext.WithActorID(ctx, tc.UserID.String())
		if tc.TeamID() != 0 {
			ctx = obscontext.WithTeamID(ctx, tc.TeamID().String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextTenantKey, tc)
		c.Next()
	}
}

// tenantFrom returns the tenant context installed by AuthRequired, or nil.
func tenantFrom(c *gin.Context) *tenant.Context {
	value, ok := c.Get(contextTenantKey)
	if !ok {
		return nil
	}
	tc, ok := value.(*tenant.Context)
	if !ok {
		return nil
	}
	return tc
}

// RequireGlobalAdmin gates the /admin surface.
func (s *Server) RequireGlobalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.RequireGlobalAdmin(tenantFrom(c)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequireRole gates a team-scoped route on a minimum role in the team named
// by the :id path parameter.
func (s *Server) RequireRole(minRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := teamIDParam(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := authz.RequireTeamAccess(tenantFrom(c), teamID, minRole); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// authorizeTeamAction enforces the casbin object/action policy using the
// caller's role in the :id team. Global admins bypass the policy table.
func (s *Server) authorizeTeamAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := tenantFrom(c)
		if tc == nil || !tc.IsAuthenticated() {
			AbortWithError(c, authz.ErrUnauthenticated)
			return
		}
		if tc.IsGlobalAdmin() {
			c.Next()
			return
		}
		teamID, err := teamIDParam(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		allowed, err := s.enforcer.AuthorizeAction(tc.RoleIn(teamID), object, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, authz.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RateLimit applies the redis token bucket when configured, falling back to
// the in-process limiter. key distinguishes route families; the client IP
// scopes the bucket.
func (s *Server) RateLimit(key string, rate float64, burst int, fallback *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		bucketKey := key + ":" + c.ClientIP()
		if s.limiter != nil {
			result, err := s.limiter.Allow(c.Request.Context(), bucketKey, rate, burst)
			if err != nil {
				// Redis trouble must not take the route down.
				logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable",
					zap.Error(err))
				c.Next()
				return
			}
			if !result.Allowed {
				AbortWithError(c, ErrTooManyRequests)
				return
			}
			c.Next()
			return
		}
		if !fallback.allow(bucketKey) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func teamIDParam(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		return 0, newValidationError("id", "invalid_team_id", "invalid team id")
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return id, nil
}
