package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/internal/claims"
	"github.com/stridehq/stride/internal/config"
)

func TestSubdomainFromHost(t *testing.T) {
	s := &Server{cfg: config.Config{BaseDomain: "stride.run"}}

	cases := []struct {
		host string
		want string
	}{
		{"oslo.stride.run", "oslo"},
		{"oslo.stride.run:8080", "oslo"},
		{"OSLO.Stride.Run", "oslo"},
		{"oslo.stride.run.", "oslo"},
		{"stride.run", ""},
		{"stride.run:8080", ""},
		{"a.b.stride.run", ""},
		{"www.stride.run", ""},
		{"api.stride.run", ""},
		{"app.stride.run", ""},
		{"admin.stride.run", ""},
		{"evil.example.com", ""},
		{"notstride.run", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, s.subdomainFromHost(c.host), c.host)
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		return c
	}

	assert.Equal(t, "abc", bearerToken(newCtx("Bearer abc")))
	assert.Equal(t, "abc", bearerToken(newCtx("bearer abc")))
	assert.Equal(t, "", bearerToken(newCtx("")))
	assert.Equal(t, "", bearerToken(newCtx("Basic abc")))
	assert.Equal(t, "", bearerToken(newCtx("Bearer")))
}

func testToken(t *testing.T, secret string, access claims.Access) string {
	t.Helper()
	raw, err := claims.Issue(access, []byte(secret), time.Now().UTC(), time.Hour)
	require.NoError(t, err)
	return raw
}

func authTestServer() (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	s := &Server{
		engine: engine,
		cfg: config.Config{
			AuthJWTSecret: "test-secret",
			BaseDomain:    "stride.run",
		},
	}
	return s, engine
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	s, engine := authTestServer()
	engine.GET("/whoami", s.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsBadToken(t *testing.T) {
	s, engine := authTestServer()
	engine.GET("/whoami", s.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "other-secret", claims.Access{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	}))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredInstallsTenantContext(t *testing.T) {
	s, engine := authTestServer()
	engine.GET("/whoami", s.AuthRequired(), func(c *gin.Context) {
		tc := tenantFrom(c)
		require.NotNil(t, tc)
		c.JSON(http.StatusOK, gin.H{
			"user_id": tc.UserID.String(),
			"team_id": tc.TeamID().String(),
			"role":    tc.TeamRole,
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "test-secret", claims.Access{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
		Email:            "kari@example.com",
		Memberships: []claims.Membership{
			{TeamID: "7", TeamSubdomain: "oslo", TeamRole: "OWNER", MemberType: "COACH"},
		},
	}))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"42"`)
	// Single membership resolves the tenant without a subdomain.
	assert.Contains(t, w.Body.String(), `"team_id":"7"`)
	assert.Contains(t, w.Body.String(), `"role":"OWNER"`)
}

func TestAuthRequiredAmbiguousMembershipsFailClosed(t *testing.T) {
	s, engine := authTestServer()
	engine.GET("/whoami", s.AuthRequired(), func(c *gin.Context) {
		tc := tenantFrom(c)
		c.JSON(http.StatusOK, gin.H{"team_id": tc.TeamID().String()})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "test-secret", claims.Access{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
		Memberships: []claims.Membership{
			{TeamID: "7", TeamSubdomain: "oslo", TeamRole: "OWNER"},
			{TeamID: "8", TeamSubdomain: "bergen", TeamRole: "MEMBER"},
		},
	}))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"team_id":"0"`, "no tenant pinned without a subdomain")
}

func TestRequireRoleForbidsLowerRank(t *testing.T) {
	s, engine := authTestServer()
	engine.DELETE("/teams/:id", s.AuthRequired(), s.RequireRole("OWNER"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token := testToken(t, "test-secret", claims.Access{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
		Memberships: []claims.Membership{
			{TeamID: "7", TeamSubdomain: "oslo", TeamRole: "ADMIN"},
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/teams/7", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiterWindow(t *testing.T) {
	limiter := newRateLimiter(2, 50*time.Millisecond)

	assert.True(t, limiter.allow("ip1"))
	assert.True(t, limiter.allow("ip1"))
	assert.False(t, limiter.allow("ip1"))

	// Separate keys get separate windows.
	assert.True(t, limiter.allow("ip2"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.allow("ip1"))
}
