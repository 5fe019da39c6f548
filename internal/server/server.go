package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stridehq/stride/internal/athlete"
	athletedomain "github.com/stridehq/stride/internal/athlete/domain"
	"github.com/stridehq/stride/internal/auth"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/authz"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/observability"
	obsmiddleware "github.com/stridehq/stride/internal/observability/logger"
	obsmetrics "github.com/stridehq/stride/internal/observability/metrics"
	obstracing "github.com/stridehq/stride/internal/observability/tracing"
	"github.com/stridehq/stride/internal/providers/email"
	"github.com/stridehq/stride/internal/ratelimit"
	"github.com/stridehq/stride/internal/registration"
	registrationdomain "github.com/stridehq/stride/internal/registration/domain"
	"github.com/stridehq/stride/internal/team"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"github.com/stridehq/stride/internal/tier"
	"github.com/stridehq/stride/internal/transfer"
	transferdomain "github.com/stridehq/stride/internal/transfer/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authz.Module,
	auth.Module,
	team.Module,
	tier.Module,
	athlete.Module,
	registration.Module,
	transfer.Module,
	email.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	genID       *snowflake.Node
	teamRepo    teamdomain.Repository
	teamSvc     teamdomain.Service
	athleteSvc  athletedomain.Service
	regSvc      registrationdomain.Service
	transferSvc transferdomain.Service
	authSvc     authdomain.Service
	enforcer    *authz.Enforcer
	limiter     *ratelimit.TokenBucket

	resolveLimiter *rateLimiter
	loginLimiter   *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	GenID       *snowflake.Node
	TeamRepo    teamdomain.Repository
	TeamSvc     teamdomain.Service
	AthleteSvc  athletedomain.Service
	RegSvc      registrationdomain.Service
	TransferSvc transferdomain.Service
	AuthSvc     authdomain.Service
	Enforcer    *authz.Enforcer
	Limiter     *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		genID:       p.GenID,
		teamRepo:    p.TeamRepo,
		teamSvc:     p.TeamSvc,
		athleteSvc:  p.AthleteSvc,
		regSvc:      p.RegSvc,
		transferSvc: p.TransferSvc,
		authSvc:     p.AuthSvc,
		enforcer:    p.Enforcer,
		limiter:     p.Limiter,

		resolveLimiter: newRateLimiter(p.Cfg.RateLimit.PublicResolveBurst, time.Minute),
		loginLimiter:   newRateLimiter(p.Cfg.RateLimit.LoginBurst, time.Minute),
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/login",
		s.RateLimit("login", s.cfg.RateLimit.LoginRate, s.cfg.RateLimit.LoginBurst, s.loginLimiter),
		s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
	authGroup.POST("/change-password", s.AuthRequired(), s.ChangePassword)
	authGroup.POST("/switch-team/:teamId", s.AuthRequired(), s.SwitchTeam)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	teams := api.Group("/teams")
	{
		teams.GET("", s.ListMyTeams)
		teams.POST("", s.CreateTeam)
		teams.GET("/subdomain-availability", s.CheckSubdomainAvailability)
		teams.GET("/:id", s.RequireRole(teamdomain.RoleMember), s.GetTeam)
		teams.PATCH("/:id", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectTeam, authz.ActionUpdate), s.UpdateTeam)
		teams.DELETE("/:id", s.RequireRole(teamdomain.RoleOwner), s.authorizeTeamAction(authz.ObjectTeam, authz.ActionDelete), s.DeleteTeam)
		teams.POST("/:id/tier", s.RequireRole(teamdomain.RoleOwner), s.ChangeTeamTier)
		teams.POST("/:id/default", s.RequireRole(teamdomain.RoleMember), s.SetDefaultTeam)

		teams.GET("/:id/members", s.RequireRole(teamdomain.RoleMember), s.ListTeamMembers)
		teams.PATCH("/:id/members/:userId", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectMember, authz.ActionUpdate), s.UpdateTeamMemberRole)
		teams.DELETE("/:id/members/:userId", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectMember, authz.ActionDelete), s.RemoveTeamMember)

		teams.GET("/:id/athletes", s.RequireRole(teamdomain.RoleMember), s.ListAthletes)
		teams.POST("/:id/athletes", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectAthlete, authz.ActionCreate), s.CreateAthlete)
		teams.PATCH("/:id/athletes/:athleteId", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectAthlete, authz.ActionUpdate), s.UpdateAthlete)
		teams.DELETE("/:id/athletes/:athleteId", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectAthlete, authz.ActionDelete), s.DeleteAthlete)

		teams.GET("/:id/registrations", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectRegistration, authz.ActionRead), s.ListRegistrations)
		teams.POST("/:id/registrations/:regId/approve", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectRegistration, authz.ActionApprove), s.ApproveRegistration)
		teams.POST("/:id/registrations/:regId/reject", s.RequireRole(teamdomain.RoleAdmin), s.authorizeTeamAction(authz.ObjectRegistration, authz.ActionReject), s.RejectRegistration)

		teams.GET("/:id/transfers", s.RequireRole(teamdomain.RoleOwner), s.authorizeTeamAction(authz.ObjectTransfer, authz.ActionRead), s.ListTransfers)
		teams.POST("/:id/transfers", s.RequireRole(teamdomain.RoleOwner), s.authorizeTeamAction(authz.ObjectTransfer, authz.ActionCreate), s.InitiateTransfer)
		teams.DELETE("/:id/transfers/:transferId", s.CancelTransfer)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())
	admin.Use(s.RequireGlobalAdmin())

	admin.GET("/teams", s.AdminListTeams)
	admin.POST("/teams/:id/suspend", s.AdminSuspendTeam)
	admin.POST("/teams/:id/reactivate", s.AdminReactivateTeam)
	admin.DELETE("/teams/:id/purge", s.AdminPurgeTeam)

	admin.GET("/users", s.AdminListUsers)
	admin.PATCH("/users/:userId", s.AdminUpdateUser)
	admin.DELETE("/users/:userId", s.AdminDeleteUser)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/resolve/:subdomain",
		s.RateLimit("resolve", s.cfg.RateLimit.PublicResolveRate, s.cfg.RateLimit.PublicResolveBurst, s.resolveLimiter),
		s.ResolveSubdomain)
	public.POST("/registrations/:subdomain",
		s.RateLimit("register", s.cfg.RateLimit.PublicResolveRate, s.cfg.RateLimit.PublicResolveBurst, s.resolveLimiter),
		s.SubmitRegistration)
	public.POST("/transfers/complete", s.AuthRequired(), s.CompleteTransfer)
}
