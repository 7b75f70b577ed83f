package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/di"
	"github.com/waranyu/saas-admin-platform/internal/dto"
	"github.com/waranyu/saas-admin-platform/pkg/middleware"
	"github.com/waranyu/saas-admin-platform/pkg/response"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Container   *di.Container
	JWTSecret   string
	Guard       func(operationID string) gin.HandlerFunc
	AuditLogger *middleware.AuditLogger
	Development bool
}

// NewRouter builds the gin engine with the full middleware pipeline:
// recovery, audit capture, authentication, tenant resolution, then the
// per-operation authorization guard on each route.
func NewRouter(cfg *RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.AuditLogger != nil {
		router.Use(middleware.AuditMiddleware(cfg.AuditLogger))
	}

	router.Use(middleware.JWTMiddleware(&middleware.JWTConfig{
		Secret: cfg.JWTSecret,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/auth/logout",
		},
	}))
	router.Use(middleware.TenantMiddleware())

	registerRoutes(router, cfg)

	return router
}

func registerRoutes(router *gin.Engine, cfg *RouterConfig) {
	c := cfg.Container
	guard := cfg.Guard

	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", guard(OpAuthLogin), c.AuthHandler.Login)
		auth.POST("/refresh", guard(OpAuthRefresh), c.AuthHandler.Refresh)
		auth.POST("/logout", guard(OpAuthLogout), c.AuthHandler.Logout)
		auth.GET("/me", guard(OpAuthMe), c.AuthHandler.Me)
	}

	tenants := v1.Group("/tenants")
	{
		tenants.POST("", guard(OpTenantsCreate), c.TenantHandler.Create)
		tenants.GET("", guard(OpTenantsList), c.TenantHandler.List)
		tenants.GET("/slug/:slug", guard(OpTenantsList), c.TenantHandler.GetBySlug)
		tenants.GET("/:id", guard(OpTenantsGet), c.TenantHandler.GetByID)
		tenants.PUT("/:id", guard(OpTenantsUpdate), c.TenantHandler.Update)
		tenants.DELETE("/:id", guard(OpTenantsDelete), c.TenantHandler.Delete)
	}

	users := v1.Group("/users")
	{
		users.POST("", guard(OpUsersCreate), c.UserHandler.Create)
		users.GET("", guard(OpUsersList), c.UserHandler.List)
		users.GET("/:id", guard(OpUsersGet), c.UserHandler.GetByID)
		users.PUT("/:id", guard(OpUsersUpdate), c.UserHandler.Update)
		users.DELETE("/:id", guard(OpUsersDelete), c.UserHandler.Delete)
	}

	templates := v1.Group("/templates")
	{
		templates.POST("", guard(OpTemplatesCreate), c.TemplateHandler.Create)
		templates.GET("", guard(OpTemplatesList), c.TemplateHandler.List)
		templates.GET("/:id", guard(OpTemplatesGet), c.TemplateHandler.GetByID)
		templates.PUT("/:id", guard(OpTemplatesUpdate), c.TemplateHandler.Update)
		templates.DELETE("/:id", guard(OpTemplatesDelete), c.TemplateHandler.Delete)
		templates.POST("/archive", bindArchivePayload, guard(OpTemplatesArchive), c.TemplateHandler.Archive)
	}

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, response.NotFound("Route not found"))
	})
}

// bindArchivePayload parses the archive body before the guard runs so the
// batch extractor can authorize every requested ID. The body is cached and
// re-read by the handler.
func bindArchivePayload(c *gin.Context) {
	var req dto.ArchiveTemplatesRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	middleware.SetAuthzPayload(c, req.TemplateIDs)
	c.Next()
}

// ensure the helper matches the extractor contract
var _ authz.ExtractFunc = archivedTemplateIDs
