package di

import (
	"github.com/waranyu/saas-admin-platform/internal/events"
	"github.com/waranyu/saas-admin-platform/internal/handler"
	"github.com/waranyu/saas-admin-platform/internal/repository"
	"github.com/waranyu/saas-admin-platform/internal/service"
	"github.com/waranyu/saas-admin-platform/pkg/database"
	"github.com/waranyu/saas-admin-platform/pkg/redis"
)

// Container holds all dependencies for the admin API
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher events.Publisher

	// Repositories
	TenantRepo   repository.TenantRepository
	UserRepo     repository.UserRepository
	TemplateRepo repository.TemplateRepository
	SessionRepo  repository.SessionRepository

	// Services
	AuthService     service.AuthService
	TenantService   service.TenantService
	UserService     service.UserService
	TemplateService service.TemplateService

	// Handlers
	HealthHandler   *handler.HealthHandler
	AuthHandler     *handler.AuthHandler
	TenantHandler   *handler.TenantHandler
	UserHandler     *handler.UserHandler
	TemplateHandler *handler.TemplateHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB         *database.PostgresDB
	Redis      *redis.Client
	Publisher  events.Publisher
	AuthConfig service.AuthConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: cfg.Publisher,
	}
	if c.Publisher == nil {
		c.Publisher = events.NewNopPublisher()
	}

	// Initialize repositories
	c.TenantRepo = repository.NewPostgresTenantRepository(c.DB.Pool())
	c.UserRepo = repository.NewPostgresUserRepository(c.DB.Pool())
	c.TemplateRepo = repository.NewPostgresTemplateRepository(c.DB.Pool())
	c.SessionRepo = repository.NewRedisSessionRepository(c.Redis)

	// Initialize services
	c.AuthService = service.NewAuthService(c.UserRepo, c.TenantRepo, c.SessionRepo, cfg.AuthConfig)
	c.TenantService = service.NewTenantService(c.TenantRepo, c.Publisher)
	c.UserService = service.NewUserService(c.UserRepo, c.Publisher)
	c.TemplateService = service.NewTemplateService(c.TemplateRepo, c.Publisher)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.TenantHandler = handler.NewTenantHandler(c.TenantService)
	c.UserHandler = handler.NewUserHandler(c.UserService)
	c.TemplateHandler = handler.NewTemplateHandler(c.TemplateService)

	return c
}
