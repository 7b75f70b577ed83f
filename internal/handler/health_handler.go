package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waranyu/saas-admin-platform/pkg/database"
	"github.com/waranyu/saas-admin-platform/pkg/redis"
	"github.com/waranyu/saas-admin-platform/pkg/response"
)

// HealthHandler reports process and dependency health
type HealthHandler struct {
	db    *database.PostgresDB
	redis *redis.Client
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *database.PostgresDB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Health is the liveness probe
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ok"}))
}

// Ready is the readiness probe: it checks every backing dependency
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("One or more dependencies are unhealthy"))
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ready", "checks": checks}))
}
