package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/events"
	"github.com/waranyu/saas-admin-platform/pkg/logger"
	"github.com/waranyu/saas-admin-platform/pkg/response"
	"github.com/waranyu/saas-admin-platform/pkg/telemetry"
)

// ContextKeyAuthzPayload carries pre-bound request data for extractors
// that resolve resources from the body. Set it with SetAuthzPayload in a
// route-specific binder that runs before the guard.
const ContextKeyAuthzPayload = "authz_payload"

// SetAuthzPayload stashes body-derived data for the operation's extractors.
func SetAuthzPayload(c *gin.Context, payload any) {
	c.Set(ContextKeyAuthzPayload, payload)
}

// GuardConfig wires the authorization guard.
type GuardConfig struct {
	Registry *authz.Registry
	Engine   *authz.Engine
	// Publisher emits denial events; nil disables publishing.
	Publisher events.Publisher
	// Decisions counts allow/deny outcomes; nil disables the metric.
	Decisions *telemetry.Counter
}

// Guard returns a factory producing one authorization middleware per
// operation. The pipeline is fixed:
//
//	no principal            -> 401
//	tenant required, absent -> 400, before any resource extraction
//	descriptor denies       -> 403
//	malformed configuration -> 500
//
// Every descriptor on the operation must allow; decisions are computed
// per request and never cached.
func Guard(cfg GuardConfig) func(operationID string) gin.HandlerFunc {
	return func(operationID string) gin.HandlerFunc {
		return func(c *gin.Context) {
			op, ok := cfg.Registry.Lookup(operationID)
			if !ok {
				logger.ErrorCtx(c.Request.Context(), "operation not registered",
					zap.String("operation", operationID),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					response.Error(response.ErrCodePermissionMisconfig, "Operation permissions are misconfigured"))
				return
			}

			SetAuditOperation(c, operationID)

			if op.Public {
				c.Next()
				return
			}

			principal, ok := authz.PrincipalFromContext(c.Request.Context())
			if !ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					response.Unauthorized("Authentication required"))
				return
			}

			tenantID, hasTenant := authz.TenantFromContext(c.Request.Context())
			if !op.TenantExempt && !hasTenant {
				// Fail before extraction: extractors and ownership
				// predicates must never run against an unscoped request.
				c.AbortWithStatusJSON(http.StatusBadRequest,
					response.TenantContextMissing("Tenant context is required for this operation"))
				return
			}

			req := &authz.Request{
				Context:   c.Request.Context(),
				Principal: principal,
				TenantID:  tenantID,
				Params:    routeParams(c),
			}
			if payload, exists := c.Get(ContextKeyAuthzPayload); exists {
				req.Payload = payload
			}

			for _, d := range op.Descriptors {
				ref, err := authz.ResolveResource(d, req)
				if err != nil {
					abortGuardError(c, cfg, operationID, err)
					return
				}

				decision, err := cfg.Engine.Decide(req, d, ref)
				if err != nil {
					abortGuardError(c, cfg, operationID, err)
					return
				}

				if !decision.Allowed {
					recordDecision(c, cfg, operationID, d, "deny")
					denyRequest(c, cfg, operationID, principal, tenantID, decision.Reason)
					return
				}
				recordDecision(c, cfg, operationID, d, "allow")
			}

			c.Next()
		}
	}
}

// routeParams copies the gin route parameters into a plain map.
func routeParams(c *gin.Context) map[string]string {
	if len(c.Params) == 0 {
		return nil
	}
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return params
}

// abortGuardError maps evaluation failures onto responses. Configuration
// errors are server bugs and must never masquerade as a deny.
func abortGuardError(c *gin.Context, cfg GuardConfig, operationID string, err error) {
	var configErr *authz.ConfigError
	if errors.As(err, &configErr) {
		logger.ErrorCtx(c.Request.Context(), "permission configuration error",
			zap.String("operation", operationID),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			response.Error(response.ErrCodePermissionMisconfig, "Operation permissions are misconfigured"))
		return
	}

	logger.ErrorCtx(c.Request.Context(), "authorization evaluation failed",
		zap.String("operation", operationID),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		response.InternalError("Authorization evaluation failed"))
}

// denyRequest aborts with 403 and records the denial for audit and events.
// The response body stays generic; the reason goes to the audit trail only.
func denyRequest(c *gin.Context, cfg GuardConfig, operationID string, principal authz.Principal, tenantID, reason string) {
	SetAuditDenial(c, reason)

	if cfg.Publisher != nil {
		_ = cfg.Publisher.Publish(c.Request.Context(), events.TopicAuthzDenials, events.Event{
			ID:       uuid.New().String(),
			Type:     events.TypeAuthzDenied,
			TenantID: tenantID,
			ActorID:  principal.ID,
			Payload: map[string]interface{}{
				"operation": operationID,
				"reason":    reason,
				"role":      string(principal.Role),
			},
			OccurredAt: time.Now(),
		})
	}

	c.AbortWithStatusJSON(http.StatusForbidden,
		response.Forbidden("You do not have permission to perform this action"))
}

// recordDecision emits the decision metric when one is configured.
func recordDecision(c *gin.Context, cfg GuardConfig, operationID string, d authz.Descriptor, outcome string) {
	if cfg.Decisions == nil {
		return
	}
	cfg.Decisions.Inc(c.Request.Context(),
		telemetry.OperationAttr(operationID),
		telemetry.ResourceAttr(d.Resource),
		telemetry.ActionAttr(string(d.Action)),
		telemetry.DecisionAttr(outcome),
	)
}
