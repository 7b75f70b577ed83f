package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/waranyu/saas-admin-platform/internal/authz"
)

// HeaderTenantID lets root principals act inside a specific tenant.
// It is ignored for everyone else; tenant members are pinned to the
// tenant in their token.
const HeaderTenantID = "X-Tenant-ID"

// TenantMiddleware resolves the request's tenant exactly once, after
// authentication and before authorization. The resolved value is attached
// to the request context and never re-derived downstream.
//
// Resolution rules:
//   - tenant members always get the tenant from their token; the
//     X-Tenant-ID header cannot override it
//   - root principals carry no tenant and may select one via X-Tenant-ID
//   - unauthenticated requests pass through unresolved
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authz.PrincipalFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		tenantID := principal.TenantID
		if principal.IsRoot() {
			tenantID = c.GetHeader(HeaderTenantID)
		}

		if tenantID != "" {
			c.Set(ContextKeyTenantID, tenantID)
			c.Request = c.Request.WithContext(authz.WithTenant(c.Request.Context(), tenantID))
		}

		c.Next()
	}
}
