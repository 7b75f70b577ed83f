package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/waranyu/saas-admin-platform/internal/authz"
)

func guardTestGrants() *authz.StaticGrants {
	return authz.NewStaticGrants([]authz.GrantSpec{
		{Role: authz.RoleAdmin, Resource: "widget", Actions: []authz.ActionVerb{authz.ActionRead, authz.ActionUpdate, authz.ActionDelete}},
		{Role: authz.RoleUser, Resource: "widget", Actions: []authz.ActionVerb{authz.ActionRead, authz.ActionUpdate}, Possession: authz.PossessionOwn},
	})
}

// identity injects a fixed principal and optional tenant, standing in for
// the JWT and tenant middlewares.
func identity(principal *authz.Principal, tenantID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if principal != nil {
			ctx = authz.WithPrincipal(ctx, *principal)
		}
		if tenantID != "" {
			ctx = authz.WithTenant(ctx, tenantID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func setupGuardRouter(registry *authz.Registry, principal *authz.Principal, tenantID string, opID, path string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	guard := Guard(GuardConfig{
		Registry: registry,
		Engine:   authz.NewEngine(guardTestGrants()),
	})
	router := gin.New()
	router.Use(identity(principal, tenantID))
	router.GET(path, guard(opID), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestGuard_PublicOperation(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.ping", authz.Operation{Public: true})

	router := setupGuardRouter(registry, nil, "", "widgets.ping", "/ping")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_MissingPrincipal(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.list", authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: "widget", Action: authz.ActionRead}},
	})

	router := setupGuardRouter(registry, nil, "", "widgets.list", "/widgets")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/widgets", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuard_MissingTenant(t *testing.T) {
	extractorCalls := 0
	registry := authz.NewRegistry()
	registry.Register("widgets.get", authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource: "widget",
			Action:   authz.ActionRead,
			ResourceFromContext: authz.ExtractFunc(func(req *authz.Request, d authz.Descriptor) (authz.ResourceRef, error) {
				extractorCalls++
				return authz.Resource(d.Resource), nil
			}),
		}},
	})

	principal := &authz.Principal{ID: "user-1", Role: authz.RoleAdmin, TenantID: "tenant-a"}
	router := setupGuardRouter(registry, principal, "", "widgets.get", "/widgets/:id")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/widgets/w-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "TENANT_CONTEXT_MISSING")
	// The missing tenant short-circuits before any extraction runs
	assert.Equal(t, 0, extractorCalls)
}

func TestGuard_TenantExemptOperation(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.list", authz.Operation{
		TenantExempt: true,
		Descriptors:  []authz.Descriptor{{Resource: "widget", Action: authz.ActionRead}},
	})

	principal := &authz.Principal{ID: "root-1", Role: authz.RoleRoot}
	router := setupGuardRouter(registry, principal, "", "widgets.list", "/widgets")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/widgets", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_Deny(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.delete", authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: "widget", Action: authz.ActionDelete}},
	})

	principal := &authz.Principal{ID: "user-1", Role: authz.RoleUser, TenantID: "tenant-a"}
	router := setupGuardRouter(registry, principal, "tenant-a", "widgets.delete", "/widgets/:id")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/widgets/w-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestGuard_OwnershipAllow(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.update", authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource:   "widget",
			Action:     authz.ActionUpdate,
			Possession: authz.PossessionOwnAny,
			IsOwn: func(req *authz.Request) bool {
				return req.Param("id") == req.Principal.ID
			},
			ResourceFromContext: true,
		}},
	})

	principal := &authz.Principal{ID: "user-1", Role: authz.RoleUser, TenantID: "tenant-a"}
	router := setupGuardRouter(registry, principal, "tenant-a", "widgets.update", "/widgets/:id")

	t.Run("own resource allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets/user-1", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("foreign resource denied", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets/user-2", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin bypasses ownership via any grant", func(t *testing.T) {
		admin := &authz.Principal{ID: "admin-1", Role: authz.RoleAdmin, TenantID: "tenant-a"}
		adminRouter := setupGuardRouter(registry, admin, "tenant-a", "widgets.update", "/widgets/:id")
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets/user-2", nil)
		adminRouter.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGuard_ConfigError(t *testing.T) {
	t.Run("own-scoped descriptor without predicate", func(t *testing.T) {
		registry := authz.NewRegistry()
		registry.Register("widgets.update", authz.Operation{
			Descriptors: []authz.Descriptor{{
				Resource:   "widget",
				Action:     authz.ActionUpdate,
				Possession: authz.PossessionOwn,
				// IsOwn deliberately missing
			}},
		})

		principal := &authz.Principal{ID: "user-1", Role: authz.RoleUser, TenantID: "tenant-a"}
		router := setupGuardRouter(registry, principal, "tenant-a", "widgets.update", "/widgets/:id")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets/w-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "PERMISSION_MISCONFIGURED")
	})

	t.Run("unregistered operation", func(t *testing.T) {
		registry := authz.NewRegistry()
		principal := &authz.Principal{ID: "user-1", Role: authz.RoleAdmin, TenantID: "tenant-a"}
		router := setupGuardRouter(registry, principal, "tenant-a", "widgets.unknown", "/widgets")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "PERMISSION_MISCONFIGURED")
	})
}

func TestGuard_ConjunctiveDescriptors(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.purge", authz.Operation{
		Descriptors: []authz.Descriptor{
			{Resource: "widget", Action: authz.ActionRead},
			{Resource: "widget", Action: authz.ActionDelete},
		},
	})

	t.Run("all descriptors must allow", func(t *testing.T) {
		// User has read but not delete; conjunction denies
		principal := &authz.Principal{ID: "user-1", Role: authz.RoleUser, TenantID: "tenant-a"}
		router := setupGuardRouter(registry, principal, "tenant-a", "widgets.purge", "/widgets")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("allows when every descriptor allows", func(t *testing.T) {
		principal := &authz.Principal{ID: "admin-1", Role: authz.RoleAdmin, TenantID: "tenant-a"}
		router := setupGuardRouter(registry, principal, "tenant-a", "widgets.purge", "/widgets")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/widgets", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGuard_PayloadExtraction(t *testing.T) {
	var seen []string
	registry := authz.NewRegistry()
	registry.Register("widgets.archive", authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource:      "widget",
			Action:        authz.ActionUpdate,
			BatchApproval: authz.BatchAll,
			ResourceFromContext: authz.ExtractFunc(func(req *authz.Request, d authz.Descriptor) (authz.ResourceRef, error) {
				ids, _ := req.Payload.([]string)
				seen = ids
				items := make([]any, len(ids))
				for i, id := range ids {
					items[i] = id
				}
				return authz.ResourceBatch(items...), nil
			}),
		}},
	})

	gin.SetMode(gin.TestMode)
	guard := Guard(GuardConfig{Registry: registry, Engine: authz.NewEngine(guardTestGrants())})
	principal := authz.Principal{ID: "admin-1", Role: authz.RoleAdmin, TenantID: "tenant-a"}

	router := gin.New()
	router.Use(identity(&principal, "tenant-a"))
	router.POST("/widgets/archive",
		func(c *gin.Context) {
			SetAuthzPayload(c, []string{"w-1", "w-2"})
			c.Next()
		},
		guard("widgets.archive"),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/widgets/archive", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"w-1", "w-2"}, seen)
}

func TestGuard_DenialRecordedForAudit(t *testing.T) {
	registry := authz.NewRegistry()
	registry.Register("widgets.delete", authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: "widget", Action: authz.ActionDelete}},
	})

	gin.SetMode(gin.TestMode)
	guard := Guard(GuardConfig{Registry: registry, Engine: authz.NewEngine(guardTestGrants())})
	principal := authz.Principal{ID: "user-1", Role: authz.RoleUser, TenantID: "tenant-a"}

	var denialReason string
	var operation string
	router := gin.New()
	router.Use(identity(&principal, "tenant-a"))
	router.Use(func(c *gin.Context) {
		c.Next()
		if v, ok := c.Get(ContextKeyAuditDenialReason); ok {
			denialReason = v.(string)
		}
		if v, ok := c.Get(ContextKeyAuditOperation); ok {
			operation = v.(string)
		}
	})
	router.DELETE("/widgets/:id", guard("widgets.delete"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/widgets/w-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "widgets.delete", operation)
	assert.NotEmpty(t, denialReason)
}
