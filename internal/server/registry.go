package server

import (
	"fmt"

	"github.com/waranyu/saas-admin-platform/internal/authz"
)

// Operation identifiers. Routes bind to these; the registry binds these
// to permissions. An identifier used by a route but missing here fails
// the request with a configuration error, never an implicit allow.
const (
	OpAuthLogin   = "auth.login"
	OpAuthRefresh = "auth.refresh"
	OpAuthLogout  = "auth.logout"
	OpAuthMe      = "auth.me"

	OpTenantsCreate = "tenants.create"
	OpTenantsList   = "tenants.list"
	OpTenantsGet    = "tenants.get"
	OpTenantsUpdate = "tenants.update"
	OpTenantsDelete = "tenants.delete"

	OpUsersCreate = "users.create"
	OpUsersList   = "users.list"
	OpUsersGet    = "users.get"
	OpUsersUpdate = "users.update"
	OpUsersDelete = "users.delete"

	OpTemplatesCreate  = "templates.create"
	OpTemplatesList    = "templates.list"
	OpTemplatesGet     = "templates.get"
	OpTemplatesUpdate  = "templates.update"
	OpTemplatesDelete  = "templates.delete"
	OpTemplatesArchive = "templates.archive"
)

// isSelf reports whether the targeted user is the caller.
func isSelf(req *authz.Request) bool {
	return req.Param("id") != "" && req.Param("id") == req.Principal.ID
}

// archivedTemplateIDs resolves the batch targeted by a bulk archive from
// the pre-bound request payload.
func archivedTemplateIDs(req *authz.Request, d authz.Descriptor) (authz.ResourceRef, error) {
	ids, ok := req.Payload.([]string)
	if !ok {
		return authz.ResourceRef{}, fmt.Errorf("archive payload not bound before authorization")
	}
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = id
	}
	return authz.ResourceBatch(items...), nil
}

// NewRegistry declares the protection for every operation the API exposes.
// Call authz.Registry.Validate afterwards; Run does this at startup and
// refuses to serve on a malformed table.
func NewRegistry() *authz.Registry {
	r := authz.NewRegistry()

	// Authentication runs before any identity exists.
	r.Register(OpAuthLogin, authz.Operation{Public: true, TenantExempt: true})
	r.Register(OpAuthRefresh, authz.Operation{Public: true, TenantExempt: true})
	r.Register(OpAuthLogout, authz.Operation{Public: true, TenantExempt: true})

	// Reading one's own profile needs a principal but no tenant: root
	// principals have none.
	r.Register(OpAuthMe, authz.Operation{TenantExempt: true})

	// Tenant registry operations are platform-level; they run outside any
	// tenant scope. Only root holds write grants on the tenant resource.
	r.Register(OpTenantsCreate, authz.Operation{
		TenantExempt: true,
		Descriptors:  []authz.Descriptor{{Resource: authz.ResourceTenant, Action: authz.ActionCreate}},
	})
	r.Register(OpTenantsList, authz.Operation{
		TenantExempt: true,
		Descriptors:  []authz.Descriptor{{Resource: authz.ResourceTenant, Action: authz.ActionRead}},
	})
	r.Register(OpTenantsGet, authz.Operation{
		TenantExempt: true,
		Descriptors: []authz.Descriptor{{
			Resource:            authz.ResourceTenant,
			Action:              authz.ActionRead,
			ResourceFromContext: true,
		}},
	})
	r.Register(OpTenantsUpdate, authz.Operation{
		TenantExempt: true,
		Descriptors:  []authz.Descriptor{{Resource: authz.ResourceTenant, Action: authz.ActionUpdate}},
	})
	r.Register(OpTenantsDelete, authz.Operation{
		TenantExempt: true,
		Descriptors:  []authz.Descriptor{{Resource: authz.ResourceTenant, Action: authz.ActionDelete}},
	})

	// User management is tenant-scoped. Get and update are own-or-any:
	// members touch their own record, admins touch anyone in the tenant.
	r.Register(OpUsersCreate, authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: authz.ResourceUser, Action: authz.ActionCreate}},
	})
	r.Register(OpUsersList, authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: authz.ResourceUser, Action: authz.ActionRead}},
	})
	r.Register(OpUsersGet, authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource:            authz.ResourceUser,
			Action:              authz.ActionRead,
			Possession:          authz.PossessionOwnAny,
			IsOwn:               isSelf,
			ResourceFromContext: true,
		}},
	})
	r.Register(OpUsersUpdate, authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource:            authz.ResourceUser,
			Action:              authz.ActionUpdate,
			Possession:          authz.PossessionOwnAny,
			IsOwn:               isSelf,
			ResourceFromContext: true,
		}},
	})
	// Deleting an account requires both visibility and the delete grant.
	r.Register(OpUsersDelete, authz.Operation{
		Descriptors: []authz.Descriptor{
			{Resource: authz.ResourceUser, Action: authz.ActionRead},
			{Resource: authz.ResourceUser, Action: authz.ActionDelete},
		},
	})

	// Product templates are tenant-scoped. Members may read; admins manage.
	r.Register(OpTemplatesCreate, authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: authz.ResourceProductTemplate, Action: authz.ActionCreate}},
	})
	r.Register(OpTemplatesList, authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: authz.ResourceProductTemplate, Action: authz.ActionRead}},
	})
	r.Register(OpTemplatesGet, authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource:            authz.ResourceProductTemplate,
			Action:              authz.ActionRead,
			ResourceFromContext: true,
		}},
	})
	r.Register(OpTemplatesUpdate, authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: authz.ResourceProductTemplate, Action: authz.ActionUpdate}},
	})
	r.Register(OpTemplatesDelete, authz.Operation{
		Descriptors: []authz.Descriptor{{Resource: authz.ResourceProductTemplate, Action: authz.ActionDelete}},
	})
	// Bulk archive authorizes every requested ID; one bad element rejects
	// the whole batch.
	r.Register(OpTemplatesArchive, authz.Operation{
		Descriptors: []authz.Descriptor{{
			Resource:            authz.ResourceProductTemplate,
			Action:              authz.ActionArchive,
			BatchApproval:       authz.BatchAll,
			ResourceFromContext: authz.ExtractFunc(archivedTemplateIDs),
		}},
	})

	return r
}
