package authz

// Grants is the role-action policy consulted by the decision engine. It is
// supplied by the embedding application; implementations must be safe for
// unsynchronized concurrent reads after construction.
type Grants interface {
	// HasGrant reports whether the role may perform action on resource at
	// the given possession scope. An ANY grant does not imply an OWN grant
	// or vice versa; callers ask for exactly the scope they need.
	HasGrant(role Role, action ActionVerb, resource string, possession Possession) bool
}

// grantKey identifies one cell of the static policy table.
type grantKey struct {
	role       Role
	action     ActionVerb
	resource   string
	possession Possession
}

// StaticGrants is a read-only role-action table built once at startup.
type StaticGrants struct {
	grants map[grantKey]struct{}
}

// GrantSpec declares one row of the policy table.
type GrantSpec struct {
	Role       Role
	Resource   string
	Actions    []ActionVerb
	Possession Possession
}

// NewStaticGrants builds the table. Specs with an empty possession default
// to PossessionAny.
func NewStaticGrants(specs []GrantSpec) *StaticGrants {
	g := &StaticGrants{grants: make(map[grantKey]struct{})}
	for _, spec := range specs {
		possession := spec.Possession
		if possession == "" {
			possession = PossessionAny
		}
		for _, action := range spec.Actions {
			g.grants[grantKey{spec.Role, action, spec.Resource, possession}] = struct{}{}
		}
	}
	return g
}

// HasGrant implements Grants. Root principals hold every grant.
func (g *StaticGrants) HasGrant(role Role, action ActionVerb, resource string, possession Possession) bool {
	if role == RoleRoot {
		return true
	}
	_, ok := g.grants[grantKey{role, action, resource, possession}]
	return ok
}

// DefaultGrants is the platform policy: root holds everything, admins manage
// resources inside their tenant, users read templates and touch only their
// own account.
func DefaultGrants() *StaticGrants {
	return NewStaticGrants([]GrantSpec{
		{Role: RoleAdmin, Resource: ResourceTenant, Actions: []ActionVerb{ActionRead}},
		{Role: RoleAdmin, Resource: ResourceUser, Actions: []ActionVerb{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
		{Role: RoleAdmin, Resource: ResourceProductTemplate, Actions: []ActionVerb{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionArchive}},
		{Role: RoleUser, Resource: ResourceUser, Actions: []ActionVerb{ActionRead, ActionUpdate}, Possession: PossessionOwn},
		{Role: RoleUser, Resource: ResourceProductTemplate, Actions: []ActionVerb{ActionRead}},
	})
}

// Resource names used by the platform policy.
const (
	ResourceTenant          = "tenant"
	ResourceUser            = "user"
	ResourceProductTemplate = "product_template"
)

// ActionArchive is the bulk-archive verb for product templates.
const ActionArchive ActionVerb = "archive"
