package authz

import "context"

// ActionVerb is the operation a descriptor guards. The common CRUD verbs are
// predefined; module-specific verbs are plain strings.
type ActionVerb string

const (
	ActionCreate ActionVerb = "create"
	ActionRead   ActionVerb = "read"
	ActionUpdate ActionVerb = "update"
	ActionDelete ActionVerb = "delete"
)

// Possession is the scope of a grant.
type Possession string

const (
	// PossessionAny allows acting on any instance of the resource.
	PossessionAny Possession = "any"
	// PossessionOwn allows acting only on instances the principal owns.
	PossessionOwn Possession = "own"
	// PossessionOwnAny allows ANY when granted, falling back to OWN plus an
	// ownership check.
	PossessionOwnAny Possession = "own_any"
)

// BatchApproval combines per-element decisions when a descriptor resolves to
// a batch of resources.
type BatchApproval string

const (
	// BatchAll requires every element to be allowed.
	BatchAll BatchApproval = "all"
	// BatchAny requires at least one element to be allowed.
	BatchAny BatchApproval = "any"
)

// Request is the execution-context view handed to ownership predicates and
// resource extractors. All fields are request-scoped; extractors and
// predicates must not retain them.
type Request struct {
	Context   context.Context
	Principal Principal
	TenantID  string
	Params    map[string]string
	// Payload carries pre-bound request data for extractors that resolve
	// resources from the request body, e.g. a batch of IDs.
	Payload any
}

// Param returns a request parameter by name.
func (r *Request) Param(name string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[name]
}

// OwnershipFunc decides whether the request targets a resource the principal
// owns. It must be a pure function of the request.
type OwnershipFunc func(req *Request) bool

// ExtractFunc resolves the concrete resource(s) an operation targets. The
// descriptor passed in has its function fields cleared so extractors cannot
// recurse into themselves. Errors propagate as decision errors, never as an
// implicit allow or deny.
type ExtractFunc func(req *Request, d Descriptor) (ResourceRef, error)

// Descriptor is a declarative permission statement attached to an operation.
// Descriptors are declared at startup and immutable afterwards.
type Descriptor struct {
	// Resource names the guarded resource in the grant table, e.g. "tenant".
	Resource string
	// Action is the verb checked against the grant table.
	Action ActionVerb
	// Possession defaults to PossessionAny when empty.
	Possession Possession
	// IsOwn is required when Possession is own or own_any.
	IsOwn OwnershipFunc
	// ResourceFromContext selects how the target resource is resolved:
	// an ExtractFunc is invoked directly, true selects the module default
	// extractor, and nil/false uses the static Resource field.
	ResourceFromContext any
	// BatchApproval defaults to BatchAll when empty.
	BatchApproval BatchApproval
}

// possession returns the effective possession mode.
func (d Descriptor) possession() Possession {
	if d.Possession == "" {
		return PossessionAny
	}
	return d.Possession
}

// batchApproval returns the effective batch policy.
func (d Descriptor) batchApproval() BatchApproval {
	if d.BatchApproval == "" {
		return BatchAll
	}
	return d.BatchApproval
}

// withoutContextFns returns a copy safe to hand to extractors.
func (d Descriptor) withoutContextFns() Descriptor {
	d.ResourceFromContext = nil
	d.IsOwn = nil
	return d
}
