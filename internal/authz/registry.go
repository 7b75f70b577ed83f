package authz

import "fmt"

// Operation is the protection declared for one named operation: all of its
// descriptors must allow (conjunctive), and tenant presence is enforced
// unless the operation is explicitly exempt.
type Operation struct {
	Descriptors  []Descriptor
	TenantExempt bool
	// Public operations skip authorization entirely (login, health).
	Public bool
}

// Registry maps stable operation identifiers to their protection. It is
// populated during route registration and read-only afterwards, so
// unsynchronized concurrent reads are safe.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register declares an operation. Registering the same id twice is a
// programming error and panics during startup wiring.
func (r *Registry) Register(id string, op Operation) {
	if _, ok := r.ops[id]; ok {
		panic(fmt.Sprintf("authz: operation %q registered twice", id))
	}
	r.ops[id] = op
}

// Lookup returns the operation for an id.
func (r *Registry) Lookup(id string) (Operation, bool) {
	op, ok := r.ops[id]
	return op, ok
}

// Validate checks every registered descriptor for the malformations that can
// be caught before the first request: empty resource or action, unknown
// possession or batch policy, and a ResourceFromContext of an unsupported
// type. Call it once at startup and fail fast on error.
func (r *Registry) Validate() error {
	for id, op := range r.ops {
		if op.Public && len(op.Descriptors) > 0 {
			return &ConfigError{Op: id, Reason: "public operation must not declare descriptors"}
		}
		for i, d := range op.Descriptors {
			if d.Resource == "" || d.Action == "" {
				return &ConfigError{Op: id, Reason: fmt.Sprintf("descriptor %d requires both resource and action", i)}
			}
			switch d.possession() {
			case PossessionAny, PossessionOwn, PossessionOwnAny:
			default:
				return &ConfigError{Op: id, Reason: fmt.Sprintf("descriptor %d has unknown possession %q", i, d.Possession)}
			}
			switch d.batchApproval() {
			case BatchAll, BatchAny:
			default:
				return &ConfigError{Op: id, Reason: fmt.Sprintf("descriptor %d has unknown batch approval %q", i, d.BatchApproval)}
			}
			switch d.ResourceFromContext.(type) {
			case nil, bool, ExtractFunc, func(*Request, Descriptor) (ResourceRef, error):
			default:
				return &ConfigError{Op: id, Reason: fmt.Sprintf("descriptor %d has unsupported ResourceFromContext type %T", i, d.ResourceFromContext)}
			}
		}
	}
	return nil
}
