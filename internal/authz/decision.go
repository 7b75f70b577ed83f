package authz

import "fmt"

// Decision is the outcome of evaluating one descriptor against a request.
// Decisions are computed per request and never cached.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Engine combines a resolved resource, the acting principal, possession mode
// and batch policy into an allow/deny decision. The engine is pure: it
// performs no I/O and a discarded partial evaluation has no side effects.
type Engine struct {
	grants Grants
}

// NewEngine creates a decision engine over the given policy table.
func NewEngine(grants Grants) *Engine {
	return &Engine{grants: grants}
}

// Decide evaluates one descriptor against the resolved resource(s).
// A returned error is a configuration error or a propagated callback
// failure, never a legitimate deny; denies come back as Decision values.
func (e *Engine) Decide(req *Request, d Descriptor, ref ResourceRef) (Decision, error) {
	if d.Resource == "" || d.Action == "" {
		return Decision{}, &ConfigError{
			Op:     string(d.Action) + " " + d.Resource,
			Reason: "descriptor requires both resource and action",
		}
	}

	if ref.IsBatch() {
		return e.decideBatch(req, d, ref)
	}
	return e.decideSingle(req, d, ref.Single())
}

// decideBatch evaluates the single-resource algorithm per element and
// combines the results per the descriptor's batch policy. BatchAll may
// short-circuit on the first denial, but a malformed element is always a
// configuration error, never a silent skip.
func (e *Engine) decideBatch(req *Request, d Descriptor, ref ResourceRef) (Decision, error) {
	items := ref.Items()
	if len(items) == 0 {
		return deny("batch resolved to no resources"), nil
	}

	for i, item := range items {
		if item == nil {
			return Decision{}, &ConfigError{
				Op:     string(d.Action) + " " + d.Resource,
				Reason: fmt.Sprintf("batch element %d is nil", i),
			}
		}
	}

	switch d.batchApproval() {
	case BatchAny:
		var last Decision
		for _, item := range items {
			decision, err := e.decideSingle(req, d, item)
			if err != nil {
				return Decision{}, err
			}
			if decision.Allowed {
				return decision, nil
			}
			last = decision
		}
		return deny("no batch element allowed: %s", last.Reason), nil
	default: // BatchAll
		for i, item := range items {
			decision, err := e.decideSingle(req, d, item)
			if err != nil {
				return Decision{}, err
			}
			if !decision.Allowed {
				return deny("batch element %d denied: %s", i, decision.Reason), nil
			}
		}
		return allow(), nil
	}
}

// decideSingle runs the possession algorithm for one resolved resource.
func (e *Engine) decideSingle(req *Request, d Descriptor, _ any) (Decision, error) {
	role := req.Principal.Role

	switch d.possession() {
	case PossessionAny:
		if e.grants.HasGrant(role, d.Action, d.Resource, PossessionAny) {
			return allow(), nil
		}
		return deny("role %s has no %s grant on %s", role, d.Action, d.Resource), nil

	case PossessionOwn:
		if !e.grants.HasGrant(role, d.Action, d.Resource, PossessionOwn) {
			return deny("role %s has no own-scoped %s grant on %s", role, d.Action, d.Resource), nil
		}
		owns, err := e.evalOwnership(req, d)
		if err != nil {
			return Decision{}, err
		}
		if !owns {
			return deny("ownership check failed for %s on %s", d.Action, d.Resource), nil
		}
		return allow(), nil

	case PossessionOwnAny:
		if e.grants.HasGrant(role, d.Action, d.Resource, PossessionAny) {
			return allow(), nil
		}
		if !e.grants.HasGrant(role, d.Action, d.Resource, PossessionOwn) {
			return deny("role %s has no %s grant on %s", role, d.Action, d.Resource), nil
		}
		owns, err := e.evalOwnership(req, d)
		if err != nil {
			return Decision{}, err
		}
		if !owns {
			return deny("ownership check failed for %s on %s", d.Action, d.Resource), nil
		}
		return allow(), nil

	default:
		return Decision{}, &ConfigError{
			Op:     string(d.Action) + " " + d.Resource,
			Reason: fmt.Sprintf("unknown possession %q", d.Possession),
		}
	}
}

// evalOwnership invokes the descriptor's IsOwn predicate. A missing
// predicate when possession requires one is a configuration error detected
// here, at decision time, not a deny-all or allow-all.
func (e *Engine) evalOwnership(req *Request, d Descriptor) (bool, error) {
	if d.IsOwn == nil {
		return false, &ConfigError{
			Op:     string(d.Action) + " " + d.Resource,
			Reason: "own-scoped descriptor without IsOwn",
			Err:    ErrOwnershipPredicateMissing,
		}
	}
	return d.IsOwn(req), nil
}
