package authz

import "fmt"

// ResourceRef is the resolved target of an authorization decision: either a
// single resource or an ordered batch.
type ResourceRef struct {
	items []any
	batch bool
}

// Resource wraps a single resolved resource.
func Resource(v any) ResourceRef {
	return ResourceRef{items: []any{v}}
}

// ResourceBatch wraps an ordered set of resolved resources.
func ResourceBatch(vs ...any) ResourceRef {
	return ResourceRef{items: vs, batch: true}
}

// IsBatch reports whether the reference holds a sequence.
func (r ResourceRef) IsBatch() bool { return r.batch }

// Items returns the resolved elements. A single reference yields one item.
func (r ResourceRef) Items() []any { return r.items }

// Single returns the sole resolved resource.
func (r ResourceRef) Single() any {
	if len(r.items) == 0 {
		return nil
	}
	return r.items[0]
}

// DefaultExtractor resolves the target from the "id" route parameter,
// falling back to the descriptor's static resource name. Used when a
// descriptor sets ResourceFromContext to true.
func DefaultExtractor(req *Request, d Descriptor) (ResourceRef, error) {
	if id := req.Param("id"); id != "" {
		return Resource(id), nil
	}
	return Resource(d.Resource), nil
}

// ResolveResource produces the resource(s) a decision is made about. The
// precedence is fixed: an ExtractFunc wins, then true selects the default
// extractor, then the static Resource field. Do not reorder.
func ResolveResource(d Descriptor, req *Request) (ResourceRef, error) {
	switch v := d.ResourceFromContext.(type) {
	case ExtractFunc:
		return v(req, d.withoutContextFns())
	case func(*Request, Descriptor) (ResourceRef, error):
		return v(req, d.withoutContextFns())
	case bool:
		if v {
			return DefaultExtractor(req, d.withoutContextFns())
		}
		return Resource(d.Resource), nil
	case nil:
		return Resource(d.Resource), nil
	default:
		return ResourceRef{}, &ConfigError{
			Op:     string(d.Action) + " " + d.Resource,
			Reason: fmt.Sprintf("unsupported ResourceFromContext type %T", d.ResourceFromContext),
		}
	}
}
