// Package authz implements the declarative authorization and tenant-isolation
// core: a single-principal model, explicit tenant-context propagation, and a
// pure decision engine over possession-scoped grants.
//
// Core concepts:
//
//   - Principal: one authenticated actor per request, set via WithPrincipal
//     by the authentication middleware and read with PrincipalFromContext.
//
//   - Tenant context: the resolved tenant id, threaded as an explicit context
//     value via WithTenant. There is no ambient "current tenant"; every read
//     goes through TenantFromContext or RequireTenant.
//
//   - Descriptor: a declarative {resource, action, possession} statement
//     attached to an operation in the Registry, optionally with an ownership
//     predicate and a dynamic resource extractor.
//
//   - Engine: combines principal role, possession mode, ownership and batch
//     policy into a Decision. Configuration errors (ConfigError) are
//     distinguishable from legitimate denies.
//
// Usage rules:
//
//  1. Register every protected operation in the Registry at startup and call
//     Validate before serving.
//  2. Ownership predicates and extractors must be pure functions of the
//     Request; they must not mutate state.
//  3. Decisions are request-scoped. Never cache them across requests.
package authz
