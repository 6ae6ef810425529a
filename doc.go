// The authstack-package implements a stacked authorization decision engine:
// an ordered chain of pluggable decision modules is evaluated per call and
// combined into a single PERMIT/DENY verdict, honoring per-module control
// flags (required, requisite, sufficient, optional) in the style of PAM.
//
// Modules implement [DecisionModule] and are registered by type name:
//
//	authstack.DefaultRegistry.Register("rolecheck", func() authstack.DecisionModule {
//		return &modules.RoleCheckModule{}
//	})
//
// Policies pair a security domain with its module chain:
//
//	registry := authstack.NewPolicyRegistry()
//	registry.Set(&authstack.Policy{
//		Name: "payments",
//		Authorization: &authstack.Authorization{
//			Name: "payments",
//			Entries: []authstack.ModuleEntry{
//				{Type: "rolecheck", Flag: authstack.Required, Options: map[string]any{"roles": []any{"operator"}}},
//				{Type: "static", Flag: authstack.Optional},
//			},
//		},
//	})
//
// A [Context] is the per-domain facade. It builds a fresh chain for every
// call, evaluates it, and then runs the two-phase completion protocol,
// committing all modules on permit or aborting all of them on denial:
//
//	authz := authstack.New("payments", authstack.WithPolicyStore(registry))
//	verdict, err := authz.AuthorizeAs(ctx, resource, identity, roles)
//
// Module chains, identity and roles are call-scoped; a single Context is
// safe for concurrent use. The sub-packages provide built-in modules
// (modules), YAML policy configuration with live reload (config), durable
// policy stores and an audit sink (storage/...), and a small HTTP decision
// endpoint (server).
package authstack
