package authstack

import (
	"context"
	"fmt"
	"log/slog"
)

// A link is one slot of a built chain: the freshly initialized module
// instance, the flag governing its vote, and the entry's type name for
// diagnostics.
type link struct {
	typeName string
	module   DecisionModule
	flag     ControlFlag
}

// A chain is built fresh for every call, owned exclusively by that call and
// discarded when the call returns.
type chain []link

// buildChain resolves the authorization configuration for the call and turns
// every entry into an initialized module instance paired with its control
// flag. All modules of the chain share one state map scoped to this call.
//
// Construction and initialization failures are fatal for the call: they
// surface as [InstantiationError] and are never converted into a deny vote.
// The partially built chain is returned alongside the error so the caller
// can run the abort phase on it.
func (c *Context) buildChain(ctx context.Context, resource Resource, identity Identity, roles RoleGroup) (chain, error) {
	authz, err := c.resolveAuthorization(ctx, resource)
	if err != nil {
		return nil, err
	}
	if len(authz.Entries) == 0 {
		return nil, &ConfigError{Domain: c.domain, Reason: "policy has no module entries"}
	}

	var preferred Source
	if authz.ModuleGroup != "" && c.locator != nil {
		preferred = c.locator.Locate(authz.ModuleGroup)
	}

	shared := map[string]any{}
	built := make(chain, 0, len(authz.Entries))
	for _, entry := range authz.Entries {
		flag := entry.Flag
		if flag == FlagUnset {
			c.log.Debug("module entry has no control flag, defaulting to required",
				slog.String("domain", c.domain), slog.String("module", entry.Type))
			flag = Required
		}

		factory, err := c.registry.resolve(entry.Type, preferred)
		if err != nil {
			return built, &InstantiationError{Type: entry.Type, Cause: err}
		}
		module := factory()
		if module == nil {
			return built, &InstantiationError{Type: entry.Type, Cause: fmt.Errorf("factory returned nil")}
		}
		if err := module.Initialize(identity, c.handler, shared, entry.Options, roles); err != nil {
			return built, &InstantiationError{Type: entry.Type, Cause: err}
		}
		built = append(built, link{typeName: entry.Type, module: module, flag: flag})
	}
	return built, nil
}

// resolveAuthorization applies the policy precedence rules: the injected
// policy first, then the store by domain name, then the store by the layer's
// default domain, and finally the built-in single-entry delegating chain.
// A resolved policy without authorization configuration does not satisfy a
// step; resolution moves on to the next one.
func (c *Context) resolveAuthorization(ctx context.Context, resource Resource) (*Authorization, error) {
	if injected := c.injectedPolicy(); injected != nil {
		return injected.Authorization, nil
	}

	if c.store != nil {
		policy, err := c.store.Resolve(ctx, c.domain)
		switch {
		case err == nil && policy != nil && policy.Authorization != nil:
			return policy.Authorization, nil
		case err != nil && err != ErrPolicyNotFound:
			return nil, &ConfigError{Domain: c.domain, Reason: fmt.Sprintf("resolving policy: %v", err)}
		}

		if fallback := DefaultDomain(resource.Layer); fallback != "" {
			c.log.Debug("no policy for domain, trying layer default",
				slog.String("domain", c.domain), slog.String("default", fallback))
			policy, err = c.store.Resolve(ctx, fallback)
			switch {
			case err == nil && policy != nil && policy.Authorization != nil:
				return policy.Authorization, nil
			case err != nil && err != ErrPolicyNotFound:
				return nil, &ConfigError{Domain: c.domain, Reason: fmt.Sprintf("resolving layer default policy: %v", err)}
			}
		}
	}

	// Last resort: a single delegating module with required semantics.
	return &Authorization{
		Name:    c.domain,
		Entries: []ModuleEntry{{Type: FallbackModuleType}},
	}, nil
}
