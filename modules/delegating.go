// Package modules provides the built-in decision modules and registers them
// with [authstack.DefaultRegistry].
package modules

import (
	"context"

	"github.com/acrine/authstack"
)

// SharedDeciderKey is the shared-state key under which a host may bind a
// [Decider] for the delegating module.
const SharedDeciderKey = "authstack.decider"

// A Decider is an external decision source the delegating module hands the
// call off to.
type Decider interface {
	Authorize(ctx context.Context, resource authstack.Resource) (authstack.Verdict, error)
}

// DelegatingModule hands the vote off to a Decider found in its options
// (key "decider") or in the chain's shared state under [SharedDeciderKey].
// Without a bound decider it permits, so the built-in fallback chain keeps
// unconfigured domains open rather than locking every caller out.
type DelegatingModule struct {
	shared  map[string]any
	options map[string]any
}

func (m *DelegatingModule) Initialize(identity authstack.Identity, handler authstack.CallbackHandler, shared map[string]any, options map[string]any, roles authstack.RoleGroup) error {
	m.shared = shared
	m.options = options
	return nil
}

func (m *DelegatingModule) Authorize(ctx context.Context, resource authstack.Resource) (authstack.Verdict, error) {
	if decider, ok := m.options["decider"].(Decider); ok {
		return decider.Authorize(ctx, resource)
	}
	if decider, ok := m.shared[SharedDeciderKey].(Decider); ok {
		return decider.Authorize(ctx, resource)
	}
	return authstack.Permit, nil
}

func (m *DelegatingModule) Commit() bool { return true }

func (m *DelegatingModule) Abort() bool { return true }
