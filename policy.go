package authstack

import (
	"context"
	"sync"
)

// FallbackModuleType is the module type of the built-in single-entry chain
// used when no policy resolves for a domain or its layer default. The
// modules package registers an implementation under this name.
const FallbackModuleType = "delegating"

// An Authorization is the module-chain configuration of a policy. Name must
// match the domain the policy is registered for. ModuleGroup optionally
// names the loading group whose [Source] is preferred when resolving the
// entries' module types.
type Authorization struct {
	Name        string
	ModuleGroup string
	Entries     []ModuleEntry
}

// A Policy couples a security domain with its authorization configuration.
type Policy struct {
	Name          string
	Authorization *Authorization
}

// A PolicyStore resolves the policy for a security domain. Implementations
// return [ErrPolicyNotFound] when they hold no policy for the domain.
type PolicyStore interface {
	Resolve(ctx context.Context, domain string) (*Policy, error)
}

// DefaultDomain returns the fallback policy domain of a layer, or "" for
// layers without one.
func DefaultDomain(layer Layer) string {
	switch layer {
	case LayerComponent:
		return "default-component"
	case LayerWeb:
		return "default-web"
	}
	return ""
}

// A PolicyRegistry is the in-memory [PolicyStore]. It is safe for concurrent
// use; the config package swaps its contents wholesale on reload.
type PolicyRegistry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{policies: map[string]*Policy{}}
}

func (r *PolicyRegistry) Resolve(ctx context.Context, domain string) (*Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	policy, ok := r.policies[domain]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return policy, nil
}

// Set registers or replaces the policy for its own domain name.
func (r *PolicyRegistry) Set(policy *Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[policy.Name] = policy
}

// SetAll replaces the registry contents with the given policies.
func (r *PolicyRegistry) SetAll(policies []*Policy) {
	next := make(map[string]*Policy, len(policies))
	for _, p := range policies {
		next[p.Name] = p
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = next
}

// Domains returns the currently registered domain names.
func (r *PolicyRegistry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	domains := make([]string, 0, len(r.policies))
	for name := range r.policies {
		domains = append(domains, name)
	}
	return domains
}
