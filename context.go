package authstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
)

// An Option configures a [Context].
type Option interface {
	apply(*Context)
}

type optionFunc func(*Context)

func (fn optionFunc) apply(c *Context) { fn(c) }

// WithPolicyStore sets the store policies are resolved from. Without a store
// only injected policies and the built-in fallback chain are available.
func WithPolicyStore(store PolicyStore) Option {
	return optionFunc(func(c *Context) { c.store = store })
}

// WithRegistry sets the module registry. Defaults to [DefaultRegistry].
func WithRegistry(registry *Registry) Option {
	return optionFunc(func(c *Context) { c.registry = registry })
}

// WithLocator sets the locator consulted for policies that name a module
// group.
func WithLocator(locator Locator) Option {
	return optionFunc(func(c *Context) { c.locator = locator })
}

// WithCallbackHandler sets the handler passed through to modules.
func WithCallbackHandler(handler CallbackHandler) Option {
	return optionFunc(func(c *Context) { c.handler = handler })
}

// WithPrivilege sets the elevated-trust collaborator wrapping every
// evaluation. Defaults to a pass-through scope without ambient identity.
func WithPrivilege(privilege Privilege) Option {
	return optionFunc(func(c *Context) { c.privilege = privilege })
}

func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(c *Context) { c.log = log })
}

func WithMetrics(metrics *Metrics) Option {
	return optionFunc(func(c *Context) { c.metrics = metrics })
}

// WithRecorder sets the audit sink receiving every decision record.
func WithRecorder(recorder Recorder) Option {
	return optionFunc(func(c *Context) { c.recorder = recorder })
}

// A Context is the authorization facade for one security domain. It holds no
// per-call state: identity, roles and the module chain are call-scoped, so a
// single shared Context tolerates concurrent Authorize calls for different
// resources and identities.
type Context struct {
	domain    string
	store     PolicyStore
	registry  *Registry
	locator   Locator
	handler   CallbackHandler
	privilege Privilege
	log       *slog.Logger
	metrics   *Metrics
	recorder  Recorder

	mu       sync.RWMutex
	injected *Policy
}

// New creates the authorization context for a security domain.
func New(domain string, opts ...Option) *Context {
	c := &Context{
		domain:    domain,
		registry:  DefaultRegistry,
		privilege: ambientPrivilege{},
		log:       slog.Default(),
	}
	lo.ForEach(opts, func(o Option, _ int) { o.apply(c) })
	return c
}

// Domain returns the security domain this context decides for.
func (c *Context) Domain() string {
	return c.domain
}

// SetPolicy injects a policy that takes precedence over any store lookup.
// The policy must be non-nil, carry an authorization configuration, and name
// this context's domain.
func (c *Context) SetPolicy(policy *Policy) error {
	if policy == nil {
		return fmt.Errorf("%w: policy is nil, domain %q", ErrInvalidPolicy, c.domain)
	}
	if policy.Authorization == nil {
		return fmt.Errorf("%w: policy %q has no authorization configuration", ErrInvalidPolicy, policy.Name)
	}
	if policy.Authorization.Name != c.domain {
		return fmt.Errorf("%w: authorization %q does not match domain %q",
			ErrInvalidPolicy, policy.Authorization.Name, c.domain)
	}
	c.mu.Lock()
	c.injected = policy
	c.mu.Unlock()
	return nil
}

func (c *Context) injectedPolicy() *Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.injected
}

// Authorize decides access to the resource, deriving the caller identity
// from the privilege scope's ambient identity (or [Anonymous]) and the roles
// from the resource attributes under [RolesKey].
func (c *Context) Authorize(ctx context.Context, resource Resource) (Verdict, error) {
	identity, ok := c.privilege.AmbientIdentity(ctx)
	if !ok {
		identity = Anonymous
	}
	roles, _ := resource.Roles()
	return c.AuthorizeAs(ctx, resource, identity, roles)
}

// AuthorizeAs decides access to the resource for an explicit identity and
// role set.
//
// The module chain is built per call, evaluated inside the privilege scope,
// and then completed: commit on all modules when the verdict is Permit,
// abort on all modules when it is Deny or when any step failed. Permit
// returns (Permit, nil); denial returns an [*AccessDeniedError]; chain
// build, commit and abort failures surface as their own error kinds.
func (c *Context) AuthorizeAs(ctx context.Context, resource Resource, identity Identity, roles RoleGroup) (Verdict, error) {
	start := time.Now()
	decisionID, _ := uuid.NewV7()

	ch, err := c.buildChain(ctx, resource, identity, roles)
	if err != nil {
		// Modules that made it into the partial chain still get aborted.
		if abortErr := abortChain(ch); abortErr != nil {
			c.log.Warn("abort after failed chain build",
				slog.String("domain", c.domain), slog.Any("error", abortErr))
		}
		return Deny, err
	}

	var out outcome
	err = c.privilege.RunElevated(ctx, func(ctx context.Context) error {
		out = evaluate(ctx, ch, resource)
		if out.verdict == Permit {
			return commitChain(ch)
		}
		if abortErr := abortChain(ch); abortErr != nil {
			return abortErr
		}
		return &AccessDeniedError{Domain: c.domain, Diagnostic: out.diagnostic}
	})

	elapsed := time.Since(start)
	if err != nil {
		var denied *AccessDeniedError
		if errors.As(err, &denied) {
			c.finish(ctx, decisionID, resource, identity, Deny, denied.Error(), elapsed)
			return Deny, err
		}

		var completion *CompletionError
		if errors.As(err, &completion) {
			c.metrics.observeCompletionFailure(c.domain, completion.Phase)
		}
		// Any other failure inside the scope, a failed commit included,
		// still runs the abort phase before the error is re-raised.
		if completion == nil || completion.Phase != "abort" {
			if abortErr := abortChain(ch); abortErr != nil {
				c.log.Warn("abort after failed evaluation",
					slog.String("domain", c.domain), slog.Any("error", abortErr))
			}
		}
		c.finish(ctx, decisionID, resource, identity, Deny, err.Error(), elapsed)
		return Deny, err
	}

	c.finish(ctx, decisionID, resource, identity, Permit, "", elapsed)
	return Permit, nil
}

func (c *Context) finish(ctx context.Context, id uuid.UUID, resource Resource, identity Identity, verdict Verdict, reason string, elapsed time.Duration) {
	c.metrics.observeDecision(c.domain, verdict, elapsed)
	c.log.Debug("authorization decision",
		slog.String("decision_id", id.String()),
		slog.String("domain", c.domain),
		slog.String("identity", identity.Name),
		slog.String("verdict", verdict.String()),
		slog.Duration("elapsed", elapsed))

	if c.recorder == nil {
		return
	}
	record := Decision{
		ID:          id,
		Domain:      c.domain,
		Layer:       resource.Layer,
		Identity:    identity.Name,
		Verdict:     verdict,
		Reason:      reason,
		EvaluatedAt: time.Now().UTC(),
	}
	if err := c.recorder.Record(ctx, record); err != nil {
		c.log.Warn("failed to record decision",
			slog.String("decision_id", id.String()), slog.Any("error", err))
	}
}
