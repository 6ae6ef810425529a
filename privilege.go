package authstack

import "context"

// A Privilege is the scoped elevated-trust collaborator supplied by the
// environment. RunElevated runs fn with ambient trust raised and must
// restore the previous trust level on every exit path, including when fn
// returns an error. Implementations must be safe for re-entrant and
// concurrent use.
//
// AmbientIdentity reports the identity bound to the current call scope, if
// the environment tracks one; [Context.Authorize] uses it to derive the
// caller identity for the implicit form.
type Privilege interface {
	RunElevated(ctx context.Context, fn func(ctx context.Context) error) error
	AmbientIdentity(ctx context.Context) (Identity, bool)
}

// ambientPrivilege is the default: no elevation, no tracked identity.
type ambientPrivilege struct{}

func (ambientPrivilege) RunElevated(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (ambientPrivilege) AmbientIdentity(ctx context.Context) (Identity, bool) {
	return Identity{}, false
}
