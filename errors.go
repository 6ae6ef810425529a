package authstack

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by storage backends when a record does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrPolicyNotFound is returned by a [PolicyStore] when it holds no
	// policy for the requested domain.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrInvalidPolicy indicates a policy rejected by [Context.SetPolicy].
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrModuleNotFound indicates a module type no registry or locator
	// could resolve.
	ErrModuleNotFound = errors.New("module type not found")
)

// A ConfigError indicates that no usable module chain could be derived for a
// domain: either no policy resolved at all or the resolved policy carries an
// empty module list. It is fatal for the call and never turned into a deny
// verdict.
type ConfigError struct {
	Domain string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("authorization config for domain %q: %s", e.Domain, e.Reason)
}

// An InstantiationError indicates that a module of the chain could not be
// loaded or initialized. It is fatal for the call and never turned into a
// deny verdict.
type InstantiationError struct {
	Type  string
	Cause error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiating module %q: %v", e.Type, e.Cause)
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}

// An AccessDeniedError is the final denial of a chain evaluation. Diagnostic
// holds the first module-raised error of the evaluation, if any.
type AccessDeniedError struct {
	Domain     string
	Diagnostic error
}

func (e *AccessDeniedError) Error() string {
	if e.Diagnostic != nil {
		return fmt.Sprintf("access denied for domain %q: %v", e.Domain, e.Diagnostic)
	}
	return fmt.Sprintf("access denied for domain %q", e.Domain)
}

func (e *AccessDeniedError) Unwrap() error {
	return e.Diagnostic
}

// A CompletionError indicates a module reported failure during the commit or
// abort phase. Completions already performed on earlier modules are not
// rolled back.
type CompletionError struct {
	Phase  string // "commit" or "abort"
	Module string // module type name
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s failed on module %q", e.Phase, e.Module)
}
