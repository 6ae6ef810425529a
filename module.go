package authstack

import "context"

// A Verdict is the binary outcome of a module vote or a whole chain
// evaluation.
type Verdict int

const (
	Deny Verdict = iota
	Permit
)

func (v Verdict) String() string {
	if v == Permit {
		return "PERMIT"
	}
	return "DENY"
}

// A CallbackHandler lets modules request additional information from the
// caller during initialization or authorization. The engine never calls it
// itself, it is handed through to modules untouched.
type CallbackHandler interface {
	Handle(ctx context.Context, prompt string) (string, error)
}

// A DecisionModule casts a single vote in an authorization chain.
//
// One instance is created per chain entry per call; instances are never
// reused across calls or shared between goroutines. The shared map passed to
// Initialize is scoped to the one chain evaluation the module takes part in
// and can be used to pass data between modules of that chain.
//
// Commit and Abort report success; the engine converts a false return into a
// [CompletionError].
type DecisionModule interface {
	Initialize(identity Identity, handler CallbackHandler, shared map[string]any, options map[string]any, roles RoleGroup) error
	Authorize(ctx context.Context, resource Resource) (Verdict, error)
	Commit() bool
	Abort() bool
}

// A ModuleFactory constructs a fresh, uninitialized module instance.
type ModuleFactory func() DecisionModule

// A ModuleEntry is one configured slot of a policy's module chain.
// Entries are supplied by the policy store and never mutated by the engine.
type ModuleEntry struct {
	Type    string
	Options map[string]any
	Flag    ControlFlag
}
