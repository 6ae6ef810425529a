package modules

import (
	"context"
	"fmt"

	"github.com/acrine/authstack"
)

// StaticModule votes a fixed verdict. Useful as a chain terminator in
// policy files and for exercising completion behavior in tests.
//
// Options:
//   - "verdict": "permit" or "deny" (default "deny")
//   - "commit": bool, the value Commit reports (default true)
//   - "abort": bool, the value Abort reports (default true)
type StaticModule struct {
	verdict authstack.Verdict
	commit  bool
	abort   bool
}

func (m *StaticModule) Initialize(identity authstack.Identity, handler authstack.CallbackHandler, shared map[string]any, options map[string]any, roles authstack.RoleGroup) error {
	m.verdict = authstack.Deny
	switch v := options["verdict"]; v {
	case nil, "deny":
	case "permit":
		m.verdict = authstack.Permit
	default:
		return fmt.Errorf("static option %q: unknown verdict %v", "verdict", v)
	}

	m.commit = true
	m.abort = true
	if v, ok := options["commit"].(bool); ok {
		m.commit = v
	}
	if v, ok := options["abort"].(bool); ok {
		m.abort = v
	}
	return nil
}

func (m *StaticModule) Authorize(ctx context.Context, resource authstack.Resource) (authstack.Verdict, error) {
	return m.verdict, nil
}

func (m *StaticModule) Commit() bool { return m.commit }

func (m *StaticModule) Abort() bool { return m.abort }
