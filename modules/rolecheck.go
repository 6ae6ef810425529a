package modules

import (
	"context"
	"fmt"

	"github.com/acrine/authstack"
)

// RoleCheckModule permits when the caller's role-group satisfies the
// configured role list.
//
// Options:
//   - "roles": list of role names (required)
//   - "match": "any" (default) or "all"
type RoleCheckModule struct {
	expected []string
	matchAll bool
	roles    authstack.RoleGroup
}

func (m *RoleCheckModule) Initialize(identity authstack.Identity, handler authstack.CallbackHandler, shared map[string]any, options map[string]any, roles authstack.RoleGroup) error {
	expected, err := stringList(options["roles"])
	if err != nil {
		return fmt.Errorf("rolecheck option %q: %w", "roles", err)
	}
	if len(expected) == 0 {
		return fmt.Errorf("rolecheck requires a non-empty %q option", "roles")
	}

	switch match := options["match"]; match {
	case nil, "any":
	case "all":
		m.matchAll = true
	default:
		return fmt.Errorf("rolecheck option %q: unknown mode %v", "match", match)
	}

	m.expected = expected
	m.roles = roles
	return nil
}

func (m *RoleCheckModule) Authorize(ctx context.Context, resource authstack.Resource) (authstack.Verdict, error) {
	if m.matchAll {
		if m.roles.HasAll(m.expected...) {
			return authstack.Permit, nil
		}
		return authstack.Deny, nil
	}
	if m.roles.HasAny(m.expected...) {
		return authstack.Permit, nil
	}
	return authstack.Deny, nil
}

func (m *RoleCheckModule) Commit() bool { return true }

func (m *RoleCheckModule) Abort() bool { return true }

// stringList accepts both []string and the []any that YAML decoding
// produces.
func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		result := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string element, got %T", item)
			}
			result = append(result, s)
		}
		return result, nil
	}
	return nil, fmt.Errorf("expected string list, got %T", v)
}
