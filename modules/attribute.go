package modules

import (
	"context"
	"fmt"
	"reflect"

	"github.com/acrine/authstack"
)

// AttributeModule permits when every expected attribute equals the
// corresponding resource attribute.
//
// Options:
//   - "expect": map of attribute name to expected value (required)
type AttributeModule struct {
	expect map[string]any
}

func (m *AttributeModule) Initialize(identity authstack.Identity, handler authstack.CallbackHandler, shared map[string]any, options map[string]any, roles authstack.RoleGroup) error {
	expect, ok := options["expect"].(map[string]any)
	if !ok || len(expect) == 0 {
		return fmt.Errorf("attribute requires a non-empty %q option", "expect")
	}
	m.expect = expect
	return nil
}

func (m *AttributeModule) Authorize(ctx context.Context, resource authstack.Resource) (authstack.Verdict, error) {
	for key, want := range m.expect {
		got, ok := resource.Attributes[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return authstack.Deny, nil
		}
	}
	return authstack.Permit, nil
}

func (m *AttributeModule) Commit() bool { return true }

func (m *AttributeModule) Abort() bool { return true }
