package authstack

import "fmt"

// A ControlFlag states how a module's vote combines with the votes of the
// other modules in its chain. The semantics follow the stacked-module model
// known from PAM and JAAS login configurations.
type ControlFlag int

const (
	// FlagUnset is the zero value; entries without an explicit flag are
	// treated as Required when the chain is built.
	FlagUnset ControlFlag = iota

	// Required modules must permit; a failure vetoes the overall result,
	// but evaluation still continues down the chain.
	Required

	// Requisite modules must permit; see Context.Authorize for the exact
	// failure behavior.
	Requisite

	// Sufficient modules grant immediately on permit, as long as no
	// required module has failed before them.
	Sufficient

	// Optional modules only matter when no other module granted.
	Optional
)

func (f ControlFlag) String() string {
	switch f {
	case Required:
		return "required"
	case Requisite:
		return "requisite"
	case Sufficient:
		return "sufficient"
	case Optional:
		return "optional"
	case FlagUnset:
		return "unset"
	}
	return fmt.Sprintf("ControlFlag(%d)", int(f))
}

// ParseControlFlag maps the textual flag names used in policy files to their
// ControlFlag value. The empty string maps to FlagUnset.
func ParseControlFlag(s string) (ControlFlag, error) {
	switch s {
	case "required":
		return Required, nil
	case "requisite":
		return Requisite, nil
	case "sufficient":
		return Sufficient, nil
	case "optional":
		return Optional, nil
	case "":
		return FlagUnset, nil
	}
	return FlagUnset, fmt.Errorf("unknown control flag %q", s)
}
