package authstack

import (
	"context"
	"errors"
)

var (
	errAuthorizationFailed = errors.New("authorization failed")
	errNoModuleGranted     = errors.New("no module granted access")
)

// An outcome is the explicit result of one chain evaluation: the verdict
// plus the single retained diagnostic that enriches a denial.
type outcome struct {
	verdict    Verdict
	diagnostic error
}

// evaluate runs the control-flag combination algorithm over the chain in
// order and produces the overall outcome. Module errors never escape: they
// count as deny votes, with the first one retained as the diagnostic.
//
// Two quirks are deliberate and covered by tests:
//   - a requisite failure only halts the pass if a diagnostic was already
//     retained; the first one is recorded and evaluation continues.
//   - a sufficient permit short-circuits without evaluating later modules,
//     which nonetheless take part in the completion phase.
func evaluate(ctx context.Context, c chain, resource Resource) outcome {
	var (
		overall        = Deny
		requiredFailed = false
		optionalFailed = false
		diagnostic     error
	)

	for _, l := range c {
		verdict, err := l.module.Authorize(ctx, resource)
		if err != nil {
			verdict = Deny
			if diagnostic == nil {
				diagnostic = err
			}
		}

		if verdict == Permit {
			overall = Permit
			if l.flag == Sufficient && !requiredFailed {
				return outcome{verdict: Permit}
			}
			continue
		}

		switch l.flag {
		case Requisite:
			if diagnostic == nil {
				diagnostic = errAuthorizationFailed
			} else {
				return outcome{verdict: Deny, diagnostic: diagnostic}
			}
		case Required:
			requiredFailed = true
		case Optional:
			optionalFailed = true
		}
	}

	switch {
	case requiredFailed:
		return outcome{verdict: Deny, diagnostic: diagnostic}
	case overall == Deny && optionalFailed:
		return outcome{verdict: Deny, diagnostic: diagnostic}
	case overall == Deny:
		return outcome{verdict: Deny, diagnostic: errNoModuleGranted}
	}
	return outcome{verdict: Permit}
}
