package authstack

// commitChain runs the commit phase over the whole chain in original order,
// including modules that were never asked to vote. The first module
// reporting failure stops the phase; commits already performed are not
// rolled back.
func commitChain(c chain) error {
	for _, l := range c {
		if !l.module.Commit() {
			return &CompletionError{Phase: "commit", Module: l.typeName}
		}
	}
	return nil
}

// abortChain runs the abort phase over the whole chain in original order,
// regardless of which modules voted. The first module reporting failure
// stops the phase.
func abortChain(c chain) error {
	for _, l := range c {
		if !l.module.Abort() {
			return &CompletionError{Phase: "abort", Module: l.typeName}
		}
	}
	return nil
}
