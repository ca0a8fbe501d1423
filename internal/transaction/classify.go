package transaction

import "github.com/quantmind-br/pkgtx/internal/core"

// actionKinds maps every known action code to its semantic kind.
// Built once at init and never mutated.
var actionKinds = buildActionKinds()

// buildActionKinds fills the table from the lowest priority rule to the highest,
// so a later assignment wins exactly where an earlier rule would have matched first.
func buildActionKinds() map[core.ActionCode]core.ActionKind {
	kinds := make(map[core.ActionCode]core.ActionKind)

	for _, code := range core.RemoveStates {
		kinds[code] = core.KindErase
	}
	for _, code := range core.InstallStates {
		kinds[code] = core.KindInstall
	}
	kinds[core.ActionFailed] = core.KindError
	kinds[core.ActionUpdate] = core.KindUpgrade
	kinds[core.ActionObsoleting] = core.KindUpgrade

	return kinds
}

// Classify returns the semantic kind for an action code. Unknown codes are KindOther.
func Classify(code core.ActionCode) core.ActionKind {
	if kind, ok := actionKinds[code]; ok {
		return kind
	}
	return core.KindOther
}
