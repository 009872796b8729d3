package playbook

import "github.com/argoquant/dexterio/internal/types"

// AggressiveBypasses is the single explicit bypass table referenced by
// spec.md §4.4's AGGRESSIVE relaxation mode and §9's Open Question #3.
// Every entry defaults to false: this implementation ships both the ICT
// and candlestick engines fully wired (§4.3), so the upstream-engine gap
// that originally motivated structure/candlestick bypasses no longer
// exists, and the default target of zero bypasses is met exactly.
var AggressiveBypasses = map[types.GateRejectReason]bool{
	types.GateRejectStructureHTFMismatch:    false,
	types.GateRejectICTMissing:              false,
	types.GateRejectCandlestickMissing:      false,
}
