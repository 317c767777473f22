// Package script defines the hot-swappable scripting hook: an external
// collaborator the session and credit engine consult before honoring a
// command or computing a ratio charge, without the core depending on
// any particular scripting runtime.
package script

import "context"

// Decision is a scripted veto or pass-through, mirroring the
// Allow/Deny(reason) shape used throughout the core's policy engines.
type Decision struct {
	Allow  bool
	Reason string
}

// RatioAdjustment lets a script multiply the credit engine's computed
// cost or award before it's applied, composing with the section/group
// rule multipliers rather than overriding them.
type RatioAdjustment struct {
	CostMultiplier   float64
	CreditMultiplier float64
}

// Engine is consulted by the session command loop and the credit engine.
// Implementations must be safe for concurrent use: multiple sessions may
// call into the same Engine simultaneously.
type Engine interface {
	// EvaluateCommand is called before a command is authorized, letting
	// a script veto it. verb is the FTP verb (upper-case); args is the
	// raw command argument.
	EvaluateCommand(ctx context.Context, username, verb, args string) Decision

	// EvaluateRatio is called before a transfer's cost/award is applied,
	// letting a script scale it for promotions, events, or per-user
	// exceptions the static rule tables don't express.
	EvaluateRatio(ctx context.Context, username, section string, uploading bool) RatioAdjustment
}

// NopEngine allows everything and never adjusts ratios; it is the
// default Engine until an operator wires in a real one.
type NopEngine struct{}

func (NopEngine) EvaluateCommand(context.Context, string, string, string) Decision {
	return Decision{Allow: true}
}

func (NopEngine) EvaluateRatio(context.Context, string, string, bool) RatioAdjustment {
	return RatioAdjustment{CostMultiplier: 1, CreditMultiplier: 1}
}
