// Package hooks implements the Hook Dispatcher (spec.md §6, SPEC_FULL.md §4.12, component C12):
// the deduplicating executor that turns the Action Mapper's logical state into invocations of the
// four hardware command hooks (charge-start, charge-stop, discharge-start, discharge-stop).
// Grounded on original_source's PowerwallExecutor (execute.py): only a state *change* triggers a
// hook call, and an unconfigured hook is a silent no-op (observation-only mode).
package hooks

import (
	"context"
	"log/slog"

	"github.com/embervolt/hbc/action"
)

// Hook is one of the four optional hardware triggers. A nil Hook runs observation-only.
type Hook func(ctx context.Context) error

// Set holds the four hardware command hooks named in spec.md §6. Any of them may be nil.
type Set struct {
	ChargeStart    Hook
	ChargeStop     Hook
	DischargeStart Hook
	DischargeStop  Hook
}

// Dispatcher deduplicates hook invocations against the last applied state: it mirrors
// PowerwallExecutor.apply_state, which no-ops when the incoming state and limit are unchanged
// from the last call.
type Dispatcher struct {
	hooks Set

	hasApplied bool
	lastState  action.State
	lastLimit  float64
}

// New constructs a Dispatcher over hooks. No hooks have been applied yet, so the very next Apply
// call always fires regardless of what decision it carries.
func New(hooks Set) *Dispatcher {
	return &Dispatcher{hooks: hooks}
}

// Apply invokes whichever hooks decision.State requires, but only if decision differs from the
// last one applied. Returns nil immediately on an unchanged decision.
func (d *Dispatcher) Apply(ctx context.Context, decision action.Decision) error {
	if d.hasApplied && decision.State == d.lastState && decision.LimitKw == d.lastLimit {
		slog.Debug("hooks: state unchanged, skipping apply", "state", decision.State)
		return nil
	}

	d.hasApplied = true
	d.lastState = decision.State
	d.lastLimit = decision.LimitKw

	slog.Info("hooks: applying state", "state", decision.State, "limit_kw", decision.LimitKw)

	switch decision.State {
	case action.StateChargeGrid:
		return d.call(ctx, d.hooks.ChargeStart, "charge-start")
	case action.StateChargeSolar:
		// PV alone is already sufficient; no forced grid charge is needed (spec.md §4.7), so this
		// only needs to ensure a stale charge-start from a prior tick is cleared.
		return d.call(ctx, d.hooks.ChargeStop, "charge-stop")
	case action.StateDischargeHome:
		return d.call(ctx, d.hooks.DischargeStart, "discharge-start")
	case action.StatePreserve:
		return d.call(ctx, d.hooks.DischargeStop, "discharge-stop")
	default: // action.StateIdle
		if err := d.call(ctx, d.hooks.ChargeStop, "charge-stop"); err != nil {
			return err
		}
		return d.call(ctx, d.hooks.DischargeStop, "discharge-stop")
	}
}

// call invokes hook if configured, logging and skipping silently if it is nil (spec.md §6: "If a
// hook is unconfigured the system runs observation-only").
func (d *Dispatcher) call(ctx context.Context, hook Hook, intent string) error {
	if hook == nil {
		slog.Info("hooks: skipped, no hook configured", "intent", intent)
		return nil
	}
	slog.Info("hooks: invoking", "intent", intent)
	return hook(ctx)
}
