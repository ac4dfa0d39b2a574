// Package action implements the Action Mapper (spec.md §4.7, component C7): translating the DP
// solver's first policy transition into a logical dispatch state and a power limit. The logical
// state is advisory; the hardware layer (spec.md §6, the four hook interfaces) maps it onto
// physical commands.
package action

import (
	"math"

	"github.com/embervolt/hbc/block"
	"github.com/embervolt/hbc/config"
)

// State is the logical dispatch decision for the current tick.
type State string

const (
	StateChargeGrid    State = "CHARGE_GRID"
	StateChargeSolar   State = "CHARGE_SOLAR"
	StateDischargeHome State = "DISCHARGE_HOME"
	StatePreserve      State = "PRESERVE"
	StateIdle          State = "IDLE"
)

// PowerThresholdKw suppresses chatter around zero (spec.md §4.7's epsilon), chosen as the 50W the
// spec names as an example.
const PowerThresholdKw = 0.05

// Decision is the Action Mapper's output for a tick.
type Decision struct {
	State    State
	LimitKw  float64
	TargetKw float64 // signed: positive charges, negative discharges
}

// Map computes the tick's dispatch decision from policy[0]/policy[1], block 0's balance and
// prices, battery parameters, and the policy tail (used only to detect the PRESERVE condition:
// an upcoming block within the next hour targets a higher SoC than the current one).
func Map(policy []float64, blocks []block.Block, params config.BatteryParameters) Decision {
	if len(policy) < 2 || len(blocks) == 0 {
		return Decision{State: StateIdle}
	}

	current, target := policy[0], policy[1]
	block0 := blocks[0]

	batteryKwTarget := (target - current) / 100 * params.CapacityKwh / block0.DurationH

	switch {
	case batteryKwTarget > PowerThresholdKw:
		limit := math.Min(batteryKwTarget, math.Min(params.MaxChargeKw, params.InverterLimitKw))
		state := StateChargeGrid
		if block0.BalanceKwh < 0 {
			// PV already covers or exceeds load for this block; the charge is sourced from solar,
			// not imported.
			state = StateChargeSolar
		}
		return Decision{State: state, LimitKw: limit, TargetKw: batteryKwTarget}

	case batteryKwTarget < -PowerThresholdKw:
		limit := math.Min(-batteryKwTarget, params.MaxDischargeKw)
		return Decision{State: StateDischargeHome, LimitKw: limit, TargetKw: batteryKwTarget}

	default:
		if preserveCondition(policy, blocks, current) {
			return Decision{State: StatePreserve, TargetKw: 0}
		}
		return Decision{State: StateIdle, TargetKw: 0}
	}
}

// preserveCondition reports whether any block starting within the next hour targets a SoC above
// the current one — if so, idling now (rather than discharging) preserves headroom the near-term
// plan is about to need (spec.md §4.7).
func preserveCondition(policy []float64, blocks []block.Block, current float64) bool {
	elapsedH := 0.0
	for b := 0; b < len(blocks) && b+1 < len(policy); b++ {
		if elapsedH >= 1.0 {
			break
		}
		if policy[b+1] > current+PowerThresholdKw {
			return true
		}
		elapsedH += blocks[b].DurationH
	}
	return false
}
