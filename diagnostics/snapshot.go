// Package diagnostics assembles the external diagnostic surface named in spec.md §6: the full
// 288-row plan, the raw policy vector, and the scalar current-status fields. This repo treats the
// plan vector as a mandatory core output (SPEC_FULL.md §9's resolution of the open question),
// decoupled from whatever external dashboard renders it.
package diagnostics

import (
	"time"

	"github.com/google/uuid"

	"github.com/embervolt/hbc/action"
	"github.com/embervolt/hbc/block"
	"github.com/embervolt/hbc/config"
	"github.com/embervolt/hbc/matrix"
)

// PlanRow mirrors one row of spec.md §6's plan: the matrix row enriched with the derived SoC
// forecast, interval cost, and running total for that slot.
type PlanRow struct {
	SlotIndex       int
	Time            time.Time
	ImportRateC     float64
	ExportRateC     float64
	PVKw            float64
	LoadKw          float64
	TempC           float64
	SoCForecastPct  float64
	IntervalCostC   float64
	CumulativeCostC float64
}

// Snapshot is spec.md §6's diagnostic surface for a single tick.
type Snapshot struct {
	TickID        uuid.UUID
	TakenAt       time.Time
	Plan          []PlanRow
	Policy        []float64
	State         action.State
	Reason        string
	CurrentPriceC float64
	SoCPct        float64
	SolarKw       float64
	LoadKw        float64
	GridKw        float64
	BatteryKw     float64
}

// Assemble builds the plan rows and scalar status fields from one tick's matrix, blocks, policy,
// and action decision. Per-slot SoC forecast is derived by holding each block's policy target
// constant across its slots — the plan reports the dispatch intention, not a sub-block
// interpolation the DP itself never computes. Each block's total step cost (computed with the
// same unified signed formula the solver uses) is spread evenly across its slots for the
// per-slot IntervalCostC column; CumulativeCostC is the running sum across the whole plan.
func Assemble(tickID uuid.UUID, takenAt time.Time, m matrix.Matrix, blocks []block.Block, policy []float64, params config.BatteryParameters, decision action.Decision, measuredSoCPct, solarKw, loadKw, gridKw, batteryKw float64, reason string) Snapshot {
	plan := make([]PlanRow, len(m))
	cumulative := 0.0

	blockOf := make([]int, len(m))
	for bi, b := range blocks {
		for s := b.StartSlot; s < b.EndSlotExclusive; s++ {
			blockOf[s] = bi
		}
	}

	for i, row := range m {
		bi := blockOf[i]

		socForecast := measuredSoCPct
		if bi+1 < len(policy) {
			socForecast = policy[bi+1]
		}

		intervalCost := 0.0
		if bi < len(blocks) && blocks[bi].SlotCount() > 0 && bi+1 < len(policy) {
			intervalCost = stepCostC(blocks[bi], policy[bi], policy[bi+1], params) / float64(blocks[bi].SlotCount())
		}
		cumulative += intervalCost

		plan[i] = PlanRow{
			SlotIndex:       row.SlotIndex,
			Time:            row.PeriodStart,
			ImportRateC:     row.ImportRateC,
			ExportRateC:     row.ExportRateC,
			PVKw:            row.PVKw,
			LoadKw:          row.LoadKw,
			TempC:           row.TempC,
			SoCForecastPct:  socForecast,
			IntervalCostC:   intervalCost,
			CumulativeCostC: cumulative,
		}
	}

	currentPriceC := 0.0
	if len(m) > 0 {
		currentPriceC = m[0].ImportRateC
	}

	return Snapshot{
		TickID:        tickID,
		TakenAt:       takenAt,
		Plan:          plan,
		Policy:        policy,
		State:         decision.State,
		Reason:        reason,
		CurrentPriceC: currentPriceC,
		SoCPct:        measuredSoCPct,
		SolarKw:       solarKw,
		LoadKw:        loadKw,
		GridKw:        gridKw,
		BatteryKw:     batteryKw,
	}
}

// stepCostC mirrors the DP solver's unified signed step-cost formula (spec.md §4.6) exactly, so
// the diagnostics surface never disagrees with the solve that produced the policy it's reporting.
func stepCostC(b block.Block, soc, next float64, params config.BatteryParameters) float64 {
	batteryDeltaKwh := (next - soc) / 100 * params.CapacityKwh
	gridKwh := b.BalanceKwh + batteryDeltaKwh
	if gridKwh >= 0 {
		return gridKwh * b.ImportRateC
	}
	return gridKwh * b.ExportRateC
}
