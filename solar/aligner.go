// Package solar implements the PV Aligner (spec.md §4.2, component C2): converting accumulated
// half-hour PV energy estimates into per-5-minute power.
package solar

import (
	"time"

	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/timeutils"
)

// Align distributes each half-hour energy estimate uniformly across the six 5-minute slots it
// covers: E kWh over 30 minutes becomes 2*E kW in every one of those slots (spec.md §4.2 — uniform
// attribution, not a linear ramp, because Solcast-style feeds report accumulated energy, not
// instantaneous power). Estimates are keyed by their PeriodEnd and snapped to the half-hour window
// that contains it.
//
// Any slot whose half-hour window has no matching estimate is left at 0 kW; PV forecasts are
// optimistic by nature and a missing estimate is treated as "no generation expected", unlike a
// missing tariff interval which is a hard failure.
func Align(estimates []providers.PVEstimate, alignedStart time.Time) [timeutils.SlotsPerDay]float64 {
	var kw [timeutils.SlotsPerDay]float64

	windowEnergy := make(map[int64]float64)
	for _, e := range estimates {
		windowStart := timeutils.FloorHH(e.PeriodEnd.UTC().Add(-time.Nanosecond))
		windowEnergy[windowStart.Unix()] += e.EnergyKwh
	}

	for i := 0; i < timeutils.SlotsPerDay; i++ {
		slotStart := alignedStart.UTC().Add(time.Duration(i) * timeutils.SlotDuration)
		if energy, ok := windowEnergy[timeutils.FloorHH(slotStart).Unix()]; ok {
			kw[i] = energy / float64(timeutils.SlotsPerHalfHour) * 12.0
		}
	}

	return kw
}

// Recompose re-aggregates a per-5-minute kW series back into half-hour kWh totals, the inverse of
// Align. It exists to support P6 (round-trip property): recomposing must reproduce the original
// Solcast input within floating tolerance. Windows are counted in groups of six slots from slot 0,
// so the totals line up with the original estimates only when the lattice starts on a half-hour
// boundary.
func Recompose(kw [timeutils.SlotsPerDay]float64) []float64 {
	windows := timeutils.SlotsPerDay / timeutils.SlotsPerHalfHour
	energy := make([]float64, windows)
	for i := 0; i < timeutils.SlotsPerDay; i++ {
		window, _ := timeutils.HalfHourWindowIndex(i)
		energy[window] += kw[i] * (5.0 / 60.0)
	}
	return energy
}
