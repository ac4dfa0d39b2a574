// Package tariff implements the Tariff Aligner (spec.md §4.1, component C1): expanding mixed
// 5/30-minute tariff intervals into a dense per-5-minute-slot rate series.
package tariff

import (
	"sort"
	"time"

	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/timeutils"
)

// Align expands intervals into a dense [288]float64 of per-kWh cents, one per 5-minute slot of the
// lattice starting at alignedStart. Import and export series are aligned independently — they are
// never interpolated against each other, and a rate is never interpolated across a price change:
// each slot takes the rate of whichever interval contains its midpoint (spec.md §4.1).
//
// If no interval covers a slot's midpoint, Align returns a *GapError naming that slot; the caller
// must not proceed with a partially-aligned series.
func Align(intervals []providers.TariffInterval, alignedStart time.Time) ([timeutils.SlotsPerDay]float64, error) {
	var rates [timeutils.SlotsPerDay]float64

	sorted := make([]providers.TariffInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PeriodStart.Before(sorted[j].PeriodStart)
	})

	slots := timeutils.Lattice(alignedStart)
	searchFrom := 0
	for i := 0; i < timeutils.SlotsPerDay; i++ {
		midpoint := slots[i].Start.Add(timeutils.SlotDuration / 2)

		found := false
		for j := searchFrom; j < len(sorted); j++ {
			iv := sorted[j]
			if midpoint.Before(iv.PeriodStart) {
				break
			}
			if !midpoint.Before(iv.PeriodEnd) {
				continue
			}
			rates[i] = iv.PerKwhCents
			found = true
			searchFrom = j
			break
		}

		if !found {
			return rates, &GapError{SlotIndex: i}
		}
	}

	return rates, nil
}
