// Package matrix implements the Matrix Builder (spec.md §4.4, component C4): zipping the Tariff
// Aligner, PV Aligner, and Load Predictor outputs plus the weather series into the 288-row
// forecast matrix. No numerical transformation happens here beyond assembly and nearest-neighbor
// temperature lookup.
package matrix

import (
	"time"

	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/timeutils"
)

// ForecastRow is spec.md §3's ForecastRow: one row per 5-minute slot of the forecast matrix.
type ForecastRow struct {
	SlotIndex    int
	PeriodStart  time.Time
	PeriodEnd    time.Time
	ImportRateC  float64
	ExportRateC  float64
	PVKw         float64
	LoadKw       float64
	TempC        float64
}

// Matrix is the fixed-size 288-row forecast, one day's worth of 5-minute slots aligned to
// alignedStart.
type Matrix [timeutils.SlotsPerDay]ForecastRow

// Build assembles the matrix from the independently-aligned import/export rate series, the PV and
// load power series, and the raw weather forecast (nearest-neighbor matched to each slot's
// midpoint). All input series must already be aligned to the same alignedStart lattice
// (spec.md §4.4).
func Build(alignedStart time.Time, importRates, exportRates, pvKw, loadKw [timeutils.SlotsPerDay]float64, weather []providers.WeatherPoint) Matrix {
	var m Matrix
	slots := timeutils.Lattice(alignedStart)

	for i := 0; i < timeutils.SlotsPerDay; i++ {
		midpoint := slots[i].Start.Add(timeutils.SlotDuration / 2)
		m[i] = ForecastRow{
			SlotIndex:   i,
			PeriodStart: slots[i].Start,
			PeriodEnd:   slots[i].End,
			ImportRateC: importRates[i],
			ExportRateC: exportRates[i],
			PVKw:        pvKw[i],
			LoadKw:      loadKw[i],
			TempC:       nearestTemp(midpoint, weather),
		}
	}

	return m
}

// nearestTemp returns the forecast temperature closest in time to t, or 20C if no weather series
// was supplied — matching the load predictor's own fallback so a matrix built without a weather
// provider behaves identically to one whose provider returned nothing.
func nearestTemp(t time.Time, weather []providers.WeatherPoint) float64 {
	if len(weather) == 0 {
		return 20.0
	}
	best := weather[0]
	bestDiff := absDuration(t.Sub(best.Time))
	for _, w := range weather[1:] {
		if d := absDuration(t.Sub(w.Time)); d < bestDiff {
			best, bestDiff = w, d
		}
	}
	return best.TemperatureC
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
