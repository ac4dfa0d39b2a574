// Package pipeline wires together the Tariff Aligner (C1), PV Aligner (C2), Load Predictor (C3),
// and Matrix Builder (C4) into the single synchronous step that must run before a tick can be
// handed to the DP Period Optimizer (C6): spec.md §2's "raw forecasts -> (C1,C2,C3) -> C4"
// stage, pulled out of main.go so it can be driven by a ticker and tested independently of the
// composition root's goroutine wiring.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/embervolt/hbc/block"
	"github.com/embervolt/hbc/load"
	"github.com/embervolt/hbc/matrix"
	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/solar"
	"github.com/embervolt/hbc/tariff"
	"github.com/embervolt/hbc/timeutils"
)

// historyWindow is the 5-day lookback the Load Predictor needs (spec.md §4.3).
const historyWindow = 5 * 24 * time.Hour

// Providers bundles the external collaborators named in spec.md §6 that BuildTick fetches from.
type Providers struct {
	TariffImport providers.TariffProvider
	TariffExport providers.TariffProvider
	PV           providers.PVProvider
	Weather      providers.WeatherProvider
	History      providers.HistoryProvider
}

// Tick is the result of one BuildTick call: the assembled matrix and its compressed blocks, ready
// for dp.Solve, plus whether the load forecast fell back to a degraded flat-mean (spec.md §7's
// InsufficientHistory, non-fatal).
type Tick struct {
	Matrix   matrix.Matrix
	Blocks   []block.Block
	Degraded bool
}

// BuildTick fetches the tariff, PV, weather, and history forecasts for now, aligns them onto the
// 5-minute lattice, and compresses the result into blocks. historyEntityID identifies the load
// meter entity to pull history for (spec.md §3's LoadHistorySample.entity_id).
//
// A *tariff.GapError propagates unwrapped so the caller can recognize spec.md §7's
// TariffGapError and hold the previous action rather than solve against an incomplete matrix.
func BuildTick(ctx context.Context, now time.Time, p Providers, historyEntityID string, loadOpts load.Options) (Tick, error) {
	alignedStart := timeutils.FloorToSlot(now)

	importIntervals, err := p.TariffImport.Forecast(ctx, now)
	if err != nil {
		return Tick{}, fmt.Errorf("fetch import tariff: %w", err)
	}
	importRates, err := tariff.Align(importIntervals, alignedStart)
	if err != nil {
		return Tick{}, err
	}

	exportIntervals, err := p.TariffExport.Forecast(ctx, now)
	if err != nil {
		return Tick{}, fmt.Errorf("fetch export tariff: %w", err)
	}
	exportRates, err := tariff.Align(exportIntervals, alignedStart)
	if err != nil {
		return Tick{}, err
	}

	pvEstimates, err := p.PV.Forecast(ctx, now)
	if err != nil {
		return Tick{}, fmt.Errorf("fetch pv forecast: %w", err)
	}
	pvKw := solar.Align(pvEstimates, alignedStart)

	weatherPoints, err := p.Weather.Forecast(ctx, now)
	if err != nil {
		return Tick{}, fmt.Errorf("fetch weather forecast: %w", err)
	}

	samples, err := p.History.History(ctx, historyEntityID, alignedStart.Add(-historyWindow), alignedStart)
	if err != nil {
		return Tick{}, fmt.Errorf("fetch load history: %w", err)
	}
	loadKw, predictErr := load.Predict(samples, alignedStart, weatherPoints, loadOpts)
	degraded := predictErr != nil // load.Predict never returns an error invalidating its result

	m := matrix.Build(alignedStart, importRates, exportRates, pvKw, loadKw, weatherPoints)
	blocks := block.Compress(m)

	return Tick{Matrix: m, Blocks: blocks, Degraded: degraded}, nil
}
