// Package load implements the Load Predictor (spec.md §4.3, component C3): deriving a 288-slot
// per-5-minute kW forecast from cumulative energy history, with midnight-reset repair and
// optional temperature sensitivity. Grounded on the original Home Assistant integration's
// historical_analyzer.build_historical_profile and load.LoadPredictor.async_predict.
package load

import (
	"math"
	"sort"
	"time"

	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/timeutils"
)

// Options configures the optional temperature sensitivity adjustment and the output safety cap
// (spec.md §4.3 step 7). Zero sensitivities disable the adjustment entirely.
type Options struct {
	HighSensitivity float64 // kW added per degree above HighThreshold
	LowSensitivity  float64 // kW added per degree below LowThreshold
	HighThreshold   float64 // degrees C
	LowThreshold    float64 // degrees C
	MaxLoadKw       float64 // hard cap applied to every slot after adjustment
}

// DefaultOptions mirrors the original integration's defaults: sensitivity disabled, a mild
// comfort band, and a 4 kW safety cap.
func DefaultOptions() Options {
	return Options{
		HighSensitivity: 0,
		LowSensitivity:  0,
		HighThreshold:   25.0,
		LowThreshold:    15.0,
		MaxLoadKw:       4.0,
	}
}

type timedValue struct {
	t time.Time
	v float64
}

// Predict derives the 288-slot forecast for the 24 hours starting at alignedStart, from up to
// five days of cumulative-energy history ending at alignedStart. It never returns an error that
// invalidates the result: on ErrInsufficientHistory the returned forecast is the flat-mean
// fallback described in spec.md §4.3, safe for the caller to use directly while logging the
// degraded-forecast diagnostic.
func Predict(samples []providers.LoadHistorySample, alignedStart time.Time, weather []providers.WeatherPoint, opts Options) ([timeutils.SlotsPerDay]float64, error) {
	var forecast [timeutils.SlotsPerDay]float64

	valid := validSamples(samples)
	if len(valid) < 2 {
		flat := flatFallback(valid)
		applyTempAndCap(&forecast, flat, alignedStart, weather, opts)
		return forecast, ErrInsufficientHistory
	}

	grid := buildDeltaGrid(valid)
	if len(grid) == 0 || grid[len(grid)-1].t.Sub(grid[0].t) < 24*time.Hour {
		flat := flatFallback(valid)
		applyTempAndCap(&forecast, flat, alignedStart, weather, opts)
		return forecast, ErrInsufficientHistory
	}

	buckets := bucketAverages(grid)
	overallMean := meanOf(grid)

	for i := 0; i < timeutils.SlotsPerDay; i++ {
		slotStart := alignedStart.Add(time.Duration(i) * timeutils.SlotDuration)
		key := bucketKey(slotStart)
		kw, ok := buckets[key]
		if !ok {
			kw = overallMean
		}
		forecast[i] = kw
	}

	applyTempAndCap(&forecast, -1, alignedStart, weather, opts)
	return forecast, nil
}

// validSamples rejects non-numeric states (NaN/Inf, which can arise from upstream parse failures
// surfacing as sentinel float values) and sorts the remainder ascending by LastChanged
// (spec.md §4.3 steps 1-2).
func validSamples(samples []providers.LoadHistorySample) []providers.LoadHistorySample {
	out := make([]providers.LoadHistorySample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.StateKwh) || math.IsInf(s.StateKwh, 0) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastChanged.Before(out[j].LastChanged) })
	return out
}

// buildDeltaGrid interpolates the cumulative-energy series onto 5-minute boundaries spanning the
// sample range, converts consecutive differences into kW deltas, and repairs midnight resets by
// substituting the previous valid delta rather than zero (spec.md §4.3 step 4, P7).
func buildDeltaGrid(samples []providers.LoadHistorySample) []timedValue {
	first := timeutils.FloorToSlot(samples[0].LastChanged)
	if first.Before(samples[0].LastChanged) {
		first = first.Add(timeutils.SlotDuration)
	}
	last := timeutils.FloorToSlot(samples[len(samples)-1].LastChanged)

	if !last.After(first) {
		return nil
	}

	n := int(last.Sub(first) / timeutils.SlotDuration)
	grid := make([]timedValue, 0, n)

	prevValue := interpolateCumulative(first, samples)
	prevDelta := 0.0
	haveValidPrevDelta := false

	for i := 1; i <= n; i++ {
		t := first.Add(time.Duration(i) * timeutils.SlotDuration)
		value := interpolateCumulative(t, samples)
		delta := value - prevValue

		if delta < 0 {
			if haveValidPrevDelta {
				delta = prevDelta
			} else {
				delta = 0
			}
		} else {
			prevDelta = delta
			haveValidPrevDelta = true
		}

		grid = append(grid, timedValue{t: t.Add(-timeutils.SlotDuration), v: delta * 12.0})
		prevValue = value
	}

	return grid
}

// interpolateCumulative returns the linearly interpolated cumulative-energy value at t, clamping
// to the first or last sample outside the series' range.
func interpolateCumulative(t time.Time, samples []providers.LoadHistorySample) float64 {
	if t.Before(samples[0].LastChanged) || t.Equal(samples[0].LastChanged) {
		return samples[0].StateKwh
	}
	last := samples[len(samples)-1]
	if !t.Before(last.LastChanged) {
		return last.StateKwh
	}

	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i], samples[i+1]
		if t.Before(a.LastChanged) || t.After(b.LastChanged) {
			continue
		}
		span := b.LastChanged.Sub(a.LastChanged)
		if span <= 0 {
			return a.StateKwh
		}
		frac := float64(t.Sub(a.LastChanged)) / float64(span)
		return a.StateKwh + frac*(b.StateKwh-a.StateKwh)
	}
	return last.StateKwh
}

// bucketKey buckets by (weekday, hour, 5-minute-of-hour), matching spec.md §4.3 step 6.
type bucket struct {
	weekday time.Weekday
	hour    int
	minute5 int
}

func bucketKey(t time.Time) bucket {
	return bucket{weekday: t.Weekday(), hour: t.Hour(), minute5: t.Minute() / 5}
}

func bucketAverages(grid []timedValue) map[bucket]float64 {
	sums := make(map[bucket]float64)
	counts := make(map[bucket]int)
	for _, tv := range grid {
		k := bucketKey(tv.t)
		sums[k] += tv.v
		counts[k]++
	}
	out := make(map[bucket]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

func meanOf(grid []timedValue) float64 {
	if len(grid) == 0 {
		return 0
	}
	sum := 0.0
	for _, tv := range grid {
		sum += tv.v
	}
	return sum / float64(len(grid))
}

// flatFallback is the degraded forecast used when there isn't enough history: a single flat mean
// kW value applied to every slot (spec.md §4.3 "Failure"). With fewer than two valid samples
// there is nothing to derive a rate from, so it falls back further to 0.
func flatFallback(valid []providers.LoadHistorySample) float64 {
	if len(valid) < 2 {
		return 0
	}
	span := valid[len(valid)-1].LastChanged.Sub(valid[0].LastChanged)
	if span <= 0 {
		return 0
	}
	totalDelta := valid[len(valid)-1].StateKwh - valid[0].StateKwh
	if totalDelta < 0 {
		// can't tell how many resets occurred across so few points; better to report 0 than a
		// negative mean load.
		return 0
	}
	return totalDelta / span.Hours()
}

// applyTempAndCap applies the optional temperature sensitivity adjustment slot-by-slot and clamps
// to [0, MaxLoadKw] (spec.md §4.3 step 7). If flatValue >= 0 every slot is first overwritten with
// that flat value, used by the degraded-forecast path.
func applyTempAndCap(forecast *[timeutils.SlotsPerDay]float64, flatValue float64, alignedStart time.Time, weather []providers.WeatherPoint, opts Options) {
	for i := 0; i < timeutils.SlotsPerDay; i++ {
		kw := forecast[i]
		if flatValue >= 0 {
			kw = flatValue
		}

		slotMid := alignedStart.Add(time.Duration(i)*timeutils.SlotDuration + timeutils.SlotDuration/2)
		temp := nearestTemp(slotMid, weather)
		if temp > opts.HighThreshold {
			kw += (temp - opts.HighThreshold) * opts.HighSensitivity
		} else if temp < opts.LowThreshold {
			kw += (opts.LowThreshold - temp) * opts.LowSensitivity
		}

		if kw < 0 {
			kw = 0
		}
		if opts.MaxLoadKw > 0 && kw > opts.MaxLoadKw {
			kw = opts.MaxLoadKw
		}
		forecast[i] = kw
	}
}

// nearestTemp returns the weather point closest in time to t, or 20C (a standard mild default)
// if no forecast is available, matching the original integration's naive nearest lookup.
func nearestTemp(t time.Time, weather []providers.WeatherPoint) float64 {
	if len(weather) == 0 {
		return 20.0
	}
	best := weather[0]
	bestDiff := t.Sub(best.Time)
	if bestDiff < 0 {
		bestDiff = -bestDiff
	}
	for _, w := range weather[1:] {
		diff := t.Sub(w.Time)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best = w
			bestDiff = diff
		}
	}
	return best.TemperatureC
}
