package load

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/timeutils"
)

func TestPredictInsufficientHistoryFallsBack(t *testing.T) {
	start := mustParseTime("2024-01-08T00:00:00Z")
	samples := []providers.LoadHistorySample{
		{EntityID: "sensor.house_energy", StateKwh: 100.0, LastChanged: start.Add(-2 * time.Hour)},
		{EntityID: "sensor.house_energy", StateKwh: 101.0, LastChanged: start},
	}

	forecast, err := Predict(samples, start, nil, DefaultOptions())
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	for i, kw := range forecast {
		if kw < 0 {
			t.Fatalf("slot %d: negative forecast %v", i, kw)
		}
	}
}

func TestPredictMidnightResetRepair(t *testing.T) {
	// Five days of a perfectly flat 1kWh-per-slot cumulative meter that resets to 0 at each
	// midnight. The repaired delta at the reset boundary must equal the prior slot's delta,
	// never 0 (P7).
	start := mustParseTime("2024-01-06T00:00:00Z")
	var samples []providers.LoadHistorySample
	cumulative := 0.0
	for d := 0; d < 5; d++ {
		dayStart := start.Add(-time.Duration(5-d) * 24 * time.Hour)
		cumulative = 0
		for slot := 0; slot < timeutils.SlotsPerDay; slot++ {
			samples = append(samples, providers.LoadHistorySample{
				EntityID:    "sensor.house_energy",
				StateKwh:    cumulative,
				LastChanged: dayStart.Add(time.Duration(slot) * timeutils.SlotDuration),
			})
			cumulative += 1.0
		}
	}

	grid := buildDeltaGrid(validSamples(samples))
	if len(grid) == 0 {
		t.Fatalf("expected a non-empty delta grid")
	}

	for i, tv := range grid {
		if tv.v < 0 {
			t.Fatalf("slot %d: negative repaired delta %v kW (reset not bridged)", i, tv.v)
		}
		if !almostEqual(tv.v, 12.0) {
			t.Fatalf("slot %d: got %v kW, expected 12 kW (the prior slot's 1 kWh delta, never 0)", i, tv.v)
		}
	}
}

func TestPredictBucketingProducesStableForecast(t *testing.T) {
	start := mustParseTime("2024-01-06T00:00:00Z")
	var samples []providers.LoadHistorySample
	for d := 0; d < 5; d++ {
		dayStart := start.Add(-time.Duration(5-d) * 24 * time.Hour)
		cumulative := 0.0
		for slot := 0; slot < timeutils.SlotsPerDay; slot++ {
			samples = append(samples, providers.LoadHistorySample{
				EntityID:    "sensor.house_energy",
				StateKwh:    cumulative,
				LastChanged: dayStart.Add(time.Duration(slot) * timeutils.SlotDuration),
			})
			cumulative += 0.1
		}
	}

	forecast, err := Predict(samples, start, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, kw := range forecast {
		if !almostEqual(kw, 1.2) {
			t.Errorf("slot %d: got %v kW, expected ~1.2 kW (0.1 kWh * 12)", i, kw)
		}
	}
}

func TestPredictTemperatureSensitivity(t *testing.T) {
	start := mustParseTime("2024-01-06T00:00:00Z")
	var samples []providers.LoadHistorySample
	for d := 0; d < 5; d++ {
		dayStart := start.Add(-time.Duration(5-d) * 24 * time.Hour)
		cumulative := 0.0
		for slot := 0; slot < timeutils.SlotsPerDay; slot++ {
			samples = append(samples, providers.LoadHistorySample{
				EntityID:    "sensor.house_energy",
				StateKwh:    cumulative,
				LastChanged: dayStart.Add(time.Duration(slot) * timeutils.SlotDuration),
			})
			cumulative += 0.1
		}
	}

	opts := DefaultOptions()
	opts.LowSensitivity = 0.1
	opts.LowThreshold = 15.0
	weather := []providers.WeatherPoint{
		{Time: start, TemperatureC: 5.0}, // 10 degrees below threshold
	}

	forecast, err := Predict(samples, start, weather, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := 1.2 + 10*0.1
	if !almostEqual(forecast[0], expected) {
		t.Errorf("slot 0: got %v kW, expected %v kW after cold-weather adjustment", forecast[0], expected)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func mustParseTime(str string) time.Time {
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		panic(err)
	}
	return parsed
}
