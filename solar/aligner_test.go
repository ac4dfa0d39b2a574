package solar

import (
	"math"
	"testing"
	"time"

	"github.com/embervolt/hbc/providers"
)

func TestAlignUniformAttribution(t *testing.T) {
	start := mustParseTime("2024-01-01T00:00:00Z")
	estimates := []providers.PVEstimate{
		{PeriodEnd: start.Add(30 * time.Minute), EnergyKwh: 1.2},
	}

	kw := Align(estimates, start)

	for i := 0; i < 6; i++ {
		if !almostEqual(kw[i], 2.4) {
			t.Errorf("slot %d: got %v kW, expected 2.4 kW (1.2 kWh / 0.5h)", i, kw[i])
		}
	}
	for i := 6; i < len(kw); i++ {
		if kw[i] != 0 {
			t.Errorf("slot %d: got %v kW, expected 0 outside the estimated window", i, kw[i])
		}
	}
}

func TestAlignMissingWindowIsZero(t *testing.T) {
	start := mustParseTime("2024-01-01T00:00:00Z")
	estimates := []providers.PVEstimate{
		{PeriodEnd: start.Add(30 * time.Minute), EnergyKwh: 1.0},
		{PeriodEnd: start.Add(24 * time.Hour), EnergyKwh: 0.5},
	}

	kw := Align(estimates, start)

	for i := 6; i < len(kw)-6; i++ {
		if kw[i] != 0 {
			t.Errorf("slot %d: expected 0 kW in the unestimated gap, got %v", i, kw[i])
		}
	}
}

func TestRecomposeRoundTrip(t *testing.T) {
	start := mustParseTime("2024-01-01T00:00:00Z")
	estimates := []providers.PVEstimate{
		{PeriodEnd: start.Add(30 * time.Minute), EnergyKwh: 0.8},
		{PeriodEnd: start.Add(60 * time.Minute), EnergyKwh: 1.5},
		{PeriodEnd: start.Add(90 * time.Minute), EnergyKwh: 0.0},
	}

	kw := Align(estimates, start)
	energy := Recompose(kw)

	if !almostEqual(energy[0], 0.8) {
		t.Errorf("window 0: got %v kWh, expected 0.8", energy[0])
	}
	if !almostEqual(energy[1], 1.5) {
		t.Errorf("window 1: got %v kWh, expected 1.5", energy[1])
	}
	if !almostEqual(energy[2], 0.0) {
		t.Errorf("window 2: got %v kWh, expected 0.0", energy[2])
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustParseTime(str string) time.Time {
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		panic(err)
	}
	return parsed
}
