package tariff

import (
	"context"
	"sort"
	"time"

	"github.com/embervolt/hbc/providers"
	"github.com/embervolt/hbc/timeutils"
)

// scheduleLookback/scheduleLookahead bound how far around `now` a StaticSchedule expands its
// recurring clock-time rate windows — wide enough that whatever alignedStart the caller derives
// from now (at most one slot away) still falls inside the returned interval series.
const (
	scheduleLookback  = 24 * time.Hour
	scheduleLookahead = 48 * time.Hour
)

// Rate pairs a recurring clock-time window with the per-kWh rate that applies during it.
type Rate struct {
	Period      timeutils.DayedPeriod
	PerKwhCents float64
}

// StaticSchedule is a TariffProvider backed by a fixed weekly clock-time schedule instead of a live
// feed — the fallback this core falls back to when no tariff endpoint is configured
// (SPEC_FULL.md §4.10). Grounded on the teacher's ClockTime/ClockTimePeriod/DayedPeriod helpers,
// which the teacher itself carries but never wires into an actual rate schedule.
type StaticSchedule struct {
	defaultPerKwhCents float64
	rates              []Rate
	location           *time.Location
}

// NewStaticSchedule builds a StaticSchedule. defaultPerKwhCents applies outside every configured
// rate window; location anchors the day boundaries the schedule is expanded against.
func NewStaticSchedule(defaultPerKwhCents float64, location *time.Location, rates ...Rate) *StaticSchedule {
	if location == nil {
		location = time.UTC
	}
	return &StaticSchedule{defaultPerKwhCents: defaultPerKwhCents, rates: rates, location: location}
}

// Forecast expands the configured schedule into a non-overlapping interval series covering the
// window around now.
func (s *StaticSchedule) Forecast(ctx context.Context, now time.Time) ([]providers.TariffInterval, error) {
	windowStart := now.Add(-scheduleLookback).In(s.location)
	windowEnd := now.Add(scheduleLookahead).In(s.location)

	var intervals []providers.TariffInterval
	for day := dayStart(windowStart); day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
		intervals = append(intervals, s.expandDay(day)...)
	}
	return intervals, nil
}

// CurrentRate returns the per-kWh rate in effect at t, matching spec.md §6's current_price scalar
// for a core running off a static schedule rather than a live tariff feed.
func (s *StaticSchedule) CurrentRate(t time.Time) float64 {
	t = t.In(s.location)
	for _, r := range s.rates {
		if r.Period.Contains(t) {
			return r.PerKwhCents
		}
	}
	return s.defaultPerKwhCents
}

func dayStart(t time.Time) time.Time {
	year, month, d := t.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, t.Location())
}

type clockWindow struct {
	start, end  time.Time
	perKwhCents float64
}

// expandDay partitions one calendar day into non-overlapping intervals: it collects every boundary
// instant of the day's configured rate windows, then gives the segment between each consecutive
// pair of boundaries the rate of the window covering its midpoint, or the default rate if none does.
func (s *StaticSchedule) expandDay(day time.Time) []providers.TariffInterval {
	dayEnd := day.AddDate(0, 0, 1)

	var active []clockWindow
	for _, r := range s.rates {
		if !r.Period.IsOnDay(day.Add(12 * time.Hour)) {
			continue
		}
		active = append(active, clockWindow{
			start:       r.Period.Start.OnDate(day.Date()),
			end:         r.Period.End.OnDate(day.Date()),
			perKwhCents: r.PerKwhCents,
		})
	}

	boundaries := []time.Time{day, dayEnd}
	for _, w := range active {
		boundaries = append(boundaries, w.start, w.end)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].Before(boundaries[j]) })

	var intervals []providers.TariffInterval
	for i := 0; i+1 < len(boundaries); i++ {
		segStart, segEnd := boundaries[i], boundaries[i+1]
		if !segStart.Before(segEnd) {
			continue
		}

		mid := segStart.Add(segEnd.Sub(segStart) / 2)
		rate := s.defaultPerKwhCents
		for _, w := range active {
			if !mid.Before(w.start) && mid.Before(w.end) {
				rate = w.perKwhCents
				break
			}
		}

		intervals = append(intervals, providers.TariffInterval{PeriodStart: segStart, PeriodEnd: segEnd, PerKwhCents: rate})
	}
	return intervals
}
