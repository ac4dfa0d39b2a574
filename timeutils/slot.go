package timeutils

import "time"

// SlotDuration is the control tick cadence used throughout the forecast lattice (spec.md §3: 288 slots per day).
const SlotDuration = 5 * time.Minute

// SlotsPerDay is the number of 5-minute slots in a 24-hour forecast.
const SlotsPerDay = 288

// HalfHourDuration is the cadence of the PV and some tariff feeds, which must be expanded onto the 5-minute lattice.
const HalfHourDuration = 30 * time.Minute

// SlotsPerHalfHour is the number of 5-minute slots in one half-hour window (spec.md §4.2).
const SlotsPerHalfHour = 6

// FloorToSlot rounds t down to the nearest 5-minute boundary.
func FloorToSlot(t time.Time) time.Time {
	return t.Truncate(SlotDuration)
}

// FloorHH rounds t down to the nearest half-hour boundary.
func FloorHH(t time.Time) time.Time {
	minute := t.Minute()
	if minute >= 30 {
		minute = 30
	} else {
		minute = 0
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// Lattice returns the 288 consecutive 5-minute periods starting at alignedStart.
// alignedStart must already fall on a slot boundary; callers should pass FloorToSlot(now).
func Lattice(alignedStart time.Time) [SlotsPerDay]Period {
	var slots [SlotsPerDay]Period
	start := alignedStart
	for i := 0; i < SlotsPerDay; i++ {
		end := start.Add(SlotDuration)
		slots[i] = Period{Start: start, End: end}
		start = end
	}
	return slots
}

// SlotIndexAt returns the index (0..287) of the slot containing t, relative to alignedStart, and whether t
// falls within the 24-hour lattice at all.
func SlotIndexAt(alignedStart, t time.Time) (int, bool) {
	if t.Before(alignedStart) {
		return 0, false
	}
	idx := int(t.Sub(alignedStart) / SlotDuration)
	if idx >= SlotsPerDay {
		return 0, false
	}
	return idx, true
}

// HalfHourWindowIndex returns which half-hour window (0..47) a slot index belongs to, and the slot's
// position within that window (0..5) — used by solar.Recompose to sum slots back into half-hour windows.
func HalfHourWindowIndex(slotIdx int) (window, offset int) {
	return slotIdx / SlotsPerHalfHour, slotIdx % SlotsPerHalfHour
}
