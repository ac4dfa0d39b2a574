// Package dp implements the DP Period Optimizer (spec.md §4.6, component C6): the memoized
// recursive cost-minimization over the compressed block sequence that is the center of the
// dispatch decision. Grounded on the original integration's PeriodOptimizer
// (original_source/.../fsm/dp_fsm.py), generalized from its fractional-charge, efficiency-lossy,
// heuristic-candidate recursion to the spec's exact grid-quantized state space and unified
// signed step-cost formula — no charge/discharge efficiency loss, no heuristic candidate pruning.
package dp

import (
	"context"
	"math"
	"sort"

	"github.com/embervolt/hbc/block"
	"github.com/embervolt/hbc/config"
)

// epsilon bounds the floating-point tolerance used for cost-tie detection and SoC containment
// checks; it is well below the resolution of a single cent or a single percent of SoC.
const epsilon = 1e-9

// Solve runs the recursion of spec.md §4.6: cost(b, soc) = min over candidates of
// step_cost(b, soc, soc') + cost(b+1, soc'). It returns the recovered policy (length
// len(blocks)+1, policy[0] == initialSoCPct) and the total expected cost in cents.
//
// Solve is deterministic (P5): identical inputs always produce an identical policy and cost,
// because candidate enumeration is grid-ordered and tie-breaking is an explicit comparison, never
// map iteration order.
//
// ctx is checked cooperatively at every block boundary the recursion visits; a cancelled or
// expired ctx aborts the solve and returns ErrCancelled.
func Solve(ctx context.Context, initialSoCPct float64, blocks []block.Block, params config.BatteryParameters) ([]float64, float64, error) {
	if len(blocks) == 0 {
		return []float64{initialSoCPct}, 0, nil
	}

	s := &solver{
		blocks: blocks,
		params: params,
		memo:   make(map[memoKey]memoEntry),
	}

	totalCost, _, err := s.costFrom(ctx, 0, initialSoCPct)
	if err != nil {
		return nil, 0, err
	}

	policy := make([]float64, len(blocks)+1)
	policy[0] = initialSoCPct
	soc := initialSoCPct
	for b := 0; b < len(blocks); b++ {
		entry, ok := s.memo[memoKey{block: b, socKey: socKey(soc)}]
		if !ok {
			// Every state on the optimal path was visited during costFrom; this would only be
			// reached by a bug in the recursion or the memo key function.
			return nil, 0, errPolicyRecoveryMiss
		}
		soc = entry.next
		policy[b+1] = soc
	}

	return policy, totalCost, nil
}

// ClampInitialSoC enforces spec.md §7's InfeasibleInitialSoC handling: a measured SoC outside
// [soc_min, soc_max] is clamped into range rather than rejected. The bool return reports whether
// clamping occurred, so the caller can emit the warning diagnostic.
func ClampInitialSoC(measuredSoCPct float64, params config.BatteryParameters) (float64, bool) {
	if measuredSoCPct < params.SoCMinPct {
		return params.SoCMinPct, true
	}
	if measuredSoCPct > params.SoCMaxPct {
		return params.SoCMaxPct, true
	}
	return measuredSoCPct, false
}

type solver struct {
	blocks []block.Block
	params config.BatteryParameters
	memo   map[memoKey]memoEntry
}

type memoKey struct {
	block  int
	socKey int64
}

type memoEntry struct {
	cost float64
	next float64
}

// socKey quantizes a SoC percentage to a stable integer cache key at micropercent resolution, so
// floating round-off never causes a spurious cache miss or, worse, a distinct cache entry for what
// is conceptually the same state.
func socKey(socPct float64) int64 {
	return int64(math.Round(socPct * 1e6))
}

// costFrom is the memoized recursion cost(b, soc). It returns the minimal cost of the remaining
// blocks from b onward, and the chosen successor SoC for block b (used by Solve to walk the
// policy forward after the recursion settles).
func (s *solver) costFrom(ctx context.Context, b int, soc float64) (cost float64, next float64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, ErrCancelled
	}

	if b == len(s.blocks) {
		return 0, soc, nil
	}

	key := memoKey{block: b, socKey: socKey(soc)}
	if entry, ok := s.memo[key]; ok {
		return entry.cost, entry.next, nil
	}

	candidates := s.candidates(b, soc)

	bestCost := math.Inf(1)
	bestNext := soc
	for _, candidate := range candidates {
		stepCost := s.stepCost(b, soc, candidate)
		restCost, _, err := s.costFrom(ctx, b+1, candidate)
		if err != nil {
			return 0, 0, err
		}

		total := stepCost + restCost
		if preferred(total, candidate, soc, bestCost, bestNext) {
			bestCost = total
			bestNext = candidate
		}
	}

	s.memo[key] = memoEntry{cost: bestCost, next: bestNext}
	return bestCost, bestNext, nil
}

// preferred implements spec.md §4.6's tie-breaking: the lowest cost wins; among costs within
// epsilon of each other, the candidate closest to the current soc wins (least cycling); if still
// tied, the lower candidate wins (reserves headroom for future solar absorption).
func preferred(candidateCost, candidate, currentSoC, bestCost, bestCandidate float64) bool {
	if candidateCost < bestCost-epsilon {
		return true
	}
	if candidateCost > bestCost+epsilon {
		return false
	}

	candidateDistance := math.Abs(candidate - currentSoC)
	bestDistance := math.Abs(bestCandidate - currentSoC)
	if candidateDistance < bestDistance-epsilon {
		return true
	}
	if candidateDistance > bestDistance+epsilon {
		return false
	}

	return candidate < bestCandidate-epsilon
}

// candidates enumerates every quantized soc' reachable from soc within block b's charge/discharge
// power envelope, plus soc itself (idle is always a candidate — P4, and the "permit doing
// nothing" requirement of spec.md §4.6).
func (s *solver) candidates(b int, soc float64) []float64 {
	blk := s.blocks[b]

	maxChargePct := s.params.MaxChargeKw * blk.DurationH / s.params.CapacityKwh * 100
	maxDischargePct := s.params.MaxDischargeKw * blk.DurationH / s.params.CapacityKwh * 100

	lower := math.Max(s.params.SoCMinPct, soc-maxDischargePct)
	upper := math.Min(s.params.SoCMaxPct, soc+maxChargePct)

	grid := s.params.SoCGridPct
	out := make([]float64, 0, int((upper-lower)/grid)+2)

	// Enumerate grid points aligned to SoCMinPct (the state space's absolute grid, not one
	// relative to the current soc), so successive blocks converge onto the same finite set of
	// states regardless of path.
	first := math.Ceil((lower-s.params.SoCMinPct)/grid)*grid + s.params.SoCMinPct
	for v := first; v <= upper+epsilon; v += grid {
		if v >= lower-epsilon {
			out = append(out, clamp(v, s.params.SoCMinPct, s.params.SoCMaxPct))
		}
	}

	out = append(out, soc)

	sort.Float64s(out)
	return dedupe(out)
}

// stepCost is spec.md §4.6's unified signed step-cost formula: grid_kwh's sign alone selects
// which rate applies, and the multiplication itself carries the sign — a negative export_rate_c
// on export yields a positive (penalty) cost rather than a credit.
func (s *solver) stepCost(b int, soc, next float64) float64 {
	blk := s.blocks[b]
	batteryDeltaKwh := (next - soc) / 100 * s.params.CapacityKwh
	gridKwh := blk.BalanceKwh + batteryDeltaKwh
	if gridKwh >= 0 {
		return gridKwh * blk.ImportRateC
	}
	return gridKwh * blk.ExportRateC
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || math.Abs(v-sorted[i-1]) > epsilon {
			out = append(out, v)
		}
	}
	return out
}
