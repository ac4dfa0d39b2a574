// Package block implements the Block Compressor (spec.md §4.5, component C5): collapsing
// contiguous forecast-matrix rows that share a price pair and net-balance sign into compressed
// blocks, the unit the DP Period Optimizer solves over. Grounded on the original integration's
// summarize_period/find_division_points (original_source/.../fsm/dp_fsm.py), generalized here to
// a standalone pass over the matrix rather than an inline method on the optimizer.
package block

import (
	"github.com/embervolt/hbc/matrix"
)

// Sign classifies a block's net balance (spec.md §3: "a slot whose net is exactly zero is
// treated as its own sign class").
type Sign int

const (
	SignNegative Sign = -1
	SignZero     Sign = 0
	SignPositive Sign = 1
)

func signOf(v float64) Sign {
	switch {
	case v < 0:
		return SignNegative
	case v > 0:
		return SignPositive
	default:
		return SignZero
	}
}

// Block is spec.md §3's Block: a compressed run of forecast-matrix rows sharing constant prices
// and a constant net-balance sign.
type Block struct {
	BlockIndex       int
	StartSlot        int
	EndSlotExclusive int
	DurationH        float64
	ImportRateC      float64
	ExportRateC      float64
	BalanceKwh       float64
	BalanceSign      Sign
}

// Compress applies the compression rule of spec.md §3 and §4.5: row i+1 joins the current block
// iff its import rate, export rate, and net-balance sign all match row i's. It guarantees every
// slot belongs to exactly one block, balance_sign is constant within a block, and block
// boundaries fall on every price-change and balance-sign-flip instant.
func Compress(m matrix.Matrix) []Block {
	var blocks []Block

	start := 0
	for i := 1; i <= len(m); i++ {
		if i < len(m) && sameClass(m[i-1], m[i]) {
			continue
		}
		blocks = append(blocks, buildBlock(m, start, i, len(blocks)))
		start = i
	}

	return blocks
}

func sameClass(a, b matrix.ForecastRow) bool {
	return a.ImportRateC == b.ImportRateC &&
		a.ExportRateC == b.ExportRateC &&
		signOf(a.LoadKw-a.PVKw) == signOf(b.LoadKw-b.PVKw)
}

func buildBlock(m matrix.Matrix, start, endExclusive, index int) Block {
	var balance float64
	for i := start; i < endExclusive; i++ {
		balance += (m[i].LoadKw - m[i].PVKw) * (5.0 / 60.0)
	}

	duration := float64(endExclusive-start) * (5.0 / 60.0)

	return Block{
		BlockIndex:       index,
		StartSlot:        start,
		EndSlotExclusive: endExclusive,
		DurationH:        duration,
		ImportRateC:      m[start].ImportRateC,
		ExportRateC:      m[start].ExportRateC,
		BalanceKwh:       balance,
		BalanceSign:      signOf(balance),
	}
}

// SlotCount is a convenience returning how many slots a block covers; used by diagnostics when
// spreading a block's cost across its slots of the 5-minute lattice.
func (b Block) SlotCount() int {
	return b.EndSlotExclusive - b.StartSlot
}
