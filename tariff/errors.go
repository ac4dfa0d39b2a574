package tariff

import "fmt"

// GapError is spec.md §7's TariffGapError: a forecast slot has no price. Non-recoverable for the
// tick; the caller should hold the previous action rather than solve against an incomplete matrix.
type GapError struct {
	SlotIndex int
}

func (e *GapError) Error() string {
	return fmt.Sprintf("tariff gap: no interval covers slot %d", e.SlotIndex)
}
