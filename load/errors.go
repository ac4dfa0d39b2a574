package load

import "errors"

// ErrInsufficientHistory is spec.md §7's InsufficientHistory: fewer than 24 hours of usable
// history remain after filtering non-numeric samples. The caller should fall back to the flat
// mean forecast that Predict already returns alongside this error, not halt the pipeline.
var ErrInsufficientHistory = errors.New("insufficient load history")
