package dp

import "errors"

// ErrCancelled is returned by Solve when ctx is cancelled or its deadline is exceeded before the
// recursion completes. The async dispatcher (C8) is responsible for turning a deadline-exceeded
// cancellation into spec.md §7's SolveTimeout after 30 seconds.
var ErrCancelled = errors.New("solve cancelled")

var errPolicyRecoveryMiss = errors.New("dp: policy recovery visited a state the recursion never memoized")
