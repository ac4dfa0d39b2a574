// Package dispatch implements the Async Dispatcher (spec.md §4.8, component C8): running the DP
// solve on a worker so it never blocks the supervisory loop, single-flighting solves so a newer
// tick cancels and discards an older one in flight, and enforcing the 30-second SolveTimeout.
// Grounded on the teacher's Controller.Run ticker/select loop (controller/controller.go),
// generalized from a single synchronous control loop to a ticker feeding a cancellable worker.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/embervolt/hbc/block"
	"github.com/embervolt/hbc/config"
	"github.com/embervolt/hbc/dp"
)

// SolveTimeout is spec.md §5's 30-second solve budget.
const SolveTimeout = 30 * time.Second

// ErrSolveTimeout is spec.md §7's SolveTimeout: the solver exceeded its budget and was cancelled.
var ErrSolveTimeout = errors.New("dispatch: solve exceeded 30s budget")

// Tick identifies one invocation of the pipeline, used to label results so the supervisor can
// discard any that don't match its latest-submitted tick (spec.md §5's ordering rule).
type Tick struct {
	ID        uuid.UUID
	StartedAt time.Time
}

// NewTick mints a Tick stamped with startedAt.
func NewTick(startedAt time.Time) Tick {
	return Tick{ID: uuid.New(), StartedAt: startedAt}
}

// Result is delivered on Dispatcher.Results once a submitted solve finishes, is cancelled, or
// times out. Blocks and Params echo back the request that produced Policy, so a consumer can
// feed all three straight into the Action Mapper (C7) without keeping its own side-table keyed
// on Tick.ID.
type Result struct {
	Tick   Tick
	Policy []float64
	CostC  float64
	Blocks []block.Block
	Params config.BatteryParameters
	Err    error
}

type request struct {
	tick          Tick
	initialSoCPct float64
	blocks        []block.Block
	params        config.BatteryParameters
}

// Dispatcher runs at most one solve at a time on a single worker, matching spec.md §5's
// "one worker is enough — a solve is short". Submit is safe to call repeatedly from the
// supervisor's scheduling thread; it never blocks on the worker.
type Dispatcher struct {
	Results chan Result

	wake chan struct{}

	mu     sync.Mutex
	latest *request
	cancel context.CancelFunc
}

// New constructs a Dispatcher. Run must be started in its own goroutine for results to be
// produced.
func New() *Dispatcher {
	return &Dispatcher{
		Results: make(chan Result, 4),
		wake:    make(chan struct{}, 1),
	}
}

// Submit schedules a new solve for tick, cancelling whatever solve is currently running. The
// supervisor never awaits on this call; it returns as soon as the request is queued
// (spec.md §5: "the supervisor issues solves cooperatively... never awaits on the pool from
// within a locked section").
func (d *Dispatcher) Submit(tick Tick, initialSoCPct float64, blocks []block.Block, params config.BatteryParameters) {
	d.mu.Lock()
	d.latest = &request{tick: tick, initialSoCPct: initialSoCPct, blocks: blocks, params: params}
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drives the single worker until ctx is done. It must be started exactly once.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			req := d.takeLatest()
			if req == nil {
				continue
			}
			d.solve(ctx, *req)
		}
	}
}

func (d *Dispatcher) takeLatest() *request {
	d.mu.Lock()
	defer d.mu.Unlock()
	req := d.latest
	d.latest = nil
	return req
}

func (d *Dispatcher) solve(parent context.Context, req request) {
	solveCtx, cancel := context.WithTimeout(parent, SolveTimeout)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	policy, cost, err := dp.Solve(solveCtx, req.initialSoCPct, req.blocks, req.params)

	if err != nil && errors.Is(solveCtx.Err(), context.DeadlineExceeded) {
		err = ErrSolveTimeout
		slog.Warn("dp solve exceeded budget", "tick", req.tick.ID, "timeout", SolveTimeout)
	}

	result := Result{Tick: req.tick, Policy: policy, CostC: cost, Blocks: req.blocks, Params: req.params, Err: err}

	select {
	case d.Results <- result:
	default:
		slog.Warn("dropping dispatch result, Results channel full", "tick", req.tick.ID)
	}
}
