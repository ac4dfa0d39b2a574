package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/embervolt/hbc/block"
	"github.com/embervolt/hbc/config"
)

func flatBlocks(n int) []block.Block {
	blocks := make([]block.Block, n)
	for i := range blocks {
		blocks[i] = block.Block{BlockIndex: i, DurationH: 1.0, ImportRateC: 10, ExportRateC: 4, BalanceKwh: 0.5}
	}
	return blocks
}

func TestDispatcherDeliversResult(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	tick := NewTick(time.Now())
	d.Submit(tick, 50, flatBlocks(4), config.DefaultBatteryParameters())

	select {
	case result := <-d.Results:
		if result.Tick.ID != tick.ID {
			t.Fatalf("got result for tick %v, expected %v", result.Tick.ID, tick.ID)
		}
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if len(result.Policy) != 5 {
			t.Errorf("expected a 5-element policy, got %d", len(result.Policy))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dispatch result")
	}
}

func TestDispatcherSingleFlightDiscardsStaleSubmit(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	staleTick := NewTick(time.Now())
	freshTick := NewTick(time.Now().Add(5 * time.Minute))

	// Both submits happen before the worker starts, so the stale request is overwritten in
	// d.latest and the worker only ever sees the fresh one.
	d.Submit(staleTick, 50, flatBlocks(4), config.DefaultBatteryParameters())
	d.Submit(freshTick, 55, flatBlocks(4), config.DefaultBatteryParameters())

	go d.Run(ctx)

	seenFresh := false
	deadline := time.After(2 * time.Second)
	for !seenFresh {
		select {
		case result := <-d.Results:
			if result.Tick.ID == freshTick.ID {
				seenFresh = true
			}
			if result.Tick.ID == staleTick.ID {
				t.Fatalf("supervisor must discard a stale tick's result; got one for %v", staleTick.ID)
			}
		case <-deadline:
			t.Fatal("timed out waiting for the fresh tick's result")
		}
	}
}

func TestDispatcherRespectsContextCancellationBeforeRun(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Run(ctx) // returns immediately since ctx is already done

	select {
	case <-d.Results:
		t.Fatal("expected no result when Run exits before any work starts")
	default:
	}
}
