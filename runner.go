package subagents

import (
	"context"
	"fmt"
)

// runTask drives a single sub-agent to completion against the executor,
// streaming progress into the store. It runs detached from the spawning
// caller; nothing here is ever surfaced as a synchronous error.
//
// Cancellation is cooperative: the context is checked before issuing Start
// and around every Next call, the only true suspension points. On observing
// cancellation the runner stops issuing execution steps and leaves the
// record Cancelled, discarding partial output.
func runTask(ctx context.Context, exec Executor, store *Store, collector *Collector, id string, req ExecRequest) {
	if ctx.Err() != nil {
		store.markCancelled(id)
		return
	}

	if !store.markRunning(id) {
		// Cancelled before meaningful work started.
		return
	}

	execution, err := exec.Start(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			store.markCancelled(id)
			return
		}
		store.fail(id, fmt.Sprintf("failed to start sub-agent: %s", err.Error()))
		return
	}
	defer execution.Close()

	for {
		if ctx.Err() != nil {
			store.markCancelled(id)
			return
		}

		event, err := execution.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				store.markCancelled(id)
				return
			}
			store.fail(id, fmt.Sprintf("sub-agent execution failed: %s", err.Error()))
			return
		}

		if ctx.Err() != nil {
			store.markCancelled(id)
			return
		}

		switch e := event.(type) {
		case *MessageEvent:
			store.appendMessage(id, e.Text)
		case *PlanEvent:
			collector.Record(id, e.Suggestion)
		case *ActivityEvent:
			store.bumpToolUse(id, e.Activity)
		case *UsageEvent:
			store.addUsage(id, e.Tokens, e.Cost)
		case *DoneEvent:
			store.complete(id, e.Output)
			return
		}
	}
}
