package subagents

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
)

// Skill is a resolved skill preset: reusable context injected into a
// sub-agent when a template references it by name.
type Skill struct {
	Name    string
	Content string
}

// ExecRequest carries everything an Executor needs to run one sub-agent
// task. Instructions and Skills come from the resolved template; Model is
// already defaulted by the scheduler.
type ExecRequest struct {
	TaskID       string
	Instructions string
	Skills       []Skill
	Model        anthropic.Model
	Task         string
}

// Executor is the task-execution capability the orchestrator delegates to.
// Production code uses AnthropicExecutor; tests inject fakes.
type Executor interface {
	// Start begins executing the request and returns a handle for consuming
	// its events. Start must not block on the task's completion.
	Start(ctx context.Context, req ExecRequest) (Execution, error)
}

// Execution is one in-flight sub-agent run. Next is the runner's only
// suspension point: it blocks until the task emits its next event, the
// context is cancelled, or the run fails.
type Execution interface {
	// Next returns the next event, or a non-nil error when execution cannot
	// continue. A DoneEvent is always the final event of a successful run.
	Next(ctx context.Context) (Event, error)

	// Close releases resources. Safe to call after Next returned an error.
	Close()
}

// EventKind identifies the kind of event produced by an Execution.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventPlan     EventKind = "plan"
	EventActivity EventKind = "activity"
	EventUsage    EventKind = "usage"
	EventDone     EventKind = "done"
)

// Event is implemented by all execution events.
type Event interface {
	Kind() EventKind
}

// MessageEvent carries an assistant message emitted mid-run.
type MessageEvent struct {
	Text string
}

func (e *MessageEvent) Kind() EventKind { return EventMessage }

// PlanEvent carries a plan suggestion emitted by the sub-agent.
type PlanEvent struct {
	Suggestion PlanSuggestion
}

func (e *PlanEvent) Kind() EventKind { return EventPlan }

// ActivityEvent reports a tool action the sub-agent started.
type ActivityEvent struct {
	Activity Activity
}

func (e *ActivityEvent) Kind() EventKind { return EventActivity }

// UsageEvent reports incremental token consumption and its cost.
type UsageEvent struct {
	Tokens int64
	Cost   decimal.Decimal
}

func (e *UsageEvent) Kind() EventKind { return EventUsage }

// DoneEvent is the terminal event of a successful run.
type DoneEvent struct {
	Output string
}

func (e *DoneEvent) Kind() EventKind { return EventDone }
