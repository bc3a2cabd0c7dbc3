package subagents

import "errors"

// Sentinel errors returned by Scheduler operations. Failures that happen
// after Spawn has returned are never surfaced as errors to the caller; they
// are recorded on the task and observed via Poll.
var (
	ErrUnknownTemplate   = errors.New("subagents: unknown template")
	ErrAdmissionRejected = errors.New("subagents: concurrency limit reached")
	ErrTaskNotFound      = errors.New("subagents: task not found")
	ErrFeatureDisabled   = errors.New("subagents: sub-agents are disabled")
	ErrSchedulerClosed   = errors.New("subagents: scheduler closed")
)
