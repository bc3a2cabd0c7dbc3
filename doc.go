// Package subagents lets a primary agent delegate bounded units of work to
// asynchronous sub-agent workers and reconcile their output later without
// blocking its own loop.
//
// The entry point is the Scheduler: Spawn starts a sub-agent from a named
// Template and returns immediately with a task id; Poll, Cancel, and List
// observe or signal running tasks without ever blocking on them. Templates
// are resolved by merging a compiled-in set with repository-declared
// overrides (see Resolve). Actual model execution sits behind the Executor
// interface; AnthropicExecutor is the production implementation, and tests
// inject fakes.
//
// The tools package exposes the whole lifecycle as a single JSON-action tool
// for registration into an agent's tool registry.
package subagents
