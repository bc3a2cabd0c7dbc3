package subagents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fake executors ---

// scriptExecutor plays back a fixed event sequence for every task and records
// the requests it received. Tests inject it instead of a real model backend.
type scriptExecutor struct {
	mu       sync.Mutex
	events   []Event
	startErr error
	requests []ExecRequest
}

func newScriptExecutor(events ...Event) *scriptExecutor {
	return &scriptExecutor{events: events}
}

func (e *scriptExecutor) Start(_ context.Context, req ExecRequest) (Execution, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.startErr != nil {
		return nil, e.startErr
	}
	return &scriptExecution{events: append([]Event(nil), e.events...)}, nil
}

func (e *scriptExecutor) lastRequest() ExecRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[len(e.requests)-1]
}

type scriptExecution struct {
	events []Event
	idx    int
}

func (x *scriptExecution) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if x.idx >= len(x.events) {
		return nil, errors.New("script exhausted")
	}
	ev := x.events[x.idx]
	x.idx++
	return ev, nil
}

func (x *scriptExecution) Close() {}

// blockingExecutor parks every task inside Next until its context is
// cancelled, simulating a long-running sub-agent.
type blockingExecutor struct {
	started chan string
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{started: make(chan string, 16)}
}

func (e *blockingExecutor) Start(_ context.Context, req ExecRequest) (Execution, error) {
	return &blockingExecution{id: req.TaskID, started: e.started}, nil
}

type blockingExecution struct {
	id      string
	started chan string
	once    sync.Once
}

func (x *blockingExecution) Next(ctx context.Context) (Event, error) {
	x.once.Do(func() { x.started <- x.id })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (x *blockingExecution) Close() {}

func doneScript(output string) []Event {
	return []Event{
		&UsageEvent{Tokens: 150, Cost: decimal.NewFromFloat(0.01)},
		&MessageEvent{Text: "working on it"},
		&DoneEvent{Output: output},
	}
}

func waitStatus(t *testing.T, s *Scheduler, id string, want Status) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := s.Poll(id)
		return err == nil && snap.Status == want
	}, time.Second, 2*time.Millisecond)

	snap, err := s.Poll(id)
	require.NoError(t, err)
	return snap
}

// --- Spawn ---

func TestScheduler_SpawnAndComplete(t *testing.T) {
	s := New(newScriptExecutor(doneScript("all tests pass")...), nil)
	defer s.Close()

	id, err := s.Spawn(context.Background(), "implement", "add retry logic")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Immediately after spawn the task is Pending or Running, never blocked on.
	snap, err := s.Poll(id)
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusPending, StatusRunning}, snap.Status)

	snap = waitStatus(t, s, id, StatusCompleted)
	assert.Equal(t, "all tests pass", snap.Output)
	assert.Empty(t, snap.Error)
	assert.Equal(t, int64(150), snap.TotalTokens)
	assert.Equal(t, []string{"working on it"}, snap.Transcript)
	assert.Equal(t, "add retry logic", snap.Title)
}

func TestScheduler_SpawnUnknownTemplate(t *testing.T) {
	s := New(newScriptExecutor(), nil)
	defer s.Close()

	_, err := s.Spawn(context.Background(), "nonexistent", "do something")
	require.ErrorIs(t, err, ErrUnknownTemplate)

	// No task record may be created for a rejected spawn.
	assert.Empty(t, s.List())
}

func TestScheduler_SpawnReturnsDistinctIDs(t *testing.T) {
	s := New(newScriptExecutor(doneScript("ok")...), nil, WithMaxRunning(-1))
	defer s.Close()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := s.Spawn(context.Background(), "inspect", "look around")
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id: %s", id)
		seen[id] = true
	}
}

func TestScheduler_FeatureDisabled(t *testing.T) {
	s := New(newScriptExecutor(), nil, WithDisabled(true))
	defer s.Close()

	assert.False(t, s.Enabled())

	_, err := s.Spawn(context.Background(), "inspect", "anything")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestScheduler_AdmissionRejected(t *testing.T) {
	exec := newBlockingExecutor()
	s := New(exec, nil, WithMaxRunning(1))
	defer s.Close()

	first, err := s.Spawn(context.Background(), "inspect", "long running")
	require.NoError(t, err)
	<-exec.started

	_, err = s.Spawn(context.Background(), "inspect", "one too many")
	require.ErrorIs(t, err, ErrAdmissionRejected)

	// Finishing the first task frees the slot.
	require.NoError(t, s.Cancel(first))
	waitStatus(t, s, first, StatusCancelled)

	_, err = s.Spawn(context.Background(), "inspect", "fits now")
	assert.NoError(t, err)
}

func TestScheduler_SpawnFailureRecordedNotReturned(t *testing.T) {
	exec := newScriptExecutor()
	exec.startErr = errors.New("backend unavailable")
	s := New(exec, nil)
	defer s.Close()

	id, err := s.Spawn(context.Background(), "inspect", "doomed")
	require.NoError(t, err) // spawn already returned; failure is async

	snap := waitStatus(t, s, id, StatusFailed)
	assert.Contains(t, snap.Error, "backend unavailable")
	assert.Empty(t, snap.Output)
}

// --- Poll ---

func TestScheduler_PollUnknownID(t *testing.T) {
	s := New(newScriptExecutor(), nil)
	defer s.Close()

	_, err := s.Poll("task_unknown")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestScheduler_PollExecutionFailure(t *testing.T) {
	s := New(newScriptExecutor(&MessageEvent{Text: "partial"}), nil) // script exhausts -> failure
	defer s.Close()

	id, err := s.Spawn(context.Background(), "tests", "run them")
	require.NoError(t, err)

	snap := waitStatus(t, s, id, StatusFailed)
	assert.Contains(t, snap.Error, "script exhausted")
	assert.Empty(t, snap.Output)
}

func TestScheduler_PlanSuggestionsInEmissionOrder(t *testing.T) {
	events := []Event{
		&PlanEvent{Suggestion: PlanSuggestion{Explanation: "step one", Plan: []PlanStep{{Step: "a", Status: "pending"}}}},
		&PlanEvent{Suggestion: PlanSuggestion{Explanation: "step two"}},
		&DoneEvent{Output: "done"},
	}
	s := New(newScriptExecutor(events...), nil)
	defer s.Close()

	id, err := s.Spawn(context.Background(), "refactor", "tidy up")
	require.NoError(t, err)

	snap := waitStatus(t, s, id, StatusCompleted)
	require.Len(t, snap.Suggestions, 2)
	assert.Equal(t, "step one", snap.Suggestions[0].Explanation)
	assert.Equal(t, "step two", snap.Suggestions[1].Explanation)

	// Polling after terminal state yields an identical suggestion list.
	again, err := s.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, snap.Suggestions, again.Suggestions)
}

// --- Cancel ---

func TestScheduler_CancelRunningTask(t *testing.T) {
	exec := newBlockingExecutor()
	s := New(exec, nil)
	defer s.Close()

	id, err := s.Spawn(context.Background(), "inspect", "never finishes")
	require.NoError(t, err)
	<-exec.started

	require.NoError(t, s.Cancel(id))

	snap := waitStatus(t, s, id, StatusCancelled)
	assert.Empty(t, snap.Output)
	assert.Empty(t, snap.Error)
}

func TestScheduler_CancelBeforeRunnerStarts(t *testing.T) {
	s := New(newScriptExecutor(doneScript("too slow")...), nil)
	defer s.Close()

	ids := make([]string, 10)
	for i := range ids {
		id, err := s.Spawn(context.Background(), "inspect", "racy")
		require.NoError(t, err)
		require.NoError(t, s.Cancel(id))
		ids[i] = id
	}

	// Whatever the race outcome, a cancelled-then-polled task must end
	// Cancelled or Completed, and a Cancelled one has no output.
	for _, id := range ids {
		require.Eventually(t, func() bool {
			snap, err := s.Poll(id)
			return err == nil && snap.Status.Terminal()
		}, time.Second, 2*time.Millisecond)

		snap, err := s.Poll(id)
		require.NoError(t, err)
		if snap.Status == StatusCancelled {
			assert.Empty(t, snap.Output)
			assert.Empty(t, snap.Error)
		}
	}
}

func TestScheduler_CancelTerminalIsNoOp(t *testing.T) {
	s := New(newScriptExecutor(doneScript("finished")...), nil)
	defer s.Close()

	id, err := s.Spawn(context.Background(), "docs", "write docs")
	require.NoError(t, err)
	waitStatus(t, s, id, StatusCompleted)

	require.NoError(t, s.Cancel(id))

	snap, err := s.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "finished", snap.Output)
}

func TestScheduler_CancelUnknownID(t *testing.T) {
	s := New(newScriptExecutor(), nil)
	defer s.Close()

	assert.ErrorIs(t, s.Cancel("task_unknown"), ErrTaskNotFound)
}

// --- List ---

func TestScheduler_ListInCreationOrder(t *testing.T) {
	s := New(newScriptExecutor(doneScript("ok")...), nil, WithMaxRunning(-1))
	defer s.Close()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := s.Spawn(context.Background(), "inspect", "task")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	summaries := s.List()
	require.Len(t, summaries, 5)
	for i, summary := range summaries {
		assert.Equal(t, ids[i], summary.ID)
		assert.Equal(t, "inspect", summary.Template)
	}
}

// --- Skills & model resolution ---

func TestScheduler_ResolvesSkillsAndModel(t *testing.T) {
	templates := BuiltinTemplates()
	templates["specialist"] = &Template{
		Name:         "specialist",
		Instructions: "be specific",
		Skills:       []string{"known", "missing"},
		Model:        "claude-haiku-4-5",
	}

	exec := newScriptExecutor(doneScript("ok")...)
	s := New(exec, templates, WithSkills([]Skill{{Name: "known", Content: "how to do the thing"}}))
	defer s.Close()

	id, err := s.Spawn(context.Background(), "specialist", "use your skills")
	require.NoError(t, err)

	snap := waitStatus(t, s, id, StatusCompleted)
	require.Len(t, snap.Warnings, 1)
	assert.Contains(t, snap.Warnings[0], "unknown skill preset: missing")

	req := exec.lastRequest()
	require.Len(t, req.Skills, 1)
	assert.Equal(t, "known", req.Skills[0].Name)
	assert.Equal(t, "claude-haiku-4-5", string(req.Model))
	assert.Equal(t, "be specific", req.Instructions)
}

func TestScheduler_DefaultModelApplied(t *testing.T) {
	exec := newScriptExecutor(doneScript("ok")...)
	s := New(exec, nil, WithDefaultModel("claude-sonnet-4-5"))
	defer s.Close()

	id, err := s.Spawn(context.Background(), "inspect", "task")
	require.NoError(t, err)
	waitStatus(t, s, id, StatusCompleted)

	assert.Equal(t, "claude-sonnet-4-5", string(exec.lastRequest().Model))
}

// --- Close ---

func TestScheduler_CloseCancelsActiveTasks(t *testing.T) {
	exec := newBlockingExecutor()
	s := New(exec, nil, WithMaxRunning(-1))

	a, err := s.Spawn(context.Background(), "inspect", "one")
	require.NoError(t, err)
	b, err := s.Spawn(context.Background(), "inspect", "two")
	require.NoError(t, err)
	<-exec.started
	<-exec.started

	s.Close()

	for _, id := range []string{a, b} {
		snap, err := s.Poll(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, snap.Status)
	}

	_, err = s.Spawn(context.Background(), "inspect", "after close")
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestScheduler_FingerprintStableWhenIdle(t *testing.T) {
	s := New(newScriptExecutor(doneScript("ok")...), nil)
	defer s.Close()

	id, err := s.Spawn(context.Background(), "inspect", "task")
	require.NoError(t, err)
	waitStatus(t, s, id, StatusCompleted)

	fp := s.Fingerprint()
	assert.Equal(t, fp, s.Fingerprint())
}
