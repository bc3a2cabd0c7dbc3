package subagents

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the process-wide table of sub-agent task state. It is the single
// source of truth for status, output, and captured plan suggestions, and the
// only mutable structure shared between the scheduler, runners, and pollers.
// One runner is the sole writer for its own record; the Store serializes all
// access so pollers always observe a consistent snapshot.
type Store struct {
	mu         sync.RWMutex
	records    map[string]*record
	order      []string // ids in creation order
	maxHistory int      // 0 = unbounded
	now        func() time.Time
}

// NewStore creates an empty store. maxHistory bounds the number of retained
// records; 0 means unbounded. Non-terminal records are never evicted
// regardless of the bound.
func NewStore(maxHistory int) *Store {
	return &Store{
		records:    make(map[string]*record),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// allocate inserts a new Pending record and returns its id. cancel is the
// runner's cooperative cancellation trigger, retained so Cancel and Close can
// signal it.
func (s *Store) allocate(template, task string, cancel context.CancelFunc) string {
	id := generateID(PrefixTask)

	s.mu.Lock()
	defer s.mu.Unlock()

	r := &record{
		id:        id,
		template:  template,
		task:      task,
		title:     titleFromTask(task, template),
		status:    StatusPending,
		cost:      decimal.Zero,
		createdAt: s.now(),
		cancel:    cancel,
	}
	s.records[id] = r
	s.order = append(s.order, id)
	s.evictLocked()
	return id
}

// Snapshot returns a deep copy of the record, or ErrTaskNotFound.
func (s *Store) Snapshot(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return r.snapshot(), nil
}

// Summaries returns every retained record in creation order.
func (s *Store) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].summary())
	}
	return out
}

// ActiveCount returns the number of records in a non-terminal state.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if !r.status.Terminal() {
			n++
		}
	}
	return n
}

// markRunning moves a Pending record to Running. A record already cancelled
// (or otherwise terminal) stays put; the return value tells the runner
// whether to proceed.
func (s *Store) markRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.status != StatusPending {
		return false
	}
	r.status = StatusRunning
	return true
}

// complete transitions to Completed with the final output. No-op when the
// record is already terminal (a cancel that raced past the runner wins).
func (s *Store) complete(id, output string) {
	s.finish(id, StatusCompleted, func(r *record) { r.output = output })
}

// fail transitions to Failed with the execution error message.
func (s *Store) fail(id, errMsg string) {
	s.finish(id, StatusFailed, func(r *record) { r.errMsg = errMsg })
}

// markCancelled transitions to Cancelled, discarding any partial output.
func (s *Store) markCancelled(id string) {
	s.finish(id, StatusCancelled, func(r *record) {
		r.output = ""
		r.errMsg = ""
	})
}

func (s *Store) finish(id string, status Status, apply func(*record)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.status.Terminal() {
		return
	}
	r.status = status
	r.finishedAt = s.now()
	apply(r)
	s.evictLocked()
}

// requestCancel signals cooperative cancellation and transitions the record
// to Cancelled. Returns ErrTaskNotFound for unknown ids; already-terminal
// records are a successful no-op.
func (s *Store) requestCancel(id string) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if r.status.Terminal() {
		s.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.status = StatusCancelled
	r.output = ""
	r.errMsg = ""
	r.finishedAt = s.now()
	s.evictLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// cancelAll signals every non-terminal record. Used on scheduler teardown.
func (s *Store) cancelAll() {
	s.mu.Lock()
	var cancels []context.CancelFunc
	for _, r := range s.records {
		if !r.status.Terminal() {
			r.status = StatusCancelled
			r.output = ""
			r.errMsg = ""
			r.finishedAt = s.now()
			if r.cancel != nil {
				cancels = append(cancels, r.cancel)
			}
		}
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// appendSuggestion appends a plan suggestion iff the record is non-terminal.
// Late suggestions arriving after a terminal transition are dropped silently.
func (s *Store) appendSuggestion(id string, sg PlanSuggestion) {
	s.mutateLive(id, func(r *record) {
		r.suggestions = append(r.suggestions, sg)
	})
}

// appendMessage folds an assistant message into the transcript tail.
func (s *Store) appendMessage(id, msg string) {
	s.mutateLive(id, func(r *record) {
		r.appendTranscript(msg)
	})
}

// bumpToolUse increments the tool counter and records the latest activity.
func (s *Store) bumpToolUse(id string, activity Activity) {
	s.mutateLive(id, func(r *record) {
		r.toolUses++
		r.lastActivity = &activity
	})
}

// addUsage accumulates token and cost totals.
func (s *Store) addUsage(id string, tokens int64, cost decimal.Decimal) {
	s.mutateLive(id, func(r *record) {
		r.totalTokens += tokens
		r.cost = r.cost.Add(cost)
	})
}

// appendWarnings records non-fatal issues (e.g. unknown skill presets).
func (s *Store) appendWarnings(id string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	s.mutateLive(id, func(r *record) {
		r.warnings = append(r.warnings, warnings...)
	})
}

// mutateLive applies fn under the lock when the record exists and is
// non-terminal. Mutations racing past a terminal transition are dropped.
func (s *Store) mutateLive(id string, fn func(*record)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.status.Terminal() {
		return
	}
	fn(r)
}

// evictLocked drops the oldest terminal records beyond maxHistory. Callers
// hold s.mu.
func (s *Store) evictLocked() {
	if s.maxHistory <= 0 || len(s.order) <= s.maxHistory {
		return
	}
	excess := len(s.order) - s.maxHistory
	kept := s.order[:0]
	for _, id := range s.order {
		r := s.records[id]
		if excess > 0 && r.status.Terminal() {
			delete(s.records, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Fingerprint hashes the observable list state. Callers refreshing a UI can
// skip redraws when the fingerprint has not changed.
func (s *Store) Fingerprint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := fnv.New64a()
	for _, id := range s.order {
		r := s.records[id]
		fmt.Fprintf(h, "%s|%s|%s|%s|%d|%d|", r.id, r.template, r.title, r.status, r.toolUses, r.totalTokens)
		if r.lastActivity != nil {
			fmt.Fprintf(h, "%s:%s|", r.lastActivity.Kind, r.lastActivity.Label)
		}
		for _, line := range r.transcript {
			fmt.Fprintf(h, "%s|", line)
		}
	}
	return h.Sum64()
}
