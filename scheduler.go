package subagents

import (
	"context"
	"fmt"
	"sync"
)

// Scheduler owns task id allocation, concurrency admission, and the
// spawn/poll/cancel/list lifecycle exposed to the tool-dispatch boundary.
// It never blocks on a running sub-agent: Spawn detaches a runner goroutine
// and Poll/Cancel/List only touch shared store state.
type Scheduler struct {
	exec      Executor
	templates map[string]*Template
	store     *Store
	collector *Collector
	opts      schedulerOptions
	skills    map[string]Skill

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Scheduler over the resolved template set. The template map is
// typically the output of Resolve; a nil map falls back to the built-ins.
func New(exec Executor, templates map[string]*Template, opts ...Option) *Scheduler {
	if templates == nil {
		templates = BuiltinTemplates()
	}
	o := resolveOptions(opts)

	maxHistory := o.maxHistory
	if maxHistory < 0 {
		maxHistory = 0 // unbounded
	}
	store := NewStore(maxHistory)

	skills := make(map[string]Skill, len(o.skills))
	for _, sk := range o.skills {
		skills[sk.Name] = sk
	}

	return &Scheduler{
		exec:      exec,
		templates: templates,
		store:     store,
		collector: NewCollector(store),
		opts:      o,
		skills:    skills,
	}
}

// Enabled reports whether the subsystem is active. When false, Spawn fails
// and the tool surface should not be advertised.
func (s *Scheduler) Enabled() bool { return !s.opts.disabled }

// Templates returns the resolved template set.
func (s *Scheduler) Templates() map[string]*Template { return s.templates }

// Store exposes the task record store, mainly for UI fingerprinting.
func (s *Scheduler) Store() *Store { return s.store }

// Spawn starts a sub-agent from the named template and returns its task id
// without waiting for any execution progress. Synchronous failures:
// ErrFeatureDisabled, ErrUnknownTemplate, ErrAdmissionRejected,
// ErrSchedulerClosed. Failures after this returns are recorded on the task
// and observed via Poll.
func (s *Scheduler) Spawn(ctx context.Context, templateName, task string) (string, error) {
	if s.opts.disabled {
		return "", ErrFeatureDisabled
	}

	tpl, ok := s.templates[templateName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateName)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSchedulerClosed
	}
	if s.opts.maxRunning > 0 && s.store.ActiveCount() >= s.opts.maxRunning {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %d active", ErrAdmissionRejected, s.opts.maxRunning)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := s.store.allocate(tpl.Name, task, cancel)

	req, warnings := s.buildRequest(id, tpl, task)
	s.store.appendWarnings(id, warnings)

	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		runTask(runCtx, s.exec, s.store, s.collector, id, req)
	}()

	return id, nil
}

// Poll returns the latest known state of the task: status, output or error
// when terminal, and every plan suggestion accumulated so far. It never
// blocks waiting for completion.
func (s *Scheduler) Poll(taskID string) (Snapshot, error) {
	return s.store.Snapshot(taskID)
}

// Cancel signals cooperative cancellation. Cancelling an already-terminal
// task is a successful no-op; unknown ids fail with ErrTaskNotFound.
func (s *Scheduler) Cancel(taskID string) error {
	return s.store.requestCancel(taskID)
}

// List returns summaries of every retained task in creation order.
func (s *Scheduler) List() []Summary {
	return s.store.Summaries()
}

// Fingerprint hashes the observable list state so callers can suppress
// redundant UI refreshes.
func (s *Scheduler) Fingerprint() uint64 {
	return s.store.Fingerprint()
}

// Close cancels every non-terminal task and waits for their runners to
// acknowledge. Subsequent Spawn calls fail with ErrSchedulerClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.store.cancelAll()
	s.wg.Wait()
}

// buildRequest resolves the template's execution parameters. Unknown skill
// presets become warnings on the record, not failures.
func (s *Scheduler) buildRequest(id string, tpl *Template, task string) (ExecRequest, []string) {
	req := ExecRequest{
		TaskID:       id,
		Instructions: tpl.Instructions,
		Model:        tpl.Model,
		Task:         task,
	}
	if req.Model == "" {
		req.Model = s.opts.defaultModel
	}

	var warnings []string
	for _, name := range tpl.Skills {
		sk, ok := s.skills[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown skill preset: %s", name))
			continue
		}
		req.Skills = append(req.Skills, sk)
	}
	return req, warnings
}
