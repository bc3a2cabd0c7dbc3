package subagents

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a sub-agent task.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Terminal reports whether the status is absorbing. Terminal records never
// change status again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// PlanStep is one entry of a proposed plan.
type PlanStep struct {
	Step   string `json:"step"`
	Status string `json:"status"` // pending|in_progress|completed
}

// PlanSuggestion is a proposed edit to the shared task plan emitted by a
// sub-agent. Suggestions require explicit confirmation by the primary agent
// before being applied; the scheduler only accumulates them.
type PlanSuggestion struct {
	Explanation string     `json:"explanation,omitempty"`
	Plan        []PlanStep `json:"plan"`
}

// ActivityKind classifies the last tool action a sub-agent performed.
type ActivityKind string

const (
	ActivityBash ActivityKind = "bash"
	ActivityRead ActivityKind = "read"
	ActivityEdit ActivityKind = "edit"
	ActivityGlob ActivityKind = "glob"
	ActivityGrep ActivityKind = "grep"
	ActivityTool ActivityKind = "tool"
	ActivityPlan ActivityKind = "plan"
)

// Activity describes the most recent externally-visible action of a task.
type Activity struct {
	Kind  ActivityKind `json:"kind"`
	Label string       `json:"label"`
}

// Transcript tail bounds. Older lines are dropped once the tail is full.
const (
	transcriptMaxLines     = 30
	transcriptMaxLineBytes = 300
)

// record is the store-owned state of one task. The owning runner is the sole
// writer after creation; every read goes through a deep-copied Snapshot.
type record struct {
	id          string
	template    string
	task        string
	title       string
	status      Status
	output      string
	errMsg      string
	suggestions []PlanSuggestion
	warnings    []string

	toolUses     int
	lastActivity *Activity
	totalTokens  int64
	cost         decimal.Decimal

	transcript          []string
	transcriptTruncated bool

	createdAt  time.Time
	finishedAt time.Time

	cancel context.CancelFunc
}

// Snapshot is a consistent read-only copy of a task record.
type Snapshot struct {
	ID           string
	Template     string
	Task         string
	Title        string
	Status       Status
	Output       string
	Error        string
	Suggestions  []PlanSuggestion
	Warnings     []string
	ToolUses     int
	LastActivity *Activity
	TotalTokens  int64
	Cost         decimal.Decimal
	Transcript   []string
	Truncated    bool
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// Summary is the compact per-task view returned by List.
type Summary struct {
	ID           string
	Template     string
	Title        string
	Status       Status
	ToolUses     int
	TotalTokens  int64
	LastActivity *Activity
	CreatedAt    time.Time
}

func (r *record) snapshot() Snapshot {
	s := Snapshot{
		ID:          r.id,
		Template:    r.template,
		Task:        r.task,
		Title:       r.title,
		Status:      r.status,
		Output:      r.output,
		Error:       r.errMsg,
		ToolUses:    r.toolUses,
		TotalTokens: r.totalTokens,
		Cost:        r.cost,
		Truncated:   r.transcriptTruncated,
		CreatedAt:   r.createdAt,
		FinishedAt:  r.finishedAt,
	}
	if len(r.suggestions) > 0 {
		s.Suggestions = append([]PlanSuggestion(nil), r.suggestions...)
	}
	if len(r.warnings) > 0 {
		s.Warnings = append([]string(nil), r.warnings...)
	}
	if len(r.transcript) > 0 {
		s.Transcript = append([]string(nil), r.transcript...)
	}
	if r.lastActivity != nil {
		a := *r.lastActivity
		s.LastActivity = &a
	}
	return s
}

func (r *record) summary() Summary {
	s := Summary{
		ID:          r.id,
		Template:    r.template,
		Title:       r.title,
		Status:      r.status,
		ToolUses:    r.toolUses,
		TotalTokens: r.totalTokens,
		CreatedAt:   r.createdAt,
	}
	if r.lastActivity != nil {
		a := *r.lastActivity
		s.LastActivity = &a
	}
	return s
}

// appendTranscript folds a message into the bounded transcript tail, clipping
// each line at a rune boundary.
func (r *record) appendTranscript(msg string) {
	for _, rawLine := range strings.Split(msg, "\n") {
		line := strings.TrimRight(rawLine, " \t\r")
		if line == "" {
			continue
		}
		clipped := clipAtRuneBoundary(line, transcriptMaxLineBytes)
		if len(clipped) < len(line) {
			clipped += "…"
		}
		r.transcript = append(r.transcript, clipped)
		for len(r.transcript) > transcriptMaxLines {
			r.transcript = r.transcript[1:]
			r.transcriptTruncated = true
		}
	}
}

// clipAtRuneBoundary returns the longest prefix of s that fits in max bytes
// without splitting a rune.
func clipAtRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// titleFromTask derives a display title: the first non-empty line of the task
// text, or fallback when the task is blank.
func titleFromTask(task, fallback string) string {
	for _, line := range strings.Split(task, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return fallback
}
