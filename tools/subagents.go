// Package tools contains the tool surface exposed to the primary agent's
// model loop.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	subagents "github.com/armatrix/claude-subagents-go"
	"github.com/armatrix/claude-subagents-go/tool"
)

// SubagentsInput defines the input for the Subagents tool. A single tool
// carries the whole lifecycle; Action selects the operation.
type SubagentsInput struct {
	Action   string `json:"action" jsonschema:"required,description=One of: spawn poll cancel list"`
	Template string `json:"template,omitempty" jsonschema:"description=Template name for spawn"`
	Task     string `json:"task,omitempty" jsonschema:"description=Task description for spawn"`
	ID       string `json:"id,omitempty" jsonschema:"description=Task id for poll and cancel"`
}

// SubagentsTool exposes spawn/poll/cancel/list over a Scheduler. Every
// response body is JSON so the model can parse task ids and statuses back
// out of the transcript.
type SubagentsTool struct {
	sched *subagents.Scheduler
}

// NewSubagentsTool creates a SubagentsTool backed by the given scheduler.
func NewSubagentsTool(sched *subagents.Scheduler) *SubagentsTool {
	return &SubagentsTool{sched: sched}
}

var _ tool.Tool[SubagentsInput] = (*SubagentsTool)(nil)

func (t *SubagentsTool) Name() string { return "Subagents" }
func (t *SubagentsTool) Description() string {
	return "Spawn asynchronous sub-agents from named templates and poll, cancel, or list them without blocking"
}

func (t *SubagentsTool) Execute(ctx context.Context, input SubagentsInput) (*tool.Result, error) {
	switch input.Action {
	case "spawn":
		return t.spawn(ctx, input)
	case "poll":
		return t.poll(input)
	case "cancel":
		return t.cancel(input)
	case "list":
		return t.list()
	default:
		return tool.ErrorResult(fmt.Sprintf("unknown action: %q (expected spawn, poll, cancel, or list)", input.Action)), nil
	}
}

type spawnResponse struct {
	ID string `json:"id"`
}

type pollResponse struct {
	Status          string                     `json:"status"`
	Output          string                     `json:"output,omitempty"`
	Error           string                     `json:"error,omitempty"`
	PlanSuggestions []subagents.PlanSuggestion `json:"plan_suggestions"`
	Warnings        []string                   `json:"warnings,omitempty"`
	ToolUses        int                        `json:"tool_uses,omitempty"`
	TotalTokens     int64                      `json:"total_tokens,omitempty"`
}

type cancelResponse struct {
	Status string `json:"status"`
}

type listEntry struct {
	ID        string `json:"id"`
	Template  string `json:"template"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (t *SubagentsTool) spawn(ctx context.Context, input SubagentsInput) (*tool.Result, error) {
	if input.Template == "" {
		return tool.ErrorResult("template is required for spawn"), nil
	}
	if input.Task == "" {
		return tool.ErrorResult("task is required for spawn"), nil
	}

	id, err := t.sched.Spawn(ctx, input.Template, input.Task)
	if err != nil {
		return tool.ErrorResult(err.Error()), nil
	}
	return jsonResult(spawnResponse{ID: id})
}

func (t *SubagentsTool) poll(input SubagentsInput) (*tool.Result, error) {
	if input.ID == "" {
		return tool.ErrorResult("id is required for poll"), nil
	}

	snap, err := t.sched.Poll(input.ID)
	if err != nil {
		return tool.ErrorResult(err.Error()), nil
	}

	resp := pollResponse{
		Status:          string(snap.Status),
		Output:          snap.Output,
		Error:           snap.Error,
		PlanSuggestions: snap.Suggestions,
		Warnings:        snap.Warnings,
		ToolUses:        snap.ToolUses,
		TotalTokens:     snap.TotalTokens,
	}
	if resp.PlanSuggestions == nil {
		resp.PlanSuggestions = []subagents.PlanSuggestion{}
	}
	return jsonResult(resp)
}

func (t *SubagentsTool) cancel(input SubagentsInput) (*tool.Result, error) {
	if input.ID == "" {
		return tool.ErrorResult("id is required for cancel"), nil
	}

	if err := t.sched.Cancel(input.ID); err != nil {
		return tool.ErrorResult(err.Error()), nil
	}
	return jsonResult(cancelResponse{Status: string(subagents.StatusCancelled)})
}

func (t *SubagentsTool) list() (*tool.Result, error) {
	summaries := t.sched.List()
	entries := make([]listEntry, 0, len(summaries))
	for _, s := range summaries {
		entries = append(entries, listEntry{
			ID:        s.ID,
			Template:  s.Template,
			Title:     s.Title,
			Status:    string(s.Status),
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return jsonResult(entries)
}

func jsonResult(v any) (*tool.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return tool.ErrorResult(fmt.Sprintf("failed to encode response: %s", err.Error())), nil
	}
	return tool.TextResult(string(data)), nil
}
