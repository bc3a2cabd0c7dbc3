package subagents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/armatrix/claude-subagents-go/internal/pricing"
	"github.com/armatrix/claude-subagents-go/internal/schema"
	"github.com/armatrix/claude-subagents-go/tool"
)

// MessageStreamer abstracts the Anthropic Messages API so the executor can be
// tested with a mock. Production code passes the real client.Messages.
type MessageStreamer interface {
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

// messageServiceAdapter wraps the real anthropic.MessageService to implement MessageStreamer.
type messageServiceAdapter struct {
	svc *anthropic.MessageService
}

func (a *messageServiceAdapter) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	return a.svc.NewStreaming(ctx, params)
}

// AnthropicExecutor runs sub-agent tasks against the Anthropic Messages API.
// Each execution is a tool-use loop: template instructions and skill presets
// form the system prompt, the task text is the opening user message, and an
// update_plan tool lets the sub-agent propose plan edits that surface as
// PlanEvents rather than executing anything.
type AnthropicExecutor struct {
	streamer  MessageStreamer
	tools     *tool.Registry // nil means the sub-agent gets only update_plan
	maxTokens int
	maxTurns  int
}

// ExecutorOption configures an AnthropicExecutor.
type ExecutorOption func(*AnthropicExecutor)

// WithTools gives sub-agents access to the tools in the registry.
func WithTools(registry *tool.Registry) ExecutorOption {
	return func(e *AnthropicExecutor) { e.tools = registry }
}

// WithMaxOutputTokens sets the per-response output token cap.
func WithMaxOutputTokens(n int) ExecutorOption {
	return func(e *AnthropicExecutor) { e.maxTokens = n }
}

// WithMaxTurns caps the executor's tool-use loop. 0 means unlimited.
func WithMaxTurns(n int) ExecutorOption {
	return func(e *AnthropicExecutor) { e.maxTurns = n }
}

// DefaultMaxOutputTokens is the default per-response output token cap.
const DefaultMaxOutputTokens = 16_384

// NewAnthropicExecutor creates an executor over the given message service.
func NewAnthropicExecutor(svc *anthropic.MessageService, opts ...ExecutorOption) *AnthropicExecutor {
	return newAnthropicExecutor(&messageServiceAdapter{svc: svc}, opts...)
}

// newAnthropicExecutor is the streamer-injectable constructor used by tests.
func newAnthropicExecutor(streamer MessageStreamer, opts ...ExecutorOption) *AnthropicExecutor {
	e := &AnthropicExecutor{
		streamer:  streamer,
		maxTokens: DefaultMaxOutputTokens,
	}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

var _ Executor = (*AnthropicExecutor)(nil)

// Start begins the tool-use loop in a background goroutine and returns an
// Execution whose Next yields the loop's events.
func (e *AnthropicExecutor) Start(ctx context.Context, req ExecRequest) (Execution, error) {
	loopCtx, cancel := context.WithCancel(ctx)
	run := &anthropicExecution{
		ch:     make(chan execItem),
		cancel: cancel,
	}
	go e.loop(loopCtx, req, run)
	return run, nil
}

// execItem carries either an event or a terminal error over the execution channel.
type execItem struct {
	event Event
	err   error
}

type anthropicExecution struct {
	ch     chan execItem
	cancel context.CancelFunc
}

func (x *anthropicExecution) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item, ok := <-x.ch:
		if !ok {
			return nil, fmt.Errorf("execution finished")
		}
		return item.event, item.err
	}
}

func (x *anthropicExecution) Close() {
	x.cancel()
}

// emit delivers an item unless the loop context is gone. Returns false when
// the consumer stopped listening.
func (x *anthropicExecution) emit(ctx context.Context, item execItem) bool {
	select {
	case x.ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *AnthropicExecutor) loop(ctx context.Context, req ExecRequest, run *anthropicExecution) {
	defer close(run.ch)

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Task)),
	}
	toolParams := e.toolParams()
	system := systemPrompt(req)
	turns := 0

	for {
		params := anthropic.MessageNewParams{
			Model:     req.Model,
			MaxTokens: int64(e.maxTokens),
			Messages:  messages,
			Tools:     toolParams,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		stream := e.streamer.NewStreaming(ctx, params)
		msg := anthropic.Message{}
		for stream.Next() {
			if err := msg.Accumulate(stream.Current()); err != nil {
				stream.Close()
				run.emit(ctx, execItem{err: fmt.Errorf("accumulate error: %w", err)})
				return
			}
		}
		if err := stream.Err(); err != nil {
			stream.Close()
			run.emit(ctx, execItem{err: fmt.Errorf("stream error: %w", err)})
			return
		}
		stream.Close()

		usage := pricing.Usage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
		}
		if !run.emit(ctx, execItem{event: &UsageEvent{
			Tokens: usage.Total(),
			Cost:   pricing.CostFor(req.Model, usage),
		}}) {
			return
		}

		var finalText string
		for _, block := range msg.Content {
			if block.Type == "text" && block.Text != "" {
				finalText = block.Text
				if !run.emit(ctx, execItem{event: &MessageEvent{Text: block.Text}}) {
					return
				}
			}
		}

		messages = append(messages, msg.ToParam())

		switch msg.StopReason {
		case anthropic.StopReasonToolUse:
			results, stop := e.processToolUse(ctx, run, msg.Content)
			if stop {
				return
			}
			messages = append(messages, anthropic.NewUserMessage(results...))

		case anthropic.StopReasonMaxTokens:
			run.emit(ctx, execItem{err: fmt.Errorf("max_tokens reached")})
			return

		default:
			// end_turn and anything unknown both terminate the run.
			run.emit(ctx, execItem{event: &DoneEvent{Output: finalText}})
			return
		}

		turns++
		if e.maxTurns > 0 && turns >= e.maxTurns {
			run.emit(ctx, execItem{err: fmt.Errorf("max turns reached")})
			return
		}
	}
}

// processToolUse handles each tool_use block: update_plan calls become
// PlanEvents, everything else is dispatched through the registry with an
// ActivityEvent. Returns stop=true when the consumer went away.
func (e *AnthropicExecutor) processToolUse(ctx context.Context, run *anthropicExecution, content []anthropic.ContentBlockUnion) (results []anthropic.ContentBlockParamUnion, stop bool) {
	for _, block := range content {
		if block.Type != "tool_use" {
			continue
		}
		toolUse := block.AsToolUse()
		raw := json.RawMessage(toolUse.Input)

		if toolUse.Name == planToolName {
			var input updatePlanInput
			if err := json.Unmarshal(raw, &input); err != nil {
				results = append(results, anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("invalid plan: %s", err.Error()), true))
				continue
			}
			if !run.emit(ctx, execItem{event: &PlanEvent{Suggestion: input.toSuggestion()}}) {
				return nil, true
			}
			results = append(results, anthropic.NewToolResultBlock(toolUse.ID, "Plan suggestion recorded for review", false))
			continue
		}

		if !run.emit(ctx, execItem{event: &ActivityEvent{Activity: Activity{
			Kind:  activityKindFor(toolUse.Name),
			Label: activityLabel(toolUse.Name, raw),
		}}}) {
			return nil, true
		}

		if e.tools == nil || !e.tools.Has(toolUse.Name) {
			results = append(results, anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("tool not available: %s", toolUse.Name), true))
			continue
		}

		res, err := e.tools.Execute(ctx, toolUse.Name, raw)
		if err != nil {
			results = append(results, anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("error: %s", err.Error()), true))
			continue
		}
		results = append(results, anthropic.NewToolResultBlock(toolUse.ID, resultText(res), res.IsError))
	}
	return results, false
}

// toolParams lists update_plan plus the registry's tools.
func (e *AnthropicExecutor) toolParams() []anthropic.ToolUnionParam {
	params := []anthropic.ToolUnionParam{{
		OfTool: &anthropic.ToolParam{
			Name:        planToolName,
			Description: param.NewOpt("Propose an update to the shared task plan; the primary agent reviews it before applying"),
			InputSchema: schema.Generate[updatePlanInput](),
		},
	}}
	if e.tools != nil {
		params = append(params, e.tools.ListForAPI()...)
	}
	return params
}

const planToolName = "update_plan"

// updatePlanInput is the wire shape of the update_plan tool.
type updatePlanInput struct {
	Explanation string          `json:"explanation,omitempty" jsonschema:"description=Why the plan is changing"`
	Plan        []planStepInput `json:"plan" jsonschema:"required,description=The complete updated plan"`
}

type planStepInput struct {
	Step   string `json:"step" jsonschema:"required,description=Step description"`
	Status string `json:"status" jsonschema:"required,description=pending|in_progress|completed"`
}

func (in updatePlanInput) toSuggestion() PlanSuggestion {
	sg := PlanSuggestion{Explanation: in.Explanation}
	for _, step := range in.Plan {
		sg.Plan = append(sg.Plan, PlanStep{Step: step.Step, Status: step.Status})
	}
	return sg
}

// systemPrompt joins template instructions with resolved skill presets.
func systemPrompt(req ExecRequest) string {
	out := req.Instructions
	if len(req.Skills) == 0 {
		return out
	}
	if out != "" {
		out += "\n\n"
	}
	out += "# Available Skills\n"
	for _, sk := range req.Skills {
		out += "\n## " + sk.Name + "\n\n" + sk.Content + "\n"
	}
	return out
}

// activityKindFor maps conventional tool names onto activity kinds.
func activityKindFor(toolName string) ActivityKind {
	switch toolName {
	case "Bash":
		return ActivityBash
	case "Read":
		return ActivityRead
	case "Write", "Edit":
		return ActivityEdit
	case "Glob":
		return ActivityGlob
	case "Grep":
		return ActivityGrep
	default:
		return ActivityTool
	}
}

// activityLabel extracts a short human-readable label from the tool input,
// falling back to the tool name.
func activityLabel(toolName string, raw json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		for _, key := range []string{"command", "file_path", "path", "pattern", "query"} {
			if v, ok := fields[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return toolName
}

// resultText flattens a tool result's text blocks into one string.
func resultText(res *tool.Result) string {
	var out string
	for _, block := range res.Content {
		if block.OfText != nil {
			if out != "" {
				out += "\n"
			}
			out += block.OfText.Text
		}
	}
	return out
}
