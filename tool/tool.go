// Package tool is the dispatch boundary between an agent's model loop and
// the orchestrator: a generic typed tool interface plus a concurrent-safe
// registry keyed by name.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/armatrix/claude-subagents-go/internal/schema"
)

// Tool is the generic interface for agent tools. The type parameter T defines
// the input struct that will be automatically deserialized from JSON.
type Tool[T any] interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input T) (*Result, error)
}

// Result is the output of a tool execution.
type Result struct {
	Content []anthropic.ContentBlockParamUnion
	IsError bool
}

// TextResult is a convenience constructor for a text-only tool result.
func TextResult(text string) *Result {
	return &Result{
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(text),
		},
	}
}

// ErrorResult is a convenience constructor for an error tool result.
func ErrorResult(text string) *Result {
	return &Result{
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(text),
		},
		IsError: true,
	}
}

// entry is the type-erased wrapper stored in the registry.
type entry struct {
	name        string
	description string
	schema      anthropic.ToolInputSchemaParam
	execute     func(ctx context.Context, raw json.RawMessage) (*Result, error)
}

// Registry manages registered tools. It is concurrent-safe and preserves
// registration order in ListForAPI.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
	order []string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*entry),
	}
}

// Register registers a generic tool into the registry. The input type T is
// used to auto-generate a JSON Schema.
func Register[T any](r *Registry, tool Tool[T]) {
	s := schema.Generate[T]()
	e := &entry{
		name:        tool.Name(),
		description: tool.Description(),
		schema:      s,
		execute: func(ctx context.Context, raw json.RawMessage) (*Result, error) {
			var input T
			if err := json.Unmarshal(raw, &input); err != nil {
				return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error())), nil
			}
			return tool.Execute(ctx, input)
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[e.name]; !exists {
		r.order = append(r.order, e.name)
	}
	r.tools[e.name] = e
}

// Execute runs a tool by name with the given raw JSON input.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (*Result, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return e.execute(ctx, input)
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the names of all registered tools in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ListForAPI returns the registered tools in the format expected by the
// Anthropic API.
func (r *Registry) ListForAPI() []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]anthropic.ToolUnionParam, 0, len(r.tools))
	for _, name := range r.order {
		e := r.tools[name]
		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        e.name,
				Description: param.NewOpt(e.description),
				InputSchema: e.schema,
			},
		})
	}
	return result
}
