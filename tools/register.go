package tools

import (
	subagents "github.com/armatrix/claude-subagents-go"
	"github.com/armatrix/claude-subagents-go/tool"
)

// Register adds the Subagents tool to the registry when the scheduler is
// enabled. A disabled scheduler is not advertised at all, so the model never
// sees the tool.
func Register(registry *tool.Registry, sched *subagents.Scheduler) {
	if !sched.Enabled() {
		return
	}
	tool.Register(registry, NewSubagentsTool(sched))
}
