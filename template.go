package subagents

import "github.com/anthropics/anthropic-sdk-go"

// Template is a named, reusable sub-agent configuration. Templates are
// immutable once resolved for a session.
type Template struct {
	// Name is the unique key used to reference this template in Spawn.
	Name string

	// Instructions is additional guidance prepended to the task prompt.
	Instructions string

	// Skills lists skill-preset names injected into the sub-agent's context.
	Skills []string

	// Model overrides the scheduler's default model. Empty means inherit.
	Model anthropic.Model
}

// clone returns a deep copy so resolved templates stay immutable even if a
// caller mutates the returned map's values' slices.
func (t *Template) clone() *Template {
	c := *t
	if t.Skills != nil {
		c.Skills = make([]string, len(t.Skills))
		copy(c.Skills, t.Skills)
	}
	return &c
}

// BuiltinTemplates returns the compiled-in template set. Repository documents
// may redefine entries by name but never remove them.
func BuiltinTemplates() map[string]*Template {
	out := make(map[string]*Template, len(builtinTemplates))
	for _, t := range builtinTemplates {
		out[t.Name] = t.clone()
	}
	return out
}

var builtinTemplates = []*Template{
	{
		Name:         "inspect",
		Instructions: "Explore and understand the codebase by reading files and summarizing findings. Prefer commands that only read (e.g., git diff, rg/grep, ls, cat/sed). Do not make edits.",
	},
	{
		Name:         "implement",
		Instructions: "Make focused code changes with minimal diff. Apply repository conventions, run the smallest relevant tests/formatters, and report what changed and why.",
	},
	{
		Name:         "tests",
		Instructions: "Run the smallest set of tests to validate the change. Prefer fast, scoped commands (e.g., a single package or a single test). Report commands run and failures clearly.",
	},
	{
		Name:         "refactor",
		Instructions: "Refactor with minimal diff and keep behavior unchanged. Prefer mechanical transformations and keep names/structure consistent with the file.",
	},
	{
		Name:         "docs",
		Instructions: "Update documentation to match the code changes. Keep docs concise and verify any commands/paths mentioned.",
	},
}
