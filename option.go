package subagents

import "github.com/anthropics/anthropic-sdk-go"

// Scheduler defaults.
const (
	// DefaultMaxRunning is the default ceiling on simultaneously active
	// sub-agents. It is a policy parameter, not a hard limit of the design.
	DefaultMaxRunning = 5

	// DefaultMaxHistory bounds how many task records are retained before the
	// oldest terminal ones are evicted.
	DefaultMaxHistory = 64

	// DefaultModel is used when neither the template nor the scheduler
	// configuration overrides it.
	DefaultModel = "claude-opus-4-6"
)

// Option configures a Scheduler via the functional options pattern.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	maxRunning   int
	maxHistory   int
	disabled     bool
	defaultModel anthropic.Model
	skills       []Skill
}

func (o *schedulerOptions) applyDefaults() {
	if o.maxRunning == 0 {
		o.maxRunning = DefaultMaxRunning
	}
	if o.maxHistory == 0 {
		o.maxHistory = DefaultMaxHistory
	}
	if o.defaultModel == "" {
		o.defaultModel = DefaultModel
	}
}

func resolveOptions(opts []Option) schedulerOptions {
	var o schedulerOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// WithMaxRunning sets the admission ceiling: the maximum number of
// simultaneously active sub-agent tasks. Negative disables the ceiling.
func WithMaxRunning(n int) Option {
	return func(o *schedulerOptions) { o.maxRunning = n }
}

// WithMaxHistory sets how many task records are retained. Negative keeps an
// unbounded history.
func WithMaxHistory(n int) Option {
	return func(o *schedulerOptions) { o.maxHistory = n }
}

// WithDisabled turns the whole subsystem off: Spawn fails with
// ErrFeatureDisabled and the tool surface is not advertised.
func WithDisabled(disabled bool) Option {
	return func(o *schedulerOptions) { o.disabled = disabled }
}

// WithDefaultModel sets the model used by templates that do not override it.
func WithDefaultModel(model anthropic.Model) Option {
	return func(o *schedulerOptions) { o.defaultModel = model }
}

// WithSkills registers the skill presets templates may reference by name.
func WithSkills(skills []Skill) Option {
	return func(o *schedulerOptions) { o.skills = skills }
}
