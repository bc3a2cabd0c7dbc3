package subagents

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/armatrix/claude-subagents-go/internal/config"
)

// NewFromProject wires a Scheduler from on-disk configuration: merged
// settings (user < project), AGENTS.md template documents discovered
// broad-to-narrow, and skill presets. The returned warnings report skipped
// template blocks; they never abort construction.
func NewFromProject(exec Executor, projectDir string, opts ...Option) (*Scheduler, []string, error) {
	settings, err := config.LoadSettings(config.DefaultSettingsPaths(projectDir)...)
	if err != nil {
		return nil, nil, err
	}

	paths := config.DiscoverAgentDocs(projectDir, settings.AgentDocs...)
	docs := make([]Document, 0, len(paths))
	for _, f := range config.ReadDocs(paths) {
		docs = append(docs, Document{Path: f.Path, Content: f.Content})
	}

	templates, warnings := Resolve(docs)

	skillDirs := append(config.DefaultSkillDirs(projectDir), settings.SkillDirs...)
	loaded, err := config.LoadSkills(skillDirs...)
	if err != nil {
		return nil, nil, err
	}
	skills := make([]Skill, 0, len(loaded))
	for _, sk := range loaded {
		skills = append(skills, Skill{Name: sk.Name, Content: sk.Content})
	}

	// Settings come first so explicit options win.
	resolved := []Option{
		WithDisabled(!settings.SubsystemEnabled()),
		WithMaxRunning(settings.MaxRunning),
		WithMaxHistory(settings.MaxHistory),
		WithSkills(skills),
	}
	if settings.DefaultModel != "" {
		resolved = append(resolved, WithDefaultModel(anthropic.Model(settings.DefaultModel)))
	}
	resolved = append(resolved, opts...)

	return New(exec, templates, resolved...), warnings, nil
}
