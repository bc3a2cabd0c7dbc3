// Package config handles settings, template-document discovery, and skill
// preset loading for the sub-agent orchestrator.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds merged sub-agent configuration from multiple sources.
// Later sources override earlier ones (user < project).
type Settings struct {
	// Enabled gates the whole subsystem. Defaults to true.
	Enabled *bool `json:"enabled,omitempty"`

	// MaxRunning caps simultaneously active sub-agents. 0 keeps the default.
	MaxRunning int `json:"maxRunning,omitempty"`

	// MaxHistory bounds retained task records. 0 keeps the default.
	MaxHistory int `json:"maxHistory,omitempty"`

	// DefaultModel overrides the model for templates that do not set one.
	DefaultModel string `json:"defaultModel,omitempty"`

	// AgentDocs adds extra glob patterns for template-document discovery.
	AgentDocs []string `json:"agentDocs,omitempty"`

	// SkillDirs adds directories searched for skill presets.
	SkillDirs []string `json:"skillDirs,omitempty"`
}

// SubsystemEnabled resolves the feature gate, defaulting to enabled.
func (s *Settings) SubsystemEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadSettings merges settings from multiple JSON file paths. Later paths
// override earlier ones. Missing or unparsable files are silently skipped.
func LoadSettings(paths ...string) (*Settings, error) {
	merged := &Settings{}

	for _, path := range paths {
		s, err := loadSettingsFile(path)
		if err != nil {
			continue
		}
		mergeSettings(merged, s)
	}

	return merged, nil
}

// DefaultSettingsPaths returns the standard settings file search paths,
// user-level first so project-level values win the merge.
func DefaultSettingsPaths(projectDir string) []string {
	home, _ := os.UserHomeDir()
	var paths []string

	if home != "" {
		paths = append(paths, filepath.Join(home, ".claude", "subagents.json"))
	}
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".claude", "subagents.json"))
	}

	return paths
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func mergeSettings(dst, src *Settings) {
	if src.Enabled != nil {
		dst.Enabled = src.Enabled
	}
	if src.MaxRunning != 0 {
		dst.MaxRunning = src.MaxRunning
	}
	if src.MaxHistory != 0 {
		dst.MaxHistory = src.MaxHistory
	}
	if src.DefaultModel != "" {
		dst.DefaultModel = src.DefaultModel
	}
	dst.AgentDocs = append(dst.AgentDocs, src.AgentDocs...)
	dst.SkillDirs = append(dst.SkillDirs, src.SkillDirs...)
}
