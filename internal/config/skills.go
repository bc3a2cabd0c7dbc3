package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Skill represents a loaded skill preset file.
type Skill struct {
	Name    string // Derived from filename (without extension)
	Content string // Raw markdown content
}

// LoadSkills reads all .md files from the given directories and returns them
// as skill presets that templates can reference by name. Later directories
// override earlier ones on name collisions.
func LoadSkills(dirs ...string) ([]Skill, error) {
	byName := make(map[string]int)
	var skills []Skill

	for _, dir := range dirs {
		dirSkills, err := loadSkillsFromDir(dir)
		if err != nil {
			continue // Skip missing directories
		}
		for _, sk := range dirSkills {
			if i, ok := byName[sk.Name]; ok {
				skills[i] = sk
				continue
			}
			byName[sk.Name] = len(skills)
			skills = append(skills, sk)
		}
	}

	return skills, nil
}

func loadSkillsFromDir(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var skills []Skill
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		skills = append(skills, Skill{
			Name:    strings.TrimSuffix(entry.Name(), ".md"),
			Content: string(content),
		})
	}

	return skills, nil
}

// DefaultSkillDirs returns the standard skill preset search paths.
func DefaultSkillDirs(projectDir string) []string {
	home, _ := os.UserHomeDir()
	var dirs []string

	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".claude", "skills"))
	}
	if projectDir != "" {
		dirs = append(dirs, filepath.Join(projectDir, ".claude", "skills"))
	}

	return dirs
}
