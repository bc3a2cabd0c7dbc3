package subagents

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"gopkg.in/yaml.v3"
)

// TemplateFence is the info string of fenced code blocks that declare
// sub-agent templates inside a project document.
const TemplateFence = "subagents"

// Document is one template-definition source. Path is used only to attribute
// warnings; Content is the raw document text.
type Document struct {
	Path    string
	Content string
}

// templateEntry is the YAML shape of one declared template.
type templateEntry struct {
	Name         string   `yaml:"name"`
	Instructions string   `yaml:"instructions"`
	Skills       []string `yaml:"skills"`
	Model        string   `yaml:"model"`
}

// templateBlock is the YAML shape of one fenced block body.
type templateBlock struct {
	Agents []templateEntry `yaml:"agents"`
}

// Resolve merges the built-in templates with documents applied in caller
// order, overwriting existing entries by name. Malformed blocks or nameless
// entries are skipped with a warning; they never abort resolution of the
// rest. The returned warnings are empty when every document parsed cleanly.
func Resolve(docs []Document) (map[string]*Template, []string) {
	templates := BuiltinTemplates()
	var warnings []string

	for _, doc := range docs {
		for i, block := range extractFencedBlocks(doc.Content, TemplateFence) {
			var parsed templateBlock
			if err := yaml.Unmarshal([]byte(block), &parsed); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: skipping malformed %s block %d: %v", doc.Path, TemplateFence, i+1, err))
				continue
			}
			for _, entry := range parsed.Agents {
				if strings.TrimSpace(entry.Name) == "" {
					warnings = append(warnings, fmt.Sprintf("%s: skipping template entry with no name", doc.Path))
					continue
				}
				templates[entry.Name] = entry.toTemplate()
			}
		}
	}

	return templates, warnings
}

func (e templateEntry) toTemplate() *Template {
	t := &Template{
		Name:         e.Name,
		Instructions: e.Instructions,
	}
	if len(e.Skills) > 0 {
		t.Skills = append([]string(nil), e.Skills...)
	}
	if e.Model != "" {
		t.Model = anthropic.Model(e.Model)
	}
	return t
}

// extractFencedBlocks returns the bodies of every ```fence ... ``` block in
// contents, in document order. Unterminated blocks are dropped.
func extractFencedBlocks(contents, fence string) []string {
	var blocks []string
	var buf strings.Builder
	opener := "```" + fence
	inBlock := false

	for _, line := range strings.Split(contents, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if !inBlock {
			if strings.TrimSpace(trimmed) == opener {
				inBlock = true
				buf.Reset()
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			inBlock = false
			if strings.TrimSpace(buf.String()) != "" {
				blocks = append(blocks, buf.String())
			}
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return blocks
}
