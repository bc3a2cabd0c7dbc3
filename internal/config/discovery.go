package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// AgentDocName is the conventional file name for template-definition
// documents.
const AgentDocName = "AGENTS.md"

// DiscoverAgentDocs returns the paths of template-definition documents for a
// project, broad-to-narrow: the root document first, then nested ones in
// deterministic (sorted, depth-ascending) order, then any extra globs from
// settings. Missing files and unreadable directories are skipped.
func DiscoverAgentDocs(projectDir string, extraGlobs ...string) []string {
	var docs []string
	seen := make(map[string]bool)

	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		seen[path] = true
		docs = append(docs, path)
	}

	if projectDir != "" {
		add(filepath.Join(projectDir, AgentDocName))
		for _, match := range globDocs(projectDir, "**/"+AgentDocName) {
			add(match)
		}
	}

	for _, pattern := range extraGlobs {
		base := projectDir
		if filepath.IsAbs(pattern) {
			base, pattern = filepath.Dir(pattern), filepath.Base(pattern)
		}
		for _, match := range globDocs(base, pattern) {
			add(match)
		}
	}

	return docs
}

// globDocs matches pattern against the directory tree rooted at base and
// returns absolute paths ordered shallow-first, then lexically.
func globDocs(base, pattern string) []string {
	fsys := os.DirFS(base)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		di, dj := pathDepth(matches[i]), pathDepth(matches[j])
		if di != dj {
			return di < dj
		}
		return matches[i] < matches[j]
	})

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(base, filepath.FromSlash(m)))
	}
	return out
}

func pathDepth(p string) int {
	depth := 0
	for _, c := range p {
		if c == '/' {
			depth++
		}
	}
	return depth
}

// ReadDocs loads the given document paths, skipping unreadable files.
func ReadDocs(paths []string) []DocFile {
	var out []DocFile
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out = append(out, DocFile{Path: path, Content: string(data)})
	}
	return out
}

// DocFile is one discovered document with its content loaded.
type DocFile struct {
	Path    string
	Content string
}
