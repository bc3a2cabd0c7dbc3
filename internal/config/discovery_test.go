package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverAgentDocs_RootFirstThenNested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "root")
	writeFile(t, filepath.Join(dir, "b", "AGENTS.md"), "b")
	writeFile(t, filepath.Join(dir, "a", "deep", "AGENTS.md"), "deep")
	writeFile(t, filepath.Join(dir, "a", "AGENTS.md"), "a")

	docs := DiscoverAgentDocs(dir)

	require.Len(t, docs, 4)
	assert.Equal(t, filepath.Join(dir, "AGENTS.md"), docs[0])
	assert.Equal(t, filepath.Join(dir, "a", "AGENTS.md"), docs[1])
	assert.Equal(t, filepath.Join(dir, "b", "AGENTS.md"), docs[2])
	assert.Equal(t, filepath.Join(dir, "a", "deep", "AGENTS.md"), docs[3])
}

func TestDiscoverAgentDocs_ExtraGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "agents.extra.md"), "extra")

	docs := DiscoverAgentDocs(dir, "docs/*.extra.md")

	require.Len(t, docs, 1)
	assert.Equal(t, filepath.Join(dir, "docs", "agents.extra.md"), docs[0])
}

func TestDiscoverAgentDocs_MissingProjectDir(t *testing.T) {
	docs := DiscoverAgentDocs(filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, docs)
}

func TestDiscoverAgentDocs_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "root")

	docs := DiscoverAgentDocs(dir, "AGENTS.md", "**/AGENTS.md")

	assert.Len(t, docs, 1)
}

func TestReadDocs_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGENTS.md")
	writeFile(t, path, "content here")

	docs := ReadDocs([]string{path, filepath.Join(dir, "missing.md")})

	require.Len(t, docs, 1)
	assert.Equal(t, path, docs[0].Path)
	assert.Equal(t, "content here", docs[0].Content)
}
