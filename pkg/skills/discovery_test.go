package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

func writeSkill(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
	return dir
}

func TestLoadSkills(t *testing.T) {
	root := t.TempDir()

	gitContent := `---
name: git-analyzer
description: Summarise recent git history
---

# Git Analyzer

Run git log and summarise.
`
	gitDir := writeSkill(t, root, "git-analyzer", gitContent)
	writeSkill(t, root, "csv", "Parse CSV files with awk.\n")

	skills, err := Load(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, skills, 2)

	git := skills["git-analyzer"]
	require.NotNil(t, git)
	assert.Equal(t, "git-analyzer", git.Name)
	assert.Equal(t, gitContent, git.Instructions)
	assert.Equal(t, "Summarise recent git history", git.Description)
	assert.Equal(t, gitDir, git.Directory)
	assert.Equal(t, filepath.Join(gitDir, "SKILL.md"), git.Path)

	csv := skills["csv"]
	require.NotNil(t, csv)
	assert.Equal(t, "Parse CSV files with awk.\n", csv.Instructions)
	assert.Empty(t, csv.Description)
}

func TestLoadSkipsDirectoriesWithoutSkillFile(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "real", "instructions")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty", "README.md"), []byte("not a skill"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "loose.md"), []byte("file at root"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir-named", "SKILL.md"), 0o755))

	skills, err := Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, SortedNames(skills))
}

func TestLoadIgnoresNestedSkills(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "group"), "nested", "nested instructions")

	skills, err := Load(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestLoadMissingRoot(t *testing.T) {
	skills, err := Load(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepositoryNotFound))
	assert.NotNil(t, skills)
	assert.Empty(t, skills)
	assert.False(t, IsWarning(err))
}

func TestLoadRootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "skills")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Load(context.Background(), file)
	assert.True(t, errors.Is(err, ErrRepositoryNotFound))
}

func TestLoadEmptyRoot(t *testing.T) {
	skills, err := Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestLoadUnreadableSkillIsWarning(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "good", "fine")
	writeSkill(t, root, "broken", string([]byte{0xff, 0xfe, 0xfd}))

	skills, err := Load(context.Background(), root)
	require.Error(t, err)
	assert.True(t, IsWarning(err))
	assert.Equal(t, []string{"good"}, SortedNames(skills))

	warnings := Warnings(err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "broken", warnings[0].Name)
	assert.Contains(t, warnings[0].Error(), "could not read skill 'broken'")
}

func TestLoadPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	dir := writeSkill(t, root, "locked", "secret")
	require.NoError(t, os.Chmod(filepath.Join(dir, "SKILL.md"), 0o000))

	skills, err := Load(context.Background(), root)
	assert.True(t, IsWarning(err))
	assert.Empty(t, skills)
}

func TestLoadIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "a", "alpha")
	writeSkill(t, root, "b", "beta")

	first, err := Load(context.Background(), root)
	require.NoError(t, err)
	second, err := Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadFollowsSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "skills")
	require.NoError(t, os.MkdirAll(root, 0o755))

	actual := writeSkill(t, filepath.Join(tmpDir, "elsewhere"), "linked", "linked instructions")
	require.NoError(t, os.Symlink(actual, filepath.Join(root, "linked")))
	require.NoError(t, os.Symlink("/non/existent/path", filepath.Join(root, "broken")))

	skills, err := Load(context.Background(), root)
	require.NoError(t, err)
	require.Contains(t, skills, "linked")
	assert.Equal(t, "linked instructions", skills["linked"].Instructions)
	assert.Len(t, skills, 1)
}

func TestLoaderAllowlist(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "git-analyzer", "git")
	writeSkill(t, root, "git-blame", "blame")
	writeSkill(t, root, "csv", "csv")

	loader, err := NewLoader(root, WithAllowlist("git-*"))
	require.NoError(t, err)

	skills, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"git-analyzer", "git-blame"}, SortedNames(skills))
}

func TestLoaderInvalidPattern(t *testing.T) {
	_, err := NewLoader(t.TempDir(), WithAllowlist("[unclosed"))
	assert.Error(t, err)
}

func TestNewLoaderDefaultRoot(t *testing.T) {
	loader, err := NewLoader("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoot, loader.Root())
}

func TestInitialize(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "good", "fine")
	writeSkill(t, root, "broken", string([]byte{0xc3, 0x28}))

	config := llmtypes.Config{SkillsDir: root}
	skills, err := Initialize(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, SortedNames(skills))

	config.SkillsDir = filepath.Join(root, "missing")
	_, err = Initialize(context.Background(), config)
	assert.True(t, errors.Is(err, ErrRepositoryNotFound))
}

func TestInstructions(t *testing.T) {
	skills := map[string]*Skill{
		"a": {Name: "a", Instructions: "alpha"},
		"b": {Name: "b", Instructions: "beta"},
	}
	assert.Equal(t, map[string]string{"a": "alpha", "b": "beta"}, Instructions(skills))
}
