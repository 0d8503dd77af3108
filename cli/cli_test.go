package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPromptVersion, cfg.PromptVersion)
	assert.False(t, cfg.DryRun)
	assert.Empty(t, cfg.Protect)
	assert.False(t, cfg.IsSet("prompt-version"))
}

func TestParseArgs_Flags(t *testing.T) {
	cfg, err := ParseArgs([]string{"-n", "-C", "/work", "-f", "reply.md", "--protect", "go.sum", "--protect", "vendor/**", "--no-reload"})
	require.NoError(t, err)

	assert.True(t, cfg.DryRun)
	assert.Equal(t, "/work", cfg.Root)
	assert.Equal(t, "reply.md", cfg.File)
	assert.Equal(t, []string{"go.sum", "vendor/**"}, cfg.Protect)
	assert.True(t, cfg.NoReload)
	assert.True(t, cfg.IsSet("no-reload"))
}

func TestParseArgs_Conflicts(t *testing.T) {
	_, err := ParseArgs([]string{"--undo", "--redo"})
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = ParseArgs([]string{"-u", "-n"})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"--bogus"})
	assert.Error(t, err)
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()

	fc, err := LoadFileConfig(dir)
	require.NoError(t, err)
	assert.Nil(t, fc)

	content := "protect:\n  - \"**/*.lock\"\nprompt_version: V0.1\nreload_nvim: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileConfigName), []byte(content), 0644))

	fc, err = LoadFileConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/*.lock"}, fc.Protect)
	assert.Equal(t, "V0.1", fc.PromptVersion)
	require.NotNil(t, fc.ReloadNvim)
	assert.False(t, *fc.ReloadNvim)
}

func TestLoadFileConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileConfigName), []byte("protec: [a]\n"), 0644))

	_, err := LoadFileConfig(dir)
	assert.ErrorContains(t, err, "invalid")
}

func TestLoadFileConfig_Empty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileConfigName), nil, 0644))

	fc, err := LoadFileConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, fc)
}

func TestMerge(t *testing.T) {
	reload := false
	fc := &FileConfig{Protect: []string{"secrets/**"}, PromptVersion: "v0.2", ReloadNvim: &reload}

	cfg, err := ParseArgs([]string{"--protect", "go.sum"})
	require.NoError(t, err)
	cfg.Merge(fc)
	assert.Equal(t, []string{"go.sum", "secrets/**"}, cfg.Protect)
	assert.Equal(t, "v0.2", cfg.PromptVersion)
	assert.True(t, cfg.NoReload)

	cfg, err = ParseArgs([]string{"--prompt-version", "v0.1"})
	require.NoError(t, err)
	cfg.Merge(fc)
	assert.Equal(t, "v0.1", cfg.PromptVersion, "explicit flag wins")

	cfg.Merge(nil)
	assert.Equal(t, "v0.1", cfg.PromptVersion)
}
