package codechange

import (
	"fmt"

	"github.com/sokinpui/codechange.go/cli"
	"github.com/sokinpui/codechange.go/model"
)

// Config for using codechange as a library.
type Config struct {
	// Root is the project root. Empty means the git top-level of the working
	// directory, or the working directory itself.
	Root string
	// DryRun computes the result and its diff without writing.
	DryRun bool
	// Protect lists extra globs of paths that must not be changed.
	Protect []string
	// Reload asks a running Neovim to reload changed files.
	Reload bool
}

// Apply parses the <code-change> document in content and applies it to the
// project. Committed changes are recorded for undo.
func Apply(content string, config Config) (model.Summary, error) {
	cliCfg := &cli.Config{
		Root:          config.Root,
		DryRun:        config.DryRun,
		Protect:       append([]string(nil), config.Protect...),
		NoReload:      !config.Reload,
		PromptVersion: cli.DefaultPromptVersion,
	}

	app, err := New(cliCfg)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to initialize codechange app: %w", err)
	}
	return app.processAndApply(content)
}
