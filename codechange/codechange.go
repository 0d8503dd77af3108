package codechange

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/sokinpui/codechange.go/cli"
	"github.com/sokinpui/codechange.go/internal/applier"
	"github.com/sokinpui/codechange.go/internal/fs"
	"github.com/sokinpui/codechange.go/internal/nvim"
	"github.com/sokinpui/codechange.go/internal/parser"
	"github.com/sokinpui/codechange.go/internal/planner"
	"github.com/sokinpui/codechange.go/internal/prompt"
	"github.com/sokinpui/codechange.go/internal/source"
	"github.com/sokinpui/codechange.go/internal/state"
	"github.com/sokinpui/codechange.go/internal/validate"
	"github.com/sokinpui/codechange.go/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	tree             *fs.OSTree
	stateManager     *state.Manager
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate
	stdout           io.Writer
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance for the project root named by cfg, or the
// project containing the working directory.
func New(cfg *cli.Config) (*App, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		if root, err = fs.FindProjectRoot(wd); err != nil {
			return nil, err
		}
	}

	fileCfg, err := cli.LoadFileConfig(root)
	if err != nil {
		return nil, err
	}
	cfg.Merge(fileCfg)

	tree, err := fs.NewOSTree(root)
	if err != nil {
		return nil, err
	}
	stateManager, err := state.New(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}

	return &App{
		cfg:            cfg,
		tree:           tree,
		stateManager:   stateManager,
		sourceProvider: source.New(cfg.File),
		stdout:         os.Stdout,
	}, nil
}

// Root returns the project root the app works in.
func (a *App) Root() string {
	return a.tree.Root()
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// SetOutput redirects what the app prints on stdout (prompts and canonical
// documents).
func (a *App) SetOutput(w io.Writer) {
	a.stdout = w
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Prompt:
		return a.printPrompt()
	case a.cfg.Undo:
		return a.undoLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	default:
		return a.processContent()
	}
}

// Parse extracts and parses the <code-change> document in content.
func (a *App) Parse(content string) (*model.ChangeSet, error) {
	cs, err := parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse change set: %w", err)
	}
	return cs, nil
}

// Preview validates cs and computes its result without writing anything. The
// summary carries the unified diff.
func (a *App) Preview(cs *model.ChangeSet) (model.Summary, error) {
	report, err := a.run(cs, applier.DryRun)
	if err != nil {
		return model.Summary{}, err
	}
	summary := reportSummary(report)
	summary.Preview = report.Diff()
	summary.Message = "Dry run, nothing was written: " + report.Summary
	return summary, nil
}

// Apply validates cs, writes it to the working tree and records it in the
// history so it can be undone.
func (a *App) Apply(cs *model.ChangeSet) (model.Summary, error) {
	report, err := a.run(cs, applier.Commit)
	if err != nil {
		return model.Summary{}, err
	}
	summary := reportSummary(report)

	var changes []state.Change
	var touched []string
	for _, f := range report.Files {
		switch f.Status {
		case applier.StatusCreated, applier.StatusModified, applier.StatusDeleted:
			changes = append(changes, state.Change{Path: f.Path, Action: string(f.Action), Before: f.Before, After: f.After})
			touched = append(touched, f.Path)
		}
	}
	if _, err := a.stateManager.Record(report.Summary, changes); err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("could not record history, undo is unavailable: %v", err))
	}
	summary.Warnings = append(summary.Warnings, a.reloadEditor(touched)...)
	return summary, nil
}

func (a *App) run(cs *model.ChangeSet, mode applier.Mode) (*applier.Report, error) {
	validated, err := validate.Validate(cs, a.tree, validate.Options{Protected: a.cfg.Protect})
	if err != nil {
		return nil, fmt.Errorf("change set rejected: %w", err)
	}
	plan, err := planner.New(validated)
	if err != nil {
		return nil, err
	}

	engine := applier.New(a.tree)
	if a.progressCallback != nil {
		engine.OnProgress(applier.ProgressFunc(a.progressCallback))
	}
	return engine.Apply(plan, mode)
}

func reportSummary(report *applier.Report) model.Summary {
	summary := model.Summary{
		Created:      report.Paths(applier.StatusCreated),
		Modified:     report.Paths(applier.StatusModified),
		Deleted:      report.Paths(applier.StatusDeleted),
		Missing:      report.Paths(applier.StatusNotFound),
		Steps:        report.AdditionalSteps,
		Verification: report.VerificationSteps,
		Message:      report.Summary,
	}
	for _, applyErr := range report.Errors() {
		summary.Failed = append(summary.Failed, applyErr.Error())
	}
	return summary
}

// processContent handles the core logic of reading the source, parsing it and
// previewing or applying the change set.
func (a *App) processContent() (model.Summary, error) {
	content, origin, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	if strings.TrimSpace(content) == "" {
		return model.Summary{Message: fmt.Sprintf("Source (%s) is empty. Nothing to process.", origin)}, nil
	}
	return a.processAndApply(content)
}

func (a *App) processAndApply(content string) (model.Summary, error) {
	cs, err := a.Parse(content)
	if err != nil {
		return model.Summary{}, err
	}

	if a.cfg.OutputCanonical {
		if _, err := a.stdout.Write(parser.Marshal(cs)); err != nil {
			return model.Summary{}, err
		}
		return model.Summary{}, nil
	}
	if len(cs.Changes) == 0 {
		return model.Summary{
			Message:      "No file changes in: " + cs.Summary,
			Steps:        cs.AdditionalSteps,
			Verification: cs.VerificationSteps,
		}, nil
	}

	if a.cfg.DryRun {
		return a.Preview(cs)
	}
	return a.Apply(cs)
}

func (a *App) printPrompt() (model.Summary, error) {
	text, err := prompt.Copy(a.cfg.PromptVersion)
	if text == "" {
		return model.Summary{}, err
	}
	if _, werr := io.WriteString(a.stdout, text); werr != nil {
		return model.Summary{}, werr
	}

	summary := model.Summary{Message: fmt.Sprintf("Prompt %s copied to the clipboard.", prompt.Normalize(a.cfg.PromptVersion))}
	if err != nil {
		summary.Message = fmt.Sprintf("Prompt %s printed.", prompt.Normalize(a.cfg.PromptVersion))
		summary.Warnings = append(summary.Warnings, err.Error())
	}
	return summary, nil
}

func (a *App) undoLastOperation() (model.Summary, error) {
	if !a.stateManager.CanUndo() {
		return model.Summary{Message: "Nothing to undo."}, nil
	}
	result, err := a.stateManager.Undo()
	return a.revertSummary("Undid", result, err)
}

func (a *App) redoLastOperation() (model.Summary, error) {
	if !a.stateManager.CanRedo() {
		return model.Summary{Message: "Nothing to redo."}, nil
	}
	result, err := a.stateManager.Redo()
	return a.revertSummary("Redid", result, err)
}

func (a *App) revertSummary(verb string, result *state.Result, err error) (model.Summary, error) {
	if result == nil {
		return model.Summary{}, err
	}

	summary := model.Summary{
		Modified: result.Written,
		Deleted:  result.Removed,
		Message:  fmt.Sprintf("%s: %s", verb, result.Entry.Summary),
	}
	for _, p := range result.Conflicts {
		summary.Failed = append(summary.Failed, p+": changed since it was recorded, left alone")
	}
	for _, p := range result.Failed {
		summary.Failed = append(summary.Failed, p+": could not be restored")
	}
	if err != nil {
		summary.Warnings = append(summary.Warnings, err.Error())
	}
	summary.Warnings = append(summary.Warnings, a.reloadEditor(append(append([]string(nil), result.Written...), result.Removed...))...)
	return summary, nil
}

// reloadEditor asks a running Neovim to re-read paths. Problems are returned
// as warnings.
func (a *App) reloadEditor(paths []string) []string {
	if a.cfg.NoReload || len(paths) == 0 {
		return nil
	}
	manager, err := nvim.New()
	if err != nil {
		return []string{err.Error()}
	}
	if manager == nil {
		return nil
	}
	defer manager.Close()

	abs := make([]string, len(paths))
	for i, p := range paths {
		abs[i] = filepath.Join(a.Root(), filepath.FromSlash(p))
	}
	_, failed := manager.ReloadFiles(abs, nil)
	if len(failed) > 0 {
		return []string{fmt.Sprintf("neovim could not reload: %s", strings.Join(failed, ", "))}
	}
	return nil
}
