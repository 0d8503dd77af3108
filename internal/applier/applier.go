// Package applier executes a plan against a working tree, either as a dry run
// that only computes results or as a commit that writes them.
package applier

import (
	"errors"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sokinpui/codechange.go/internal/fs"
	"github.com/sokinpui/codechange.go/internal/planner"
)

// ProgressFunc is called after each file with the number of files handled so
// far and the total.
type ProgressFunc func(done, total int)

// Applier runs plans against one working tree.
type Applier struct {
	tree     fs.WorkingTree
	progress ProgressFunc
}

// New creates an Applier over tree.
func New(tree fs.WorkingTree) *Applier {
	return &Applier{tree: tree}
}

// OnProgress registers a progress callback.
func (a *Applier) OnProgress(fn ProgressFunc) {
	a.progress = fn
}

// Apply runs plan in the given mode. Every file is attempted; failures are
// recorded in the report. Deletes run after all writes and are withheld if
// any write failed.
func (a *Applier) Apply(plan *planner.Plan, mode Mode) (*Report, error) {
	if plan == nil {
		return nil, errors.New("applier: nil plan")
	}

	report := &Report{
		Mode:              mode,
		Outcome:           Success,
		Summary:           plan.Summary,
		AdditionalSteps:   plan.AdditionalSteps,
		VerificationSteps: plan.VerificationSteps,
	}
	total := len(plan.Files)
	a.report(0, total)

	var deletes []planner.FilePlan
	writeFailed := false
	for _, fp := range plan.Files {
		if fp.Action == planner.ActionDelete {
			deletes = append(deletes, fp)
			continue
		}
		result := a.write(fp, mode)
		if result.Status == StatusFailed {
			writeFailed = true
		}
		report.Files = append(report.Files, result)
		a.report(len(report.Files), total)
	}

	for _, fp := range deletes {
		var result FileResult
		if writeFailed {
			result = FileResult{
				Path:   fp.Path,
				Action: fp.Action,
				Status: StatusFailed,
				Err:    &ApplyError{Kind: ErrDeleteWithheld, Path: fp.Path},
			}
		} else {
			result = a.remove(fp, mode)
		}
		report.Files = append(report.Files, result)
		a.report(len(report.Files), total)
	}

	for _, f := range report.Files {
		if f.Status == StatusFailed {
			report.Outcome = PartialFailure
			break
		}
	}
	return report, nil
}

func (a *Applier) report(done, total int) {
	if a.progress != nil {
		a.progress(done, total)
	}
}

// read loads the live file and checks it against the validation snapshot.
func (a *Applier) read(fp planner.FilePlan) ([]byte, bool, *ApplyError) {
	data, err := a.tree.ReadFile(fp.Path)
	exists := err == nil
	if err != nil && !fs.IsNotExist(err) {
		return nil, false, ioError(fp.Path, err)
	}
	if !fs.SnapshotOf(data, exists).Matches(fp.Snapshot) {
		return nil, false, &ApplyError{Kind: ErrStaleLineNumbers, Path: fp.Path}
	}
	return data, exists, nil
}

func (a *Applier) write(fp planner.FilePlan, mode Mode) FileResult {
	result := FileResult{Path: fp.Path, Action: fp.Action}
	fail := func(err *ApplyError) FileResult {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	before, exists, applyErr := a.read(fp)
	if applyErr != nil {
		return fail(applyErr)
	}

	doc := fs.NewDocument()
	if exists {
		doc = fs.ParseDocument(before)
	}
	rendered, err := fp.Render(doc)
	if err != nil {
		return fail(&ApplyError{Kind: ErrStaleLineNumbers, Path: fp.Path, Err: err})
	}

	result.Before = before
	result.After = rendered.Bytes()
	result.Diff = unifiedDiff(fp.Path, before, result.After, exists, true)
	result.Status = StatusModified
	if !exists {
		result.Status = StatusCreated
	}

	if mode == Commit {
		if err := a.tree.WriteFile(fp.Path, result.After); err != nil {
			return fail(ioError(fp.Path, err))
		}
	}
	return result
}

func (a *Applier) remove(fp planner.FilePlan, mode Mode) FileResult {
	result := FileResult{Path: fp.Path, Action: fp.Action}

	data, err := a.tree.ReadFile(fp.Path)
	switch {
	case fs.IsNotExist(err):
		result.Status = StatusNotFound
		return result
	case err != nil:
		result.Status = StatusFailed
		result.Err = ioError(fp.Path, err)
		return result
	case !fs.SnapshotOf(data, true).Matches(fp.Snapshot):
		result.Status = StatusFailed
		result.Err = &ApplyError{Kind: ErrStaleLineNumbers, Path: fp.Path}
		return result
	}

	result.Before = data
	result.Diff = unifiedDiff(fp.Path, data, nil, true, false)
	result.Status = StatusDeleted

	if mode == Commit {
		if err := a.tree.Remove(fp.Path); err != nil {
			if fs.IsNotExist(err) {
				result.Status = StatusNotFound
				return result
			}
			result.Status = StatusFailed
			result.Err = ioError(fp.Path, err)
		}
	}
	return result
}

// unifiedDiff renders a git-style diff. /dev/null stands in for the side that
// does not exist.
func unifiedDiff(path string, before, after []byte, beforeExists, afterExists bool) string {
	from, to := "a/"+path, "b/"+path
	if !beforeExists {
		from = "/dev/null"
	}
	if !afterExists {
		to = "/dev/null"
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(before),
		B:        diffLines(after),
		FromFile: from,
		ToFile:   to,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// diffLines splits data for difflib, which expects every line to end in a
// newline.
func diffLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(data), "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		lines[last] += "\n"
	}
	return lines
}
