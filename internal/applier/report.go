package applier

import (
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/sokinpui/codechange.go/internal/planner"
)

// Mode selects between previewing and writing.
type Mode int

const (
	// DryRun computes every result in memory and touches nothing.
	DryRun Mode = iota
	// Commit writes results to the working tree.
	Commit
)

func (m Mode) String() string {
	if m == Commit {
		return "commit"
	}
	return "dry-run"
}

// Status is the outcome for one file.
type Status string

const (
	StatusCreated  Status = "created"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
	StatusNotFound Status = "not found"
	StatusFailed   Status = "failed"
)

// Outcome summarizes a whole report.
type Outcome string

const (
	Success        Outcome = "success"
	PartialFailure Outcome = "partial failure"
)

// Kinds of per-file failure.
var (
	ErrStaleLineNumbers = errors.New("file changed since validation")
	ErrIoFailure        = errors.New("I/O failure")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDeleteWithheld   = errors.New("delete withheld because another file failed")
)

// ApplyError is the failure of a single file. It never aborts other files.
type ApplyError struct {
	Kind error
	Path string
	Err  error
}

func (e *ApplyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *ApplyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func ioError(path string, err error) *ApplyError {
	kind := ErrIoFailure
	if errors.Is(err, iofs.ErrPermission) {
		kind = ErrPermissionDenied
	}
	return &ApplyError{Kind: kind, Path: path, Err: err}
}

// FileResult records what happened, or would happen, to one file.
type FileResult struct {
	Path   string
	Action planner.Action
	Status Status
	Before []byte
	After  []byte
	// Diff is a unified diff from Before to After.
	Diff string
	Err  *ApplyError
}

// Report is the result of applying a plan.
type Report struct {
	Mode              Mode
	Outcome           Outcome
	Files             []FileResult
	Summary           string
	AdditionalSteps   []string
	VerificationSteps []string
}

// Paths lists the files that ended with status, in plan order.
func (r *Report) Paths(status Status) []string {
	var paths []string
	for _, f := range r.Files {
		if f.Status == status {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Errors returns the per-file failures.
func (r *Report) Errors() []*ApplyError {
	var errs []*ApplyError
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Diff concatenates the per-file diffs.
func (r *Report) Diff() string {
	var out string
	for _, f := range r.Files {
		out += f.Diff
	}
	return out
}
