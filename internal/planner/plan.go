// Package planner compiles a validated change set into per-file line edits.
//
// Modify ranges always refer to the original file. Edits within a file are
// ordered by descending start line so that applying one never shifts the
// lines another still refers to; appends come last. Files that are written
// come before files that are deleted.
package planner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sokinpui/codechange.go/internal/fs"
	"github.com/sokinpui/codechange.go/internal/validate"
	"github.com/sokinpui/codechange.go/model"
)

// ErrPlanningAssertion reports a broken internal invariant. It means a change
// set reached the planner in a shape validation should have rejected.
var ErrPlanningAssertion = errors.New("planning assertion failed")

// Action is what happens to a file as a whole.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Edit is one splice of a file. It replaces lines [Start, End] (1-indexed,
// inclusive) of the current document with Lines. An Append edit adds Lines
// after the last line instead.
type Edit struct {
	Start  int
	End    int
	Lines  []string
	Append bool
}

// FilePlan is the ordered work for one file.
type FilePlan struct {
	Path   string
	Action Action
	// Snapshot is the file state the edits were validated against.
	Snapshot fs.Snapshot
	Edits    []Edit
}

// Plan is the complete, ordered set of file plans for a change set.
type Plan struct {
	Summary           string
	Files             []FilePlan
	AdditionalSteps   []string
	VerificationSteps []string
}

// New builds the plan for a validated change set.
func New(v *validate.ChangeSet) (*Plan, error) {
	if !v.Verified() {
		return nil, fmt.Errorf("%w: change set was not validated", ErrPlanningAssertion)
	}
	cs := v.Model()

	changes := make(map[string]model.FileChange, len(cs.Changes))
	for _, change := range cs.Changes {
		changes[change.Path] = change
	}

	plan := &Plan{
		Summary:           cs.Summary,
		AdditionalSteps:   cs.AdditionalSteps,
		VerificationSteps: cs.VerificationSteps,
	}
	var deletes []FilePlan
	for _, ref := range cs.FilesToChange {
		change, ok := changes[ref.Path]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no change block", ErrPlanningAssertion, ref.Path)
		}
		snap, ok := v.Snapshot(ref.Path)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no snapshot", ErrPlanningAssertion, ref.Path)
		}

		fp, err := planFile(change, snap)
		if err != nil {
			return nil, err
		}
		if fp.Action == ActionDelete {
			deletes = append(deletes, fp)
			continue
		}
		plan.Files = append(plan.Files, fp)
	}
	plan.Files = append(plan.Files, deletes...)
	return plan, nil
}

func planFile(change model.FileChange, snap fs.Snapshot) (FilePlan, error) {
	fp := FilePlan{Path: change.Path, Snapshot: snap}

	var splices, appends []Edit
	for _, op := range change.Operations {
		switch op := op.(type) {
		case model.Delete:
			if len(change.Operations) > 1 {
				return FilePlan{}, fmt.Errorf("%w: %s: delete mixed with other operations", ErrPlanningAssertion, change.Path)
			}
			fp.Action = ActionDelete
			return fp, nil
		case model.Modify:
			splices = append(splices, Edit{Start: op.StartLine, End: op.EndLine, Lines: fs.SplitContent(op.Content)})
		case model.Add:
			appends = append(appends, Edit{Lines: fs.SplitContent(op.Content), Append: true})
		default:
			return FilePlan{}, fmt.Errorf("%w: %s: unknown operation %T", ErrPlanningAssertion, change.Path, op)
		}
	}

	sort.SliceStable(splices, func(i, j int) bool {
		return splices[i].Start > splices[j].Start
	})
	for i := 1; i < len(splices); i++ {
		above, below := splices[i-1], splices[i]
		if below.End >= above.Start {
			return FilePlan{}, fmt.Errorf("%w: %s: lines %d-%d overlap lines %d-%d",
				ErrPlanningAssertion, change.Path, below.Start, below.End, above.Start, above.End)
		}
	}

	fp.Edits = append(splices, appends...)
	fp.Action = ActionModify
	if !snap.Exists {
		fp.Action = ActionCreate
	}
	return fp, nil
}

// Render applies the edits of fp to doc and returns the resulting document.
// doc is not modified.
func (fp FilePlan) Render(doc fs.Document) (fs.Document, error) {
	if fp.Action == ActionDelete {
		return fs.Document{}, fmt.Errorf("%w: %s: a delete plan has no content", ErrPlanningAssertion, fp.Path)
	}

	for _, e := range fp.Edits {
		if e.Append {
			doc = doc.Append(e.Lines)
			continue
		}
		if e.Start < 1 || e.End < e.Start || e.End > len(doc.Lines) {
			return fs.Document{}, fmt.Errorf("%w: %s: lines %d-%d outside a %d-line document",
				ErrPlanningAssertion, fp.Path, e.Start, e.End, len(doc.Lines))
		}
		doc = doc.Splice(e.Start, e.End, e.Lines)
	}
	return doc, nil
}
