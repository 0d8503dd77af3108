// Package validate checks a parsed change set against the live working tree.
// Every problem is collected so the caller can report the complete list at
// once.
package validate

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sokinpui/codechange.go/internal/fs"
	"github.com/sokinpui/codechange.go/model"
)

// DefaultProtected is always protected, whatever Options says.
var DefaultProtected = []string{".git", ".git/**", ".codechange", ".codechange/**"}

// Options tunes validation.
type Options struct {
	// Protected lists extra doublestar globs that no change may touch.
	Protected []string
}

type proof struct{}

// issued marks change sets produced by Validate.
var issued = &proof{}

// ChangeSet is a change set that passed validation. Paths are normalized and
// each file carries the snapshot it was checked against. The zero value is
// not verified.
type ChangeSet struct {
	cs        *model.ChangeSet
	snapshots map[string]fs.Snapshot
	proof     *proof
}

// Model returns a copy of the validated change set.
func (v *ChangeSet) Model() *model.ChangeSet {
	if v == nil {
		return nil
	}
	return v.cs.Clone()
}

// Snapshot returns the state path had when it was validated.
func (v *ChangeSet) Snapshot(path string) (fs.Snapshot, bool) {
	if v == nil {
		return fs.Snapshot{}, false
	}
	snap, ok := v.snapshots[path]
	return snap, ok
}

// Verified reports whether v was produced by Validate.
func (v *ChangeSet) Verified() bool {
	return v != nil && v.cs != nil && v.proof == issued
}

// Validate checks cs against tree. It returns Errors listing every violation,
// or a verified ChangeSet.
func Validate(cs *model.ChangeSet, tree fs.WorkingTree, opts Options) (*ChangeSet, error) {
	if cs == nil {
		return nil, errors.New("validate: nil change set")
	}
	protected := append(append([]string(nil), DefaultProtected...), opts.Protected...)
	for _, pattern := range protected {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid protect pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
	}

	v := &validator{
		tree:      tree,
		protected: protected,
		out:       cs.Clone(),
		declared:  make(map[string]bool),
		rejected:  make(map[string]bool),
		snapshots: make(map[string]fs.Snapshot),
	}
	v.checkDeclarations()
	v.checkChanges()

	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return &ChangeSet{cs: v.out, snapshots: v.snapshots, proof: issued}, nil
}

type validator struct {
	tree      fs.WorkingTree
	protected []string
	out       *model.ChangeSet
	errs      Errors

	// declared holds normalized declared paths; rejected holds raw paths that
	// failed normalization, so a change block for them is not reported twice.
	declared  map[string]bool
	rejected  map[string]bool
	snapshots map[string]fs.Snapshot
}

func (v *validator) normalize(raw string) (string, bool) {
	cleaned, err := fs.NormalizeRelPath(raw)
	if err != nil {
		v.errs.add(ErrPathEscapesRoot, raw, "%v", err)
		v.rejected[raw] = true
		return "", false
	}
	return cleaned, true
}

func (v *validator) checkDeclarations() {
	for i, ref := range v.out.FilesToChange {
		path, ok := v.normalize(ref.Path)
		if !ok {
			continue
		}
		v.out.FilesToChange[i].Path = path
		if v.declared[path] {
			v.errs.add(ErrDuplicateFileDeclaration, path, "declared more than once in files-to-change")
			continue
		}
		v.declared[path] = true

		for _, pattern := range v.protected {
			if match, _ := doublestar.Match(pattern, path); match {
				v.errs.add(ErrProtectedPath, path, "matches %q", pattern)
				break
			}
		}
	}
}

func (v *validator) checkChanges() {
	changed := make(map[string]bool)
	for i, change := range v.out.Changes {
		if v.rejected[change.Path] {
			continue
		}
		path, ok := v.normalize(change.Path)
		if !ok {
			continue
		}
		v.out.Changes[i].Path = path

		if !v.declared[path] {
			v.errs.add(ErrUndeclaredFileReference, path, "change block for a file not listed in files-to-change")
		}
		if changed[path] {
			v.errs.add(ErrDuplicateFileDeclaration, path, "more than one change block")
			continue
		}
		changed[path] = true
		v.checkOperations(path, change.Operations)
	}

	for _, ref := range v.out.FilesToChange {
		if v.rejected[ref.Path] {
			continue
		}
		if !changed[ref.Path] {
			v.errs.add(ErrOrphanedFileDeclaration, ref.Path, "declared in files-to-change without a change block")
		}
	}
}

func (v *validator) checkOperations(path string, ops []model.Operation) {
	if len(ops) == 0 {
		v.errs.add(ErrOrphanedFileDeclaration, path, "change block has no operations")
		return
	}

	var deletes int
	var modifies []model.Modify
	for _, op := range ops {
		switch op := op.(type) {
		case model.Delete:
			deletes++
		case model.Modify:
			if op.StartLine < 1 || op.EndLine < op.StartLine {
				v.errs.add(ErrInvalidLineRange, path, "lines %d-%d", op.StartLine, op.EndLine)
				continue
			}
			modifies = append(modifies, op)
		}
	}
	if deletes > 0 && len(ops) > 1 {
		v.errs.add(ErrConflictingDeleteWithOtherOps, path, "delete is combined with %d other operation(s)", len(ops)-1)
	}

	for i := 0; i < len(modifies); i++ {
		for j := i + 1; j < len(modifies); j++ {
			a, b := modifies[i], modifies[j]
			if a.StartLine <= b.EndLine && b.StartLine <= a.EndLine {
				v.errs.add(ErrOverlappingModifications, path, "lines %d-%d and %d-%d intersect",
					a.StartLine, a.EndLine, b.StartLine, b.EndLine)
			}
		}
	}

	snap, err := fs.TakeSnapshot(v.tree, path)
	if err != nil {
		v.errs.add(ErrUnreadableFile, path, "%v", err)
		return
	}
	v.snapshots[path] = snap

	for _, m := range modifies {
		if m.EndLine <= snap.LineCount {
			continue
		}
		if !snap.Exists {
			v.errs.add(ErrLineRangeOutOfBounds, path, "lines %d-%d of a file that does not exist", m.StartLine, m.EndLine)
			continue
		}
		v.errs.add(ErrLineRangeOutOfBounds, path, "lines %d-%d, file has %d lines", m.StartLine, m.EndLine, snap.LineCount)
	}
}
