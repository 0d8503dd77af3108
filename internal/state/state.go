// Package state keeps the undo/redo journal of committed change sets. The
// journal lives in the working tree under .codechange/; file contents are
// stored by hash so any recorded state can be restored.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sokinpui/codechange.go/internal/fs"
)

const (
	DirName        = ".codechange"
	stateFileName  = "state.json"
	objectsDirName = "objects"
)

// Actions recorded for a file.
const (
	ActionCreate = "create"
	ActionModify = "modify"
	ActionDelete = "delete"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Operation records one file of a history entry. An empty hash means the file
// did not exist on that side.
type Operation struct {
	Path       string `json:"path"`
	Action     string `json:"action"`
	BeforeHash string `json:"before_hash,omitempty"`
	AfterHash  string `json:"after_hash,omitempty"`
}

// HistoryEntry represents one committed change set.
type HistoryEntry struct {
	ID         string      `json:"id"`
	Timestamp  int64       `json:"timestamp"`
	Summary    string      `json:"summary"`
	Operations []Operation `json:"operations"`
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry `json:"history"`
	CurrentIndex int            `json:"current_index"`
}

// Change is the input for recording one file. Before is ignored for a
// create and After for a delete.
type Change struct {
	Path   string
	Action string
	Before []byte
	After  []byte
}

// Result lists what an undo or redo did.
type Result struct {
	Entry   HistoryEntry
	Written []string
	Removed []string
	// Conflicts are files edited since the entry was recorded; they are left
	// alone.
	Conflicts []string
	Failed    []string
}

// Manager handles the lifecycle of the journal.
type Manager struct {
	tree  fs.WorkingTree
	state *State
	now   func() time.Time
}

// New loads the journal of tree, or starts an empty one.
func New(tree fs.WorkingTree) (*Manager, error) {
	m := &Manager{tree: tree, now: time.Now}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func statePath() string {
	return path.Join(DirName, stateFileName)
}

func objectPath(hash string) string {
	return path.Join(DirName, objectsDirName, hash[:2], hash[2:])
}

func (m *Manager) load() error {
	data, err := m.tree.ReadFile(statePath())
	if err != nil {
		if fs.IsNotExist(err) {
			m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("invalid state file: %w", err)
	}
	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid state file: current index %d out of range", st.CurrentIndex)
	}
	m.state = &st
	return nil
}

func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode state: %w", err)
	}
	if err := m.tree.WriteFile(statePath(), append(data, '\n')); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	return nil
}

func (m *Manager) storeObject(data []byte, exists bool) (string, error) {
	if !exists {
		return "", nil
	}
	hash := fs.HashBytes(data)
	if _, err := m.tree.ReadFile(objectPath(hash)); err == nil {
		return hash, nil
	}
	if err := m.tree.WriteFile(objectPath(hash), data); err != nil {
		return "", fmt.Errorf("could not store object: %w", err)
	}
	return hash, nil
}

func (m *Manager) loadObject(hash string) ([]byte, error) {
	data, err := m.tree.ReadFile(objectPath(hash))
	if err != nil {
		return nil, fmt.Errorf("missing object %s: %w", hash, err)
	}
	return data, nil
}

// Record adds a new entry to the history, dropping any undone entries after
// the current one. Nothing is recorded for an empty change list.
func (m *Manager) Record(summary string, changes []Change) (*HistoryEntry, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	entry := HistoryEntry{
		ID:        ulid.Make().String(),
		Timestamp: m.now().UTC().Unix(),
		Summary:   summary,
	}
	for _, c := range changes {
		before, err := m.storeObject(c.Before, c.Action != ActionCreate)
		if err != nil {
			return nil, err
		}
		after, err := m.storeObject(c.After, c.Action != ActionDelete)
		if err != nil {
			return nil, err
		}
		entry.Operations = append(entry.Operations, Operation{
			Path:       c.Path,
			Action:     c.Action,
			BeforeHash: before,
			AfterHash:  after,
		})
	}

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, entry)
	m.state.CurrentIndex++
	if err := m.save(); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Undo restores every file of the current entry to its state before the
// entry, then moves the history pointer back.
func (m *Manager) Undo() (*Result, error) {
	if m.state.CurrentIndex < 0 {
		return nil, ErrNothingToUndo
	}
	entry := m.state.History[m.state.CurrentIndex]

	result := &Result{Entry: entry}
	for i := len(entry.Operations) - 1; i >= 0; i-- {
		op := entry.Operations[i]
		m.restore(result, op.Path, op.AfterHash, op.BeforeHash)
	}

	m.state.CurrentIndex--
	if err := m.save(); err != nil {
		return result, err
	}
	return result, nil
}

// Redo re-applies the entry after the current one.
func (m *Manager) Redo() (*Result, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return nil, ErrNothingToRedo
	}
	entry := m.state.History[next]

	result := &Result{Entry: entry}
	for _, op := range entry.Operations {
		m.restore(result, op.Path, op.BeforeHash, op.AfterHash)
	}

	m.state.CurrentIndex = next
	if err := m.save(); err != nil {
		return result, err
	}
	return result, nil
}

// restore moves rel from the state identified by expect to the state
// identified by target. A file that no longer matches expect is a conflict.
func (m *Manager) restore(result *Result, rel, expect, target string) {
	current := ""
	data, err := m.tree.ReadFile(rel)
	switch {
	case err == nil:
		current = fs.HashBytes(data)
	case !fs.IsNotExist(err):
		result.Failed = append(result.Failed, rel)
		return
	}
	if current != expect {
		result.Conflicts = append(result.Conflicts, rel)
		return
	}

	if target == "" {
		if current == "" {
			return
		}
		if err := m.tree.Remove(rel); err != nil {
			result.Failed = append(result.Failed, rel)
			return
		}
		result.Removed = append(result.Removed, rel)
		return
	}

	content, err := m.loadObject(target)
	if err != nil {
		result.Failed = append(result.Failed, rel)
		return
	}
	if err := m.tree.WriteFile(rel, content); err != nil {
		result.Failed = append(result.Failed, rel)
		return
	}
	result.Written = append(result.Written, rel)
}

// CanUndo reports whether there is an entry to undo.
func (m *Manager) CanUndo() bool {
	return m.state.CurrentIndex >= 0
}

// CanRedo reports whether there is an undone entry to redo.
func (m *Manager) CanRedo() bool {
	return m.state.CurrentIndex+1 < len(m.state.History)
}
