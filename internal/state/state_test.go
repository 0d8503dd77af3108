package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/codechange.go/internal/fs"
)

// commit writes the after-state of changes to tree and records them.
func commit(t *testing.T, m *Manager, tree *fs.MemTree, summary string, changes ...Change) *HistoryEntry {
	t.Helper()
	for _, c := range changes {
		if c.Action == ActionDelete {
			require.NoError(t, tree.Remove(c.Path))
			continue
		}
		require.NoError(t, tree.WriteFile(c.Path, c.After))
	}
	entry, err := m.Record(summary, changes)
	require.NoError(t, err)
	return entry
}

func TestManager_RecordPersists(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{"a.go": "old\n"})
	m, err := New(tree)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }

	entry := commit(t, m, tree, "first", Change{Path: "a.go", Action: ActionModify, Before: []byte("old\n"), After: []byte("new\n")})
	require.NotNil(t, entry)

	_, err = ulid.ParseStrict(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1700000000), entry.Timestamp)
	assert.Equal(t, fs.HashBytes([]byte("old\n")), entry.Operations[0].BeforeHash)
	assert.Equal(t, fs.HashBytes([]byte("new\n")), entry.Operations[0].AfterHash)

	var st State
	require.NoError(t, json.Unmarshal([]byte(tree.Content(".codechange/state.json")), &st))
	assert.Equal(t, 0, st.CurrentIndex)
	require.Len(t, st.History, 1)
	assert.Equal(t, "first", st.History[0].Summary)

	reloaded, err := New(tree)
	require.NoError(t, err)
	assert.True(t, reloaded.CanUndo())
	assert.False(t, reloaded.CanRedo())
}

func TestManager_RecordNothing(t *testing.T) {
	tree := fs.NewMemTree(nil)
	m, err := New(tree)
	require.NoError(t, err)

	entry, err := m.Record("empty", nil)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, tree.Paths())
}

func TestManager_UndoRedo(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{
		"mod.go": "before\n",
		"del.go": "doomed\n",
	})
	m, err := New(tree)
	require.NoError(t, err)

	commit(t, m, tree, "change three files",
		Change{Path: "mod.go", Action: ActionModify, Before: []byte("before\n"), After: []byte("after\n")},
		Change{Path: "new/made.go", Action: ActionCreate, After: []byte("made\n")},
		Change{Path: "del.go", Action: ActionDelete, Before: []byte("doomed\n")},
	)

	result, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, "change three files", result.Entry.Summary)
	assert.ElementsMatch(t, []string{"mod.go", "del.go"}, result.Written)
	assert.Equal(t, []string{"new/made.go"}, result.Removed)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, "before\n", tree.Content("mod.go"))
	assert.Equal(t, "doomed\n", tree.Content("del.go"))
	_, err = tree.ReadFile("new/made.go")
	assert.True(t, fs.IsNotExist(err))

	_, err = m.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	result, err = m.Redo()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mod.go", "new/made.go"}, result.Written)
	assert.Equal(t, []string{"del.go"}, result.Removed)
	assert.Equal(t, "after\n", tree.Content("mod.go"))
	assert.Equal(t, "made\n", tree.Content("new/made.go"))
	_, err = tree.ReadFile("del.go")
	assert.True(t, fs.IsNotExist(err))

	_, err = m.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestManager_UndoRefusesEditedFile(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{"a.go": "v1\n", "b.go": "b1\n"})
	m, err := New(tree)
	require.NoError(t, err)

	commit(t, m, tree, "edit",
		Change{Path: "a.go", Action: ActionModify, Before: []byte("v1\n"), After: []byte("v2\n")},
		Change{Path: "b.go", Action: ActionModify, Before: []byte("b1\n"), After: []byte("b2\n")},
	)
	require.NoError(t, tree.WriteFile("a.go", []byte("hand edited\n")))

	result, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, result.Conflicts)
	assert.Equal(t, []string{"b.go"}, result.Written)
	assert.Equal(t, "hand edited\n", tree.Content("a.go"))
	assert.Equal(t, "b1\n", tree.Content("b.go"))
}

func TestManager_RecordTruncatesRedo(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{"a.go": "1\n"})
	m, err := New(tree)
	require.NoError(t, err)

	commit(t, m, tree, "one", Change{Path: "a.go", Action: ActionModify, Before: []byte("1\n"), After: []byte("2\n")})
	commit(t, m, tree, "two", Change{Path: "a.go", Action: ActionModify, Before: []byte("2\n"), After: []byte("3\n")})

	_, err = m.Undo()
	require.NoError(t, err)
	require.True(t, m.CanRedo())

	commit(t, m, tree, "three", Change{Path: "a.go", Action: ActionModify, Before: []byte("2\n"), After: []byte("4\n")})
	assert.False(t, m.CanRedo())
	require.Len(t, m.state.History, 2)
	assert.Equal(t, "three", m.state.History[1].Summary)

	result, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, "three", result.Entry.Summary)
	assert.Equal(t, "2\n", tree.Content("a.go"))
}

func TestManager_EmptyFileIsNotAbsent(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{"a.go": "content\n"})
	m, err := New(tree)
	require.NoError(t, err)

	commit(t, m, tree, "empty it", Change{Path: "a.go", Action: ActionModify, Before: []byte("content\n"), After: nil})

	result, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, result.Written)
	assert.Equal(t, "content\n", tree.Content("a.go"))
}

func TestNew_InvalidStateFile(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{".codechange/state.json": "{not json"})
	_, err := New(tree)
	assert.ErrorContains(t, err, "invalid state file")

	tree = fs.NewMemTree(map[string]string{".codechange/state.json": `{"history": [], "current_index": 3}`})
	_, err = New(tree)
	assert.ErrorContains(t, err, "out of range")
}
