package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/codechange.go/internal/fs"
	"github.com/sokinpui/codechange.go/internal/validate"
	"github.com/sokinpui/codechange.go/model"
)

func validated(t *testing.T, tree fs.WorkingTree, changes ...model.FileChange) *validate.ChangeSet {
	t.Helper()
	cs := &model.ChangeSet{Summary: "plan test"}
	for _, c := range changes {
		cs.FilesToChange = append(cs.FilesToChange, model.FileRef{Path: c.Path})
		cs.Changes = append(cs.Changes, c)
	}
	v, err := validate.Validate(cs, tree, validate.Options{})
	require.NoError(t, err)
	return v
}

func render(t *testing.T, tree *fs.MemTree, fp FilePlan) []string {
	t.Helper()
	doc := fs.NewDocument()
	if data, err := tree.ReadFile(fp.Path); err == nil {
		doc = fs.ParseDocument(data)
	}
	out, err := fp.Render(doc)
	require.NoError(t, err)
	return out.Lines
}

func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line")
		b.WriteString(string(rune('0' + i%10)))
		b.WriteString("\n")
	}
	return b.String()
}

func TestNew_ModifyThenAdd(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{"f.txt": "a\nb\nc\nd\ne\n"})
	v := validated(t, tree, model.FileChange{Path: "f.txt", Operations: []model.Operation{
		model.Add{Content: "Y"},
		model.Modify{StartLine: 2, EndLine: 3, Content: "X"},
	}})

	plan, err := New(v)
	require.NoError(t, err)
	require.Len(t, plan.Files, 1)

	fp := plan.Files[0]
	assert.Equal(t, ActionModify, fp.Action)
	assert.Equal(t, []Edit{
		{Start: 2, End: 3, Lines: []string{"X"}},
		{Lines: []string{"Y"}, Append: true},
	}, fp.Edits)
	assert.Equal(t, []string{"a", "X", "d", "e", "Y"}, render(t, tree, fp))
}

func TestNew_DescendingOrder(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{"f.txt": numbered(10)})
	v := validated(t, tree, model.FileChange{Path: "f.txt", Operations: []model.Operation{
		model.Modify{StartLine: 2, EndLine: 3, Content: "A"},
		model.Modify{StartLine: 9, EndLine: 9, Content: "C"},
		model.Modify{StartLine: 6, EndLine: 7, Content: "B1\nB2\nB3"},
	}})

	plan, err := New(v)
	require.NoError(t, err)

	var starts []int
	for _, e := range plan.Files[0].Edits {
		starts = append(starts, e.Start)
	}
	assert.Equal(t, []int{9, 6, 2}, starts)
}

func TestRender_OrderingLaw(t *testing.T) {
	original := strings.Split(strings.TrimSuffix(numbered(10), "\n"), "\n")
	tree := fs.NewMemTree(map[string]string{"f.txt": numbered(10)})
	v := validated(t, tree, model.FileChange{Path: "f.txt", Operations: []model.Operation{
		model.Modify{StartLine: 2, EndLine: 3, Content: "first"},
		model.Modify{StartLine: 6, EndLine: 7, Content: "second\nsecond again\nand again"},
	}})

	plan, err := New(v)
	require.NoError(t, err)
	descending := render(t, tree, plan.Files[0])

	// Ascending order, shifting later ranges by the growth of earlier ones.
	ascending := append([]string(nil), original...)
	offset := 0
	for _, e := range []Edit{
		{Start: 2, End: 3, Lines: []string{"first"}},
		{Start: 6, End: 7, Lines: []string{"second", "second again", "and again"}},
	} {
		start, end := e.Start+offset, e.End+offset
		next := append([]string(nil), ascending[:start-1]...)
		next = append(next, e.Lines...)
		ascending = append(next, ascending[end:]...)
		offset += len(e.Lines) - (e.End - e.Start + 1)
	}

	assert.Equal(t, ascending, descending)
	assert.Len(t, descending, 10-4+4)
}

func TestRender_Boundaries(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ops     []model.Operation
		want    []string
	}{
		{
			name:    "replace the only line",
			content: "only\n",
			ops:     []model.Operation{model.Modify{StartLine: 1, EndLine: 1, Content: "new"}},
			want:    []string{"new"},
		},
		{
			name:    "empty content removes lines",
			content: "a\nb\nc\n",
			ops:     []model.Operation{model.Modify{StartLine: 2, EndLine: 2, Content: ""}},
			want:    []string{"a", "c"},
		},
		{
			name:    "one line becomes many",
			content: "a\nb\nc\n",
			ops:     []model.Operation{model.Modify{StartLine: 3, EndLine: 3, Content: "c1\nc2\nc3"}},
			want:    []string{"a", "b", "c1", "c2", "c3"},
		},
		{
			name:    "add to an empty file",
			content: "",
			ops:     []model.Operation{model.Add{Content: "first\nsecond"}},
			want:    []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fs.NewMemTree(map[string]string{"f.txt": tt.content})
			plan, err := New(validated(t, tree, model.FileChange{Path: "f.txt", Operations: tt.ops}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, render(t, tree, plan.Files[0]))
		})
	}
}

func TestNew_ActionsAndOrder(t *testing.T) {
	tree := fs.NewMemTree(map[string]string{
		"gone.go": "package gone\n",
		"keep.go": "package keep\n",
	})
	v := validated(t, tree,
		model.FileChange{Path: "gone.go", Operations: []model.Operation{model.Delete{}}},
		model.FileChange{Path: "new.go", Operations: []model.Operation{model.Add{Content: "package new"}}},
		model.FileChange{Path: "keep.go", Operations: []model.Operation{model.Add{Content: "// more"}}},
	)

	plan, err := New(v)
	require.NoError(t, err)

	require.Len(t, plan.Files, 3)
	assert.Equal(t, "new.go", plan.Files[0].Path)
	assert.Equal(t, "keep.go", plan.Files[1].Path)
	assert.Equal(t, "gone.go", plan.Files[2].Path)
	assert.Equal(t, ActionCreate, plan.Files[0].Action)
	assert.Equal(t, ActionModify, plan.Files[1].Action)
	assert.Equal(t, ActionDelete, plan.Files[2].Action)
	assert.Empty(t, plan.Files[2].Edits)
	assert.True(t, plan.Files[2].Snapshot.Exists)
	assert.Equal(t, "plan test", plan.Summary)

	_, err = plan.Files[2].Render(fs.NewDocument())
	assert.ErrorIs(t, err, ErrPlanningAssertion)
}

func TestNew_RequiresValidation(t *testing.T) {
	_, err := New(&validate.ChangeSet{})
	assert.ErrorIs(t, err, ErrPlanningAssertion)

	_, err = New(nil)
	assert.ErrorIs(t, err, ErrPlanningAssertion)
}

func TestPlanFile_Assertions(t *testing.T) {
	snap := fs.Snapshot{Exists: true, LineCount: 10}

	_, err := planFile(model.FileChange{Path: "f", Operations: []model.Operation{
		model.Delete{}, model.Add{Content: "x"},
	}}, snap)
	assert.ErrorIs(t, err, ErrPlanningAssertion)

	_, err = planFile(model.FileChange{Path: "f", Operations: []model.Operation{
		model.Modify{StartLine: 1, EndLine: 3},
		model.Modify{StartLine: 3, EndLine: 4},
	}}, snap)
	assert.ErrorIs(t, err, ErrPlanningAssertion)
}

func TestRender_StaleDocument(t *testing.T) {
	fp := FilePlan{Path: "f", Action: ActionModify, Edits: []Edit{{Start: 4, End: 5, Lines: []string{"x"}}}}

	_, err := fp.Render(fs.ParseDocument([]byte("a\nb\n")))
	assert.ErrorIs(t, err, ErrPlanningAssertion)
}

func TestRender_DoesNotModifyInput(t *testing.T) {
	doc := fs.ParseDocument([]byte("a\nb\nc\n"))
	fp := FilePlan{Path: "f", Action: ActionModify, Edits: []Edit{{Start: 1, End: 1, Lines: []string{"z"}}}}

	out, err := fp.Render(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, doc.Lines)
	assert.Equal(t, []string{"z", "b", "c"}, out.Lines)
}
