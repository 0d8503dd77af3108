package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/codechange.go/model"
)

func TestUpdate_Summary(t *testing.T) {
	m := Model{state: stateProcessing}

	next, cmd := m.Update(summaryMsg{model.Summary{
		Message:      "Rename greeting",
		Created:      []string{"docs/NOTES.md"},
		Deleted:      []string{"legacy.go"},
		Failed:       []string{"main.go: stale line numbers"},
		Verification: []string{"go test ./..."},
	}})
	assert.NotNil(t, cmd)

	done := next.(Model)
	assert.Nil(t, done.Err())
	assert.Equal(t, []string{"legacy.go"}, done.Summary().Deleted)

	view := done.View()
	for _, want := range []string{"Rename greeting", "Created:", "docs/NOTES.md", "Deleted:", "legacy.go", "Failed:", "stale line numbers", "Verification:", "go test ./..."} {
		assert.Contains(t, view, want)
	}
	assert.NotContains(t, view, "Modified:")
}

func TestUpdate_Error(t *testing.T) {
	m := Model{state: stateProcessing}
	boom := errors.New("change set rejected")

	next, _ := m.Update(errorMsg{boom})
	done := next.(Model)
	assert.ErrorIs(t, done.Err(), boom)
	assert.Contains(t, done.View(), "change set rejected")
}

func TestUpdate_Progress(t *testing.T) {
	m := New(nil, nil)

	next, _ := m.Update(progressMsg{current: 1, total: 4})
	assert.Contains(t, next.View(), "1/4 files")
}

func TestView_NothingToDo(t *testing.T) {
	m := Model{state: stateSummary}
	assert.Contains(t, m.View(), "Nothing to do.")
}

func TestRenderDiff(t *testing.T) {
	out := renderDiff("--- a/x\n+++ b/x\n@@ -1 +1 @@\n-old\n+new\n")
	assert.Contains(t, out, "-old")
	assert.Contains(t, out, "+new")
	assert.Contains(t, out, "@@ -1 +1 @@")
}
