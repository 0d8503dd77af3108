package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/codechange.go/model"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	var buf bytes.Buffer
	original := Output
	Output = &buf
	t.Cleanup(func() {
		Output = original
		color.NoColor = noColor
	})
	return &buf
}

func TestPrintSummary(t *testing.T) {
	buf := capture(t)

	PrintSummary(model.Summary{
		Created:      []string{"new.go"},
		Modified:     []string{"a.go", "b.go"},
		Failed:       []string{"c.go: file changed since validation"},
		Verification: []string{"go test ./..."},
		Message:      "Add login test",
	})

	out := buf.String()
	assert.Contains(t, out, "Add login test")
	assert.Contains(t, out, "Created 1 file(s):\n  - new.go\n")
	assert.Contains(t, out, "Modified 2 file(s):\n  - a.go\n  - b.go\n")
	assert.Contains(t, out, "Failed to process 1 file(s):")
	assert.Contains(t, out, "1 verification step(s):\n  - go test ./...\n")
	assert.NotContains(t, out, "Deleted")
	assert.NotContains(t, out, "No files were updated.")
}

func TestPrintSummary_Empty(t *testing.T) {
	buf := capture(t)

	PrintSummary(model.Summary{})
	assert.Contains(t, buf.String(), "No files were updated.")
}

func TestPrintDiff(t *testing.T) {
	capture(t)
	var buf bytes.Buffer

	diff := "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-old\n+new\n"
	PrintDiff(&buf, diff)
	assert.Equal(t, diff, buf.String())
}

func TestProgressBar(t *testing.T) {
	buf := capture(t)

	bar := NewProgressBar(4, "Applying")
	bar.Set(2)
	bar.Finish()
	assert.Contains(t, buf.String(), "[2/4] 50.0%")
}
