package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/codechange.go/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	HunkColor    = color.New(color.FgCyan)
)

// Output is where status messages go.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

func Prompt(format string, a ...interface{}) string {
	return PromptColor.Sprintf(format, a...)
}

// --- Summaries ---

func printList(c *color.Color, title string, items []string) {
	if len(items) == 0 {
		return
	}
	c.Fprintf(Output, title+"\n", len(items))
	for _, f := range items {
		fmt.Fprintf(Output, "  - %s\n", f)
	}
}

// PrintSummary prints the outcome of a run.
func PrintSummary(s model.Summary) {
	if s.Preview != "" {
		PrintDiff(os.Stdout, s.Preview)
	}

	Header("\n--- Summary ---")
	if s.Message != "" {
		Info("%s", s.Message)
	}

	printList(SuccessColor, "Created %d file(s):", s.Created)
	printList(SuccessColor, "Modified %d file(s):", s.Modified)
	printList(SuccessColor, "Deleted %d file(s):", s.Deleted)
	printList(InfoColor, "%d file(s) were already absent:", s.Missing)
	printList(ErrorColor, "Failed to process %d file(s):", s.Failed)
	printList(WarningColor, "%d warning(s):", s.Warnings)
	printList(InfoColor, "%d additional step(s) to perform:", s.Steps)
	printList(InfoColor, "%d verification step(s):", s.Verification)

	if IsEmpty(s) && s.Message == "" {
		Info("No files were updated.")
	}
}

// IsEmpty reports whether s lists no files at all.
func IsEmpty(s model.Summary) bool {
	return len(s.Created)+len(s.Modified)+len(s.Deleted)+len(s.Missing)+len(s.Failed) == 0
}

// PrintDiff writes a unified diff with added and removed lines colored.
func PrintDiff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			HeaderColor.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			HunkColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			AddedColor.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			RemovedColor.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Finish() {
	if p.total > 0 {
		fmt.Fprintln(Output)
	}
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(Output, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
