package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sokinpui/codechange.go/model"
)

var (
	// A raw "\r" would come back as "\n" after end-of-line normalization.
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\r", "&#13;")
)

// Marshal renders cs as a canonical <code-change> document. Parsing the result
// yields a change set equal to cs.
func Marshal(cs *model.ChangeSet) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<%s>\n", tagRoot)
	fmt.Fprintf(&b, "  <%s>%s</%s>\n", tagSummary, textEscaper.Replace(cs.Summary), tagSummary)

	if len(cs.FilesToChange) > 0 {
		fmt.Fprintf(&b, "  <%s>\n", tagFilesToChange)
		for _, f := range cs.FilesToChange {
			fmt.Fprintf(&b, "    <%s %s=\"%s\" />\n", tagFile, attrName, attrEscaper.Replace(f.Path))
		}
		fmt.Fprintf(&b, "  </%s>\n", tagFilesToChange)
	}

	if len(cs.Changes) > 0 {
		fmt.Fprintf(&b, "  <%s>\n", tagChanges)
		for _, change := range cs.Changes {
			fmt.Fprintf(&b, "    <%s %s=\"%s\">\n", tagChange, attrFileName, attrEscaper.Replace(change.Path))
			for _, op := range change.Operations {
				writeOperation(&b, op)
			}
			fmt.Fprintf(&b, "    </%s>\n", tagChange)
		}
		fmt.Fprintf(&b, "  </%s>\n", tagChanges)
	}

	writeSteps(&b, tagAdditionalSteps, cs.AdditionalSteps)
	writeSteps(&b, tagVerification, cs.VerificationSteps)

	fmt.Fprintf(&b, "</%s>\n", tagRoot)
	return b.Bytes()
}

func writeOperation(b *bytes.Buffer, op model.Operation) {
	const indent = "      "
	switch op := op.(type) {
	case model.Modify:
		open := fmt.Sprintf("<%s %s=\"%d\" %s=\"%d\">", tagModify, attrStartLine, op.StartLine, attrEndLine, op.EndLine)
		writeContent(b, indent, open, tagModify, op.Content)
	case model.Add:
		writeContent(b, indent, "<"+tagAdd+">", tagAdd, op.Content)
	case model.Delete:
		fmt.Fprintf(b, "%s<%s />\n", indent, tagDelete)
	}
}

// writeContent puts content on its own lines so its indentation survives.
func writeContent(b *bytes.Buffer, indent, open, tag, content string) {
	if content == "" {
		fmt.Fprintf(b, "%s%s</%s>\n", indent, open, tag)
		return
	}
	fmt.Fprintf(b, "%s%s\n%s\n%s</%s>\n", indent, open, textEscaper.Replace(content), indent, tag)
}

func writeSteps(b *bytes.Buffer, tag string, steps []string) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintf(b, "  <%s>\n", tag)
	for _, step := range steps {
		fmt.Fprintf(b, "    <%s>%s</%s>\n", tagStep, textEscaper.Replace(step), tagStep)
	}
	fmt.Fprintf(b, "  </%s>\n", tag)
}
