package parser

import (
	"encoding/xml"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/sokinpui/codechange.go/internal/fs"
	"github.com/sokinpui/codechange.go/model"
)

// Element and attribute names of the <code-change> dialect.
const (
	tagRoot            = "code-change"
	tagSummary         = "summary"
	tagFilesToChange   = "files-to-change"
	tagFile            = "file"
	tagChanges         = "changes"
	tagChange          = "change"
	tagModify          = "modify"
	tagAdd             = "add"
	tagDelete          = "delete"
	tagAdditionalSteps = "additional-steps"
	tagVerification    = "verification"
	tagStep            = "step"

	attrName      = "name"
	attrFileName  = "file-name"
	attrStartLine = "start-line"
	attrEndLine   = "end-line"
)

// rootStartRegex finds opening <code-change> tags, with or without attributes.
var rootStartRegex = regexp.MustCompile(`<code-change[\s/>]`)

// node is a generic element tree; the dialect rules are applied on top of it
// so unknown elements are reported instead of silently dropped.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) name() string {
	return n.XMLName.Local
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Parse locates a <code-change> document inside content, which may be an
// entire LLM response with prose and code fences around the document, and
// converts it into a ChangeSet.
func Parse(content string) (*model.ChangeSet, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Kind: ErrMalformedXML, Detail: "empty or whitespace-only input"}
	}

	root, err := locateDocument(content)
	if err != nil {
		return nil, err
	}
	return buildChangeSet(root)
}

// candidates returns every text suffix that starts at a <code-change> tag.
// Fenced code blocks come first: prose often mentions the tag before the
// actual document. Blocks tagged xml, or not tagged at all, are tried before
// blocks in other languages.
func candidates(content string) []string {
	var preferred, others []string
	if blocks, err := ExtractCodeBlocks([]byte(content)); err == nil {
		for _, block := range blocks {
			if !rootStartRegex.MatchString(block.Content) {
				continue
			}
			if isXMLFence(block.Lang) {
				preferred = append(preferred, block.Content)
			} else {
				others = append(others, block.Content)
			}
		}
	}
	sources := append(preferred, others...)
	sources = append(sources, content)

	var fragments []string
	for _, src := range sources {
		for _, loc := range rootStartRegex.FindAllStringIndex(src, -1) {
			fragments = append(fragments, src[loc[0]:])
		}
	}
	return fragments
}

func isXMLFence(lang string) bool {
	fields := strings.Fields(lang)
	return len(fields) == 0 || strings.EqualFold(fields[0], "xml")
}

func locateDocument(content string) (*node, error) {
	fragments := candidates(content)
	if len(fragments) == 0 {
		return nil, schemaErr("no <%s> root element found", tagRoot)
	}

	var firstErr error
	for _, fragment := range fragments {
		root, err := decode(fragment)
		if err == nil {
			return root, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// decode reads exactly one element from the start of fragment. Anything after
// the matching end tag is left unread.
func decode(fragment string) (*node, error) {
	decoder := xml.NewDecoder(strings.NewReader(fragment))
	decoder.Strict = true

	var root node
	if err := decoder.Decode(&root); err != nil {
		pe := &ParseError{Kind: ErrMalformedXML, Detail: err.Error()}
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			pe.Detail = syntaxErr.Msg
			pe.Line = syntaxErr.Line
		}
		return nil, pe
	}
	return &root, nil
}

func buildChangeSet(root *node) (*model.ChangeSet, error) {
	if root.name() != tagRoot {
		return nil, schemaErr("root element is <%s>, want <%s>", root.name(), tagRoot)
	}

	if err := noText(root); err != nil {
		return nil, err
	}

	cs := &model.ChangeSet{}
	seen := make(map[string]bool)
	for i := range root.Nodes {
		child := &root.Nodes[i]
		if seen[child.name()] {
			return nil, schemaErr("<%s> appears more than once", child.name())
		}
		seen[child.name()] = true

		var err error
		switch child.name() {
		case tagSummary:
			err = noChildren(child)
			cs.Summary = strings.TrimSpace(child.Text)
		case tagFilesToChange:
			cs.FilesToChange, err = parseFiles(child)
		case tagChanges:
			cs.Changes, err = parseChanges(child)
		case tagAdditionalSteps:
			cs.AdditionalSteps, err = parseSteps(child)
		case tagVerification:
			cs.VerificationSteps, err = parseSteps(child)
		default:
			err = schemaErr("unexpected element <%s> in <%s>", child.name(), tagRoot)
		}
		if err != nil {
			return nil, err
		}
	}

	if !seen[tagSummary] {
		return nil, schemaErr("missing required element <%s>", tagSummary)
	}
	if err := crossCheck(cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func parseFiles(n *node) ([]model.FileRef, error) {
	if err := noText(n); err != nil {
		return nil, err
	}
	var files []model.FileRef
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.name() != tagFile {
			return nil, schemaErr("unexpected element <%s> in <%s>", child.name(), tagFilesToChange)
		}
		if err := noChildren(child); err != nil {
			return nil, err
		}
		if err := noText(child); err != nil {
			return nil, err
		}
		name, _ := child.attr(attrName)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, schemaErr("<%s> is missing the %q attribute", tagFile, attrName)
		}
		files = append(files, model.FileRef{Path: name})
	}
	return files, nil
}

func parseChanges(n *node) ([]model.FileChange, error) {
	if err := noText(n); err != nil {
		return nil, err
	}
	var changes []model.FileChange
	seen := make(map[string]bool)
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.name() != tagChange {
			return nil, schemaErr("unexpected element <%s> in <%s>", child.name(), tagChanges)
		}
		change, err := parseChange(child)
		if err != nil {
			return nil, err
		}
		key := pathKey(change.Path)
		if seen[key] {
			return nil, schemaErr("more than one <%s> block for %q", tagChange, change.Path)
		}
		seen[key] = true
		changes = append(changes, change)
	}
	return changes, nil
}

func parseChange(n *node) (model.FileChange, error) {
	path, _ := n.attr(attrFileName)
	path = strings.TrimSpace(path)
	if path == "" {
		return model.FileChange{}, schemaErr("<%s> is missing the %q attribute", tagChange, attrFileName)
	}

	if err := noText(n); err != nil {
		return model.FileChange{}, err
	}

	change := model.FileChange{Path: path}
	var adds, deletes int
	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch child.name() {
		case tagModify:
			op, err := parseModify(child, path)
			if err != nil {
				return model.FileChange{}, err
			}
			change.Operations = append(change.Operations, op)
		case tagAdd:
			if adds++; adds > 1 {
				return model.FileChange{}, schemaErr("more than one <%s> for %q", tagAdd, path)
			}
			if err := noChildren(child); err != nil {
				return model.FileChange{}, err
			}
			change.Operations = append(change.Operations, model.Add{Content: normalizeContent(child.Text)})
		case tagDelete:
			if deletes++; deletes > 1 {
				return model.FileChange{}, schemaErr("more than one <%s> for %q", tagDelete, path)
			}
			if err := noChildren(child); err != nil {
				return model.FileChange{}, err
			}
			if err := noText(child); err != nil {
				return model.FileChange{}, err
			}
			change.Operations = append(change.Operations, model.Delete{})
		default:
			return model.FileChange{}, schemaErr("<%s> is not allowed in the <%s> block for %q", child.name(), tagChange, path)
		}
	}

	switch {
	case len(change.Operations) == 0:
		return model.FileChange{}, schemaErr("<%s> block for %q has no operations", tagChange, path)
	case deletes > 0 && len(change.Operations) > 1:
		return model.FileChange{}, schemaErr("<%s> cannot be combined with other operations for %q", tagDelete, path)
	}
	return change, nil
}

func parseModify(n *node, path string) (model.Modify, error) {
	start, err := lineAttr(n, attrStartLine, path)
	if err != nil {
		return model.Modify{}, err
	}
	end, err := lineAttr(n, attrEndLine, path)
	if err != nil {
		return model.Modify{}, err
	}
	if end < start {
		return model.Modify{}, rangeErr("%s: %s=%d is before %s=%d", path, attrEndLine, end, attrStartLine, start)
	}
	if err := noChildren(n); err != nil {
		return model.Modify{}, err
	}
	return model.Modify{StartLine: start, EndLine: end, Content: normalizeContent(n.Text)}, nil
}

func lineAttr(n *node, name, path string) (int, error) {
	raw, ok := n.attr(name)
	if !ok {
		return 0, schemaErr("<%s> for %q is missing the %q attribute", tagModify, path, name)
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, rangeErr("%s: %s=%q is not a number", path, name, raw)
	}
	if value < 1 {
		return 0, rangeErr("%s: %s=%d must be a positive integer", path, name, value)
	}
	return value, nil
}

func parseSteps(n *node) ([]string, error) {
	if err := noText(n); err != nil {
		return nil, err
	}
	var steps []string
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.name() != tagStep {
			return nil, schemaErr("unexpected element <%s> in <%s>", child.name(), n.name())
		}
		if err := noChildren(child); err != nil {
			return nil, err
		}
		steps = append(steps, strings.TrimSpace(child.Text))
	}
	return steps, nil
}

// crossCheck enforces the one-to-one match between declared files and change
// blocks.
func crossCheck(cs *model.ChangeSet) error {
	declared := make(map[string]bool, len(cs.FilesToChange))
	for _, f := range cs.FilesToChange {
		declared[pathKey(f.Path)] = true
	}
	changed := make(map[string]bool, len(cs.Changes))
	for _, c := range cs.Changes {
		key := pathKey(c.Path)
		if !declared[key] {
			return schemaErr("<%s %s=%q> is not listed in <%s>", tagChange, attrFileName, c.Path, tagFilesToChange)
		}
		changed[key] = true
	}
	for _, f := range cs.FilesToChange {
		if !changed[pathKey(f.Path)] {
			return schemaErr("<%s %s=%q> has no matching <%s> block", tagFile, attrName, f.Path, tagChange)
		}
	}
	return nil
}

// pathKey compares paths after normalization when possible. Paths that do not
// normalize are compared verbatim and left for validation to reject.
func pathKey(p string) string {
	if cleaned, err := fs.NormalizeRelPath(p); err == nil {
		return cleaned
	}
	return p
}

func noChildren(n *node) error {
	if len(n.Nodes) == 0 {
		return nil
	}
	return schemaErr("<%s> must not contain element <%s>; escape markup in content or wrap it in CDATA", n.name(), n.Nodes[0].name())
}

// noText rejects text placed directly in an element that only holds other
// elements.
func noText(n *node) error {
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return nil
	}
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return schemaErr("<%s> must not contain text %q; content belongs in <%s> or <%s>", n.name(), text, tagModify, tagAdd)
}

// normalizeContent drops blank lines around a content block. Indentation and
// inner blank lines are kept verbatim.
func normalizeContent(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
