package fs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Document is the line view of a file.
type Document struct {
	Lines []string
	// EOL is the most common line ending, used for inserted lines.
	EOL string
	// FinalNewline records whether the last line was terminated.
	FinalNewline bool
	// endings holds the terminator read after each line, parallel to Lines.
	endings []string
}

// NewDocument returns the document used for files that do not exist yet.
func NewDocument() Document {
	return Document{EOL: "\n", FinalNewline: true}
}

// ParseDocument splits file content into lines. Empty content has no lines;
// "\n" is a single empty line. Every line keeps its own ending, so files
// mixing "\r\n" and "\n" render back unchanged.
func ParseDocument(data []byte) Document {
	doc := NewDocument()
	if len(data) == 0 {
		return doc
	}

	text := string(data)
	doc.FinalNewline = strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")

	parts := strings.Split(text, "\n")
	var crlf, lf int
	for i, line := range parts {
		ending := ""
		switch {
		case i == len(parts)-1 && !doc.FinalNewline:
		case strings.HasSuffix(line, "\r"):
			line = strings.TrimSuffix(line, "\r")
			ending = "\r\n"
			crlf++
		default:
			ending = "\n"
			lf++
		}
		doc.Lines = append(doc.Lines, line)
		doc.endings = append(doc.endings, ending)
	}
	if crlf > lf {
		doc.EOL = "\r\n"
	}
	return doc
}

// Bytes renders the document back to file content.
func (d Document) Bytes() []byte {
	if len(d.Lines) == 0 {
		return nil
	}

	var buf bytes.Buffer
	last := len(d.Lines) - 1
	for i, line := range d.Lines {
		buf.WriteString(line)
		if i < last || d.FinalNewline {
			buf.WriteString(d.ending(i))
		}
	}
	return buf.Bytes()
}

func (d Document) ending(i int) string {
	if len(d.endings) == len(d.Lines) && d.endings[i] != "" {
		return d.endings[i]
	}
	if d.EOL == "" {
		return "\n"
	}
	return d.EOL
}

// Splice returns a copy of d with lines start..end (1-indexed, inclusive)
// replaced by lines. Untouched lines keep their endings.
func (d Document) Splice(start, end int, lines []string) Document {
	out := d
	out.Lines = make([]string, 0, len(d.Lines)-(end-start+1)+len(lines))
	out.Lines = append(out.Lines, d.Lines[:start-1]...)
	out.Lines = append(out.Lines, lines...)
	out.Lines = append(out.Lines, d.Lines[end:]...)

	out.endings = make([]string, 0, len(out.Lines))
	for i := 0; i < start-1; i++ {
		out.endings = append(out.endings, d.ending(i))
	}
	for range lines {
		out.endings = append(out.endings, "")
	}
	for i := end; i < len(d.Lines); i++ {
		out.endings = append(out.endings, d.ending(i))
	}
	return out
}

// Append returns a copy of d with lines added after its last line.
func (d Document) Append(lines []string) Document {
	return d.Splice(len(d.Lines)+1, len(d.Lines), lines)
}

// SplitContent turns a content block from a change set into lines. An empty
// block is zero lines.
func SplitContent(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}

// Snapshot identifies the content of a file at one point in time.
type Snapshot struct {
	Exists    bool
	Hash      string
	LineCount int
}

// SnapshotOf describes data as read from a file. exists is false when the
// file was not found.
func SnapshotOf(data []byte, exists bool) Snapshot {
	if !exists {
		return Snapshot{}
	}
	return Snapshot{
		Exists:    true,
		Hash:      HashBytes(data),
		LineCount: len(ParseDocument(data).Lines),
	}
}

// TakeSnapshot reads rel from tree and describes it.
func TakeSnapshot(tree WorkingTree, rel string) (Snapshot, error) {
	data, err := tree.ReadFile(rel)
	if err != nil {
		if IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}
	return SnapshotOf(data, true), nil
}

// Matches reports whether two snapshots describe the same content.
func (s Snapshot) Matches(other Snapshot) bool {
	return s.Exists == other.Exists && s.Hash == other.Hash
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
