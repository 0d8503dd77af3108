package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// Origin names where content was read from.
type Origin string

const (
	OriginFile      Origin = "file"
	OriginStdin     Origin = "stdin"
	OriginClipboard Origin = "clipboard"
)

// SourceProvider determines and retrieves the source content.
type SourceProvider struct {
	file          string
	stdin         io.Reader
	stdinPiped    func() bool
	readClipboard func() (string, error)
}

// New creates a new SourceProvider. A non-empty file takes precedence over
// stdin and the clipboard.
func New(file string) *SourceProvider {
	return &SourceProvider{
		file:          file,
		stdin:         os.Stdin,
		stdinPiped:    isStdinPiped,
		readClipboard: clipboard.ReadAll,
	}
}

func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from the file, stdin (if piped) or the
// clipboard, in that order.
func (sp *SourceProvider) GetContent() (string, Origin, error) {
	if sp.file != "" {
		content, err := os.ReadFile(sp.file)
		if err != nil {
			return "", OriginFile, fmt.Errorf("failed to read %s: %w", sp.file, err)
		}
		return string(content), OriginFile, nil
	}

	if sp.stdinPiped() {
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", OriginStdin, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), OriginStdin, nil
	}

	content, err := sp.readClipboard()
	if err != nil {
		return "", OriginClipboard, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, OriginClipboard, nil
}
