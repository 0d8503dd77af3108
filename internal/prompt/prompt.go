// Package prompt holds the versioned prompts that teach an LLM the
// <code-change> dialect.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// CurrentVersion is the prompt used when no version is requested.
const CurrentVersion = "v0.1"

// ErrUnknownVersion is returned for a version with no template.
var ErrUnknownVersion = errors.New("unknown prompt version")

//go:embed templates/*.md
var templates embed.FS

// versions lists the valid versions, oldest first.
var versions = []string{"v0.1"}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Versions returns the valid prompt versions.
func Versions() []string {
	return append([]string(nil), versions...)
}

// Normalize trims and lower-cases a version string.
func Normalize(version string) string {
	return strings.ToLower(strings.TrimSpace(version))
}

// Get returns the prompt for version.
func Get(version string) (string, error) {
	normalized := Normalize(version)
	for _, v := range versions {
		if v != normalized {
			continue
		}
		data, err := templates.ReadFile("templates/" + v + ".md")
		if err != nil {
			return "", fmt.Errorf("could not load prompt %s: %w", v, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w %q, valid versions: %s", ErrUnknownVersion, normalized, strings.Join(versions, ", "))
}

// Copy places the prompt for version on the system clipboard and returns it.
func Copy(version string) (string, error) {
	text, err := Get(version)
	if err != nil {
		return "", err
	}
	if err := writeClipboard(text); err != nil {
		return text, fmt.Errorf("failed to copy prompt to clipboard: %w", err)
	}
	return text, nil
}
