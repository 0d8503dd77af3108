// Package fs gives the rest of codechange a root-scoped view of the working
// tree. Paths handed to a WorkingTree are always relative to the project root;
// writes go through a temp file and a rename so a file is never left half
// written.
package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
)

// ErrPathEscapesRoot is returned for paths that are absolute or climb above
// the project root.
var ErrPathEscapesRoot = errors.New("path escapes project root")

// WorkingTree is the file access the engine needs. Paths are relative to the
// tree root. A missing file is reported with an error matching fs.ErrNotExist.
type WorkingTree interface {
	Root() string
	ReadFile(rel string) ([]byte, error)
	WriteFile(rel string, data []byte) error
	Remove(rel string) error
}

// LineCount returns the number of lines of rel in tree.
func LineCount(tree WorkingTree, rel string) (int, error) {
	data, err := tree.ReadFile(rel)
	if err != nil {
		return 0, err
	}
	return len(ParseDocument(data).Lines), nil
}

// IsNotExist reports whether err means the file does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}

// NormalizeRelPath cleans a project-relative path and rejects anything that
// would resolve outside the root. The result always uses forward slashes.
func NormalizeRelPath(p string) (string, error) {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	slashed := strings.ReplaceAll(trimmed, "\\", "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(trimmed) || filepath.VolumeName(trimmed) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathEscapesRoot, p)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return "", fmt.Errorf("invalid path: %q names the project root", p)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q climbs above the root", ErrPathEscapesRoot, p)
	}
	return cleaned, nil
}

// OSTree is a WorkingTree backed by the real filesystem under root.
type OSTree struct {
	root string
}

// NewOSTree creates an OSTree rooted at dir.
func NewOSTree(dir string) (*OSTree, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", abs)
	}
	return &OSTree{root: abs}, nil
}

// Root returns the absolute root directory.
func (t *OSTree) Root() string {
	return t.root
}

// Abs maps a relative path to its absolute location under the root.
func (t *OSTree) Abs(rel string) (string, error) {
	cleaned, err := NormalizeRelPath(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(t.root, filepath.FromSlash(cleaned)), nil
}

// ReadFile reads the entire contents of a file.
func (t *OSTree) ReadFile(rel string) ([]byte, error) {
	abs, err := t.Abs(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}
	return os.ReadFile(abs)
}

// WriteFile writes data to rel atomically using temp file + rename.
// Missing parent directories are created and an existing file keeps its mode.
func (t *OSTree) WriteFile(rel string, data []byte) error {
	abs, err := t.Abs(rel)
	if err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(abs); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// The temp file lives next to the target so the rename stays on one device.
	tmpFile, err := os.CreateTemp(dir, ".codechange-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmpFile = nil
	return nil
}

// Remove deletes a file. Parent directories left empty are removed as well,
// stopping at the root.
func (t *OSTree) Remove(rel string) error {
	abs, err := t.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return err
	}
	t.pruneEmptyParents(filepath.Dir(abs))
	return nil
}

func (t *OSTree) pruneEmptyParents(dir string) {
	for dir != t.root && strings.HasPrefix(dir, t.root+string(filepath.Separator)) {
		if isEmpty, err := IsEmpty(dir); err != nil || !isEmpty {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// IsEmpty reports whether a directory has no entries.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// FindProjectRoot returns the git top-level directory containing dir, or dir
// itself when it is not inside a repository.
func FindProjectRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err == nil {
		if top := strings.TrimSpace(string(output)); top != "" {
			return top, nil
		}
	}
	return filepath.Abs(dir)
}
