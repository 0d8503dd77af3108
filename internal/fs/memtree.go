package fs

import (
	"fmt"
	iofs "io/fs"
	"sort"
	"sync"
)

// MemTree is an in-memory WorkingTree. Write and remove failures can be
// injected per path.
type MemTree struct {
	mu       sync.Mutex
	root     string
	files    map[string][]byte
	failures map[string]error
}

// NewMemTree creates a MemTree holding files (path -> content).
func NewMemTree(files map[string]string) *MemTree {
	t := &MemTree{
		root:     "/mem",
		files:    make(map[string][]byte, len(files)),
		failures: make(map[string]error),
	}
	for p, content := range files {
		t.files[p] = []byte(content)
	}
	return t
}

// Root returns a fixed pseudo root.
func (t *MemTree) Root() string {
	return t.root
}

// FailOn makes every write or remove of rel fail with err.
func (t *MemTree) FailOn(rel string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[rel] = err
}

// ReadFile returns a copy of the stored content.
func (t *MemTree) ReadFile(rel string) ([]byte, error) {
	cleaned, err := NormalizeRelPath(rel)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	data, ok := t.files[cleaned]
	if !ok {
		return nil, &iofs.PathError{Op: "open", Path: rel, Err: iofs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// WriteFile stores data for rel.
func (t *MemTree) WriteFile(rel string, data []byte) error {
	cleaned, err := NormalizeRelPath(rel)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.failures[cleaned]; err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	t.files[cleaned] = append([]byte(nil), data...)
	return nil
}

// Remove deletes rel.
func (t *MemTree) Remove(rel string) error {
	cleaned, err := NormalizeRelPath(rel)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.failures[cleaned]; err != nil {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	if _, ok := t.files[cleaned]; !ok {
		return &iofs.PathError{Op: "remove", Path: rel, Err: iofs.ErrNotExist}
	}
	delete(t.files, cleaned)
	return nil
}

// Paths lists the stored paths in sorted order.
func (t *MemTree) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Content returns the stored content of rel as a string, or "" if absent.
func (t *MemTree) Content(rel string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.files[rel])
}
