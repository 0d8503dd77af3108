package nvim

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// AddressEnv names the environment variable holding the socket of a running
// Neovim.
const AddressEnv = "NVIM_LISTEN_ADDRESS"

// client is the part of *nvim.Nvim the reloader uses.
type client interface {
	Command(cmd string) error
	Close() error
}

// Manager handles the connection to a running Neovim instance so buffers of
// files changed on disk can be reloaded.
type Manager struct {
	nvim client
}

// New connects to the Neovim named by $NVIM_LISTEN_ADDRESS. It returns nil
// and no error when the variable is unset.
func New() (*Manager, error) {
	addr := os.Getenv(AddressEnv)
	if addr == "" {
		return nil, nil
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to neovim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m != nil && m.nvim != nil {
		m.nvim.Close()
	}
}

// processSequentially runs processFn on each item in order.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return succeeded, failed
}

// ReloadFiles makes Neovim re-read the given files (absolute paths) from
// disk. Files without a loaded buffer are skipped by Neovim itself.
func (m *Manager) ReloadFiles(paths []string, progressCb func(int)) (reloaded, failed []string) {
	reloaded, failed = processSequentially(paths, func(path string) (string, bool) {
		return path, m.reloadBuffer(path)
	}, progressCb)

	// Refresh anything else that changed, e.g. buffers of deleted files.
	if err := m.nvim.Command("checktime"); err != nil {
		failed = append(failed, "checktime")
	}
	return reloaded, failed
}

func (m *Manager) reloadBuffer(path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	cmd := fmt.Sprintf("if bufexists(%q) | checktime %s | endif", path, escapePath(path))
	return m.nvim.Command(cmd) == nil
}

// escapePath escapes characters that are special in an Ex command argument.
func escapePath(path string) string {
	var out []rune
	for _, r := range path {
		switch r {
		case ' ', '\\', '|', '%', '#', '"':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
