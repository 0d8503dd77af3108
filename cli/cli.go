package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// FileConfigName is the optional per-project config file in the root.
const FileConfigName = ".codechange.yaml"

// DefaultPromptVersion is used when neither a flag nor the config file names
// a prompt version.
const DefaultPromptVersion = "v0.1"

// Config holds all the command-line flag values.
type Config struct {
	Root            string
	File            string
	DryRun          bool
	Undo            bool
	Redo            bool
	Prompt          bool
	PromptVersion   string
	OutputCanonical bool
	Protect         []string
	NoReload        bool
	NoAnimation     bool

	explicit map[string]bool
}

// FileConfig is the content of .codechange.yaml.
type FileConfig struct {
	Protect       []string `yaml:"protect"`
	PromptVersion string   `yaml:"prompt_version"`
	ReloadNvim    *bool    `yaml:"reload_nvim"`
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("codechange", pflag.ContinueOnError)

	// Define flags
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Preview the changes as unified diffs without writing anything.")
	flags.StringVarP(&cfg.Root, "root", "C", "", "Project root. Defaults to the git top-level, else the current directory.")
	flags.StringVarP(&cfg.File, "file", "f", "", "Read the LLM response from a file instead of stdin or the clipboard.")
	flags.BoolVarP(&cfg.Prompt, "prompt", "p", false, "Print the prompt that teaches the LLM the format and copy it to the clipboard.")
	flags.StringVar(&cfg.PromptVersion, "prompt-version", DefaultPromptVersion, "Prompt version to print.")
	flags.BoolVarP(&cfg.OutputCanonical, "output-canonical", "o", false, "Print the parsed document in canonical form and exit.")
	flags.StringArrayVar(&cfg.Protect, "protect", nil, "Glob of paths that must not be changed (repeatable, doublestar syntax).")
	flags.BoolVar(&cfg.NoReload, "no-reload", false, "Do not ask a running Neovim to reload changed files.")
	flags.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable loading spinner and progress updates.")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last operation.")
	flags.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone operation.")

	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: codechange [flags]")
		fmt.Fprintln(os.Stderr, "\nApply a <code-change> document from a file, stdin (pipe) or the clipboard to the project.")
		fmt.Fprintln(os.Stderr, "\nExample: pbpaste | codechange --dry-run")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Validate mutually exclusive flags
	if cfg.Undo && cfg.Redo {
		return nil, errors.New("--undo and --redo are mutually exclusive")
	}
	if (cfg.Undo || cfg.Redo) && cfg.DryRun {
		return nil, errors.New("--dry-run cannot be combined with --undo or --redo")
	}

	cfg.explicit = make(map[string]bool)
	flags.Visit(func(f *pflag.Flag) {
		cfg.explicit[f.Name] = true
	})
	return cfg, nil
}

// IsSet reports whether the flag name was given on the command line.
func (c *Config) IsSet(name string) bool {
	return c.explicit[name]
}

// Merge fills settings from fc that were not set on the command line.
// Protected globs from both sources apply.
func (c *Config) Merge(fc *FileConfig) {
	if fc == nil {
		return
	}
	c.Protect = append(c.Protect, fc.Protect...)
	if fc.PromptVersion != "" && !c.IsSet("prompt-version") {
		c.PromptVersion = fc.PromptVersion
	}
	if fc.ReloadNvim != nil && !c.IsSet("no-reload") {
		c.NoReload = !*fc.ReloadNvim
	}
}

// LoadFileConfig reads .codechange.yaml from root. A missing file yields nil
// and no error.
func LoadFileConfig(root string) (*FileConfig, error) {
	path := filepath.Join(root, FileConfigName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileConfigName, err)
	}

	fc := &FileConfig{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid %s: %w", FileConfigName, err)
	}
	return fc, nil
}
