package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sokinpui/codechange.go/cli"
	"github.com/sokinpui/codechange.go/codechange"
	"github.com/sokinpui/codechange.go/internal/tui"
	"github.com/sokinpui/codechange.go/internal/ui"
	"github.com/sokinpui/codechange.go/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		os.Exit(flagErrorCode(err, os.Stderr))
	}

	app, err := codechange.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Flags that print to stdout and should not run the TUI.
	if cfg.Prompt || cfg.OutputCanonical {
		if _, err := app.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if cfg.NoAnimation {
		os.Exit(runPlain(app))
	}

	m := tui.New(app, cfg)
	p := tea.NewProgram(m)
	m.SetProgram(p)
	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
	if done, ok := final.(tui.Model); ok {
		if done.Err() != nil {
			os.Exit(1)
		}
		os.Exit(exitCode(done.Summary()))
	}
}

// flagErrorCode reports a flag parsing error on w. Help was requested when err
// is pflag.ErrHelp; the usage text is already printed then.
func flagErrorCode(err error, w io.Writer) int {
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	fmt.Fprintln(w, "Run 'codechange --help' for usage.")
	return 1
}

func runPlain(app *codechange.App) int {
	ui.Info("Project root: %s", app.Root())

	var bar *ui.ProgressBar
	app.SetProgressCallback(func(current, total int) {
		if bar == nil {
			bar = ui.NewProgressBar(total, "Applying")
		}
		bar.Set(current)
	})

	summary, err := app.Execute()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		ui.Error("Error: %v", err)
		var detailed *codechange.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return 1
	}

	ui.PrintSummary(summary)
	return exitCode(summary)
}

func exitCode(s model.Summary) int {
	if len(s.Failed) > 0 {
		return 1
	}
	return 0
}
