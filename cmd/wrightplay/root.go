package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wrightplay/wrightplay/internal/bridge"
	"github.com/wrightplay/wrightplay/internal/engine"
	"github.com/wrightplay/wrightplay/internal/jsbuild"
	"github.com/wrightplay/wrightplay/internal/obslog"
	"github.com/wrightplay/wrightplay/internal/runconfig"
	"github.com/wrightplay/wrightplay/internal/runner"
)

var rootLog = obslog.New("cli")

// lastExitCode carries the computed exit code out of RunE, since
// cobra itself only distinguishes "error" from "no error".
var lastExitCode int

type flags struct {
	cwd                  string
	config               string
	setup                string
	watch                bool
	browser              string
	browserServerOptions string
	debug                bool
	noCov                bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "wrightplay [glob|name=path ...]",
		Short: "Run browser-executed test files through a registered automation engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runMain(cmd.Context(), f, args)
			lastExitCode = code
			return err
		},
	}
	cmd.SilenceUsage = true

	cmd.Flags().StringVar(&f.cwd, "cwd", ".", "working directory test paths and config resolve against")
	cmd.Flags().StringVar(&f.config, "config", "", "config file (JSON or YAML) listing one or more runs")
	cmd.Flags().StringVarP(&f.setup, "setup", "s", "", "setup file imported before any test file")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "rebuild and rerun on source changes")
	cmd.Flags().StringVarP(&f.browser, "browser", "b", "mock", "automation engine adapter to launch (register real adapters via engine.Register)")
	cmd.Flags().StringVar(&f.browserServerOptions, "browser-server-options", "", "raw JSON passed through to the launched browser")
	cmd.Flags().BoolVarP(&f.debug, "debug", "d", false, "run headed with devtools open and verbose logging")
	cmd.Flags().BoolVar(&f.noCov, "no-cov", false, "skip coverage collection")

	cmd.AddCommand(newReplayCmd())

	return cmd
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	return 2
}

func runMain(ctx context.Context, f *flags, args []string) (int, error) {
	if f.debug {
		obslog.SetDebug(true)
	}

	var runs []runconfig.Run
	if f.config != "" {
		loaded, err := runconfig.Load(f.config)
		if err != nil {
			return 2, err
		}
		runs = loaded
	} else {
		runs = []runconfig.Run{flagsToRun(f, args)}
	}

	bundler := jsbuild.NewESBuildAdapter("")
	codes := make([]int, 0, len(runs))

	for _, r := range runs {
		launcher, err := engine.Lookup(resolveBrowser(r, f))
		if err != nil {
			return 2, err
		}

		tests, entryPoints, err := resolveTestArgs(r.Cwd, r.Tests)
		if err != nil {
			return 2, err
		}
		if r.EntryPoints == nil {
			r.EntryPoints = entryPoints
		}

		cfg := runner.Config{Run: r, Tests: tests, Launcher: launcher, Bundler: bundler}

		var code int
		if r.Watch {
			code, err = runWithWatch(ctx, cfg)
		} else {
			code, err = runner.Run(ctx, cfg)
		}
		if err != nil {
			if bridge.IsConnectionError(err) {
				rootLog.WithError(err).Error("run failed: could not reach the bundle server or browser endpoint")
			} else {
				rootLog.WithError(err).Error("run failed")
			}
			return 1, err
		}
		codes = append(codes, code)
	}

	return runner.AggregateExitCodes(codes), nil
}

func resolveBrowser(r runconfig.Run, f *flags) string {
	if r.Browser != "" {
		return r.Browser
	}
	return f.browser
}

func flagsToRun(f *flags, args []string) runconfig.Run {
	headless := !f.debug
	var rawOpts json.RawMessage
	if f.browserServerOptions != "" {
		rawOpts = json.RawMessage(f.browserServerOptions)
	}
	return runconfig.Run{
		Cwd:                  f.cwd,
		Setup:                f.setup,
		Tests:                args,
		Watch:                f.watch,
		Browser:              f.browser,
		BrowserServerOptions: rawOpts,
		Headless:             &headless,
		NoCov:                f.noCov,
	}
}

// resolveTestArgs expands each positional argument into either a
// glob-matched set of test files or a name=path extra entry point
// (spec §6: "positional glob/name=path args").
func resolveTestArgs(cwd string, patterns []string) (tests []string, entryPoints map[string]string, err error) {
	entryPoints = map[string]string{}
	for _, pattern := range patterns {
		if name, path, ok := strings.Cut(pattern, "="); ok {
			entryPoints[name] = path
			continue
		}
		matches, err := filepath.Glob(filepath.Join(cwd, pattern))
		if err != nil {
			return nil, nil, fmt.Errorf("cli: invalid glob %q: %w", pattern, err)
		}
		tests = append(tests, matches...)
	}
	return tests, entryPoints, nil
}
