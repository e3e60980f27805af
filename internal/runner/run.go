// run.go — the single-run orchestration procedure (SPEC_FULL.md §8,
// spec §4.7): start the bundle server, launch the engine, wire route
// and handle protocol hosts to the page, navigate, and wait for the
// browser's done-or-crash signal.
package runner

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wrightplay/wrightplay/internal/bridge"
	"github.com/wrightplay/wrightplay/internal/bundle"
	"github.com/wrightplay/wrightplay/internal/coverage"
	"github.com/wrightplay/wrightplay/internal/engine"
	handlehost "github.com/wrightplay/wrightplay/internal/handle/host"
	"github.com/wrightplay/wrightplay/internal/jsbuild"
	"github.com/wrightplay/wrightplay/internal/obslog"
	routehost "github.com/wrightplay/wrightplay/internal/route/host"
	"github.com/wrightplay/wrightplay/internal/runconfig"
	"github.com/wrightplay/wrightplay/internal/state"
)

var runLog = obslog.New("runner")

// Config is one resolved invocation: a runconfig.Run with its glob
// patterns already expanded to concrete file paths by the caller
// (cmd/wrightplay), plus the external collaborators this run drives.
type Config struct {
	Run runconfig.Run

	// Tests are the concrete, already-resolved test file paths (the
	// CLI's glob expansion of Run.Tests).
	Tests []string

	Launcher engine.Launcher
	Bundler  jsbuild.Bundler

	// CoverageAdapter converts a collected run's raw coverage payload.
	// Nil uses coverage.DefaultAdapter (persist-raw placeholder).
	CoverageAdapter coverage.Adapter

	// NoTestsExitCode is returned when Tests is empty, per spec §7's
	// "no test file found" acceptance case. Defaults to 1.
	NoTestsExitCode int
}

// DoneTimeout bounds how long a run waits for the browser's done
// signal before treating the run as hung.
var DoneTimeout = 5 * time.Minute

// Run executes the seven-step procedure once and returns the process
// exit code the browser's done() call (or a host-side failure)
// produced.
func Run(ctx context.Context, cfg Config) (int, error) {
	if len(cfg.Tests) == 0 {
		code := cfg.NoTestsExitCode
		if code == 0 {
			code = 1
		}
		return code, nil
	}

	sessionUUID := uuid.NewString()
	entrySrc, err := bundle.RenderEntry(bundle.EntrySpec{
		Setup:       cfg.Run.Setup,
		Tests:       cfg.Tests,
		SessionUUID: sessionUUID,
	})
	if err != nil {
		return 1, fmt.Errorf("runner: rendering entry: %w", err)
	}

	buildCtx, cancelBuild := context.WithTimeout(ctx, 2*time.Minute)
	outputs, err := cfg.Bundler.Build(buildCtx, jsbuild.BuildInput{
		Cwd:              cfg.Run.Cwd,
		EntrySource:      entrySrc,
		EntryName:        "index.js",
		ExtraEntryPoints: cfg.Run.EntryPoints,
	})
	cancelBuild()
	if err != nil {
		return 1, fmt.Errorf("runner: bundling entry: %w", err)
	}

	cache := bundle.NewCache()
	cache.BeginBuild()
	cache.EndBuild(outputs)

	sessions := newSessionRegistry()
	srv := bundle.NewServer(cache, cfg.Run.Cwd, sessions.onConn)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 1, fmt.Errorf("runner: binding bundle server: %w", err)
	}
	httpSrv := &http.Server{Handler: srv}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			runLog.WithError(err).Warn("bundle server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	tcpAddr, _ := ln.Addr().(*net.TCPAddr)
	if tcpAddr != nil && !bridge.WaitForServer(tcpAddr.Port, 2*time.Second) {
		return 1, fmt.Errorf("runner: bundle server did not become ready")
	}

	baseURL := fmt.Sprintf("http://%s", ln.Addr().String())

	headless := true
	if cfg.Run.Headless != nil {
		headless = *cfg.Run.Headless
	}

	browser, err := cfg.Launcher.Launch(ctx, engine.LaunchOptions{
		Headless:   headless,
		Devtools:   !headless,
		RawOptions: cfg.Run.BrowserServerOptions,
	})
	if err != nil {
		appendExitDiagnostic("launch_failed", map[string]any{"browser": cfg.Run.Browser, "error": err.Error()})
		return 1, fmt.Errorf("runner: launching engine: %w", err)
	}
	defer browser.Close(ctx)

	bctx, err := browser.NewContext(ctx, engine.ContextOptions{BaseURL: baseURL, Headless: headless})
	if err != nil {
		return 1, fmt.Errorf("runner: opening context: %w", err)
	}
	defer bctx.Close(ctx)

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return 1, fmt.Errorf("runner: opening page: %w", err)
	}
	defer page.Close(ctx)

	rh := routehost.New(sessionUUID, bctx)
	rh.Start()
	defer rh.Stop()

	targets := handlehost.NewVector(page, bctx)
	dispatcher := &handlehost.Dispatcher{Targets: targets, Evaluator: engineEvaluator{}}

	sessions.register(sessionUUID, rh, dispatcher)
	defer sessions.unregister(sessionUUID)

	if err := page.Goto(ctx, baseURL+"/"); err != nil {
		appendExitDiagnostic("navigation_failed", map[string]any{"error": err.Error()})
		return 1, fmt.Errorf("runner: navigating: %w", err)
	}

	select {
	case d := <-sessions.waitDone(sessionUUID):
		if d.errMsg != "" {
			runLog.WithField("error", d.errMsg).Warn("run reported an uncaught error")
		}
		if !cfg.Run.NoCov {
			if err := collectCoverage(ctx, browser, cfg.CoverageAdapter); err != nil {
				runLog.WithError(err).Warn("coverage collection failed")
			}
		}
		return d.exitCode, nil
	case <-time.After(DoneTimeout):
		appendExitDiagnostic("done_timeout", map[string]any{"timeout": DoneTimeout.String()})
		return 1, fmt.Errorf("runner: timed out waiting for done signal")
	case <-ctx.Done():
		appendExitDiagnostic("context_canceled", map[string]any{"error": ctx.Err().Error()})
		return 1, ctx.Err()
	}
}

// collectCoverage runs the seven-step procedure's step 6 (SPEC_FULL.md
// §8): hand any Chromium coverage the browser collected to the
// configured adapter. No-op for any other engine.
func collectCoverage(ctx context.Context, browser engine.Browser, adapter coverage.Adapter) error {
	outDir, err := state.CoverageDir()
	if err != nil {
		return fmt.Errorf("runner: resolving coverage dir: %w", err)
	}
	return coverage.Collect(ctx, browser, adapter, outDir)
}
