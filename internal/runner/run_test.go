package runner

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/wrightplay/wrightplay/internal/bridge"
	"github.com/wrightplay/wrightplay/internal/engine"
	"github.com/wrightplay/wrightplay/internal/jsbuild"
	"github.com/wrightplay/wrightplay/internal/runconfig"
)

func TestRunNoTestsReturnsConfiguredExitCode(t *testing.T) {
	code, err := Run(context.Background(), Config{NoTestsExitCode: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 1 {
		t.Fatalf("expected exit code 1 for no tests, got %d", code)
	}
}

var sessionUUIDPattern = regexp.MustCompile(`sessionUUID:\s*"([^"]+)"`)

// fakeLauncher drives a whole fake browser: Launch -> context
// -> page, where Goto actually dials the bridge WebSocket the way a
// real page's injected runtime would, and reports doneExitCode back
// over it.
type fakeLauncher struct {
	doneExitCode int
	doneErr      string
}

func (f *fakeLauncher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Browser, error) {
	return &fakeBrowser{l: f}, nil
}

type fakeBrowser struct{ l *fakeLauncher }

func (b *fakeBrowser) NewContext(ctx context.Context, opts engine.ContextOptions) (engine.BrowsingContext, error) {
	return &fakeBctxForRun{l: b.l, baseURL: opts.BaseURL}, nil
}
func (b *fakeBrowser) Close(ctx context.Context) error { return nil }

type fakeBctxForRun struct {
	l       *fakeLauncher
	baseURL string
}

func (c *fakeBctxForRun) NewPage(ctx context.Context) (engine.Page, error) {
	return &fakePageForRun{l: c.l}, nil
}
func (c *fakeBctxForRun) Route(ctx context.Context, handler func(context.Context, engine.InterceptedRoute)) error {
	return nil
}
func (c *fakeBctxForRun) Unroute(ctx context.Context) error { return nil }
func (c *fakeBctxForRun) Close(ctx context.Context) error   { return nil }

type fakePageForRun struct {
	l *fakeLauncher
}

func (p *fakePageForRun) Goto(ctx context.Context, url string) error {
	wsURL := strings.Replace(url, "http://", "ws://", 1) + "__wrightplay__"

	conn, _, err := bridge.DialAndHandshake(ctx, wsURL, lastSessionUUID)
	if err != nil {
		return err
	}
	go func() {
		defer conn.Close()
		_ = conn.SendMessage(bridge.Message{
			Category: "lifecycle",
			Kind:     bridge.TypeDone,
			Done:     &bridge.DonePayload{ExitCode: p.l.doneExitCode, Error: p.l.doneErr},
		})
	}()
	return nil
}
func (p *fakePageForRun) Evaluate(ctx context.Context, expression string, arg any) (any, error) {
	return nil, nil
}
func (p *fakePageForRun) Close(ctx context.Context) error { return nil }

var lastSessionUUID string

func TestRunReturnsBrowserReportedExitCode(t *testing.T) {
	launcher := &fakeLauncher{doneExitCode: 0}
	bundler := &jsbuild.MockBundler{BuildFunc: func(ctx context.Context, in jsbuild.BuildInput) ([]jsbuild.BuildOutput, error) {
		m := sessionUUIDPattern.FindStringSubmatch(in.EntrySource)
		if m != nil {
			lastSessionUUID = m[1]
		}
		return []jsbuild.BuildOutput{{Path: "index.js", JS: []byte(in.EntrySource), ContentHash: "h"}}, nil
	}}

	code, err := Run(context.Background(), Config{
		Run:      runconfig.Run{},
		Tests:    []string{"./a.test.js"},
		Launcher: launcher,
		Bundler:  bundler,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunReturnsNonzeroBrowserExitCode(t *testing.T) {
	launcher := &fakeLauncher{doneExitCode: 1, doneErr: "assertion failed"}
	bundler := &jsbuild.MockBundler{BuildFunc: func(ctx context.Context, in jsbuild.BuildInput) ([]jsbuild.BuildOutput, error) {
		m := sessionUUIDPattern.FindStringSubmatch(in.EntrySource)
		if m != nil {
			lastSessionUUID = m[1]
		}
		return []jsbuild.BuildOutput{{Path: "index.js", JS: []byte(in.EntrySource), ContentHash: "h"}}, nil
	}}

	DoneTimeout = 5 * time.Second
	code, err := Run(context.Background(), Config{
		Tests:    []string{"./a.test.js"},
		Launcher: launcher,
		Bundler:  bundler,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
