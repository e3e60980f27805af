// mock.go — an in-process reference adapter: no real browser, just
// enough behavior (navigable page, evaluatable script via a
// caller-supplied function table, route interception plumbing) to
// exercise the runner and route/handle hosts without a real engine.
package engine

import (
	"context"
	"fmt"
	"sync"
)

func init() {
	Register("mock", &MockLauncher{EvalFuncs: map[string]func(arg any) (any, error){}})
}

// MockLauncher launches MockBrowsers. EvalFuncs maps a compiled
// expression's source text to the Go function that should stand in
// for running it, letting tests pin down exactly what "script" a
// mock page can run.
type MockLauncher struct {
	EvalFuncs map[string]func(arg any) (any, error)
}

func (l *MockLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	return &MockBrowser{eval: l.EvalFuncs}, nil
}

// MockBrowser is the in-process Browser.
type MockBrowser struct {
	eval map[string]func(arg any) (any, error)
}

func (b *MockBrowser) NewContext(ctx context.Context, opts ContextOptions) (BrowsingContext, error) {
	return &MockContext{eval: b.eval, baseURL: opts.BaseURL}, nil
}
func (b *MockBrowser) Close(ctx context.Context) error { return nil }

// MockContext is the in-process BrowsingContext: it records the
// installed route handler but never actually intercepts anything,
// since nothing generates real network traffic in-process.
type MockContext struct {
	eval    map[string]func(arg any) (any, error)
	baseURL string

	mu      sync.Mutex
	handler func(context.Context, InterceptedRoute)
}

func (c *MockContext) NewPage(ctx context.Context) (Page, error) {
	return &MockPage{eval: c.eval, baseURL: c.baseURL}, nil
}

func (c *MockContext) Route(ctx context.Context, handler func(context.Context, InterceptedRoute)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	return nil
}

func (c *MockContext) Unroute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = nil
	return nil
}

func (c *MockContext) Close(ctx context.Context) error { return nil }

// Deliver feeds a simulated request through the installed handler, for
// tests that want to exercise route forwarding against the mock
// engine without a real network stack.
func (c *MockContext) Deliver(ctx context.Context, ir InterceptedRoute) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(ctx, ir)
	}
}

// MockPage is the in-process Page. Goto is a no-op (there is nowhere
// to navigate to without a real browser); Evaluate looks the
// expression's source text up in the launcher's function table.
type MockPage struct {
	eval    map[string]func(arg any) (any, error)
	baseURL string
	closed  bool
}

func (p *MockPage) Goto(ctx context.Context, url string) error { return nil }

func (p *MockPage) Evaluate(ctx context.Context, expression string, arg any) (any, error) {
	fn, ok := p.eval[expression]
	if !ok {
		return nil, fmt.Errorf("engine: mock has no registered function for %q", expression)
	}
	return fn(arg)
}

func (p *MockPage) Close(ctx context.Context) error {
	p.closed = true
	return nil
}
