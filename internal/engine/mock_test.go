package engine

import (
	"context"
	"testing"
)

func TestMockIsRegisteredByDefault(t *testing.T) {
	l, err := Lookup("mock")
	if err != nil {
		t.Fatalf("Lookup(mock): %v", err)
	}
	if _, ok := l.(*MockLauncher); !ok {
		t.Fatalf("expected *MockLauncher, got %T", l)
	}
}

func TestMockPageEvaluateDispatchesToFunc(t *testing.T) {
	l := &MockLauncher{EvalFuncs: map[string]func(arg any) (any, error){
		"1+1": func(arg any) (any, error) { return 2, nil },
	}}
	browser, err := l.Launch(context.Background(), LaunchOptions{})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	bctx, err := browser.NewContext(context.Background(), ContextOptions{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	page, err := bctx.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	got, err := page.Evaluate(context.Background(), "1+1", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestMockPageEvaluateUnknownExpressionErrors(t *testing.T) {
	l := &MockLauncher{EvalFuncs: map[string]func(arg any) (any, error){}}
	browser, _ := l.Launch(context.Background(), LaunchOptions{})
	bctx, _ := browser.NewContext(context.Background(), ContextOptions{})
	page, _ := bctx.NewPage(context.Background())
	if _, err := page.Evaluate(context.Background(), "nope()", nil); err == nil {
		t.Fatalf("expected error for unregistered expression")
	}
}

func TestMockContextDeliversToInstalledHandler(t *testing.T) {
	l := &MockLauncher{}
	browser, _ := l.Launch(context.Background(), LaunchOptions{})
	bctx, _ := browser.NewContext(context.Background(), ContextOptions{})
	mc := bctx.(*MockContext)

	var called bool
	if err := mc.Route(context.Background(), func(ctx context.Context, ir InterceptedRoute) {
		called = true
	}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	mc.Deliver(context.Background(), nil)
	if !called {
		t.Fatalf("expected handler to be invoked")
	}

	if err := mc.Unroute(context.Background()); err != nil {
		t.Fatalf("Unroute: %v", err)
	}
	called = false
	mc.Deliver(context.Background(), nil)
	if called {
		t.Fatalf("expected handler to be cleared after Unroute")
	}
}
