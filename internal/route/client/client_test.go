package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wrightplay/wrightplay/internal/route"
)

type fakeTransport struct {
	mu        sync.Mutex
	toggledOn int
	toggledOff int
	resolves  []resolveCall
}

type resolveCall struct {
	requestID string
	action    route.TerminalAction
	fulfill   *route.RequestFulfill
}

func (f *fakeTransport) SendResolve(ctx context.Context, requestID string, decision route.TerminalAction, overrides *route.RequestOverrides, errorCode string, fulfill *route.RequestFulfill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves = append(f.resolves, resolveCall{requestID: requestID, action: decision, fulfill: fulfill})
	return nil
}

func (f *fakeTransport) ToggleOn(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggledOn++
	return nil
}

func (f *fakeTransport) ToggleOff(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggledOff++
	return nil
}

func mustGlob(t *testing.T, pattern string) route.Matcher {
	t.Helper()
	m, err := route.MatchGlob(pattern)
	require.NoError(t, err)
	return m
}

func TestStackUseTogglesOnOnce(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	h1 := &Handler{Matcher: mustGlob(t, "/a")}
	h2 := &Handler{Matcher: mustGlob(t, "/b")}

	require.NoError(t, s.Use(context.Background(), h1))
	require.NoError(t, s.Use(context.Background(), h2))
	require.Equal(t, 1, tr.toggledOn)
}

func TestStackRemoveTogglesOffWhenEmpty(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	h := &Handler{Matcher: mustGlob(t, "/a")}
	require.NoError(t, s.Use(context.Background(), h))

	require.NoError(t, s.Remove(context.Background(), h))
	require.Equal(t, 1, tr.toggledOff)
}

func TestHandleRequestFulfillTerminates(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	h := &Handler{
		Matcher: mustGlob(t, "/route"),
		Callback: func(ctx context.Context, r *Route) {
			require.NoError(t, r.Fulfill(route.RequestFulfill{Body: []byte("routed")}))
		},
	}
	require.NoError(t, s.Use(context.Background(), h))

	meta := route.RequestMeta{ID: "req-1", URL: "https://example.com/route", Method: "GET"}
	require.NoError(t, s.HandleRequest(context.Background(), meta, nil))
	require.Len(t, tr.resolves, 1)
	require.Equal(t, route.ActionFulfill, tr.resolves[0].action)
}

func TestHandleRequestTimesOneExpiresHandler(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	calls := 0
	h := &Handler{
		Matcher: mustGlob(t, "/once"),
		Times:   1,
		Callback: func(ctx context.Context, r *Route) {
			calls++
			r.Fulfill(route.RequestFulfill{Body: []byte("ok")})
		},
	}
	require.NoError(t, s.Use(context.Background(), h))

	meta := route.RequestMeta{ID: "req-1", URL: "https://example.com/once", Method: "GET"}
	s.HandleRequest(context.Background(), meta, nil)

	meta2 := route.RequestMeta{ID: "req-2", URL: "https://example.com/once", Method: "GET"}
	s.HandleRequest(context.Background(), meta2, nil)

	require.Equal(t, 1, calls)
	require.Len(t, tr.resolves, 2)
	require.Equal(t, route.ActionContinue, tr.resolves[1].action)
}

func TestHandleRequestStackOrderTopHandlerWinsThenBottom(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	bottom := &Handler{
		Matcher: mustGlob(t, "/x"),
		Callback: func(ctx context.Context, r *Route) {
			r.Fulfill(route.RequestFulfill{Body: []byte("bottom")})
		},
	}
	top := &Handler{
		Matcher: mustGlob(t, "/x"),
		Callback: func(ctx context.Context, r *Route) {
			r.Fulfill(route.RequestFulfill{Body: []byte("top")})
		},
	}
	require.NoError(t, s.Use(context.Background(), bottom))
	require.NoError(t, s.Use(context.Background(), top))

	meta := route.RequestMeta{ID: "req-1", URL: "https://example.com/x", Method: "GET"}
	s.HandleRequest(context.Background(), meta, nil)
	require.Equal(t, "top", string(tr.resolves[0].fulfill.Body))

	require.NoError(t, s.Remove(context.Background(), top))
	meta2 := route.RequestMeta{ID: "req-2", URL: "https://example.com/x", Method: "GET"}
	s.HandleRequest(context.Background(), meta2, nil)
	require.Equal(t, "bottom", string(tr.resolves[1].fulfill.Body))
}

func TestHandleRequestNoMatchIssuesPlainContinue(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	h := &Handler{Matcher: mustGlob(t, "/other")}
	require.NoError(t, s.Use(context.Background(), h))

	meta := route.RequestMeta{ID: "req-1", URL: "https://example.com/unrelated", Method: "GET"}
	s.HandleRequest(context.Background(), meta, nil)
	require.Len(t, tr.resolves, 1)
	require.Equal(t, route.ActionContinue, tr.resolves[0].action)
}

func TestHandleRequestFallbackChainsToNextHandler(t *testing.T) {
	tr := &fakeTransport{}
	s := NewStack(tr)
	bottom := &Handler{
		Matcher: mustGlob(t, "/chain"),
		Callback: func(ctx context.Context, r *Route) {
			r.Fulfill(route.RequestFulfill{Body: []byte("bottom-handled")})
		},
	}
	top := &Handler{
		Matcher: mustGlob(t, "/chain"),
		Callback: func(ctx context.Context, r *Route) {
			r.Fallback(nil)
		},
	}
	require.NoError(t, s.Use(context.Background(), bottom))
	require.NoError(t, s.Use(context.Background(), top))

	meta := route.RequestMeta{ID: "req-1", URL: "https://example.com/chain", Method: "GET"}
	s.HandleRequest(context.Background(), meta, nil)
	require.Len(t, tr.resolves, 1)
	require.Equal(t, route.ActionFulfill, tr.resolves[0].action)
}
