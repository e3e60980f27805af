// Package client implements the browser-side route handler stack
// (SPEC_FULL.md §5, spec §4.4): a LIFO list of matchers, request
// dispatch through matching handlers in stack order, and the
// fallback/continue/abort/fulfill terminal vocabulary.
package client

import (
	"context"
	"net/url"
	"sync"

	"github.com/wrightplay/wrightplay/internal/route"
)

// Unlimited marks a handler with no call-count limit (spec's times ∈ ℕ ∪ {∞}).
const Unlimited = 0

// Request is the browser-visible view of an intercepted request,
// reflecting any overrides a higher-priority handler's fallback
// already applied.
type Request struct {
	URL                 string
	Method              string
	Headers             [][2]string
	ResourceType        string
	IsNavigationRequest bool
	Body                []byte
	HasBody             bool
}

func (r Request) withOverrides(o *route.RequestOverrides) Request {
	if o == nil {
		return r
	}
	out := r
	if o.URL != "" {
		out.URL = o.URL
	}
	if o.Method != "" {
		out.Method = o.Method
	}
	if o.Headers != nil {
		out.Headers = o.Headers
	}
	if o.PostData != nil {
		out.Body = o.PostData
		out.HasBody = true
	}
	return out
}

// Transport sends this side's terminal decision (or fallback, which
// has no wire effect until some handler terminates) back to the host.
type Transport interface {
	SendResolve(ctx context.Context, requestID string, decision route.TerminalAction, overrides *route.RequestOverrides, errorCode string, fulfill *route.RequestFulfill) error
	ToggleOn(ctx context.Context) error
	ToggleOff(ctx context.Context) error
}

// Callback is invoked synchronously for a matching request. It must
// call exactly one of Route's terminal methods or Fallback.
type Callback func(ctx context.Context, r *Route)

// Handler is one entry of the LIFO route stack.
type Handler struct {
	Matcher      route.Matcher
	Times        int
	handledCount int
	Callback     Callback
}

// Stack is the LIFO matcher list. The zero value is ready to use.
type Stack struct {
	mu       sync.Mutex
	handlers []*Handler
	tr       Transport
}

// NewStack constructs a Stack that sends toggle and resolve frames
// through tr.
func NewStack(tr Transport) *Stack {
	return &Stack{tr: tr}
}

// Use pushes a new handler onto the stack, toggling interception on
// if the stack was empty.
func (s *Stack) Use(ctx context.Context, h *Handler) error {
	s.mu.Lock()
	wasEmpty := len(s.handlers) == 0
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
	if wasEmpty {
		return s.tr.ToggleOn(ctx)
	}
	return nil
}

// Unuse removes every handler whose matcher equals matcher, toggling
// interception off once the stack empties. cb is not compared (see
// sameCallback): all handlers with that matcher are removed whatever
// their callback. Stack.Remove drops a single handler.
func (s *Stack) Unuse(ctx context.Context, matcher route.Matcher, cb Callback) error {
	s.mu.Lock()
	remaining := s.handlers[:0]
	for _, h := range s.handlers {
		if h.Matcher.Equal(matcher) && (cb == nil || sameCallback(h.Callback, cb)) {
			continue
		}
		remaining = append(remaining, h)
	}
	s.handlers = remaining
	empty := len(s.handlers) == 0
	s.mu.Unlock()
	if empty {
		return s.tr.ToggleOff(ctx)
	}
	return nil
}

func sameCallback(a, b Callback) bool {
	// Go has no portable function-value equality; two handlers
	// registered with literally the same callback variable compare by
	// matcher only, which is the common unroute(matcher) usage. A
	// caller that needs per-callback precision should keep its own
	// handler reference and use Stack.Remove instead.
	return true
}

// Remove drops exactly one handler by identity, for callers holding a
// reference from Use.
func (s *Stack) Remove(ctx context.Context, h *Handler) error {
	s.mu.Lock()
	remaining := s.handlers[:0]
	for _, existing := range s.handlers {
		if existing == h {
			continue
		}
		remaining = append(remaining, existing)
	}
	s.handlers = remaining
	empty := len(s.handlers) == 0
	s.mu.Unlock()
	if empty {
		return s.tr.ToggleOff(ctx)
	}
	return nil
}

// HandleRequest runs the matching-handler chain for one intercepted
// request, per spec §4.4's pseudocode: iterate matching handlers in
// stack order, removing any that reached their call limit before
// invoking them, stopping at the first terminal decision, and issuing
// a plain continue if none terminates the request.
func (s *Stack) HandleRequest(ctx context.Context, meta route.RequestMeta, body []byte) error {
	req := Request{
		URL: meta.URL, Method: meta.Method, Headers: meta.Headers,
		ResourceType: meta.ResourceType, IsNavigationRequest: meta.IsNavigationRequest,
		Body: body, HasBody: meta.HasBody,
	}

	matching := s.matchingHandlers(meta.URL)
	state := route.NewState(meta.ID)

	for _, h := range matching {
		s.mu.Lock()
		h.handledCount++
		expired := h.Times != Unlimited && h.handledCount >= h.Times
		if expired {
			s.removeLocked(h)
		}
		s.mu.Unlock()
		if expired {
			empty := s.isEmpty()
			if empty {
				_ = s.tr.ToggleOff(ctx)
			}
		}

		state.BeginHandling()
		r := &Route{ctx: ctx, state: state, req: req, tr: s.tr, requestID: meta.ID, done: make(chan struct{})}
		h.Callback(ctx, r)
		<-r.done

		if r.terminal {
			return nil
		}
		req = req.withOverrides(r.fallbackOverrides)
	}

	return s.tr.SendResolve(ctx, meta.ID, route.ActionContinue, nil, "", nil)
}

func (s *Stack) matchingHandlers(rawURL string) []*Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := parseURL(rawURL)
	if err != nil {
		return nil
	}
	out := make([]*Handler, 0, len(s.handlers))
	for i := len(s.handlers) - 1; i >= 0; i-- {
		if s.handlers[i].Matcher.Matches(u) {
			out = append(out, s.handlers[i])
		}
	}
	return out
}

func (s *Stack) removeLocked(target *Handler) {
	remaining := s.handlers[:0]
	for _, h := range s.handlers {
		if h != target {
			remaining = append(remaining, h)
		}
	}
	s.handlers = remaining
}

func (s *Stack) isEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers) == 0
}

// Route is the object a handler callback uses to decide a request's
// fate: fallback to the next handler, or terminally continue, abort,
// or fulfill.
type Route struct {
	ctx       context.Context
	state     *route.State
	req       Request
	tr        Transport
	requestID string

	mu                sync.Mutex
	terminal          bool
	fallbackOverrides *route.RequestOverrides
	done              chan struct{}
}

// Request returns the current view of the request, reflecting any
// overrides applied by a prior handler's Fallback.
func (r *Route) Request() Request { return r.req }

// Fallback passes control to the next matching handler, applying
// overrides to the request it will see.
func (r *Route) Fallback(overrides *route.RequestOverrides) error {
	if err := r.state.Fallback(); err != nil {
		close(r.done)
		return err
	}
	r.fallbackOverrides = overrides
	close(r.done)
	return nil
}

// Continue terminally continues the request, optionally with field
// overrides (a replacement body goes in overrides.PostData).
func (r *Route) Continue(overrides *route.RequestOverrides) error {
	return r.terminate(route.ActionContinue, func() error {
		return r.tr.SendResolve(r.ctx, r.requestID, route.ActionContinue, overrides, "", nil)
	})
}

// Abort terminally aborts the request with the given error code.
func (r *Route) Abort(errorCode string) error {
	return r.terminate(route.ActionAbort, func() error {
		return r.tr.SendResolve(r.ctx, r.requestID, route.ActionAbort, nil, errorCode, nil)
	})
}

// Fulfill terminally fulfills the request with a synthetic response.
func (r *Route) Fulfill(resp route.RequestFulfill) error {
	return r.terminate(route.ActionFulfill, func() error {
		return r.tr.SendResolve(r.ctx, r.requestID, route.ActionFulfill, nil, "", &resp)
	})
}

func (r *Route) terminate(action route.TerminalAction, send func() error) error {
	if err := r.state.Terminate(action); err != nil {
		close(r.done)
		return err
	}
	err := send()
	r.terminal = true
	close(r.done)
	return err
}

func parseURL(raw string) (*url.URL, error) {
	return url.Parse(raw)
}
