// Package host implements the host side of the interception protocol
// (SPEC_FULL.md §5, spec §4.3): attaching a universal matcher to a
// browsing context, forwarding every request to the browser for a
// decision, and performing the browser's terminal decision against
// the automation engine.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wrightplay/wrightplay/internal/engine"
	"github.com/wrightplay/wrightplay/internal/route"
	"github.com/wrightplay/wrightplay/internal/util"
)

// BypassHeader returns the name of the escape-hatch header in-browser
// code sets to skip re-interception for a single fetch (spec §4.3
// step 1: "bypass-<session-uuid>").
func BypassHeader(sessionUUID string) string {
	return "bypass-" + sessionUUID
}

// Sink delivers route frames to the browser over the bridge.
type Sink interface {
	SendRouteRequest(ctx context.Context, id string, meta route.RequestMeta) error
	SendBody(ctx context.Context, body []byte) error
}

type parked struct {
	id    string
	intercepted engine.InterceptedRoute
	state *route.State
}

// Host forwards every request on a browsing context to the browser
// and carries out its decision.
type Host struct {
	sessionUUID string
	bctx        engine.BrowsingContext

	mu         sync.Mutex
	attached   bool
	clientUp   bool
	sink       Sink
	routeList  []*parked
	cmds       chan func()
	done       chan struct{}
}

// New constructs a Host bound to a single browsing context for the
// given session. Start must be called once to begin serving toggle
// commands.
func New(sessionUUID string, bctx engine.BrowsingContext) *Host {
	if sessionUUID == "" {
		sessionUUID = uuid.NewString()
	}
	return &Host{
		sessionUUID: sessionUUID,
		bctx:        bctx,
		cmds:        make(chan func(), 16),
		done:        make(chan struct{}),
	}
}

// Start launches the command-serializing goroutine that processes
// toggle-on/toggle-off requests one at a time, per spec §9's "queueing
// subsequent toggle requests behind the previous completion" decision
// for the toggle race open question.
func (h *Host) Start() {
	go func() {
		for {
			select {
			case cmd := <-h.cmds:
				cmd()
			case <-h.done:
				return
			}
		}
	}()
}

// Stop terminates the command goroutine and clears the route list,
// per spec §5 "the host cleans its routeList on bridge disconnect."
func (h *Host) Stop() {
	close(h.done)
	h.mu.Lock()
	h.routeList = nil
	h.clientUp = false
	h.mu.Unlock()
}

// SetSink attaches (or clears, with nil) the bridge sink used to
// forward frames to the browser. A nil sink behaves as "no client
// currently attached" (spec §4.3 step 2: plain continue).
func (h *Host) SetSink(sink Sink) {
	h.mu.Lock()
	h.sink = sink
	h.clientUp = sink != nil
	h.mu.Unlock()
}

// ToggleOn attaches the universal matcher, queued behind any
// in-flight toggle.
func (h *Host) ToggleOn(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	h.cmds <- func() {
		h.mu.Lock()
		already := h.attached
		h.mu.Unlock()
		if already {
			result <- nil
			return
		}
		err := h.bctx.Route(ctx, h.onIntercepted)
		if err == nil {
			h.mu.Lock()
			h.attached = true
			h.mu.Unlock()
		}
		result <- err
	}
	return result
}

// ToggleOff detaches the matcher and clears the parked route list.
func (h *Host) ToggleOff(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	h.cmds <- func() {
		h.mu.Lock()
		if !h.attached {
			h.mu.Unlock()
			result <- nil
			return
		}
		h.mu.Unlock()
		err := h.bctx.Unroute(ctx)
		h.mu.Lock()
		h.attached = false
		h.routeList = nil
		h.mu.Unlock()
		result <- err
	}
	return result
}

func (h *Host) onIntercepted(ctx context.Context, ir engine.InterceptedRoute) {
	req := ir.Request()

	for _, hdr := range req.Headers() {
		if hdr[0] == BypassHeader(h.sessionUUID) && hdr[1] == "true" {
			stripped := stripHeader(req.Headers(), hdr[0])
			if err := ir.Continue(ctx, &engine.RequestOverrides{Headers: stripped}); err != nil {
				logrus.WithError(err).Warn("continue for bypassed request failed")
			}
			return
		}
	}

	h.mu.Lock()
	sink := h.sink
	up := h.clientUp
	h.mu.Unlock()
	if !up || sink == nil {
		if err := ir.Continue(ctx, nil); err != nil {
			logrus.WithError(err).Warn("continue for unattached-client request failed")
		}
		return
	}

	id := uuid.NewString()
	body, hasBody := req.PostData()
	p := &parked{id: id, intercepted: ir, state: route.NewState(id)}

	h.mu.Lock()
	h.routeList = append(h.routeList, p)
	h.mu.Unlock()

	meta := route.RequestMeta{
		ID:                  id,
		URL:                 req.URL(),
		Method:              req.Method(),
		Headers:             req.Headers(),
		ResourceType:        req.ResourceType(),
		IsNavigationRequest: req.IsNavigationRequest(),
		HasBody:             hasBody,
	}
	logrus.WithFields(logrus.Fields{
		"component": "route.host",
		"origin":    util.ExtractOrigin(meta.URL),
		"path":      util.ExtractURLPath(meta.URL),
	}).Debug("forwarding intercepted request")

	if err := sink.SendRouteRequest(ctx, id, meta); err != nil {
		logrus.WithError(err).Warn("send route request failed")
		return
	}
	if hasBody {
		if err := sink.SendBody(ctx, body); err != nil {
			logrus.WithError(err).Warn("send route request body failed")
		}
	}
}

func stripHeader(headers [][2]string, name string) [][2]string {
	out := make([][2]string, 0, len(headers))
	for _, h := range headers {
		if h[0] != name {
			out = append(out, h)
		}
	}
	return out
}

func (h *Host) find(id string) (*parked, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.routeList {
		if p.id == id {
			return p, i, true
		}
	}
	return nil, -1, false
}

func (h *Host) remove(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.routeList) {
		return
	}
	h.routeList = append(h.routeList[:i], h.routeList[i+1:]...)
}

// Decision is a client's terminal instruction for a parked request.
type Decision struct {
	ID        string
	ResolveID int
	Action    route.TerminalAction
	Overrides *route.RequestOverrides
	ErrorCode string
	Fulfill   route.RequestFulfill
	HasBody   bool
	Body      []byte
}

// Resolve applies a client's decision against the parked route and
// reports whether the action succeeded, for the host to emit the
// corresponding resolve{id, resolveID, error?} frame.
func (h *Host) Resolve(ctx context.Context, d Decision) error {
	p, idx, ok := h.find(d.ID)
	if !ok {
		return fmt.Errorf("route: resolve for unknown request id %q", d.ID)
	}
	if err := p.state.Terminate(d.Action); err != nil {
		return err
	}
	h.remove(idx)

	switch d.Action {
	case route.ActionAbort:
		return p.intercepted.Abort(ctx, d.ErrorCode)
	case route.ActionContinue:
		return p.intercepted.Continue(ctx, toEngineOverrides(d.Overrides))
	case route.ActionFulfill:
		return p.intercepted.Fulfill(ctx, engine.FulfillResponse{
			Status:      d.Fulfill.Status,
			Headers:     d.Fulfill.Headers,
			Body:        d.Fulfill.Body,
			ContentType: d.Fulfill.ContentType,
		})
	default:
		return fmt.Errorf("route: unknown terminal action %v", d.Action)
	}
}

func toEngineOverrides(o *route.RequestOverrides) *engine.RequestOverrides {
	if o == nil {
		return nil
	}
	return &engine.RequestOverrides{URL: o.URL, Method: o.Method, Headers: o.Headers, PostData: o.PostData}
}
