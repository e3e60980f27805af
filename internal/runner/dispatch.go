// dispatch.go — wires one bridge connection to the route and handle
// protocol hosts (spec §4.3, §4.2), pumping frames until the
// connection closes and forwarding a Done signal to Run (spec §4.7's
// done-or-crash promise equivalent) without ending the pump.
package runner

import (
	"context"
	"fmt"

	"github.com/wrightplay/wrightplay/internal/bridge"
	handlehost "github.com/wrightplay/wrightplay/internal/handle/host"
	"github.com/wrightplay/wrightplay/internal/obslog"
	"github.com/wrightplay/wrightplay/internal/route"
	routehost "github.com/wrightplay/wrightplay/internal/route/host"
	"github.com/wrightplay/wrightplay/internal/util"
)

var sessionLog = obslog.New("runner.session")

// WireConn is the subset of *bridge.Conn a Session drives, narrowed so
// tests can substitute an in-memory fake instead of a real WebSocket.
type WireConn interface {
	SendMessage(bridge.Message) error
	SendBody([]byte) error
	Recv() (bridge.Frame, error)
	Close() error
}

// Session binds one browser connection to this run's route host and
// handle dispatcher and relays protocol frames between them.
type Session struct {
	conn    WireConn
	route   *routehost.Host
	handles *handlehost.Dispatcher
	doneCh  chan clientDone
}

type clientDone struct {
	exitCode int
	errMsg   string
}

// NewSession constructs a Session and attaches itself as the route
// host's Sink.
func NewSession(conn WireConn, routeHost *routehost.Host, handles *handlehost.Dispatcher) *Session {
	s := &Session{conn: conn, route: routeHost, handles: handles, doneCh: make(chan clientDone, 1)}
	routeHost.SetSink(sinkAdapter{conn})
	return s
}

type sinkAdapter struct{ conn WireConn }

func (a sinkAdapter) SendRouteRequest(ctx context.Context, id string, meta route.RequestMeta) error {
	return a.conn.SendMessage(bridge.Message{
		Category: "route",
		Kind:     bridge.TypeRouteRequest,
		RouteRequest: &bridge.RouteRequestPayload{
			ID:                  id,
			URL:                 meta.URL,
			Method:              meta.Method,
			Headers:             meta.Headers,
			ResourceType:        meta.ResourceType,
			IsNavigationRequest: meta.IsNavigationRequest,
			HasBody:             meta.HasBody,
		},
	})
}

func (a sinkAdapter) SendBody(ctx context.Context, body []byte) error {
	return a.conn.SendBody(body)
}

// Pump reads frames until the connection errors or closes, dispatching
// each to the route host or handle dispatcher and relaying the reply.
// It returns the error that ended the loop (io.EOF-like close errors
// are the normal case when the browser tab goes away).
func (s *Session) Pump(ctx context.Context) error {
	for {
		frame, err := s.conn.Recv()
		if err != nil {
			return err
		}
		if frame.Kind != bridge.FrameText {
			return fmt.Errorf("runner: unexpected leading binary frame")
		}
		if err := s.dispatch(ctx, frame.Message); err != nil {
			return err
		}
	}
}

func (s *Session) dispatch(ctx context.Context, msg bridge.Message) error {
	switch msg.Kind {
	case bridge.TypeRouteToggle:
		s.handleToggle(ctx, msg.RouteToggle)
	case bridge.TypeRouteAction:
		return s.handleRouteAction(ctx, msg.RouteAction)
	case bridge.TypeHandleRequest:
		return s.handleHandleRequest(ctx, msg.HandleRequest)
	case bridge.TypeDone:
		s.doneCh <- clientDone{exitCode: msg.Done.ExitCode, errMsg: msg.Done.Error}
	default:
		return fmt.Errorf("runner: unexpected message kind %q from browser", msg.Kind)
	}
	return nil
}

func (s *Session) handleToggle(ctx context.Context, p *bridge.RouteTogglePayload) {
	toggleCtx, cancel := context.WithTimeout(ctx, bridge.ToggleTimeout)
	var errc <-chan error
	if p.On {
		errc = s.route.ToggleOn(toggleCtx)
	} else {
		errc = s.route.ToggleOff(toggleCtx)
	}
	util.SafeGo(func() {
		defer cancel()
		select {
		case err := <-errc:
			if err != nil {
				sessionLog.WithError(err).Warn("route toggle failed")
			}
		case <-toggleCtx.Done():
			sessionLog.Warn("route toggle timed out")
		}
	})
}

func (s *Session) handleRouteAction(ctx context.Context, p *bridge.RouteActionPayload) error {
	var body []byte
	if p.HasBody {
		frame, err := s.conn.Recv()
		if err != nil {
			return err
		}
		if frame.Kind != bridge.FrameBinary {
			return fmt.Errorf("runner: expected binary body frame for route action %q", p.ID)
		}
		body = frame.Body
	}

	decision := routehost.Decision{
		ID:        p.ID,
		ResolveID: p.ResolveID,
		Action:    terminalActionFromString(p.Action),
		Overrides: p.Overrides,
		ErrorCode: p.ErrorCode,
		HasBody:   p.HasBody,
		Body:      body,
	}
	if p.Fulfill != nil {
		decision.Fulfill = *p.Fulfill
	}

	resolveCtx, cancel := context.WithTimeout(ctx, bridge.RouteDecisionTimeout)
	defer cancel()
	resolveErr := s.route.Resolve(resolveCtx, decision)
	if resolveErr != nil {
		sessionLog.WithError(resolveErr).Warn("route resolve failed")
	}
	return s.conn.SendMessage(bridge.Message{
		Category: "route",
		Kind:     bridge.TypeRouteResolve,
		RouteResolve: &bridge.RouteResolvePayload{
			ID:        p.ID,
			ResolveID: p.ResolveID,
			Error:     resolveErr != nil,
		},
	})
}

func terminalActionFromString(s string) route.TerminalAction {
	switch s {
	case "abort":
		return route.ActionAbort
	case "continue":
		return route.ActionContinue
	case "fulfill":
		return route.ActionFulfill
	default:
		return route.ActionNone
	}
}

func (s *Session) handleHandleRequest(ctx context.Context, p *bridge.HandleRequestPayload) error {
	action := handlehost.Action{
		Name:     p.Action,
		ID:       p.ID,
		FnSrc:    p.FnSrc,
		AsHandle: p.AsHandle,
		PropName: p.PropName,
	}
	if p.Arg != nil {
		action.Arg = *p.Arg
		action.HasArg = true
	}

	evalCtx, cancel := context.WithTimeout(ctx, bridge.EvaluateTimeout)
	defer cancel()
	reply := s.handles.Dispatch(evalCtx, action)
	return s.conn.SendMessage(bridge.Message{
		Category: "handle",
		Kind:     bridge.TypeHandleResolve,
		HandleResolve: &bridge.HandleResolvePayload{
			ResolveID: p.ResolveID,
			Result:    &reply.Result,
			ReturnsID: reply.ReturnsID,
			HandleID:  reply.ID,
			Error:     reply.IsError,
		},
	})
}
