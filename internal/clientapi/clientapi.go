// Package clientapi documents and types the wire contract a real
// in-browser entry script exercises against the host. The browser
// side is an out-of-scope external collaborator (no JS ships from
// this repository); this package pins down, in Go types, every
// message that side would send or receive so the bundler-produced
// entry script and the host agree on a format.
package clientapi

import (
	"github.com/wrightplay/wrightplay/internal/bridge"
	"github.com/wrightplay/wrightplay/internal/route"
	"github.com/wrightplay/wrightplay/internal/serialize"
)

// OnInit corresponds to the browser-side onInit(callback) registration
// (spec §6): "register an async callback run after test imports
// complete; callbacks run sequentially; a throw causes done(1) unless
// done was already called." onInit itself never crosses the wire — it
// runs entirely in-page — but its failure path converges on Done.
type OnInit struct {
	// Callback is documentation only: the registered function runs
	// in-browser. Present so a reader can see what onInit wires to.
	Callback string
}

// Done corresponds to the browser-side done(exitCode) call (spec
// §4.7's "done-or-crash" signal) and is carried by bridge.TypeDone.
type Done struct {
	ExitCode int
	Error    string
}

// ToMessage encodes Done as the bridge wire message the entry script's
// runtime sends once tests finish or an uncaught error escapes init.
func (d Done) ToMessage() bridge.Message {
	return bridge.Message{
		Category: "lifecycle",
		Kind:     bridge.TypeDone,
		Done:     &bridge.DonePayload{ExitCode: d.ExitCode, Error: d.Error},
	}
}

// ContextRoute corresponds to contextRoute(matcher, handler, {times?})
// (spec §6): register a route handler. It has no wire shape of its
// own — the handler stays in-browser — but registering the first
// handler is what triggers a RouteToggle{On: true} over the wire
// (internal/route/client.Stack.Use), and removing the last handler
// triggers RouteToggle{On: false} (Stack.Unuse/Remove).
type ContextRoute struct {
	Matcher route.Matcher
	Times   int
}

// ContextUnroute corresponds to contextUnroute(matcher, handler?).
type ContextUnroute struct {
	Matcher  route.Matcher
	Callback bool // true if a specific handler (not just matcher) was named
}

// BypassFetch corresponds to bypassFetch(...fetchArgs) (spec §6):
// "perform a fetch that will not be re-intercepted." It never reaches
// the bridge at all — the browser attaches the per-session bypass
// header (route/host.BypassHeader) to the underlying fetch, and
// internal/route/host.onIntercepted short-circuits on that header
// before any RouteRequest is ever sent.
type BypassFetch struct {
	URL     string
	Headers [][2]string
}

// PageHandle and ContextHandle correspond to the two pre-registered
// handle proxies (spec §6: "handle proxies to the automation engine's
// page and context"), backed by the reserved ids
// internal/handle/host.PageHandleID (0) and ContextHandleID (1).
// Every call through them (evaluate, evaluateHandle, jsonValue,
// getProperty, getProperties, dispose) is a HandleRequest/HandleResolve
// pair already typed by internal/bridge.HandleRequestPayload /
// HandleResolvePayload; these types exist to name the two well-known
// ids a client starts with before it has ever called anything.
type PageHandle struct{ ID int }
type ContextHandle struct{ ID int }

// WellKnownHandles is the pair of proxies a fresh session always has,
// before any evaluate/getProperty call grows the target vector.
func WellKnownHandles() (page PageHandle, ctx ContextHandle) {
	return PageHandle{ID: 0}, ContextHandle{ID: 1}
}

// EvaluateArg documents the shape of an evaluate/evaluateHandle
// argument once run through the serializer: a value tree that may
// carry handle references. The function source itself is not part of
// it; it travels as FnSrc and is compiled host-side.
type EvaluateArg struct {
	Node *serialize.Node
}
