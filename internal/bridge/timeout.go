// timeout.go — per-message-type timeout policy for the duplex bridge.
// Evaluations (arbitrary user script against the page) and route
// decisions (a user handler while the page's network stack waits)
// share the same 30s bound; toggles are local bookkeeping and get the
// shortest one.
package bridge

import "time"

const (
	// RouteDecisionTimeout bounds how long the host waits for a
	// browser-side route handler to reach a terminal decision.
	RouteDecisionTimeout = 30 * time.Second
	// EvaluateTimeout bounds a single handle evaluate() round trip.
	EvaluateTimeout = 30 * time.Second
	// ToggleTimeout bounds a route toggle-on/toggle-off acknowledgment.
	ToggleTimeout = 5 * time.Second
)

// TimeoutFor returns the timeout that applies to a given wire message
// type, for callers that don't want to hardcode the constant above
// directly at each call site.
func TimeoutFor(messageType string) time.Duration {
	switch messageType {
	case "route-request", "route-action":
		return RouteDecisionTimeout
	case "handle-request":
		return EvaluateTimeout
	case "route-toggle":
		return ToggleTimeout
	default:
		return EvaluateTimeout
	}
}
