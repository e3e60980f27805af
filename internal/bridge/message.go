// message.go — the closed sum type over the bridge's seven message
// kinds (the six route/handle kinds of spec §9's design note plus
// done), encoded as a tagged struct so encode/decode is a single
// switch instead of seven wire types.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/wrightplay/wrightplay/internal/route"
	"github.com/wrightplay/wrightplay/internal/serialize"
)

// MessageType is the discriminator for a bridge text frame.
type MessageType string

const (
	TypeRouteToggle   MessageType = "route-toggle"
	TypeRouteRequest  MessageType = "route-request"
	TypeRouteAction   MessageType = "route-action"
	TypeRouteResolve  MessageType = "route-resolve"
	TypeHandleRequest MessageType = "handle-request"
	TypeHandleResolve MessageType = "handle-resolve"
	TypeDone          MessageType = "done"
)

// Message is the envelope for every text frame crossing the bridge.
// Exactly one of the typed payload fields is populated, matching its
// Type. Category is "route" or "handle" per spec §4.5's
// `{ type: "route" | "handle", ... }` tag, or "lifecycle" for a done
// message; Type further distinguishes within that category.
type Message struct {
	Category string      `json:"type"`
	Kind     MessageType `json:"kind"`

	RouteToggle   *RouteTogglePayload   `json:"routeToggle,omitempty"`
	RouteRequest  *RouteRequestPayload  `json:"routeRequest,omitempty"`
	RouteAction   *RouteActionPayload   `json:"routeAction,omitempty"`
	RouteResolve  *RouteResolvePayload  `json:"routeResolve,omitempty"`
	HandleRequest *HandleRequestPayload `json:"handleRequest,omitempty"`
	HandleResolve *HandleResolvePayload `json:"handleResolve,omitempty"`
	Done          *DonePayload          `json:"done,omitempty"`
}

// DonePayload is the client's end-of-run signal (spec §4.7's
// "done-or-crash" promise equivalent): the entry script sends this
// once all tests finish, or once an uncaught error escapes init.
type DonePayload struct {
	ExitCode int    `json:"exitCode"`
	Error    string `json:"error,omitempty"`
}

// RouteTogglePayload is the client's "toggle on"/"toggle off" signal
// (spec §4.4).
type RouteTogglePayload struct {
	On bool `json:"on"`
}

// RouteRequestPayload is the host's metadata frame for an intercepted
// request (spec §4.3 step 3). HasBody implies a following binary
// frame carries the request body.
type RouteRequestPayload struct {
	ID                  string      `json:"id"`
	URL                 string      `json:"url"`
	Method              string      `json:"method"`
	Headers             [][2]string `json:"headers"`
	ResourceType        string      `json:"resourceType"`
	IsNavigationRequest bool        `json:"isNavigationRequest"`
	HasBody             bool        `json:"hasBody"`
}

// RouteActionPayload is the browser's terminal decision for a
// previously forwarded request (spec §4.3 step on receiving a client
// decision). HasBody implies a following binary frame.
type RouteActionPayload struct {
	ID        string                    `json:"id"`
	ResolveID int                       `json:"resolveID"`
	Action    string                    `json:"action"` // "abort" | "continue" | "fulfill"
	Overrides *route.RequestOverrides   `json:"overrides,omitempty"`
	ErrorCode string                    `json:"errorCode,omitempty"`
	Fulfill   *route.RequestFulfill     `json:"fulfill,omitempty"`
	HasBody   bool                      `json:"hasBody"`
}

// RouteResolvePayload is the host's acknowledgment of a completed
// route action (spec §3 "Correlation").
type RouteResolvePayload struct {
	ID        string `json:"id"`
	ResolveID int    `json:"resolveID"`
	Error     bool   `json:"error,omitempty"`
}

// HandleRequestPayload is a client->host handle action (spec §4.2).
type HandleRequestPayload struct {
	ResolveID int             `json:"resolveID"`
	Action    string          `json:"action"` // "evaluate" | "json-value" | "get-properties" | "get-property" | "dispose"
	ID        int             `json:"id"`
	FnSrc     string          `json:"fn,omitempty"`
	Arg       *serialize.Node `json:"arg,omitempty"`
	AsHandle  bool            `json:"h,omitempty"`
	PropName  string          `json:"name,omitempty"`
}

// HandleResolvePayload is the host's reply to a handle action (spec
// §4.2 "Host reply: resolve { result, error: boolean }").
type HandleResolvePayload struct {
	ResolveID int             `json:"resolveID"`
	Result    *serialize.Node `json:"result,omitempty"`
	ReturnsID bool            `json:"returnsId,omitempty"`
	HandleID  int             `json:"handleId,omitempty"`
	Error     bool            `json:"error,omitempty"`
}

// Encode marshals m as a single JSON text frame.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage unmarshals a single JSON text frame, validating that
// exactly the payload matching Kind is present.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	if err := m.validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) validate() error {
	switch m.Kind {
	case TypeRouteToggle:
		return requirePayload(m.RouteToggle != nil, m.Kind)
	case TypeRouteRequest:
		return requirePayload(m.RouteRequest != nil, m.Kind)
	case TypeRouteAction:
		return requirePayload(m.RouteAction != nil, m.Kind)
	case TypeRouteResolve:
		return requirePayload(m.RouteResolve != nil, m.Kind)
	case TypeHandleRequest:
		return requirePayload(m.HandleRequest != nil, m.Kind)
	case TypeHandleResolve:
		return requirePayload(m.HandleResolve != nil, m.Kind)
	case TypeDone:
		return requirePayload(m.Done != nil, m.Kind)
	default:
		return fmt.Errorf("bridge: unknown message kind %q", m.Kind)
	}
}

func requirePayload(present bool, kind MessageType) error {
	if !present {
		return fmt.Errorf("bridge: message kind %q missing its payload", kind)
	}
	return nil
}

// ExpectsBody reports whether this message implies the next frame on
// the same direction is a binary body frame (spec §4.5, §9 "expect a
// body frame only when the preceding text frame says so").
func (m Message) ExpectsBody() bool {
	switch m.Kind {
	case TypeRouteRequest:
		return m.RouteRequest != nil && m.RouteRequest.HasBody
	case TypeRouteAction:
		return m.RouteAction != nil && m.RouteAction.HasBody
	default:
		return false
	}
}
