// ws.go — the duplex WebSocket channel between the browser entry and
// the host (spec §4.5). One Conn serves exactly one session.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Subprotocol is the negotiated WebSocket sub-protocol name.
const Subprotocol = "route"

// FrameKind distinguishes a text message frame from a binary body
// frame on Recv.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// Frame is one inbound unit from Recv: either a decoded Message (text)
// or a raw body ([]byte, binary).
type Frame struct {
	Kind    FrameKind
	Message Message
	Body    []byte
}

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{Subprotocol},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn wraps a gorilla/websocket connection with the bridge's framing
// and handshake discipline. Writes are serialized with a mutex since
// gorilla's Conn forbids concurrent writers; reads are expected to be
// driven by a single loop per spec's "single-threaded cooperative"
// scheduling model.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	// mu guards expectBodyNext, inbound-only bookkeeping read and
	// written solely by Recv. Outbound SendMessage/SendBody never touch
	// it — pairing an outbound body-bearing message with its body frame
	// is the caller's responsibility, not state shared with the reader.
	mu             sync.Mutex
	expectBodyNext bool
}

// Accept upgrades an HTTP request to the bridge WebSocket and performs
// the session UUID handshake, returning the connection and the
// session UUID the browser sent.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, string, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, "", fmt.Errorf("bridge: upgrade failed: %w", err)
	}
	c := &Conn{ws: ws}
	sessionUUID, err := c.readHandshake()
	if err != nil {
		_ = ws.Close()
		return nil, "", err
	}
	return c, sessionUUID, nil
}

// DialAndHandshake opens a client-side connection to the given URL
// (the shape the bundle-server entry script's runtime counterpart
// would use) and sends the session UUID as the first text frame. A
// fresh UUID is generated if sessionUUID is empty.
func DialAndHandshake(ctx context.Context, url, sessionUUID string) (*Conn, string, error) {
	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("bridge: dial failed: %w", err)
	}
	if sessionUUID == "" {
		sessionUUID = uuid.NewString()
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte(sessionUUID)); err != nil {
		_ = ws.Close()
		return nil, "", fmt.Errorf("bridge: handshake send failed: %w", err)
	}
	return &Conn{ws: ws}, sessionUUID, nil
}

func (c *Conn) readHandshake() (string, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("bridge: handshake read failed: %w", err)
	}
	if kind != websocket.TextMessage {
		return "", fmt.Errorf("bridge: handshake frame must be text, got kind %d", kind)
	}
	return string(data), nil
}

// SendMessage sends a Message as a text frame. If ExpectsBody() is
// true, the caller must follow with exactly one SendBody call before
// sending anything else.
func (c *Conn) SendMessage(m Message) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SendBody sends a binary body frame. Callers must only call this
// immediately after a SendMessage whose ExpectsBody() was true.
func (c *Conn) SendBody(body []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, body)
}

// Recv reads the next frame: a decoded Message for a text frame, or a
// raw body for a binary frame. Binary frames are only ever produced
// right after a text frame whose ExpectsBody() was true — spec §9's
// "one-shot expect-body-next flag" is internal bookkeeping the caller
// doesn't need to track itself.
func (c *Conn) Recv() (Frame, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	switch kind {
	case websocket.TextMessage:
		msg, err := DecodeMessage(data)
		if err != nil {
			return Frame{}, err
		}
		c.mu.Lock()
		c.expectBodyNext = msg.ExpectsBody()
		c.mu.Unlock()
		return Frame{Kind: FrameText, Message: msg}, nil
	case websocket.BinaryMessage:
		c.mu.Lock()
		expected := c.expectBodyNext
		c.expectBodyNext = false
		c.mu.Unlock()
		if !expected {
			return Frame{}, fmt.Errorf("bridge: unexpected binary frame with no preceding body-bearing message")
		}
		return Frame{Kind: FrameBinary, Body: data}, nil
	default:
		return Frame{}, fmt.Errorf("bridge: unexpected frame kind %d", kind)
	}
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
