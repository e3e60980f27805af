// Package client implements the browser-side handle proxy
// (SPEC_FULL.md §4): a reference to a host-side object that forwards
// evaluate/getProperty/dispose calls over the bridge and ties its
// final disposal to garbage collection via runtime.AddCleanup.
package client

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/wrightplay/wrightplay/internal/serialize"
)

// Transport sends a handle action to the host and returns its reply.
// Implemented by the bridge's handle channel.
type Transport interface {
	SendHandleAction(ctx context.Context, name string, id int, fnSrc string, arg *serialize.Node, asHandle bool, propName string) (result serialize.Node, returnsID bool, resultID int, isError bool, err error)
}

// share holds the refcounted state for one target vector id. Every
// Handle pointing at the same id holds a pointer to the same share,
// so disposing one decrements a count visible to all of them.
type share struct {
	mu       sync.Mutex
	id       int
	refCount int32
	disposed bool
	tr       Transport
}

// Handle is a remote reference to a host-side object at a target
// vector id. The zero value is not usable; construct with NewHandle
// or Clone.
type Handle struct {
	s *share
}

// NewHandle creates a handle for id, registering the first reference
// and arranging for disposal to fire when the handle is garbage
// collected and no explicit Dispose happened first.
func NewHandle(tr Transport, id int) *Handle {
	s := &share{id: id, refCount: 1, tr: tr}
	h := &Handle{s: s}
	runtime.AddCleanup(h, func(s *share) {
		s.releaseRef()
	}, s)
	return h
}

// Clone returns a new Handle sharing the same target id, incrementing
// the shared refcount. The id is reclaimed host-side only once every
// clone (and the original) has been disposed or collected.
func (h *Handle) Clone() *Handle {
	atomic.AddInt32(&h.s.refCount, 1)
	clone := &Handle{s: h.s}
	runtime.AddCleanup(clone, func(s *share) {
		s.releaseRef()
	}, h.s)
	return clone
}

// releaseRef decrements the refcount and, on the final release, best-
// effort sends a dispose message if the transport is still reachable.
// A closed transport simply drops the notification, matching "the
// finalization mechanism must be resilient to already-closed
// transports."
func (s *share) releaseRef() {
	if atomic.AddInt32(&s.refCount, -1) > 0 {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	tr := s.tr
	id := s.id
	s.mu.Unlock()
	if tr == nil {
		return
	}
	_, _, _, _, _ = tr.SendHandleAction(context.Background(), "dispose", id, "", nil, false, "")
}

func (h *Handle) disposedErr() error {
	return fmt.Errorf("handle: use of disposed handle (id %d)", h.s.id)
}

// Dispose releases this handle's reference immediately. The returned
// error resolves only after the host acknowledges disposal on the
// final release; an explicit Dispose on a non-final reference merely
// decrements the count and returns nil.
func (h *Handle) Dispose(ctx context.Context) error {
	h.s.mu.Lock()
	if h.s.disposed {
		h.s.mu.Unlock()
		return nil
	}
	remaining := atomic.AddInt32(&h.s.refCount, -1)
	if remaining > 0 {
		h.s.mu.Unlock()
		return nil
	}
	h.s.disposed = true
	tr := h.s.tr
	id := h.s.id
	h.s.mu.Unlock()

	_, _, _, _, err := tr.SendHandleAction(ctx, "dispose", id, "", nil, false, "")
	return err
}

// Evaluate runs fnSrc as a compiled expression against the host-side
// target, passing arg (serialized) as its argument, and returns the
// parsed result.
func (h *Handle) Evaluate(ctx context.Context, fnSrc string, arg any) (any, error) {
	return h.evaluate(ctx, fnSrc, arg, false)
}

// EvaluateHandle is like Evaluate but registers the result host-side
// and returns a new Handle to it instead of a parsed value.
func (h *Handle) EvaluateHandle(ctx context.Context, fnSrc string, arg any) (*Handle, error) {
	v, err := h.evaluate(ctx, fnSrc, arg, true)
	if err != nil {
		return nil, err
	}
	id, ok := v.(int)
	if !ok {
		return nil, fmt.Errorf("handle: expected id result from evaluateHandle")
	}
	return NewHandle(h.s.tr, id), nil
}

func (h *Handle) evaluate(ctx context.Context, fnSrc string, arg any, asHandle bool) (any, error) {
	h.s.mu.Lock()
	if h.s.disposed {
		h.s.mu.Unlock()
		return nil, h.disposedErr()
	}
	h.s.mu.Unlock()

	var argNode *serialize.Node
	if arg != nil {
		n, err := serialize.Serialize(arg)
		if err != nil {
			return nil, err
		}
		argNode = &n
	}

	result, returnsID, id, isError, err := h.s.tr.SendHandleAction(ctx, "evaluate", h.s.id, fnSrc, argNode, asHandle, "")
	if err != nil {
		return nil, err
	}
	if returnsID {
		return id, nil
	}
	return h.parseResult(result, isError)
}

// JSONValue resolves this handle's target value via structured
// serialization (no evaluation).
func (h *Handle) JSONValue(ctx context.Context) (any, error) {
	h.s.mu.Lock()
	if h.s.disposed {
		h.s.mu.Unlock()
		return nil, h.disposedErr()
	}
	h.s.mu.Unlock()

	result, _, _, isError, err := h.s.tr.SendHandleAction(ctx, "json-value", h.s.id, "", nil, false, "")
	if err != nil {
		return nil, err
	}
	return h.parseResult(result, isError)
}

// GetProperties enumerates own enumerable properties of the target,
// returning a map of name to a new Handle for each value.
func (h *Handle) GetProperties(ctx context.Context) (map[string]*Handle, error) {
	h.s.mu.Lock()
	if h.s.disposed {
		h.s.mu.Unlock()
		return nil, h.disposedErr()
	}
	h.s.mu.Unlock()

	result, _, _, isError, err := h.s.tr.SendHandleAction(ctx, "get-properties", h.s.id, "", nil, false, "")
	if err != nil {
		return nil, err
	}
	parsed, err := h.parseResult(result, isError)
	if err != nil {
		return nil, err
	}
	arr, ok := parsed.(*serialize.Array)
	if !ok {
		return nil, fmt.Errorf("handle: get-properties did not return an array")
	}
	out := make(map[string]*Handle, len(arr.Items))
	for _, item := range arr.Items {
		pair, ok := item.(*serialize.Array)
		if !ok || len(pair.Items) != 2 {
			return nil, fmt.Errorf("handle: malformed property pair")
		}
		name, _ := pair.Items[0].(string)
		idFloat, _ := pair.Items[1].(float64)
		out[name] = NewHandle(h.s.tr, int(idFloat))
	}
	return out, nil
}

// GetProperty resolves a single named property to a new Handle,
// including when the property is absent (host-side undefined).
func (h *Handle) GetProperty(ctx context.Context, name string) (*Handle, error) {
	h.s.mu.Lock()
	if h.s.disposed {
		h.s.mu.Unlock()
		return nil, h.disposedErr()
	}
	h.s.mu.Unlock()

	_, returnsID, id, _, err := h.s.tr.SendHandleAction(ctx, "get-property", h.s.id, "", nil, false, name)
	if err != nil {
		return nil, err
	}
	if !returnsID {
		return nil, fmt.Errorf("handle: get-property did not return an id")
	}
	return NewHandle(h.s.tr, id), nil
}

func (h *Handle) parseResult(node serialize.Node, isError bool) (any, error) {
	value, err := serialize.Parse(node, remoteTargets{h.s.tr})
	if err != nil {
		return nil, err
	}
	if isError {
		if e, ok := value.(error); ok {
			return nil, e
		}
		return nil, fmt.Errorf("handle: thrown value %v", value)
	}
	return value, nil
}

// remoteTargets lets a parsed handle node (one the host embedded in a
// result, e.g. a nested handle reference) resolve through the same
// transport that produced it. The browser side has no local target
// vector of its own — "targets" here is purely for protocol symmetry
// when a result happens to carry a handle id, which callers can then
// wrap with NewHandle.
type remoteTargets struct {
	tr Transport
}

func (r remoteTargets) Resolve(id int) (any, bool) {
	return id, true
}
