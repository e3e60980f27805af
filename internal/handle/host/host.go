// Package host implements the host side of the handle protocol
// (SPEC_FULL.md §4): an append-only target vector of host-side
// objects, and the dispatch of the five client actions against it.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/wrightplay/wrightplay/internal/serialize"
)

// Reserved target vector slots, per the convention this implementation
// fixes for the "handle id 0 is overloaded across source variants"
// open question: id 0 is always the page, id 1 is always the browsing
// context.
const (
	PageHandleID    = 0
	ContextHandleID = 1
)

// Evaluator runs a compiled expression against a host-side target.
// This is the external automation-engine adapter: the host never
// executes JavaScript itself, it only prepares the call and routes
// the result.
type Evaluator interface {
	Evaluate(ctx context.Context, target any, compiled serialize.CompiledExpr, arg any) (any, error)
}

type slot struct {
	value    any
	refCount int
	occupied bool
}

// Vector is the append-only target vector. Dispose empties a slot but
// never reuses its id within a session; comparing an id against Len
// distinguishes "never existed" from "already disposed".
type Vector struct {
	mu    sync.Mutex
	slots []slot
}

// NewVector constructs a vector with the page and context pre-registered
// at their reserved ids.
func NewVector(page, browsingContext any) *Vector {
	v := &Vector{}
	v.slots = append(v.slots,
		slot{value: page, occupied: true, refCount: 1},
		slot{value: browsingContext, occupied: true, refCount: 1},
	)
	return v
}

// Register appends value as a new slot and returns its id.
func (v *Vector) Register(value any) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := len(v.slots)
	v.slots = append(v.slots, slot{value: value, occupied: true, refCount: 1})
	return id
}

// Resolve returns the value at id, or ok=false if the id was never
// assigned or has since been disposed.
func (v *Vector) Resolve(id int) (any, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id < 0 || id >= len(v.slots) || !v.slots[id].occupied {
		return nil, false
	}
	return v.slots[id].value, true
}

// AddRef increments the refcount for id, for a second handle-holder
// sharing the same host-side object.
func (v *Vector) AddRef(id int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id < 0 || id >= len(v.slots) || !v.slots[id].occupied {
		return fmt.Errorf("handle: cannot add ref to unknown id %d", id)
	}
	v.slots[id].refCount++
	return nil
}

// Dispose decrements id's refcount, emptying the slot once it reaches
// zero. Disposing an already-empty or unknown id is a no-op, matching
// "disposing twice is safe" semantics expected of a refcounted handle.
func (v *Vector) Dispose(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id < 0 || id >= len(v.slots) || !v.slots[id].occupied {
		return
	}
	v.slots[id].refCount--
	if v.slots[id].refCount <= 0 {
		v.slots[id] = slot{}
	}
}

// Len reports the current target vector length, for distinguishing a
// never-assigned id from a disposed one.
func (v *Vector) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.slots)
}

// Dispatcher serves the five client actions against a Vector, using
// an Evaluator to run evaluate() bodies.
type Dispatcher struct {
	Targets   *Vector
	Evaluator Evaluator
}

// Action is one client->host handle request, carrying only the fields
// relevant to its Name.
type Action struct {
	Name   string // "evaluate" | "json-value" | "get-properties" | "get-property" | "dispose"
	ID     int
	FnSrc  string
	Arg    serialize.Node
	HasArg bool
	AsHandle bool // "h" flag on evaluate: register the result instead of serializing it
	PropName string
}

// Reply is the host's resolve{result, error} response. Result is
// either a serialize.Node (when not ReturnsID) or an integer handle
// id (when ReturnsID, from an evaluate with AsHandle set).
type Reply struct {
	Result    serialize.Node
	ReturnsID bool
	ID        int
	IsError   bool
}

// Dispatch executes action against targets and returns the reply to
// send back over the bridge. Any error or thrown value from the
// evaluator is serialized into the reply rather than returned as a Go
// error, matching "any thrown value is serialized and reported with
// error: true".
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) Reply {
	switch action.Name {
	case "evaluate":
		return d.dispatchEvaluate(ctx, action)
	case "json-value":
		return d.dispatchJSONValue(action)
	case "get-properties":
		return d.dispatchGetProperties(action)
	case "get-property":
		return d.dispatchGetProperty(action)
	case "dispose":
		d.Targets.Dispose(action.ID)
		return Reply{Result: serialize.Node{}}
	default:
		return errorReply(fmt.Errorf("handle: unknown action %q", action.Name))
	}
}

func (d *Dispatcher) dispatchEvaluate(ctx context.Context, action Action) Reply {
	target, ok := d.Targets.Resolve(action.ID)
	if !ok {
		return errorReply(fmt.Errorf("handle: unknown handle id %d", action.ID))
	}
	compiled, err := serialize.CompileExpr(action.FnSrc)
	if err != nil {
		return errorReply(err)
	}
	var arg any
	if action.HasArg {
		arg, err = serialize.Parse(action.Arg, d.Targets)
		if err != nil {
			return errorReply(err)
		}
	}
	result, err := d.Evaluator.Evaluate(ctx, target, compiled, arg)
	if err != nil {
		return errorReply(err)
	}
	if action.AsHandle {
		id := d.Targets.Register(result)
		return Reply{ReturnsID: true, ID: id}
	}
	node, err := serialize.Serialize(result, nil)
	if err != nil {
		return errorReply(err)
	}
	return Reply{Result: node}
}

func (d *Dispatcher) dispatchJSONValue(action Action) Reply {
	target, ok := d.Targets.Resolve(action.ID)
	if !ok {
		return errorReply(fmt.Errorf("handle: unknown handle id %d", action.ID))
	}
	node, err := serialize.Serialize(target)
	if err != nil {
		return errorReply(err)
	}
	return Reply{Result: node}
}

func (d *Dispatcher) dispatchGetProperties(action Action) Reply {
	target, ok := d.Targets.Resolve(action.ID)
	if !ok {
		return errorReply(fmt.Errorf("handle: unknown handle id %d", action.ID))
	}
	obj, ok := target.(*serialize.Object)
	if !ok {
		return errorReply(fmt.Errorf("handle: target %d has no enumerable properties", action.ID))
	}
	pairs := &serialize.Array{}
	for _, p := range obj.Props {
		id := d.Targets.Register(p.Value)
		pairs.Items = append(pairs.Items, &serialize.Array{Items: []any{p.Key, float64(id)}})
	}
	node, err := serialize.Serialize(pairs)
	if err != nil {
		return errorReply(err)
	}
	return Reply{Result: node}
}

func (d *Dispatcher) dispatchGetProperty(action Action) Reply {
	target, ok := d.Targets.Resolve(action.ID)
	if !ok {
		return errorReply(fmt.Errorf("handle: unknown handle id %d", action.ID))
	}
	var value any = serialize.Undefined{}
	if obj, ok := target.(*serialize.Object); ok {
		if v, found := obj.Get(action.PropName); found {
			value = v
		}
	}
	id := d.Targets.Register(value)
	return Reply{ReturnsID: true, ID: id}
}

func errorReply(err error) Reply {
	node, serErr := serialize.Serialize(err)
	if serErr != nil {
		node, _ = serialize.Serialize(err.Error())
	}
	return Reply{Result: node, IsError: true}
}
