// serialize.go — encodes the closed value algebra (value.go) into the
// back-reference-bearing node tree (node.go), per SPEC_FULL.md §3/§4.1.
package serialize

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"time"
)

// UnserializableError is returned when a value cannot be encoded and
// no usable fallback was supplied.
type UnserializableError struct {
	Value any
}

func (e *UnserializableError) Error() string {
	return fmt.Sprintf("serialize: unexpected value of type %T is not serializable", e.Value)
}

type encoder struct {
	visited []any
	fallback any
	haveFallback bool
}

// Serialize encodes value into a Node tree. If fallback is supplied
// (at most one), any value that cannot itself be encoded is replaced
// by the fallback instead of failing serialization — except that the
// fallback value itself must be encodable, checked up front.
func Serialize(value any, fallback ...any) (Node, error) {
	if len(fallback) > 1 {
		return Node{}, fmt.Errorf("serialize: at most one fallback value may be supplied")
	}
	enc := &encoder{}
	if len(fallback) == 1 {
		// The fallback itself must be encodable: probe it with a
		// fresh encoder so its own unencodability can't be masked by
		// substituting itself.
		probe := &encoder{}
		if _, err := probe.encode(fallback[0]); err != nil {
			return Node{}, fmt.Errorf("serialize: fallback value is not serializable: %w", err)
		}
		enc.fallback = fallback[0]
		enc.haveFallback = true
	}
	return enc.encode(value)
}

func (e *encoder) encode(value any) (Node, error) {
	node, err := e.encodeValue(value)
	if err != nil {
		var uerr *UnserializableError
		if e.haveFallback && isUnserializable(err, &uerr) {
			return e.encodeValue(e.fallback)
		}
		return Node{}, err
	}
	return node, nil
}

func isUnserializable(err error, target **UnserializableError) bool {
	u, ok := err.(*UnserializableError)
	if ok {
		*target = u
	}
	return ok
}

// identityIndex returns the visited-array index of value using
// SameValueZero-style comparison (NaN equals NaN, -0 distinct from
// +0), or -1 if not found. Reference types (Array, Object) compare by
// pointer identity.
func (e *encoder) identityIndex(value any) int {
	for i, v := range e.visited {
		if sameValueZero(v, value) {
			return i
		}
	}
	return -1
}

func sameValueZero(a, b any) bool {
	switch av := a.(type) {
	case *Array:
		bv, ok := b.(*Array)
		return ok && av == bv
	case *Object:
		bv, ok := b.(*Object)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(av) && math.IsNaN(bv) {
			return true
		}
		if av == 0 && bv == 0 {
			return math.Signbit(av) == math.Signbit(bv)
		}
		return av == bv
	case string, bool, nil:
		return a == b
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	default:
		return a == b
	}
}

func (e *encoder) encodeValue(value any) (Node, error) {
	if idx := e.identityIndex(value); idx >= 0 && isIdentityTracked(value) {
		return Node{Kind: KindRef, Pos: idx}, nil
	}

	switch v := value.(type) {
	case nil:
		return e.emitPrimitive("null")
	case bool:
		raw, _ := json.Marshal(v)
		return e.emitPrimitive(string(raw))
	case string:
		raw, _ := json.Marshal(v)
		return e.emitPrimitive(string(raw))
	case int:
		return e.encodeValue(float64(v))
	case int64:
		return e.encodeValue(float64(v))
	case float64:
		return e.encodeFloat(v)
	case Undefined:
		return e.emitSentinel(v, "undefined")
	case *big.Int:
		return e.emitSimple(v, KindBigInt, func(n *Node) { n.Big = v.String() })
	case *url.URL:
		return e.emitSimple(v, KindURL, func(n *Node) { n.URL = v.String() })
	case time.Time:
		return e.emitSimple(v, KindDate, func(n *Node) { n.Date = v.UTC().Format("2006-01-02T15:04:05.000Z") })
	case Regexp:
		return e.emitSimple(v, KindRegexp, func(n *Node) { n.ReSource, n.ReFlags = v.Source, v.Flags })
	case HandleRef:
		return e.emitSimple(v, KindHandle, func(n *Node) { n.Handle = v.ID })
	case error:
		return e.encodeError(v)
	case *Array:
		return e.encodeArray(v)
	case *Object:
		return e.encodeObject(v)
	default:
		return Node{}, &UnserializableError{Value: value}
	}
}

// isIdentityTracked reports whether value participates in back-reference
// deduplication. JS objects (arrays, plain objects, platform objects
// such as URL) have identity that a shared subtree can reproduce;
// primitives do not — two equal strings or numbers elsewhere in the
// graph are independent occurrences, not a shared reference, so they
// are always (re-)emitted fresh instead of being tracked here.
func isIdentityTracked(value any) bool {
	switch value.(type) {
	case *Array, *Object, *url.URL, *big.Int:
		return true
	default:
		return false
	}
}

// emitPrimitive assigns a fresh position for a primitive value.
// Primitives are intentionally never tracked for identity: two equal
// numbers or strings at different positions in the graph are distinct
// occurrences, not a shared reference, matching how JS primitives have
// no object identity.
func (e *encoder) emitPrimitive(raw string) (Node, error) {
	pos := len(e.visited)
	e.visited = append(e.visited, nil)
	return Node{Kind: KindPrimitive, Pos: pos, Num: []byte(raw)}, nil
}

func (e *encoder) emitSentinel(v any, s string) (Node, error) {
	pos := len(e.visited)
	e.visited = append(e.visited, v)
	return Node{Kind: KindSentinel, Pos: pos, Sent: s}, nil
}

func (e *encoder) emitSimple(v any, kind Kind, fill func(*Node)) (Node, error) {
	pos := len(e.visited)
	e.visited = append(e.visited, v)
	n := Node{Kind: kind, Pos: pos}
	fill(&n)
	return n, nil
}

func (e *encoder) encodeFloat(v float64) (Node, error) {
	switch {
	case math.IsNaN(v):
		return e.emitSentinel(v, "NaN")
	case math.IsInf(v, 1):
		return e.emitSentinel(v, "Infinity")
	case math.IsInf(v, -1):
		return e.emitSentinel(v, "-Infinity")
	case v == 0 && math.Signbit(v):
		return e.emitSentinel(v, "-0")
	default:
		return e.emitPrimitive(strconv.FormatFloat(v, 'g', -1, 64))
	}
}

func (e *encoder) encodeError(err error) (Node, error) {
	pos := len(e.visited)
	e.visited = append(e.visited, err)

	name := fmt.Sprintf("%T", err)
	if ne, ok := err.(NamedError); ok {
		name = ne.ErrorName()
	}
	stack := ""
	if se, ok := err.(StackedError); ok {
		stack = se.Stack()
	}

	var cause any = Undefined{}
	if unwrapped := unwrapCause(err); unwrapped != nil {
		cause = unwrapped
	}
	causeNode, causeErr := e.encode(cause)
	if causeErr != nil {
		return Node{}, causeErr
	}

	return Node{
		Kind:     KindError,
		Pos:      pos,
		ErrName:  name,
		ErrMsg:   err.Error(),
		ErrCause: &causeNode,
		ErrStack: stack,
	}, nil
}

type unwrapper interface{ Unwrap() error }

func unwrapCause(err error) error {
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}

func (e *encoder) encodeArray(arr *Array) (Node, error) {
	pos := len(e.visited)
	e.visited = append(e.visited, arr)

	items := make([]Node, len(arr.Items))
	for i, item := range arr.Items {
		n, err := e.encode(item)
		if err != nil {
			return Node{}, err
		}
		items[i] = n
	}
	return Node{Kind: KindArray, Pos: pos, Arr: items}, nil
}

func (e *encoder) encodeObject(obj *Object) (Node, error) {
	pos := len(e.visited)
	e.visited = append(e.visited, obj)

	props := make([]wireProp, len(obj.Props))
	for i, p := range obj.Props {
		n, err := e.encode(p.Value)
		if err != nil {
			return Node{}, err
		}
		props[i] = wireProp{Key: p.Key, Value: n}
	}
	return Node{Kind: KindObject, Pos: pos, Obj: props}, nil
}
