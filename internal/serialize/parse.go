// parse.go — decodes a Node tree (node.go) back into the value algebra
// (value.go), per SPEC_FULL.md §3/§4.1. Containers are constructed
// empty before their children are parsed so cycles close correctly.
package serialize

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strconv"

	"github.com/wrightplay/wrightplay/internal/util"
)

// HandleTargets resolves a wire handle id to the Go value it refers
// to, for parsing a node produced on the other side of the bridge. A
// nil HandleTargets means the message being parsed is not expected to
// carry any handle references; encountering one is a protocol error.
type HandleTargets interface {
	Resolve(id int) (any, bool)
}

// ProtocolError marks a structurally invalid node tree: an unknown
// handle id, a back-reference to a position that was never emitted, or
// a malformed discriminator.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "serialize: protocol error: " + e.Msg }

type decoder struct {
	targets HandleTargets
	refs    map[int]any
}

// Parse decodes a Node tree into a Go value from the value algebra.
func Parse(node Node, targets HandleTargets) (any, error) {
	d := &decoder{targets: targets, refs: map[int]any{}}
	return d.decode(node)
}

func (d *decoder) decode(n Node) (any, error) {
	if n.Kind == KindRef {
		v, ok := d.refs[n.Pos]
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("back-reference to unknown position %d", n.Pos)}
		}
		return v, nil
	}

	switch n.Kind {
	case KindPrimitive:
		v, err := decodePrimitive(n.Num)
		d.refs[n.Pos] = v
		return v, err
	case KindSentinel:
		v, err := decodeSentinel(n.Sent)
		d.refs[n.Pos] = v
		return v, err
	case KindBigInt:
		bi, ok := new(big.Int).SetString(n.Big, 10)
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("invalid big integer literal %q", n.Big)}
		}
		d.refs[n.Pos] = bi
		return bi, nil
	case KindURL:
		u, err := url.Parse(n.URL)
		if err != nil {
			return nil, &ProtocolError{Msg: "invalid URL: " + err.Error()}
		}
		d.refs[n.Pos] = u
		return u, nil
	case KindDate:
		t, err := util.ParseTimestamp(n.Date)
		if err != nil {
			return nil, &ProtocolError{Msg: "invalid timestamp: " + err.Error()}
		}
		d.refs[n.Pos] = t
		return t, nil
	case KindRegexp:
		r := Regexp{Source: n.ReSource, Flags: n.ReFlags}
		d.refs[n.Pos] = r
		return r, nil
	case KindHandle:
		if d.targets == nil {
			return nil, &ProtocolError{Msg: fmt.Sprintf("handle id %d present but no target vector supplied", n.Handle)}
		}
		v, ok := d.targets.Resolve(n.Handle)
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("unknown handle id %d", n.Handle)}
		}
		d.refs[n.Pos] = v
		return v, nil
	case KindError:
		return d.decodeError(n)
	case KindArray:
		return d.decodeArray(n)
	case KindObject:
		return d.decodeObject(n)
	default:
		return nil, &ProtocolError{Msg: fmt.Sprintf("unknown node kind %d", n.Kind)}
	}
}

func decodePrimitive(raw []byte) (any, error) {
	s := string(raw)
	switch s {
	case "null", "":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, &ProtocolError{Msg: "invalid primitive string: " + err.Error()}
		}
		return str, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &ProtocolError{Msg: fmt.Sprintf("invalid primitive number %q", s)}
	}
	return f, nil
}

func decodeSentinel(s string) (any, error) {
	switch s {
	case "undefined":
		return Undefined{}, nil
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	case "-0":
		return math.Copysign(0, -1), nil
	default:
		return nil, &ProtocolError{Msg: fmt.Sprintf("unknown sentinel %q", s)}
	}
}

func (d *decoder) decodeError(n Node) (any, error) {
	cause := error(nil)
	if n.ErrCause != nil {
		causeVal, err := d.decode(*n.ErrCause)
		if err != nil {
			return nil, err
		}
		if _, isUndef := causeVal.(Undefined); !isUndef {
			if ce, ok := causeVal.(error); ok {
				cause = ce
			}
		}
	}
	we := &WireError{Name: n.ErrName, Msg: n.ErrMsg, CauseErr: cause, StackTrace: n.ErrStack}
	d.refs[n.Pos] = we
	return we, nil
}

func (d *decoder) decodeArray(n Node) (any, error) {
	arr := &Array{}
	d.refs[n.Pos] = arr
	items := make([]any, len(n.Arr))
	for i, child := range n.Arr {
		v, err := d.decode(child)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	arr.Items = items
	return arr, nil
}

func (d *decoder) decodeObject(n Node) (any, error) {
	obj := &Object{}
	d.refs[n.Pos] = obj
	props := make([]Property, len(n.Obj))
	for i, child := range n.Obj {
		v, err := d.decode(child.Value)
		if err != nil {
			return nil, err
		}
		props[i] = Property{Key: child.Key, Value: v}
	}
	obj.Props = props
	return obj, nil
}

// WireError is the Go error constructed when parsing an "e" node: a
// typed error carrying the remote name, message, optional cause and
// optional stack trace (SPEC_FULL.md §3 "e" discriminator).
type WireError struct {
	Name       string
	Msg        string
	CauseErr   error
	StackTrace string
}

func (e *WireError) Error() string       { return e.Msg }
func (e *WireError) ErrorName() string   { return e.Name }
func (e *WireError) Stack() string       { return e.StackTrace }
func (e *WireError) Unwrap() error       { return e.CauseErr }
