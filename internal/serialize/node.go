// node.go — the wire shape of a serialized value tree, per
// SPEC_FULL.md §3. Exactly one discriminator is populated per node,
// except a back-reference node, which carries only its position.
package serialize

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which discriminator (if any) a Node carries.
type Kind uint8

const (
	// KindRef marks a back-reference: the node carries only Pos,
	// pointing at the position of the value's first occurrence.
	KindRef Kind = iota
	KindPrimitive
	KindSentinel
	KindBigInt
	KindURL
	KindDate
	KindRegexp
	KindHandle
	KindError
	KindArray
	KindObject
)

// Node is one entry of the serialized value tree.
type Node struct {
	// Pos is this value's position (for a first occurrence) or the
	// referenced position (for a back-reference).
	Pos  int
	Kind Kind

	Num json.RawMessage // n: finite number | boolean | string | null, as raw JSON
	Sent string         // v: one of undefined|NaN|Infinity|-Infinity|-0

	Big string // b: decimal string

	URL string // u

	Date string // d: ISO-8601

	ReSource string // r.p
	ReFlags  string // r.f

	Handle int // h

	ErrName  string // e.n
	ErrMsg   string // e.m
	ErrCause *Node  // e.c — always present for error nodes (may itself be the undefined sentinel)
	ErrStack string // e.s

	Arr []Node     // a
	Obj []wireProp // o
}

type wireProp struct {
	Key   string `json:"k"`
	Value Node   `json:"v"`
}

type wireRegexp struct {
	P string `json:"p"`
	F string `json:"f"`
}

type wireError struct {
	N string `json:"n"`
	M string `json:"m"`
	C *Node  `json:"c,omitempty"`
	S string `json:"s,omitempty"`
}

// MarshalJSON renders the node with exactly one discriminator key
// (plus "i"), or just "i" for a back-reference.
func (n Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, 2)
	posJSON, err := json.Marshal(n.Pos)
	if err != nil {
		return nil, err
	}
	out["i"] = posJSON

	switch n.Kind {
	case KindRef:
		// only "i"
	case KindPrimitive:
		if len(n.Num) == 0 {
			out["n"] = json.RawMessage("null")
		} else {
			out["n"] = n.Num
		}
	case KindSentinel:
		b, err := json.Marshal(n.Sent)
		if err != nil {
			return nil, err
		}
		out["v"] = b
	case KindBigInt:
		b, err := json.Marshal(n.Big)
		if err != nil {
			return nil, err
		}
		out["b"] = b
	case KindURL:
		b, err := json.Marshal(n.URL)
		if err != nil {
			return nil, err
		}
		out["u"] = b
	case KindDate:
		b, err := json.Marshal(n.Date)
		if err != nil {
			return nil, err
		}
		out["d"] = b
	case KindRegexp:
		b, err := json.Marshal(wireRegexp{P: n.ReSource, F: n.ReFlags})
		if err != nil {
			return nil, err
		}
		out["r"] = b
	case KindHandle:
		b, err := json.Marshal(n.Handle)
		if err != nil {
			return nil, err
		}
		out["h"] = b
	case KindError:
		b, err := json.Marshal(wireError{N: n.ErrName, M: n.ErrMsg, C: n.ErrCause, S: n.ErrStack})
		if err != nil {
			return nil, err
		}
		out["e"] = b
	case KindArray:
		arr := n.Arr
		if arr == nil {
			arr = []Node{}
		}
		b, err := json.Marshal(arr)
		if err != nil {
			return nil, err
		}
		out["a"] = b
	case KindObject:
		obj := n.Obj
		if obj == nil {
			obj = []wireProp{}
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		out["o"] = b
	default:
		return nil, fmt.Errorf("serialize: unknown node kind %d", n.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON determines the node's Kind from whichever single
// discriminator key is present.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if iRaw, ok := raw["i"]; ok {
		if err := json.Unmarshal(iRaw, &n.Pos); err != nil {
			return fmt.Errorf("serialize: invalid node position: %w", err)
		}
	}

	switch {
	case hasKey(raw, "n"):
		n.Kind = KindPrimitive
		n.Num = append(json.RawMessage(nil), raw["n"]...)
	case hasKey(raw, "v"):
		n.Kind = KindSentinel
		return json.Unmarshal(raw["v"], &n.Sent)
	case hasKey(raw, "b"):
		n.Kind = KindBigInt
		return json.Unmarshal(raw["b"], &n.Big)
	case hasKey(raw, "u"):
		n.Kind = KindURL
		return json.Unmarshal(raw["u"], &n.URL)
	case hasKey(raw, "d"):
		n.Kind = KindDate
		return json.Unmarshal(raw["d"], &n.Date)
	case hasKey(raw, "r"):
		n.Kind = KindRegexp
		var rx wireRegexp
		if err := json.Unmarshal(raw["r"], &rx); err != nil {
			return err
		}
		n.ReSource, n.ReFlags = rx.P, rx.F
	case hasKey(raw, "h"):
		n.Kind = KindHandle
		return json.Unmarshal(raw["h"], &n.Handle)
	case hasKey(raw, "e"):
		n.Kind = KindError
		var we wireError
		if err := json.Unmarshal(raw["e"], &we); err != nil {
			return err
		}
		n.ErrName, n.ErrMsg, n.ErrCause, n.ErrStack = we.N, we.M, we.C, we.S
	case hasKey(raw, "a"):
		n.Kind = KindArray
		return json.Unmarshal(raw["a"], &n.Arr)
	case hasKey(raw, "o"):
		n.Kind = KindObject
		return json.Unmarshal(raw["o"], &n.Obj)
	default:
		n.Kind = KindRef
	}
	return nil
}

func hasKey(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}
