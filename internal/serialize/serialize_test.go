package serialize

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"net/url"
	"testing"
	"time"
)

func roundTrip(t *testing.T, value any) any {
	t.Helper()
	node, err := Serialize(value)
	if err != nil {
		t.Fatalf("Serialize(%v) failed: %v", value, err)
	}
	raw, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("marshal node: %v", err)
	}
	var decoded Node
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal node: %v", err)
	}
	out, err := Parse(decoded, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return out
}

func TestRoundTripPrimitives(t *testing.T) {
	cases := []any{42.0, "hello", true, false, nil, Undefined{}}
	for _, c := range cases {
		got := roundTrip(t, c)
		if c == nil {
			if got != nil {
				t.Errorf("expected nil, got %v", got)
			}
			continue
		}
		if got != c {
			t.Errorf("round trip %v: got %v", c, got)
		}
	}
}

func TestRoundTripSentinels(t *testing.T) {
	t.Run("NaN", func(t *testing.T) {
		got := roundTrip(t, math.NaN())
		f, ok := got.(float64)
		if !ok || !math.IsNaN(f) {
			t.Fatalf("expected NaN, got %v", got)
		}
	})
	t.Run("-0", func(t *testing.T) {
		got := roundTrip(t, math.Copysign(0, -1))
		f, ok := got.(float64)
		if !ok || !math.Signbit(f) || f != 0 {
			t.Fatalf("expected -0, got %v", got)
		}
	})
	t.Run("Infinity", func(t *testing.T) {
		got := roundTrip(t, math.Inf(1))
		if f, ok := got.(float64); !ok || !math.IsInf(f, 1) {
			t.Fatalf("expected +Inf, got %v", got)
		}
	})
	t.Run("-Infinity", func(t *testing.T) {
		got := roundTrip(t, math.Inf(-1))
		if f, ok := got.(float64); !ok || !math.IsInf(f, -1) {
			t.Fatalf("expected -Inf, got %v", got)
		}
	})
}

func TestRoundTripCyclicArray(t *testing.T) {
	inner := &Array{Items: []any{"deep", &Object{Props: []Property{{Key: "deeper", Value: &Array{}}}}}}
	outer := &Array{Items: []any{1.0, inner}}
	outer.Items = append(outer.Items, outer)

	node, err := Serialize(outer)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	raw, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Node
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := Parse(decoded, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	arr, ok := out.(*Array)
	if !ok {
		t.Fatalf("expected *Array, got %T", out)
	}
	if len(arr.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(arr.Items))
	}
	self, ok := arr.Items[2].(*Array)
	if !ok || self != arr {
		t.Fatalf("expected 3rd element to be the array itself, got %v", arr.Items[2])
	}
}

func TestRoundTripURL(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	got := roundTrip(t, u)
	gu, ok := got.(*url.URL)
	if !ok || gu.String() != "https://example.com/" {
		t.Fatalf("expected round-tripped URL, got %v", got)
	}
}

func TestRoundTripTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	got := roundTrip(t, ts)
	gt, ok := got.(time.Time)
	if !ok || !gt.Equal(ts) {
		t.Fatalf("expected round-tripped time, got %v", got)
	}
}

func TestRoundTripRegexp(t *testing.T) {
	re := Regexp{Source: "a.b", Flags: "gi"}
	got := roundTrip(t, re)
	gr, ok := got.(Regexp)
	if !ok || gr.Source != re.Source || gr.Flags != re.Flags {
		t.Fatalf("expected round-tripped regexp, got %v", got)
	}
}

type namedErr struct {
	name  string
	msg   string
	stack string
	cause error
}

func (e *namedErr) Error() string     { return e.msg }
func (e *namedErr) ErrorName() string { return e.name }
func (e *namedErr) Stack() string     { return e.stack }
func (e *namedErr) Unwrap() error     { return e.cause }

func TestRoundTripErrorWithCause(t *testing.T) {
	cause := &namedErr{name: "TypeError", msg: "bad input", stack: "at foo"}
	err := &namedErr{name: "Error", msg: "wrapped", stack: "at bar", cause: cause}

	got := roundTrip(t, error(err))
	we, ok := got.(*WireError)
	if !ok {
		t.Fatalf("expected *WireError, got %T", got)
	}
	if we.Name != "Error" || we.Msg != "wrapped" || we.StackTrace != "at bar" {
		t.Fatalf("unexpected wire error: %+v", we)
	}
	causeErr, ok := we.CauseErr.(*WireError)
	if !ok {
		t.Fatalf("expected cause to decode as *WireError, got %T", we.CauseErr)
	}
	if causeErr.Name != "TypeError" || causeErr.Msg != "bad input" {
		t.Fatalf("unexpected cause: %+v", causeErr)
	}
}

func TestRoundTripErrorWithoutCause(t *testing.T) {
	err := &namedErr{name: "Error", msg: "plain"}
	got := roundTrip(t, error(err))
	we := got.(*WireError)
	if we.CauseErr != nil {
		t.Fatalf("expected nil cause, got %v", we.CauseErr)
	}
}

func TestSerializeFunctionFails(t *testing.T) {
	fn := func() {}
	_, err := Serialize(fn)
	var uerr *UnserializableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnserializableError, got %v", err)
	}
}

func TestSerializeFunctionWithFallback(t *testing.T) {
	fn := func() {}
	arr := &Array{Items: []any{1.0, fn, 3.0}}
	node, err := Serialize(arr, nil)
	if err != nil {
		t.Fatalf("Serialize with fallback failed: %v", err)
	}
	out, err := Parse(node, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := out.(*Array)
	if got.Items[0] != 1.0 || got.Items[1] != nil || got.Items[2] != 3.0 {
		t.Fatalf("expected [1, null, 3], got %v", got.Items)
	}
}

func TestSerializeFunctionFallbackIsFunctionStillFails(t *testing.T) {
	fn := func() {}
	fallback := func() {}
	_, err := Serialize(fn, fallback)
	if err == nil {
		t.Fatal("expected error when fallback is itself unserializable")
	}
}

func TestSerializeTooManyFallbacks(t *testing.T) {
	_, err := Serialize(1.0, nil, nil)
	if err == nil {
		t.Fatal("expected error for more than one fallback")
	}
}

func TestSerializeBigInt(t *testing.T) {
	bi, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	got := roundTrip(t, bi)
	gbi, ok := got.(*big.Int)
	if !ok || gbi.Cmp(bi) != 0 {
		t.Fatalf("expected round-tripped big int, got %v", got)
	}
}

func TestSerializeHandleRef(t *testing.T) {
	targets := stubTargets{4: "Y"}
	node, err := Serialize(HandleRef{ID: 4})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if node.Kind != KindHandle || node.Handle != 4 {
		t.Fatalf("expected handle node with id 4, got %+v", node)
	}
	out, err := Parse(node, targets)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out != "Y" {
		t.Fatalf("expected resolved target 'Y', got %v", out)
	}
}

type stubTargets map[int]any

func (s stubTargets) Resolve(id int) (any, bool) {
	v, ok := s[id]
	return v, ok
}

func TestParseHandleWithoutTargetsIsProtocolError(t *testing.T) {
	node, _ := Serialize(HandleRef{ID: 1})
	_, err := Parse(node, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := &Object{}
	obj.Set("b", 1.0)
	obj.Set("a", 2.0)
	obj.Set("b", 3.0)

	got := roundTrip(t, obj).(*Object)
	if len(got.Props) != 2 {
		t.Fatalf("expected 2 props, got %d", len(got.Props))
	}
	if got.Props[0].Key != "b" || got.Props[0].Value != 3.0 {
		t.Fatalf("expected b updated in place, got %+v", got.Props[0])
	}
	if got.Props[1].Key != "a" {
		t.Fatalf("expected a second, got %+v", got.Props[1])
	}
}

func TestSharedSubtreeDeduplicatesAsBackReference(t *testing.T) {
	shared := &Object{Props: []Property{{Key: "x", Value: 1.0}}}
	arr := &Array{Items: []any{shared, shared}}

	node, err := Serialize(arr)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if node.Arr[1].Kind != KindRef {
		t.Fatalf("expected second occurrence to be a back-reference, got kind %v", node.Arr[1].Kind)
	}
	if node.Arr[1].Pos != node.Arr[0].Pos {
		t.Fatalf("expected back-reference to point at first occurrence's position")
	}
}
