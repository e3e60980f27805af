package bridge

import "testing"

func TestMessageRoundTrip(t *testing.T) {
	m := Message{
		Category: "route",
		Kind:     TypeRouteRequest,
		RouteRequest: &RouteRequestPayload{
			ID: "req-1", URL: "https://example.com/x", Method: "POST", HasBody: true,
		},
	}
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if got.Kind != TypeRouteRequest || got.RouteRequest.ID != "req-1" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if !got.ExpectsBody() {
		t.Fatal("expected ExpectsBody true for hasBody request")
	}
}

func TestDecodeMessageMissingPayloadFails(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"route","kind":"route-toggle"}`))
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestDecodeMessageUnknownKindFails(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"route","kind":"not-a-kind"}`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestHandleResolveExpectsNoBody(t *testing.T) {
	m := Message{Kind: TypeHandleResolve, HandleResolve: &HandleResolvePayload{ResolveID: 1}}
	if m.ExpectsBody() {
		t.Fatal("expected handle-resolve to never expect a body frame")
	}
}
