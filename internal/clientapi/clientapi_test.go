package clientapi

import (
	"testing"

	"github.com/wrightplay/wrightplay/internal/bridge"
)

func TestDoneToMessageRoundTrips(t *testing.T) {
	d := Done{ExitCode: 1, Error: "boom"}
	msg := d.ToMessage()

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := bridge.DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if decoded.Done == nil || decoded.Done.ExitCode != 1 || decoded.Done.Error != "boom" {
		t.Fatalf("unexpected decoded payload: %+v", decoded.Done)
	}
}

func TestWellKnownHandlesAreReservedIDs(t *testing.T) {
	page, ctx := WellKnownHandles()
	if page.ID != 0 {
		t.Fatalf("expected page handle id 0, got %d", page.ID)
	}
	if ctx.ID != 1 {
		t.Fatalf("expected context handle id 1, got %d", ctx.ID)
	}
}
