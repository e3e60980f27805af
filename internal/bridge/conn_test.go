package bridge

import (
	"errors"
	"net"
	"testing"
)

func TestIsConnectionErrorDetectsNetOpError(t *testing.T) {
	err := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if !IsConnectionError(err) {
		t.Fatal("expected net.OpError to be classified as a connection error")
	}
}

func TestIsConnectionErrorDetectsStringFallback(t *testing.T) {
	err := errors.New("wrapped: connection refused")
	if !IsConnectionError(err) {
		t.Fatal("expected wrapped connection-refused message to be classified as a connection error")
	}
}

func TestIsConnectionErrorNilIsFalse(t *testing.T) {
	if IsConnectionError(nil) {
		t.Fatal("expected nil error to not be a connection error")
	}
}

func TestIsServerRunningFalseWhenNothingListening(t *testing.T) {
	if IsServerRunning(1) {
		t.Fatal("expected no server on low privileged port 1")
	}
}
