// conn.go — connection helpers: error classification and a readiness
// probe used while the runner waits for the bundle server to start
// accepting connections before launching the browser.
package bridge

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// IsConnectionError returns true if err indicates a peer is
// unreachable (bundle server not yet listening, browser WS endpoint
// not yet up), as opposed to a protocol-level failure once connected.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}

// IsServerRunning checks whether the bundle server is accepting HTTP
// requests on port, via a lightweight GET to its root.
func IsServerRunning(port int) bool {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < http.StatusInternalServerError
}

// WaitForServer polls IsServerRunning until the bundle server accepts
// connections or timeout elapses, for the runner's step 1 ("start the
// bundle server; obtain its listening port").
func WaitForServer(port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if IsServerRunning(port) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}
