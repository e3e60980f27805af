package engine

import "fmt"

// registry maps a browser name ("chromium", "firefox", "webkit") to
// the Launcher an out-of-tree adapter registered for it at init time.
// This is the seam an external automation-engine adapter plugs into
// (spec §1's external collaborator boundary). The in-process mock
// adapter (mock.go) registers itself as "mock"; no real-browser adapter
// ships with this repository.
var registry = map[string]Launcher{}

// Register associates name with a Launcher. Adapter packages call
// this from an init func, the way database/sql drivers register
// themselves.
func Register(name string, l Launcher) {
	registry[name] = l
}

// Lookup returns the Launcher registered for name.
func Lookup(name string) (Launcher, error) {
	l, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("engine: no automation adapter registered for browser %q", name)
	}
	return l, nil
}
