// safego.go — Panic-recovering goroutine launcher.
package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wrightplay/wrightplay/internal/state"
)

// SafeGo launches fn in a goroutine with deferred panic recovery.
// On panic: logs the stack trace and best-effort appends a record to
// the crash log. Does NOT os.Exit — a panic in one route handler or
// bundle rebuild goroutine must not take down a run that other
// goroutines are still driving.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logrus.WithField("component", "util").
					WithField("panic", r).
					Error("recovered panic in background goroutine\n" + stack)
				appendCrashLog(r, stack)
			}
		}()
		fn()
	}()
}

func appendCrashLog(panicValue any, stack string) {
	path, err := state.CrashLogFile()
	if err != nil {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"panic":     fmt.Sprint(panicValue),
		"stack":     stack,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}
