package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wrightplay/wrightplay/internal/state"
)

// appendExitDiagnostic writes a structured record of an abnormal run
// termination (timeout, context cancellation, launch failure) so a CI
// harness invoking wrightplay has something to attach to a failed
// build artifact. Best-effort: failure to write is logged, never
// returned, since diagnostics must never be the reason a run fails.
func appendExitDiagnostic(reason string, extra map[string]any) string {
	entry := map[string]any{
		"event":      "runner_exit",
		"reason":     reason,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"pid":        os.Getpid(),
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
	for k, v := range extra {
		entry[k] = v
	}

	path, err := state.ExitDiagnosticsFile()
	if err != nil {
		runLog.WithError(err).Warn("could not resolve exit diagnostics path")
		return ""
	}
	if err := appendJSONLine(path, entry); err != nil {
		runLog.WithError(err).Warn("could not write exit diagnostic")
		return ""
	}
	return path
}

func appendJSONLine(path string, entry map[string]any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("runner: write exit diagnostic: %w", err)
	}
	return nil
}
