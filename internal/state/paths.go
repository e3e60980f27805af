// Package state centralizes filesystem locations for wrightplay runtime
// artifacts: coverage output, crash diagnostics, and exit diagnostics
// written when a run terminates abnormally.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirEnv overrides the default runtime state root.
	StateDirEnv = "WRIGHTPLAY_STATE_DIR"

	xdgStateHomeEnv = "XDG_STATE_HOME"
	appName         = "wrightplay"
)

// RootDir returns the runtime state root for wrightplay.
// Resolution order:
//  1. WRIGHTPLAY_STATE_DIR (if set)
//  2. XDG_STATE_HOME/wrightplay (if XDG_STATE_HOME is set)
//  3. os.UserConfigDir()/wrightplay (cross-platform fallback)
func RootDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(StateDirEnv)); override != "" {
		return normalizePath(override)
	}

	if xdg := strings.TrimSpace(os.Getenv(xdgStateHomeEnv)); xdg != "" {
		root, err := normalizePath(xdg)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, appName), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	root, err := normalizePath(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appName), nil
}

// CoverageDir returns the directory coverage adapters should write
// converted coverage output to, unless NODE_V8_COVERAGE overrides it
// (§6 "Environment variables").
func CoverageDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("NODE_V8_COVERAGE")); override != "" {
		return normalizePath(override)
	}
	return InRoot("coverage")
}

// CrashLogFile returns the panic crash log file path.
func CrashLogFile() (string, error) {
	return InRoot("logs", "crash.log")
}

// ExitDiagnosticsFile returns the path exit diagnostics (§12 of
// SPEC_FULL.md) are appended to on abnormal runner shutdown.
func ExitDiagnosticsFile() (string, error) {
	return InRoot("logs", "exit-diagnostics.jsonl")
}

// InRoot returns a path rooted under RootDir with additional path elements.
func InRoot(parts ...string) (string, error) {
	root, err := RootDir()
	if err != nil {
		return "", err
	}
	all := make([]string, 0, len(parts)+1)
	all = append(all, root)
	all = append(all, parts...)
	return filepath.Join(all...), nil
}

func normalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	return filepath.Clean(absPath), nil
}
