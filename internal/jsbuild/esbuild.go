// esbuild.go — a Bundler adapter that shells out to an esbuild
// (or esbuild-compatible) binary located on PATH, mirroring the
// teacher's os/exec-based daemon launch in cmd/gasoline-cmd.
package jsbuild

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ESBuildAdapter drives an external esbuild-compatible binary.
type ESBuildAdapter struct {
	// BinaryPath is the esbuild executable, defaulting to "esbuild"
	// resolved from PATH.
	BinaryPath string
}

// NewESBuildAdapter constructs an adapter using binaryPath, or
// "esbuild" on PATH if empty.
func NewESBuildAdapter(binaryPath string) *ESBuildAdapter {
	if binaryPath == "" {
		binaryPath = "esbuild"
	}
	return &ESBuildAdapter{BinaryPath: binaryPath}
}

// Build writes in.EntrySource to a temp file under in.Cwd and invokes
// esbuild with --bundle --sourcemap --format=esm. It returns a single
// BuildOutput whose JS is esbuild's stdout; its SourceMap is always
// empty.
func (a *ESBuildAdapter) Build(ctx context.Context, in BuildInput) ([]BuildOutput, error) {
	entryPath, cleanup, err := writeTempEntry(in.Cwd, in.EntryName, in.EntrySource)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := []string{entryPath, "--bundle", "--sourcemap", "--format=esm"}
	for name, path := range in.ExtraEntryPoints {
		args = append(args, fmt.Sprintf("%s=%s", name, path))
	}

	cmd := exec.CommandContext(ctx, a.BinaryPath, args...)
	cmd.Dir = in.Cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("jsbuild: esbuild failed: %w: %s", err, stderr.String())
	}

	js := stdout.Bytes()
	sumBytes := sha256.Sum256(js)
	hash := hex.EncodeToString(sumBytes[:])

	return []BuildOutput{{
		Path:        in.EntryName,
		JS:          js,
		ContentHash: hash,
	}}, nil
}

func writeTempEntry(cwd, name, source string) (string, func(), error) {
	if cwd == "" {
		cwd = "."
	}
	dir, err := os.MkdirTemp(cwd, ".wrightplay-entry-*")
	if err != nil {
		return "", nil, fmt.Errorf("jsbuild: creating temp entry dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("jsbuild: writing entry source: %w", err)
	}
	return path, func() { os.RemoveAll(dir) }, nil
}
