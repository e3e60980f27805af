// Package coverage defines the seam between a run's raw V8 coverage
// payload and whatever tool converts it into a reportable format.
// Conversion itself is out of scope for this repository (SPEC_FULL.md
// §8 step 6, spec §1's external collaborator boundary) — this package
// only carries the payload to a registered Adapter and, absent one,
// persists it for an out-of-tree tool to pick up later.
package coverage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Source is the optional capability a Browser adapter implements when
// it can report raw coverage data (currently only real Chromium
// adapters can; the mock engine does not). Runner code type-asserts
// for this rather than widening engine.Browser's core interface.
type Source interface {
	EngineName() string
	CollectCoverage(ctx context.Context) (raw []byte, ok bool, err error)
}

// Adapter converts a run's raw coverage payload into whatever format a
// downstream report consumes, writing its output under outDir.
type Adapter interface {
	Convert(ctx context.Context, raw []byte, outDir string) error
}

// DefaultAdapter persists the raw payload unconverted, timestamped,
// under outDir — a placeholder an external collaborator's Adapter
// replaces when one is wired in.
type DefaultAdapter struct{}

func (DefaultAdapter) Convert(ctx context.Context, raw []byte, outDir string) error {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("coverage: creating output dir: %w", err)
	}
	name := fmt.Sprintf("coverage-%d.raw.json", time.Now().UnixNano())
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("coverage: writing raw payload: %w", err)
	}
	return nil
}

// Collect runs the seven-step procedure's coverage step: if browser
// reports Chromium coverage, hand it to adapter (DefaultAdapter if
// nil). No-op for any other engine or when raw coverage isn't
// available.
func Collect(ctx context.Context, browser any, adapter Adapter, outDir string) error {
	src, ok := browser.(Source)
	if !ok || src.EngineName() != "chromium" {
		return nil
	}
	raw, ok, err := src.CollectCoverage(ctx)
	if err != nil {
		return fmt.Errorf("coverage: collecting: %w", err)
	}
	if !ok {
		return nil
	}
	if adapter == nil {
		adapter = DefaultAdapter{}
	}
	return adapter.Convert(ctx, raw, outDir)
}
