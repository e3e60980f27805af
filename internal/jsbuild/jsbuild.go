// Package jsbuild declares the bundler surface the bundle server
// drives (spec §1 "the specific bundler" is an external collaborator)
// and ships a minimal adapter shelling out to an esbuild-compatible
// binary on PATH, the way the teacher's cmd/gasoline-cmd shells out to
// its own daemon binary via os/exec.
package jsbuild

import "context"

// BuildInput names the entry source to compile and the working
// directory builds resolve relative to.
type BuildInput struct {
	Cwd         string
	EntrySource string // synthesized virtual entry JS, written to a temp file under Cwd
	EntryName   string // virtual file name used for source-map naming
	ExtraEntryPoints map[string]string // name=path entries from the CLI/config
}

// BuildOutput is one compiled artifact: the bundled JS plus its source
// map, keyed by the request path the bundle server will serve it
// under.
type BuildOutput struct {
	Path        string
	JS          []byte
	SourceMap   []byte
	ContentHash string
}

// Bundler produces a build from a BuildInput. Implementations must be
// safe to call repeatedly (once per rebuild in watch mode).
type Bundler interface {
	Build(ctx context.Context, in BuildInput) ([]BuildOutput, error)
}
