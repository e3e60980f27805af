package jsbuild

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// MockBundler is an in-process Bundler for tests: it returns
// BuildFunc's result directly without shelling out, or echoes
// EntrySource as the "compiled" JS verbatim if BuildFunc is nil.
type MockBundler struct {
	BuildFunc func(ctx context.Context, in BuildInput) ([]BuildOutput, error)
}

func (m *MockBundler) Build(ctx context.Context, in BuildInput) ([]BuildOutput, error) {
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, in)
	}
	js := []byte(in.EntrySource)
	sum := sha256.Sum256(js)
	return []BuildOutput{{
		Path:        in.EntryName,
		JS:          js,
		ContentHash: hex.EncodeToString(sum[:]),
	}}, nil
}
