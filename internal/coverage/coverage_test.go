package coverage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type fakeSource struct {
	engine string
	raw    []byte
	ok     bool
	err    error
}

func (f fakeSource) EngineName() string { return f.engine }
func (f fakeSource) CollectCoverage(ctx context.Context) ([]byte, bool, error) {
	return f.raw, f.ok, f.err
}

type recordingAdapter struct {
	called bool
	raw    []byte
}

func (a *recordingAdapter) Convert(ctx context.Context, raw []byte, outDir string) error {
	a.called = true
	a.raw = raw
	return nil
}

func TestCollectSkipsNonChromiumEngines(t *testing.T) {
	a := &recordingAdapter{}
	src := fakeSource{engine: "firefox", raw: []byte("{}"), ok: true}
	if err := Collect(context.Background(), src, a, t.TempDir()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if a.called {
		t.Fatalf("expected adapter not to be called for a non-chromium engine")
	}
}

func TestCollectSkipsWhenBrowserIsNotASource(t *testing.T) {
	a := &recordingAdapter{}
	if err := Collect(context.Background(), struct{}{}, a, t.TempDir()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if a.called {
		t.Fatalf("expected adapter not to be called for a browser without coverage support")
	}
}

func TestCollectCallsAdapterForChromiumCoverage(t *testing.T) {
	a := &recordingAdapter{}
	src := fakeSource{engine: "chromium", raw: []byte(`{"result":[]}`), ok: true}
	if err := Collect(context.Background(), src, a, t.TempDir()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !a.called {
		t.Fatalf("expected adapter to be called")
	}
	if string(a.raw) != `{"result":[]}` {
		t.Fatalf("unexpected raw payload: %s", a.raw)
	}
}

func TestCollectDefaultAdapterWritesRawFile(t *testing.T) {
	dir := t.TempDir()
	src := fakeSource{engine: "chromium", raw: []byte(`{"result":[]}`), ok: true}
	if err := Collect(context.Background(), src, nil, dir); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one written file, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"result":[]}` {
		t.Fatalf("unexpected file contents: %s", data)
	}
}

func TestCollectNoOpWhenCoverageUnavailable(t *testing.T) {
	a := &recordingAdapter{}
	src := fakeSource{engine: "chromium", ok: false}
	if err := Collect(context.Background(), src, a, t.TempDir()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if a.called {
		t.Fatalf("expected adapter not to be called when coverage is unavailable")
	}
}
