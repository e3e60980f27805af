package runconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadSingleJSONObject(t *testing.T) {
	path := writeTemp(t, "wrightplay.json", `{"cwd": ".", "browser": "chromium", "watch": true}`)
	runs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(runs) != 1 || runs[0].Browser != "chromium" || !runs[0].Watch {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestLoadJSONList(t *testing.T) {
	path := writeTemp(t, "wrightplay.json", `[{"browser": "chromium"}, {"browser": "firefox"}]`)
	runs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(runs) != 2 || runs[0].Browser != "chromium" || runs[1].Browser != "firefox" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestLoadSingleYAMLObject(t *testing.T) {
	path := writeTemp(t, "wrightplay.yaml", "cwd: .\nbrowser: webkit\nnoCov: true\n")
	runs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(runs) != 1 || runs[0].Browser != "webkit" || !runs[0].NoCov {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestLoadYAMLList(t *testing.T) {
	path := writeTemp(t, "wrightplay.yml", "- browser: chromium\n- browser: firefox\n")
	runs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
