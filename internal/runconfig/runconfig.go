// Package runconfig loads the configuration file described in spec
// §6: either a single run object or an ordered list of run objects,
// in JSON or YAML.
package runconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Run is one configured invocation of the tool. Every field mirrors a
// CLI flag or config-file option from spec §6.
type Run struct {
	Cwd                  string   `json:"cwd" yaml:"cwd"`
	Setup                string   `json:"setup" yaml:"setup"`
	Tests                []string `json:"tests" yaml:"tests"`
	EntryPoints          map[string]string `json:"entryPoints" yaml:"entryPoints"`
	Watch                bool     `json:"watch" yaml:"watch"`
	Browser              string   `json:"browser" yaml:"browser"`
	BrowserServerOptions json.RawMessage `json:"browserServerOptions" yaml:"browserServerOptions"`
	Headless             *bool    `json:"headless" yaml:"headless"`
	NoCov                bool     `json:"noCov" yaml:"noCov"`
}

// Load reads a config file at path, recognizing either a single Run
// object or a JSON/YAML array of Run objects (a sequential list of
// runs), selecting the decoder by file extension.
func Load(path string) ([]Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runconfig: reading %s: %w", path, err)
	}

	isYAML := isYAMLExt(path)

	if runs, err := tryDecodeList(data, isYAML); err == nil {
		return runs, nil
	}

	var single Run
	if err := decode(data, isYAML, &single); err != nil {
		return nil, fmt.Errorf("runconfig: parsing %s: %w", path, err)
	}
	return []Run{single}, nil
}

func tryDecodeList(data []byte, isYAML bool) ([]Run, error) {
	var runs []Run
	if err := decode(data, isYAML, &runs); err != nil {
		return nil, err
	}
	if runs == nil {
		return nil, fmt.Errorf("runconfig: not a list")
	}
	return runs, nil
}

func decode(data []byte, isYAML bool, v any) error {
	if isYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func isYAMLExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
