// entry.go — synthesizes the single virtual entry a test run bundles
// (spec §4.6): import the setup file if any, import every matched test
// file, then dispatch an init event carrying the session UUID.
package bundle

import (
	"strings"
	"text/template"
)

var entryTemplate = template.Must(template.New("entry").Parse(`
{{- if .Setup }}
import {{ printf "%q" .Setup }};
{{- end }}
{{- range .Tests }}
import {{ printf "%q" . }};
{{- end }}
window.dispatchEvent(new CustomEvent("wrightplay:init", { detail: { sessionUUID: {{ printf "%q" .SessionUUID }} } }));
`))

// EntrySpec is the data the virtual entry is rendered from.
type EntrySpec struct {
	Setup       string
	Tests       []string
	SessionUUID string
}

// RenderEntry produces the virtual entry's JS source text.
func RenderEntry(spec EntrySpec) (string, error) {
	var sb strings.Builder
	if err := entryTemplate.Execute(&sb, spec); err != nil {
		return "", err
	}
	return sb.String(), nil
}
