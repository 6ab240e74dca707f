package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		// used by the template output format when no template file is configured
		DefaultTemplate: []byte(`{{ .Name | default "unnamed" }} [{{ .ID }}]
{{ range .Rules }}
{{ join ", " .Selectors }}
{{- range .Declarations }}
    {{ .Property }}: {{ .Value }}
{{- end }}
{{ end }}`),
	}
}
