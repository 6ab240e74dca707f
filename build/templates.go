package build

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"cssel/config"
	"cssel/stylesheet"
)

// Values is a struct that holds variables we make available for template
// expansion. The same structure backs the json output format, fields that
// make no sense outside of template context are excluded there.
type Values struct {
	Context    string       `json:"-"`
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Format     string       `json:"-"`
	SourceFile string       `json:"-"`
	Rules      []RuleValues `json:"rules"`
}

type RuleValues struct {
	Selectors    []string            `json:"selectors"`
	Declarations []DeclarationValues `json:"declarations"`
}

type DeclarationValues struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

func buildRules(sheet *stylesheet.Stylesheet) []RuleValues {
	result := make([]RuleValues, 0, len(sheet.Rules))

	for _, rule := range sheet.Rules {
		rv := RuleValues{
			Selectors:    make([]string, 0, len(rule.Selectors)),
			Declarations: make([]DeclarationValues, 0, len(rule.Declarations)),
		}
		for _, sel := range rule.Selectors {
			rv.Selectors = append(rv.Selectors, sel.String())
		}
		for _, d := range rule.Declarations {
			rv.Declarations = append(rv.Declarations, DeclarationValues(d))
		}
		result = append(result, rv)
	}
	return result
}

func buildValues(def *stylesheet.Definition, sheet *stylesheet.Stylesheet, srcName string, format config.OutputFmt) Values {
	return Values{
		ID:         def.ID,
		Name:       def.Name,
		Format:     format.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(srcName), filepath.Ext(srcName)),
		Rules:      buildRules(sheet),
	}
}

func expandTemplate(values Values, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
