package build

import (
	"strings"
	"testing"

	"cssel/config"
	"cssel/selector"
	"cssel/stylesheet"
)

func setupTestValuesForTemplate(name, srcFile string) Values {
	if name == "" {
		name = "Test Definition"
	}
	if srcFile == "" {
		srcFile = "testdef"
	}
	return Values{
		ID:         "test-id",
		Name:       name,
		Format:     config.OutputFmtCss.String(),
		SourceFile: srcFile,
		Rules: []RuleValues{
			{
				Selectors: []string{"a.primary:hover", "button"},
				Declarations: []DeclarationValues{
					{Property: "color", Value: "#fff"},
					{Property: "margin", Value: "0"},
				},
			},
		},
	}
}

func TestExpandTemplate_SimpleText(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "simple-text")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "simple-text" {
		t.Errorf("expandTemplate() = %q, want %q", result, "simple-text")
	}
}

func TestExpandTemplate_Name(t *testing.T) {
	values := setupTestValuesForTemplate("My Great Styles", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .Name }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "My Great Styles" {
		t.Errorf("expandTemplate() = %q, want %q", result, "My Great Styles")
	}
}

func TestExpandTemplate_ID(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .ID }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "test-id" {
		t.Errorf("expandTemplate() = %q, want %q", result, "test-id")
	}
}

func TestExpandTemplate_Format(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .Format }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "css" {
		t.Errorf("expandTemplate() = %q, want %q", result, "css")
	}
}

func TestExpandTemplate_SourceFile(t *testing.T) {
	values := setupTestValuesForTemplate("", "mystyles")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .SourceFile }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "mystyles" {
		t.Errorf("expandTemplate() = %q, want %q", result, "mystyles")
	}
}

func TestExpandTemplate_Context(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .Context }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != string(config.OutputNameTemplateFieldName) {
		t.Errorf("expandTemplate() = %q, want %q", result, string(config.OutputNameTemplateFieldName))
	}
}

func TestExpandTemplate_Rules(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	result, err := expandTemplate(values, config.RenderTemplateFieldName, "{{ (index .Rules 0).Selectors | join \", \" }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "a.primary:hover, button" {
		t.Errorf("expandTemplate() = %q, want %q", result, "a.primary:hover, button")
	}
}

func TestExpandTemplate_Declarations(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	result, err := expandTemplate(values, config.RenderTemplateFieldName, "{{ (index (index .Rules 0).Declarations 1).Property }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "margin" {
		t.Errorf("expandTemplate() = %q, want %q", result, "margin")
	}
}

func TestExpandTemplate_ComplexTemplate(t *testing.T) {
	values := setupTestValuesForTemplate("The Site Styles", "source")

	template := "{{ .Name }}/{{ .Format }}/{{ .SourceFile }} [{{ len .Rules }}]"
	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, template)
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}

	expected := "The Site Styles/css/source [1]"
	if result != expected {
		t.Errorf("expandTemplate() = %q, want %q", result, expected)
	}
}

func TestExpandTemplate_SprigFunctions(t *testing.T) {
	values := setupTestValuesForTemplate("test styles", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .Name | title }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}
	if result != "Test Styles" {
		t.Errorf("expandTemplate() = %q, want %q", result, "Test Styles")
	}
}

func TestExpandTemplate_InvalidTemplate(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	_, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .Name")
	if err == nil {
		t.Error("expandTemplate() expected error for invalid template, got nil")
	}
}

func TestExpandTemplate_InvalidField(t *testing.T) {
	values := setupTestValuesForTemplate("", "")

	_, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .NonExistentField }}")
	if err == nil {
		t.Error("expandTemplate() expected error for invalid field, got nil")
	}
}

func TestExpandTemplate_PathSeparators(t *testing.T) {
	values := setupTestValuesForTemplate("Site", "")

	result, err := expandTemplate(values, config.OutputNameTemplateFieldName, "{{ .Name }}/{{ .ID }}")
	if err != nil {
		t.Fatalf("expandTemplate() error = %v", err)
	}

	// Should contain forward slash for path separation
	if !strings.Contains(result, "/") {
		t.Errorf("expandTemplate() = %q, want to contain /", result)
	}
}

func TestBuildRules(t *testing.T) {
	sheet := &stylesheet.Stylesheet{Name: "site"}
	sheet.AddRule(&stylesheet.Rule{
		Selectors: []selector.Node{
			selector.Element("a").Class("primary").PseudoClass("hover"),
			selector.Element("button"),
		},
		Declarations: []stylesheet.Declaration{
			{Property: "color", Value: "#fff"},
			{Property: "margin", Value: "0"},
		},
	})
	sheet.AddRule(&stylesheet.Rule{
		Selectors: []selector.Node{
			selector.Combine(selector.Element("nav"), ">", selector.Element("ul")),
		},
		Declarations: []stylesheet.Declaration{
			{Property: "padding", Value: "0"},
		},
	})

	result := buildRules(sheet)

	if len(result) != 2 {
		t.Fatalf("buildRules() length = %d, want 2", len(result))
	}

	if len(result[0].Selectors) != 2 || result[0].Selectors[0] != "a.primary:hover" || result[0].Selectors[1] != "button" {
		t.Errorf("buildRules()[0].Selectors = %v, want [a.primary:hover button]", result[0].Selectors)
	}
	if len(result[0].Declarations) != 2 || result[0].Declarations[1].Property != "margin" {
		t.Errorf("buildRules()[0].Declarations = %+v, want color and margin", result[0].Declarations)
	}

	if len(result[1].Selectors) != 1 || result[1].Selectors[0] != "nav > ul" {
		t.Errorf("buildRules()[1].Selectors = %v, want [nav > ul]", result[1].Selectors)
	}
}

func TestBuildValues(t *testing.T) {
	def := &stylesheet.Definition{
		ID:   "0198bb10-57cc-7bbb-b26a-5c0f4ad13f3f",
		Name: "site styles",
	}
	sheet := &stylesheet.Stylesheet{Name: "site styles"}
	sheet.AddRule(&stylesheet.Rule{
		Selectors:    []selector.Node{selector.Element("p")},
		Declarations: []stylesheet.Declaration{{Property: "color", Value: "red"}},
	})

	values := buildValues(def, sheet, "path/to/site.yaml", config.OutputFmtJson)

	if values.ID != def.ID {
		t.Errorf("buildValues().ID = %q, want %q", values.ID, def.ID)
	}
	if values.Name != "site styles" {
		t.Errorf("buildValues().Name = %q, want %q", values.Name, "site styles")
	}
	if values.Format != "json" {
		t.Errorf("buildValues().Format = %q, want %q", values.Format, "json")
	}
	if values.SourceFile != "site" {
		t.Errorf("buildValues().SourceFile = %q, want %q", values.SourceFile, "site")
	}
	if len(values.Rules) != 1 || len(values.Rules[0].Selectors) != 1 || values.Rules[0].Selectors[0] != "p" {
		t.Errorf("buildValues().Rules = %+v, want single rule with selector p", values.Rules)
	}
}
