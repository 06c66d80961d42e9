package recipe

import (
	"io"
	"strings"
	"text/template"
)

// Params fills the recipe descriptor template.
type Params struct {
	Name        string
	Version     string
	Homepage    string
	URL         string
	Topics      []string
	Author      string
	Description string
	License     string
	BuildSystem string
}

var descriptorTmpl = template.Must(template.New(DescriptorFile).Funcs(template.FuncMap{
	"quote": yamlQuote,
}).Parse(`name: {{quote .Name}}
version: {{quote .Version}}
{{- with .Homepage}}
homepage: {{quote .}}{{end}}
{{- with .URL}}
url: {{quote .}}{{end}}
{{- with .Topics}}
topics:{{range .}}
  - {{quote .}}{{end}}{{end}}
{{- with .Author}}
author: {{quote .}}{{end}}
{{- with .Description}}
description: {{quote .}}{{end}}
license: {{quote .License}}
build_system: {{.BuildSystem}}

options:
  - name: shared
    default: "True"
  - name: fPIC
    default: "True"

build_requires:{{range .BuildRequires}}
  - {{quote .}}{{end}}

requires:{{range .Requires}}
  - {{quote .}}{{end}}

generators:{{range .Generators}}
  - {{.}}{{end}}

exports_sources:{{range .ExportsSources}}
  - {{quote .}}{{end}}
`))

// RenderTemplate writes the descriptor of the canonical recipe for p.
func RenderTemplate(w io.Writer, p Params) error {
	if p.BuildSystem == "" {
		p.BuildSystem = CMake
	}
	if p.License == "" {
		p.License = "MIT"
	}
	return descriptorTmpl.Execute(w, struct {
		Params
		BuildRequires  []string
		Requires       []string
		Generators     []string
		ExportsSources []string
	}{p, DefaultBuildRequires, DefaultRequires, DefaultGenerators, exportsSources(p.Name)})
}

func yamlQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
