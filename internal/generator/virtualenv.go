package generator

import (
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/goplus/llrecipe/recipe"
)

type envVar struct {
	Name  string
	Value string // path list joined with the platform separator
}

// envVars merges the env augmentations of deps in dependency order.
func envVars(deps []recipe.Dependency) []envVar {
	values := map[string][]string{}
	var names []string
	for _, d := range deps {
		keys := make([]string, 0, len(d.Info.Env))
		for k := range d.Info.Env {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if _, ok := values[k]; !ok {
				names = append(names, k)
			}
			for _, v := range d.Info.Env[k] {
				if !slices.Contains(values[k], v) {
					values[k] = append(values[k], v)
				}
			}
		}
	}
	vars := make([]envVar, 0, len(names))
	for _, n := range names {
		vars = append(vars, envVar{Name: n, Value: strings.Join(values[n], string(os.PathListSeparator))})
	}
	return vars
}

var activateTmpl = template.Must(template.New("activate.sh").Funcs(funcs).Parse(`# Generated by llrecipe. Source this file, do not execute it.
export LLRECIPE_OLD_PS1="${PS1-}"
export PS1="(llrecipe) ${PS1-}"
{{- range .Vars}}
export LLRECIPE_OLD_{{.Name}}="${ {{- .Name}}-}"
export {{.Name}}={{quote .Value}}"${ {{- .Name}}:+{{$.Sep}}${{.Name}}}"
{{- end}}
`))

var deactivateTmpl = template.Must(template.New("deactivate.sh").Funcs(funcs).Parse(`# Generated by llrecipe. Source this file, do not execute it.
export PS1="${LLRECIPE_OLD_PS1-}"
unset LLRECIPE_OLD_PS1
{{- range .}}
if [ -n "${LLRECIPE_OLD_{{.Name}}-}" ]; then
    export {{.Name}}="$LLRECIPE_OLD_{{.Name}}"
else
    unset {{.Name}}
fi
unset LLRECIPE_OLD_{{.Name}}
{{- end}}
`))

func virtualEnv(deps []recipe.Dependency) ([]File, error) {
	vars := envVars(deps)
	activate, err := render(activateTmpl, struct {
		Vars []envVar
		Sep  string
	}{vars, string(os.PathListSeparator)})
	if err != nil {
		return nil, err
	}
	deactivate, err := render(deactivateTmpl, vars)
	if err != nil {
		return nil, err
	}
	return []File{
		{Name: "activate.sh", Content: activate, Mode: 0o755},
		{Name: "deactivate.sh", Content: deactivate, Mode: 0o755},
	}, nil
}
