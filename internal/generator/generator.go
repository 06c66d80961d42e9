// Package generator writes the files consumers use to find resolved
// dependencies: CMake include files, find modules and shell environments.
package generator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/goplus/llrecipe/recipe"
)

// File is one generated file, relative to the output directory.
type File struct {
	Name    string
	Content []byte
	Mode    os.FileMode
}

// Func renders the files of one generator.
type Func func(deps []recipe.Dependency) ([]File, error)

var generators = map[string]Func{
	"cmake":              cmakeBuildInfo,
	"cmake_paths":        cmakePaths,
	"cmake_find_package": cmakeFindPackage,
	"virtualenv":         virtualEnv,
}

// Names returns the known generator names, sorted.
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check reports an unknown generator name as a configuration error.
func Check(names []string) error {
	for _, name := range names {
		if _, ok := generators[name]; !ok {
			return recipe.Errorf(recipe.KindConfiguration, "generators", "", "unknown generator %q (known: %s)",
				name, strings.Join(Names(), ", "))
		}
	}
	return nil
}

// generate renders the named, already checked generator for deps.
func generate(name string, deps []recipe.Dependency) ([]File, error) {
	files, err := generators[name](deps)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", name, err)
	}
	return files, nil
}

// Write renders every named generator into dir and returns the paths
// written.
func Write(dir string, names []string, deps []recipe.Dependency) ([]string, error) {
	if err := Check(names); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, name := range names {
		files, err := generate(name, deps)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			path := filepath.Join(dir, f.Name)
			mode := f.Mode
			if mode == 0 {
				mode = 0o644
			}
			if err := os.WriteFile(path, f.Content, mode); err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

var funcs = template.FuncMap{
	"upper": cmakeVar,
	"paths": cmakePathList,
	"words": func(s []string) string { return strings.Join(s, " ") },
	"fwd":   filepath.ToSlash,
	"quote": shellQuote,
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cmakeVar turns a package name into the suffix of a CMake variable.
func cmakeVar(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

func cmakePathList(dirs []string) string {
	quoted := make([]string, len(dirs))
	for i, d := range dirs {
		quoted[i] = `"` + filepath.ToSlash(d) + `"`
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
