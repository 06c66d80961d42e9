package recipe

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// ConsumptionInfo is the metadata downstream consumers build against.
type ConsumptionInfo struct {
	RootPath    string              `json:"rootpath"`
	IncludeDirs []string            `json:"includedirs"`
	LibDirs     []string            `json:"libdirs"`
	BinDirs     []string            `json:"bindirs"`
	Libs        []string            `json:"libs"`
	Defines     []string            `json:"defines,omitempty"`
	LinkFlags   []string            `json:"linkflags,omitempty"`
	Env         map[string][]string `json:"env,omitempty"` // values are appended to the variable
	Names       map[string]string   `json:"names,omitempty"`
}

// Clone returns a deep copy of ci.
func (ci ConsumptionInfo) Clone() ConsumptionInfo {
	out := ci
	out.IncludeDirs = slices.Clone(ci.IncludeDirs)
	out.LibDirs = slices.Clone(ci.LibDirs)
	out.BinDirs = slices.Clone(ci.BinDirs)
	out.Libs = slices.Clone(ci.Libs)
	out.Defines = slices.Clone(ci.Defines)
	out.LinkFlags = slices.Clone(ci.LinkFlags)
	if ci.Env != nil {
		out.Env = make(map[string][]string, len(ci.Env))
		for k, v := range ci.Env {
			out.Env[k] = slices.Clone(v)
		}
	}
	if ci.Names != nil {
		out.Names = make(map[string]string, len(ci.Names))
		for k, v := range ci.Names {
			out.Names[k] = v
		}
	}
	return out
}

// AbsLibDirs resolves LibDirs against RootPath.
func (ci ConsumptionInfo) AbsLibDirs() []string { return ci.abs(ci.LibDirs) }

// AbsBinDirs resolves BinDirs against RootPath.
func (ci ConsumptionInfo) AbsBinDirs() []string { return ci.abs(ci.BinDirs) }

// AbsIncludeDirs resolves IncludeDirs against RootPath.
func (ci ConsumptionInfo) AbsIncludeDirs() []string { return ci.abs(ci.IncludeDirs) }

func (ci ConsumptionInfo) abs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(ci.RootPath, d)
		}
		out = append(out, d)
	}
	return out
}

func (ci *ConsumptionInfo) appendEnv(key, value string) {
	if ci.Env == nil {
		ci.Env = map[string][]string{}
	}
	ci.Env[key] = append(ci.Env[key], value)
}

var versionedSO = regexp.MustCompile(`\.so(\.\d+)+$`)

// CollectLibs scans dir (not recursively) for library files and returns
// their link names: "libfoo.so" and "libfoo.a" yield "foo", "foo.lib" yields
// "foo". The result is sorted and free of duplicates; a missing directory
// yields nil.
func CollectLibs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := libName(e.Name()); ok && name != "" {
			seen[name] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	libs := make([]string, 0, len(seen))
	for name := range seen {
		libs = append(libs, name)
	}
	sort.Strings(libs)
	return libs
}

func libName(file string) (string, bool) {
	if loc := versionedSO.FindStringIndex(file); loc != nil {
		return strings.TrimPrefix(file[:loc[0]], "lib"), true
	}
	for _, suffix := range []string{".dll.a", ".a", ".so", ".dylib"} {
		if base, ok := strings.CutSuffix(file, suffix); ok {
			return strings.TrimPrefix(base, "lib"), true
		}
	}
	if base, ok := strings.CutSuffix(file, ".lib"); ok {
		return base, true
	}
	return "", false
}
