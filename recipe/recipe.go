// Package recipe describes how one native C/C++ library is configured,
// built, packaged and consumed.
//
// A Recipe is driven by an engine that calls its hooks in a fixed order:
//
//	ConfigOptions -> Configure -> PackageID -> BuildRequirements/Requirements
//	-> Imports -> Build -> Package -> PackageInfo
//
// The recipe never talks to a build tool directly: it is handed a
// buildsys.Adapter (CMake, Autotools, or a test fake).
package recipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/goplus/llrecipe/pkgs/buildsys"
	"github.com/goplus/llrecipe/pkgs/ref"
	"github.com/sirupsen/logrus"
)

// Metadata is the identity of a recipe. It is set once when the recipe is
// authored and read-only thereafter.
type Metadata struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Homepage    string   `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Topics      []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"` // SPDX identifier
}

// Recipe is a declarative descriptor of how to build, configure and package
// one native library.
type Recipe struct {
	Metadata Metadata
	Options  *OptionSet
	Deps     DependencySpec

	Generators     []string
	ExportsSources []string

	// Defines and LinkFlags are published verbatim in ConsumptionInfo.
	Defines   []string
	LinkFlags []string

	Tool buildsys.Adapter
	Log  logrus.FieldLogger

	os string
}

// New returns an empty recipe that builds with tool.
func New(meta Metadata, tool buildsys.Adapter) (*Recipe, error) {
	if err := (ref.Ref{Name: meta.Name, Version: meta.Version}).Validate(); err != nil {
		return nil, newError(KindConfiguration, "metadata", meta.Name, err)
	}
	meta.Topics = slices.Clone(meta.Topics)
	opts, _ := NewOptionSet()
	return &Recipe{
		Metadata: meta,
		Options:  opts,
		Tool:     tool,
		Log:      logrus.WithField("recipe", meta.Name),
	}, nil
}

// Default returns the canonical library recipe: shared/fPIC options, a
// static-analysis tool and a test framework as build requirements, and one
// header-only entity-component library as requirement.
func Default(meta Metadata, tool buildsys.Adapter) (*Recipe, error) {
	r, err := New(meta, tool)
	if err != nil {
		return nil, err
	}
	for _, opt := range []Option{SharedOption(true), PICOption(true)} {
		if err := r.Options.Declare(opt); err != nil {
			return nil, err
		}
	}
	for _, br := range DefaultBuildRequires {
		if err := r.Deps.BuildRequire(br); err != nil {
			return nil, err
		}
	}
	for _, rq := range DefaultRequires {
		if err := r.Deps.Require(rq); err != nil {
			return nil, err
		}
	}
	r.Generators = slices.Clone(DefaultGenerators)
	r.ExportsSources = exportsSources(meta.Name)
	return r, nil
}

// Dependencies declared by Default.
var (
	DefaultBuildRequires = []string{
		"cppcheck_installer/1.90@conan/stable",
		"conan_gtest/stable@conan/stable",
	}
	DefaultRequires   = []string{"entt/3.5.2"}
	DefaultGenerators = []string{"cmake", "cmake_paths", "cmake_find_package", "virtualenv"}

	DefaultExportsSources = []string{
		"LICENSE", "VERSION", "*.md", "include/*", "src/*", "cmake/*",
		"examples/*", "CMakeLists.txt", "tests/*", "benchmarks/*",
		"scripts/*", "tools/*", "codegen/*", "assets/*", "docs/*",
		"licenses/*", "patches/*", "resources/*", "submodules/*",
		"thirdparty/*", "third-party/*", "third_party/*",
	}
)

// exportsSources returns DefaultExportsSources plus the project's own
// directory.
func exportsSources(name string) []string {
	return append(slices.Clone(DefaultExportsSources), name+"/*")
}

// Ref returns the reference this recipe publishes under.
func (r *Recipe) Ref() ref.Ref {
	return ref.Ref{Name: r.Metadata.Name, Version: r.Metadata.Version}
}

// ConfigOptions constrains the available options for the target platform,
// before user values are applied. fPIC is removed on Windows.
func (r *Recipe) ConfigOptions(os string) {
	r.os = os
	for _, name := range r.Options.evaluate(os, false) {
		r.Log.Debugf("option %s removed for %s", name, os)
	}
}

// Configure re-evaluates option applicability against the current values.
// shared=True removes fPIC. It is idempotent.
func (r *Recipe) Configure() {
	for _, name := range r.Options.evaluate(r.os, true) {
		r.Log.Debugf("option %s removed by configuration %s", name, r.Options)
	}
}

// BuildRequirements returns the tool-only dependencies.
func (r *Recipe) BuildRequirements() []ref.Ref {
	return r.Deps.BuildRequires()
}

// Requirements returns the link-time/runtime dependencies.
func (r *Recipe) Requirements() []ref.Ref {
	return r.Deps.Requires()
}

func (r *Recipe) toolConfig(bc *BuildContext) buildsys.Config {
	return buildsys.Config{
		SourceDir:  bc.SourceFolder,
		BuildDir:   bc.BuildFolder,
		InstallDir: bc.PackageFolder,
		BuildType:  bc.Settings.BuildType,
		Shared:     r.Options.BoolPtr("shared"),
		PIC:        r.Options.BoolPtr("fPIC"),
	}
}

// Build configures the build tool and compiles with a parallelism equal to
// the context's CPU hint. Tool failures are returned as BuildFailure.
func (r *Recipe) Build(ctx context.Context, bc *BuildContext) error {
	r.Log.Infof("Building package '%s'", r.Metadata.Name)
	if r.Tool == nil {
		return newError(KindBuild, "build", r.Metadata.Name, errors.New("no build tool"))
	}
	if err := r.Tool.Configure(ctx, r.toolConfig(bc)); err != nil {
		return newError(KindBuild, "build", r.Metadata.Name, err)
	}
	jobs := buildsys.Jobs(bc.Jobs)
	r.Log.Infof("Detected %d CPUs", jobs)
	if err := r.Tool.Build(ctx, jobs); err != nil {
		return newError(KindBuild, "build", r.Metadata.Name, err)
	}
	return nil
}

// mandatory artifact classes and the layout root each one fills.
var mandatory = []struct{ class, dir string }{
	{"license", LicensesDir},
	{"headers", IncludeDir},
}

// PackageRules returns the ordered copy rules Package applies after the
// install step.
func (r *Recipe) PackageRules(bc *BuildContext) []CopyRule {
	src, build := bc.SourceFolder, bc.BuildFolder
	return []CopyRule{
		{Class: "license", Pattern: "LICENSE", Src: src, Dst: LicensesDir},
		{Class: "headers", Pattern: "*", Src: filepath.Join(src, "include"), Dst: IncludeDir, KeepPath: true},
		{Class: "license", Pattern: "LICENSE", Src: build, Dst: LicensesDir},
		{Class: "cmake", Pattern: "*.cmake", Src: filepath.Join(build, "lib"), Dst: LibDir, KeepPath: true},
		{Class: "static", Pattern: "*.lib", Src: build, Dst: LibDir},
		{Class: "static", Pattern: "*.a", Src: build, Dst: LibDir},
		{Class: "static", Pattern: "*.lib*", Src: build, Dst: LibDir},
		{Class: "shared", Pattern: "*.dll", Src: build, Dst: BinDir},
		{Class: "shared", Pattern: "*.so", Src: build, Dst: LibDir},
		{Class: "shared", Pattern: "*.dylib", Src: build, Dst: LibDir},
		{Class: "assets", Pattern: "assets", Src: src, Dst: AssetsDir},
	}
}

// Package runs the build tool's install step into the package folder and
// then stages artifacts with PackageRules. Existing destinations are never
// overwritten, so the install step and earlier rules win. A mandatory class
// (license, headers) with no file fails with PackagingError.
func (r *Recipe) Package(ctx context.Context, bc *BuildContext) error {
	r.Log.Infof("Packaging package '%s'", r.Metadata.Name)
	if bc.PackageFolder == "" {
		return newError(KindPackaging, "package", r.Metadata.Name, errors.New("no package folder"))
	}
	if r.Tool == nil {
		return newError(KindBuild, "package", r.Metadata.Name, errors.New("no build tool"))
	}
	if err := r.Tool.Configure(ctx, r.toolConfig(bc)); err != nil {
		return newError(KindBuild, "package", r.Metadata.Name, err)
	}
	if err := r.Tool.Install(ctx); err != nil {
		return newError(KindBuild, "package", r.Metadata.Name, err)
	}

	layout := PackageLayout{Root: bc.PackageFolder}
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return newError(KindPackaging, "package", r.Metadata.Name, err)
	}
	c := &copier{root: layout.Root, allowed: LayoutRoots, exclude: layout.Root, log: r.Log}
	matched := map[string]int{}
	for _, rule := range r.PackageRules(bc) {
		st, err := c.copy(rule)
		if err != nil {
			return newError(KindPackaging, "package", r.Metadata.Name, fmt.Errorf("copy %s: %w", rule.Pattern, err))
		}
		matched[rule.Class] += st.matched
	}
	for _, m := range mandatory {
		if matched[m.class] == 0 && isEmptyDir(layout.Dir(m.dir)) {
			return newError(KindPackaging, "package", r.Metadata.Name,
				fmt.Errorf("no %s files found for %s/", m.class, m.dir))
		}
	}
	return nil
}

// PackageInfo derives the consumption metadata of a package folder. It never
// fails: a package without libraries yields an empty Libs list.
func (r *Recipe) PackageInfo(folder string) ConsumptionInfo {
	layout := PackageLayout{Root: folder}
	ci := ConsumptionInfo{
		RootPath:    folder,
		IncludeDirs: []string{layout.Include()},
		LibDirs:     []string{LibDir},
		BinDirs:     []string{BinDir},
		Libs:        CollectLibs(layout.Lib()),
		Defines:     slices.Clone(r.Defines),
		LinkFlags:   slices.Clone(r.LinkFlags),
		Names: map[string]string{
			"cmake_find_package":       r.Metadata.Name,
			"cmake_find_package_multi": r.Metadata.Name,
		},
	}
	if ci.Libs == nil {
		ci.Libs = []string{}
	}
	ci.appendEnv("PATH", layout.Bin())
	ci.appendEnv("LD_LIBRARY_PATH", layout.Lib())
	return ci
}

// DefaultImportPath is where Imports copies dependency artifacts unless
// CONAN_IMPORT_PATH says otherwise.
const DefaultImportPath = "bin"

// ImportPathEnv overrides DefaultImportPath.
const ImportPathEnv = "CONAN_IMPORT_PATH"

// ImportPath returns the import destination, relative to the build folder
// unless absolute.
func ImportPath() string {
	if p := os.Getenv(ImportPathEnv); p != "" {
		return p
	}
	return DefaultImportPath
}

// ImportRules returns the copy rules Imports applies for one dependency.
func ImportRules(dep Dependency) []CopyRule {
	root := dep.Folder
	return []CopyRule{
		{Class: "license", Pattern: "license*", Src: root, Dst: path.Join("licenses", dep.Ref.Name), IgnoreCase: true},
		{Class: "shared", Pattern: "*.dll", Src: filepath.Join(root, BinDir), KeepPath: true},
		{Class: "shared", Pattern: "*.so", Src: filepath.Join(root, BinDir), KeepPath: true},
		{Class: "shared", Pattern: "*.dylib*", Src: filepath.Join(root, LibDir), KeepPath: true},
		{Class: "static", Pattern: "*.lib*", Src: filepath.Join(root, LibDir), KeepPath: true},
		{Class: "static", Pattern: "*.a*", Src: filepath.Join(root, LibDir), KeepPath: true},
		{Class: "assets", Pattern: "assets", Src: root, Dst: AssetsDir},
	}
}

// Imports copies runtime artifacts of resolved dependencies into dest.
// Earlier dependencies win on conflicting file names.
func (r *Recipe) Imports(deps []Dependency, dest string) error {
	if len(deps) == 0 {
		return nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return newError(KindPackaging, "imports", r.Metadata.Name, err)
	}
	c := &copier{root: dest, log: r.Log}
	for _, dep := range deps {
		for _, rule := range ImportRules(dep) {
			if _, err := c.copy(rule); err != nil {
				return newError(KindPackaging, "imports", r.Metadata.Name, fmt.Errorf("%s: %w", dep.Ref, err))
			}
		}
	}
	return nil
}
