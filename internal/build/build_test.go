package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/goplus/llrecipe/internal/store"
	"github.com/goplus/llrecipe/pkgs/ref"
	"github.com/goplus/llrecipe/recipe"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fixture struct {
	builder *Builder
	store   *store.Store
	tool    *mockTool
	src     string
	hook    *test.Hook
}

func newFixture(t *testing.T, resolver Resolver) *fixture {
	t.Helper()
	root := t.TempDir()
	st := store.New(filepath.Join(root, "store"))
	b := NewBuilder(filepath.Join(root, "workspace"), st, resolver)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	b.log = logger

	src := filepath.Join(root, "src")
	if err := writeFile(filepath.Join(src, "LICENSE"), "MIT"); err != nil {
		t.Fatal(err)
	}
	return &fixture{builder: b, store: st, tool: &mockTool{}, src: src, hook: hook}
}

func (f *fixture) recipe(t *testing.T) *recipe.Recipe {
	t.Helper()
	r, err := recipe.Default(recipe.Metadata{Name: "foo", Version: "0.1.0"}, f.tool)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func (f *fixture) options() Options {
	s := recipe.DefaultSettings()
	s.OS = recipe.Linux
	return Options{
		Settings:  s,
		Options:   map[string]string{"shared": "True"},
		SourceDir: f.src,
		Jobs:      1,
	}
}

func (f *fixture) logged(msg string) bool {
	for _, e := range f.hook.AllEntries() {
		if strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}

func TestStageString(t *testing.T) {
	want := []string{"Unconfigured", "OptionsConfigured", "DependenciesResolved", "Built", "Packaged", "Published"}
	for i, w := range want {
		if got := Stage(i).String(); got != w {
			t.Errorf("Stage(%d) = %q, want %q", i, got, w)
		}
	}
	if got := Stage(42).String(); got != "Stage(42)" {
		t.Errorf("Stage(42) = %q", got)
	}
}

func TestSessionAdvance(t *testing.T) {
	var s session
	if err := s.advance(Built); err == nil {
		t.Fatal("skipping stages accepted")
	}
	for _, to := range []Stage{OptionsConfigured, DependenciesResolved, Built, Packaged, Published} {
		if err := s.advance(to); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.advance(Packaged); err == nil {
		t.Fatal("going back accepted")
	}
	if err := s.advance(Published); err == nil {
		t.Fatal("repeating a stage accepted")
	}
}

func TestRun(t *testing.T) {
	f := newFixture(t, nil)
	r := f.recipe(t)
	res, err := f.builder.Run(context.Background(), r, f.options())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stage != Published || res.Cached {
		t.Fatalf("result = %s cached=%v", res, res.Cached)
	}
	if _, ok := r.Options.Get("fPIC"); ok {
		t.Fatal("fPIC should be removed for shared builds")
	}
	for _, path := range []string{"include/foo.h", "lib/libfoo.so", "licenses/LICENSE"} {
		if _, err := os.Stat(filepath.Join(res.PackageFolder, path)); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}
	if !slices.Equal(res.Info.Libs, []string{"foo"}) {
		t.Fatalf("Libs = %v", res.Info.Libs)
	}
	if !f.logged("No resolver configured") {
		t.Error("missing resolver warning")
	}
	if !f.logged("Building package 'foo'") || !f.logged("Detected 1 CPUs") {
		t.Error("build progress not logged")
	}
	if _, err := os.Stat(filepath.Join(res.BuildFolder, "conanbuildinfo.cmake")); err != nil {
		t.Errorf("generators not written: %v", err)
	}

	dep, err := f.store.Resolve(context.Background(), r.Ref())
	if err != nil {
		t.Fatal(err)
	}
	if dep.ID != res.ID || dep.Folder != res.PackageFolder {
		t.Fatalf("store has %+v", dep)
	}
	if _, err := os.Stat(filepath.Join(f.builder.workspaceDir, "foo", res.ID+".lock")); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func TestRunCacheHit(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Stage != Published || second.ID != first.ID {
		t.Fatalf("second run = %s cached=%v", second, second.Cached)
	}
	if f.tool.builds != 1 {
		t.Fatalf("builds = %d, want 1", f.tool.builds)
	}
	if !slices.Equal(second.Info.Libs, first.Info.Libs) {
		t.Fatalf("cached Libs = %v", second.Info.Libs)
	}

	opts := f.options()
	opts.Force = true
	if _, err := f.builder.Run(context.Background(), f.recipe(t), opts); err != nil {
		t.Fatal(err)
	}
	if f.tool.builds != 2 {
		t.Fatalf("builds after Force = %d, want 2", f.tool.builds)
	}

	// a removed package folder invalidates the cache entry
	if err := os.RemoveAll(first.PackageFolder); err != nil {
		t.Fatal(err)
	}
	res, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if err != nil || res.Cached {
		t.Fatalf("Run() after removal = %v, %v", res, err)
	}
	if f.tool.builds != 3 {
		t.Fatalf("builds after removal = %d, want 3", f.tool.builds)
	}
	if _, err := os.Stat(filepath.Join(res.PackageFolder, "lib", "libfoo.so")); err != nil {
		t.Fatalf("rebuilt package: %v", err)
	}

	// an emptied package folder is not served from the cache either
	entries, err := os.ReadDir(res.PackageFolder)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(res.PackageFolder, e.Name())); err != nil {
			t.Fatal(err)
		}
	}
	if res, err := f.builder.Run(context.Background(), f.recipe(t), f.options()); err != nil || res.Cached {
		t.Fatalf("Run() after emptying = %v, %v", res, err)
	}
	if f.tool.builds != 4 {
		t.Fatalf("builds after emptying = %d, want 4", f.tool.builds)
	}
}

func TestRunVariants(t *testing.T) {
	f := newFixture(t, nil)
	shared, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if err != nil {
		t.Fatal(err)
	}
	opts := f.options()
	opts.Options = map[string]string{"shared": "False", "fPIC": "True"}
	static, err := f.builder.Run(context.Background(), f.recipe(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	if shared.ID == static.ID || static.Cached {
		t.Fatalf("variants share id %s", shared.ID)
	}
	if f.tool.cfg.PIC == nil || !*f.tool.cfg.PIC {
		t.Fatal("static build without PIC")
	}
}

func TestRunResolvesDependencies(t *testing.T) {
	entt := t.TempDir()
	for _, file := range []string{"include/entt/entt.hpp", "licenses/LICENSE", "lib/libentt.a"} {
		if err := writeFile(filepath.Join(entt, file), ""); err != nil {
			t.Fatal(err)
		}
	}
	resolver := &mockResolver{deps: map[string]recipe.Dependency{
		"cppcheck_installer/1.90@conan/stable": {},
		"conan_gtest/stable@conan/stable":      {},
		"entt/3.5.2": {
			Ref:    ref.Ref{Name: "entt", Version: "3.5.2"},
			Folder: entt,
			Info:   recipe.ConsumptionInfo{RootPath: entt, LibDirs: []string{"lib"}, Libs: []string{"entt"}},
		},
	}}
	f := newFixture(t, resolver)
	res, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cppcheck_installer/1.90@conan/stable", "conan_gtest/stable@conan/stable", "entt/3.5.2"}
	if !slices.Equal(resolver.resolved, want) {
		t.Fatalf("resolved %v", resolver.resolved)
	}
	if len(res.Deps) != 1 || res.Deps[0].Folder != entt {
		t.Fatalf("Deps = %+v", res.Deps)
	}
	if !slices.Equal(f.tool.roots, []string{entt}) {
		t.Fatalf("tool roots = %v", f.tool.roots)
	}
	if _, err := os.Stat(filepath.Join(res.BuildFolder, "bin", "libentt.a")); err != nil {
		t.Errorf("dependency not imported: %v", err)
	}
	if _, err := os.Stat(filepath.Join(res.BuildFolder, "Findentt.cmake")); err != nil {
		t.Errorf("find module not generated: %v", err)
	}
}

func TestRunImportPathEnv(t *testing.T) {
	entt := t.TempDir()
	if err := writeFile(filepath.Join(entt, "lib", "libentt.a"), ""); err != nil {
		t.Fatal(err)
	}
	t.Setenv(recipe.ImportPathEnv, "runtime")
	resolver := &mockResolver{deps: map[string]recipe.Dependency{
		"cppcheck_installer/1.90@conan/stable": {},
		"conan_gtest/stable@conan/stable":      {},
		"entt/3.5.2":                           {Ref: ref.Ref{Name: "entt", Version: "3.5.2"}, Folder: entt},
	}}
	f := newFixture(t, resolver)
	res, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(res.BuildFolder, "runtime", "libentt.a")); err != nil {
		t.Errorf("dependency not imported into runtime/: %v", err)
	}
}

func TestRunUnresolved(t *testing.T) {
	f := newFixture(t, &mockResolver{})
	_, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if !errors.Is(err, recipe.ErrDependencyResolution) || !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Run() = %v, want DependencyResolutionError", err)
	}
	if f.tool.builds != 0 {
		t.Fatal("built despite unresolved dependencies")
	}
}

func TestRunSkipDeps(t *testing.T) {
	resolver := &mockResolver{}
	f := newFixture(t, resolver)
	opts := f.options()
	opts.SkipDeps = true
	if _, err := f.builder.Run(context.Background(), f.recipe(t), opts); err != nil {
		t.Fatal(err)
	}
	if len(resolver.resolved) != 0 {
		t.Fatalf("resolved %v with SkipDeps", resolver.resolved)
	}
}

func TestRunConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *recipe.Recipe, opts *Options)
	}{
		{"unknown option", func(r *recipe.Recipe, opts *Options) { opts.Options = map[string]string{"lto": "True"} }},
		{"bad value", func(r *recipe.Recipe, opts *Options) { opts.Options = map[string]string{"shared": "maybe"} }},
		{"removed option", func(r *recipe.Recipe, opts *Options) {
			opts.Settings.OS = recipe.Windows
			opts.Options = map[string]string{"fPIC": "True"}
		}},
		{"unknown generator", func(r *recipe.Recipe, opts *Options) { r.Generators = []string{"premake"} }},
		{"no source", func(r *recipe.Recipe, opts *Options) { opts.SourceDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			r := f.recipe(t)
			opts := f.options()
			tt.mutate(r, &opts)
			_, err := f.builder.Run(context.Background(), r, opts)
			if !errors.Is(err, recipe.ErrConfiguration) {
				t.Fatalf("Run() = %v, want ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), "foo") {
				t.Fatalf("error does not name the recipe: %v", err)
			}
		})
	}
}

func TestRunBuildFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.tool.buildErr = errors.New("compiler crashed")
	r := f.recipe(t)
	_, err := f.builder.Run(context.Background(), r, f.options())
	if !errors.Is(err, recipe.ErrBuild) {
		t.Fatalf("Run() = %v, want BuildFailure", err)
	}
	if _, err := f.store.Resolve(context.Background(), r.Ref()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("failed build was published: %v", err)
	}
	if _, err := f.builder.loadCache("foo"); err == nil {
		t.Fatal("failed build was cached")
	}
}

func TestRunPackagingFailure(t *testing.T) {
	f := newFixture(t, nil)
	if err := os.Remove(filepath.Join(f.src, "LICENSE")); err != nil {
		t.Fatal(err)
	}
	_, err := f.builder.Run(context.Background(), f.recipe(t), f.options())
	if !errors.Is(err, recipe.ErrPackaging) {
		t.Fatalf("Run() = %v, want PackagingError", err)
	}
}
