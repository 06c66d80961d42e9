// Package build drives a recipe through one build invocation: option
// configuration, dependency resolution, build, packaging and publication
// to the package store.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llrecipe/internal/archive"
	"github.com/goplus/llrecipe/internal/cpu"
	"github.com/goplus/llrecipe/internal/generator"
	"github.com/goplus/llrecipe/internal/lockedfile"
	"github.com/goplus/llrecipe/internal/store"
	"github.com/goplus/llrecipe/pkgs/ref"
	"github.com/goplus/llrecipe/recipe"
	"github.com/sirupsen/logrus"
)

// Resolver finds the published package of a reference.
type Resolver interface {
	Resolve(ctx context.Context, r ref.Ref) (recipe.Dependency, error)
}

// Options configure one invocation.
type Options struct {
	Settings recipe.Settings
	Options  map[string]string // user option values, applied after ConfigOptions

	SourceDir  string
	BuildDir   string // default: <workspace>/<name>/<version>-<id>/build
	ImportPath string // relative to BuildDir unless absolute; default recipe.ImportPath()
	Jobs       int    // default: cpu.Count()

	Force    bool           // rebuild even if cached
	SkipDeps bool           // do not resolve dependencies
	Archive  archive.Format // also publish an archive of the package folder
}

// Result describes a finished invocation.
type Result struct {
	Ref           ref.Ref
	ID            string
	Stage         Stage
	BuildFolder   string
	PackageFolder string
	Info          recipe.ConsumptionInfo
	Deps          []recipe.Dependency
	Cached        bool
}

type Builder struct {
	workspaceDir string
	store        *store.Store
	resolver     Resolver
	log          logrus.FieldLogger
}

// NewBuilder returns a Builder that keeps build folders and caches in
// workspaceDir and publishes to st. A nil resolver skips dependency
// resolution.
func NewBuilder(workspaceDir string, st *store.Store, resolver Resolver) *Builder {
	return &Builder{
		workspaceDir: workspaceDir,
		store:        st,
		resolver:     resolver,
		log:          logrus.StandardLogger(),
	}
}

// Configure runs the option hooks of r for opts and returns the package ID.
func Configure(r *recipe.Recipe, opts Options) (string, error) {
	r.ConfigOptions(opts.Settings.OS)
	for name, value := range opts.Options {
		if err := r.Options.Set(name, value); err != nil {
			return "", withRecipe(err, r.Metadata.Name)
		}
	}
	r.Configure()
	if err := generator.Check(r.Generators); err != nil {
		return "", withRecipe(err, r.Metadata.Name)
	}
	return r.PackageID(opts.Settings), nil
}

// Run builds, packages and publishes r.
func (b *Builder) Run(ctx context.Context, r *recipe.Recipe, opts Options) (*Result, error) {
	var sess session
	name := r.Metadata.Name
	log := b.log.WithField("recipe", name)
	r.Log = log

	id, err := Configure(r, opts)
	if err != nil {
		return nil, err
	}
	if err := sess.advance(OptionsConfigured); err != nil {
		return nil, err
	}
	res := &Result{Ref: r.Ref(), ID: id}
	log.Infof("Configured %s:%s (%s)", res.Ref, id, r.Options)

	unlock, err := lockedfile.MutexAt(filepath.Join(b.cacheDir(name), id+".lock")).Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if res.Deps, err = b.resolve(ctx, r, opts, log); err != nil {
		return nil, err
	}
	if err := sess.advance(DependenciesResolved); err != nil {
		return nil, err
	}

	res.PackageFolder, err = b.store.Folder(res.Ref, id)
	if err != nil {
		return nil, err
	}

	// Double-check cache after acquiring lock (another process may have built it)
	cache, err := b.loadCache(name)
	if err != nil {
		cache = &buildCache{}
	}
	if entry, ok := cache.get(res.Ref.Version, id); ok && !opts.Force && b.published(res.Ref, id, res.PackageFolder, entry) {
		log.Infof("Using cached package %s", entry.PackageFolder)
		for _, to := range []Stage{Built, Packaged, Published} {
			if err := sess.advance(to); err != nil {
				return nil, err
			}
		}
		res.Info = entry.Info
		res.Cached = true
		res.Stage = sess.stage
		return res, nil
	}

	bc, err := b.context(r, res, opts)
	if err != nil {
		return nil, err
	}
	res.BuildFolder = bc.BuildFolder
	if err := b.prepare(r, res, bc, opts); err != nil {
		return nil, err
	}

	if err := r.Build(ctx, bc); err != nil {
		return nil, err
	}
	if err := sess.advance(Built); err != nil {
		return nil, err
	}

	if err := r.Package(ctx, bc); err != nil {
		return nil, err
	}
	if err := sess.advance(Packaged); err != nil {
		return nil, err
	}
	res.Info = r.PackageInfo(bc.PackageFolder)

	info := &store.Info{
		ID:       id,
		Settings: opts.Settings,
		Options:  r.Options.Values(),
		CppInfo:  res.Info,
	}
	for _, rq := range r.Requirements() {
		info.Requires = append(info.Requires, rq.String())
	}
	if err := b.store.Publish(ctx, res.Ref, info, opts.Archive); err != nil {
		return nil, err
	}
	cache.set(res.Ref.Version, id, &buildEntry{
		PackageFolder: res.PackageFolder,
		Info:          res.Info,
		BuildTime:     time.Now(),
	})
	if err := b.saveCache(name, cache); err != nil {
		return nil, err
	}
	if err := sess.advance(Published); err != nil {
		return nil, err
	}
	res.Stage = sess.stage
	log.Infof("Published %s:%s to %s", res.Ref, id, res.PackageFolder)
	return res, nil
}

// published reports whether a cache entry still matches a complete store
// entry at folder.
func (b *Builder) published(r ref.Ref, id, folder string, entry *buildEntry) bool {
	if entry.PackageFolder != folder {
		return false
	}
	_, err := b.store.Info(r, id)
	return err == nil
}

// resolve resolves build requirements and requirements, returning the
// linked dependencies.
func (b *Builder) resolve(ctx context.Context, r *recipe.Recipe, opts Options, log logrus.FieldLogger) ([]recipe.Dependency, error) {
	if opts.SkipDeps {
		log.Info("Skipping dependency resolution")
		return nil, nil
	}
	if b.resolver == nil {
		log.Warn("No resolver configured, dependencies are not resolved")
		return nil, nil
	}
	for _, br := range r.BuildRequirements() {
		if _, err := b.resolver.Resolve(ctx, br); err != nil {
			return nil, recipe.Errorf(recipe.KindDependencyResolution, "build_requirements", r.Metadata.Name, "%s: %w", br, err)
		}
	}
	var deps []recipe.Dependency
	for _, rq := range r.Requirements() {
		if !rq.Pinned() {
			log.Warnf("Requirement %s is not pinned to an exact version", rq)
		}
		dep, err := b.resolver.Resolve(ctx, rq)
		if err != nil {
			return nil, recipe.Errorf(recipe.KindDependencyResolution, "requirements", r.Metadata.Name, "%s: %w", rq, err)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func (b *Builder) context(r *recipe.Recipe, res *Result, opts Options) (*recipe.BuildContext, error) {
	if opts.SourceDir == "" {
		return nil, recipe.Errorf(recipe.KindConfiguration, "build", r.Metadata.Name, "no source folder")
	}
	src, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, err
	}
	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = filepath.Join(b.cacheDir(r.Metadata.Name), res.Ref.Version+"-"+res.ID, "build")
	}
	if buildDir, err = filepath.Abs(buildDir); err != nil {
		return nil, err
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = cpu.Count()
	}
	return &recipe.BuildContext{
		Settings:      opts.Settings,
		SourceFolder:  src,
		BuildFolder:   buildDir,
		PackageFolder: res.PackageFolder,
		Jobs:          jobs,
	}, nil
}

// prepare empties the package folder and lays out the build folder:
// imported dependency artifacts, generator files and the build tool's view
// of the dependencies.
func (b *Builder) prepare(r *recipe.Recipe, res *Result, bc *recipe.BuildContext, opts Options) error {
	deps := res.Deps
	if _, err := b.store.Reset(res.Ref, res.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(bc.BuildFolder, 0o755); err != nil {
		return err
	}
	importPath := opts.ImportPath
	if importPath == "" {
		importPath = recipe.ImportPath()
	}
	if !filepath.IsAbs(importPath) {
		importPath = filepath.Join(bc.BuildFolder, importPath)
	}
	if err := r.Imports(deps, importPath); err != nil {
		return err
	}
	if _, err := generator.Write(bc.BuildFolder, r.Generators, deps); err != nil {
		return withRecipe(err, r.Metadata.Name)
	}
	if r.Tool != nil {
		for _, dep := range deps {
			r.Tool.Use(dep.Folder)
		}
	}
	return nil
}

func withRecipe(err error, name string) error {
	var e *recipe.Error
	if errors.As(err, &e) && e.Recipe == "" {
		e.Recipe = name
	}
	return err
}

func (r *Result) String() string {
	return fmt.Sprintf("%s:%s [%s]", r.Ref, r.ID, r.Stage)
}
