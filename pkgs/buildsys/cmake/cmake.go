// Package cmake drives CMake-based builds through the buildsys.Adapter
// contract.
package cmake

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/goplus/llrecipe/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps the configure/build/install steps with chainable settings.
type CMake struct {
	generator string
	toolchain string
	defines   map[string]defineValue
	env       buildsys.Env
	runner    buildsys.Runner

	cfg        buildsys.Config
	configured bool
}

var _ buildsys.Adapter = (*CMake)(nil)

// New returns a CMake adapter that runs commands with runner, or with
// buildsys.DefaultRunner when runner is nil.
func New(runner buildsys.Runner) *CMake {
	if runner == nil {
		runner = buildsys.DefaultRunner
	}
	return &CMake{
		defines: map[string]defineValue{},
		env:     buildsys.Env{},
		runner:  runner,
	}
}

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

// Toolchain sets CMAKE_TOOLCHAIN_FILE.
func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) *CMake {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) *CMake {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
	return c
}

// Env sets key=value for every command spawned later.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Use configures the build environment to find a dependency installed at root.
func (c *CMake) Use(root string) {
	c.env.Use(root)
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
func (c *CMake) Configure(ctx context.Context, cfg buildsys.Config) error {
	if cfg.SourceDir == "" || cfg.BuildDir == "" {
		return errors.New("cmake: source and build directories are required")
	}
	c.cfg = cfg
	c.configured = true

	if cfg.InstallDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", cfg.InstallDir)
	}
	if c.toolchain != "" {
		c.Define("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	if cfg.BuildType != "" {
		c.Define("CMAKE_BUILD_TYPE", cfg.BuildType)
	}
	if cfg.Shared != nil {
		c.DefineBool("BUILD_SHARED_LIBS", *cfg.Shared)
	}
	if cfg.PIC != nil {
		c.DefineBool("CMAKE_POSITION_INDEPENDENT_CODE", *cfg.PIC)
	}

	args := []string{"-S", cfg.SourceDir, "-B", cfg.BuildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	args = append(args, c.definesArgs()...)
	return c.run(ctx, args)
}

// Build runs "cmake --build <build> -- -j<jobs>".
func (c *CMake) Build(ctx context.Context, jobs int) error {
	if !c.configured {
		return errors.New("cmake: build before configure")
	}
	args := []string{"--build", c.cfg.BuildDir}
	if c.cfg.BuildType != "" {
		args = append(args, "--config", c.cfg.BuildType)
	}
	args = append(args, "--", "-j"+strconv.Itoa(buildsys.Jobs(jobs)))
	return c.run(ctx, args)
}

// Install runs "cmake --install <build> --prefix <install>".
func (c *CMake) Install(ctx context.Context) error {
	if !c.configured {
		return errors.New("cmake: install before configure")
	}
	args := []string{"--install", c.cfg.BuildDir}
	if c.cfg.BuildType != "" {
		args = append(args, "--config", c.cfg.BuildType)
	}
	if c.cfg.InstallDir != "" {
		args = append(args, "--prefix", c.cfg.InstallDir)
	}
	return c.run(ctx, args)
}

func (c *CMake) run(ctx context.Context, args []string) error {
	return c.runner(ctx, buildsys.Command{
		Name: "cmake",
		Args: args,
		Env:  c.env,
	})
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
