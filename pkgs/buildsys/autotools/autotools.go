// Package autotools drives the classic configure/make/make-install workflow
// through the buildsys.Adapter contract.
package autotools

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goplus/llrecipe/pkgs/buildsys"
)

// AutoTools drives Autotools-style builds.
type AutoTools struct {
	flags  []string
	env    buildsys.Env
	runner buildsys.Runner

	cfg        buildsys.Config
	configured bool
}

var _ buildsys.Adapter = (*AutoTools)(nil)

// New returns an AutoTools adapter that runs commands with runner, or with
// buildsys.DefaultRunner when runner is nil.
func New(runner buildsys.Runner) *AutoTools {
	if runner == nil {
		runner = buildsys.DefaultRunner
	}
	return &AutoTools{
		env:    buildsys.Env{},
		runner: runner,
	}
}

// Flag appends an extra configure flag.
func (a *AutoTools) Flag(flag string) *AutoTools {
	a.flags = append(a.flags, flag)
	return a
}

// Env sets key=value for every command spawned later.
func (a *AutoTools) Env(key, value string) {
	a.env[key] = value
}

// Use adds include/lib/pkgconfig paths of a dependency installed at root.
func (a *AutoTools) Use(root string) {
	a.env.Use(root)
}

// Configure runs <source>/configure inside the build directory.
func (a *AutoTools) Configure(ctx context.Context, cfg buildsys.Config) error {
	if cfg.SourceDir == "" || cfg.BuildDir == "" {
		return errors.New("autotools: source and build directories are required")
	}
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return err
	}
	a.cfg = cfg
	a.configured = true
	return a.run(ctx, filepath.Join(cfg.SourceDir, "configure"), a.configureArgs())
}

// Build runs "make -j<jobs>".
func (a *AutoTools) Build(ctx context.Context, jobs int) error {
	if !a.configured {
		return errors.New("autotools: build before configure")
	}
	return a.run(ctx, "make", []string{"-j" + strconv.Itoa(buildsys.Jobs(jobs))})
}

// Install runs "make install".
func (a *AutoTools) Install(ctx context.Context) error {
	if !a.configured {
		return errors.New("autotools: install before configure")
	}
	return a.run(ctx, "make", []string{"install"})
}

func (a *AutoTools) configureArgs() []string {
	var args []string
	if a.cfg.InstallDir != "" {
		args = append(args, "--prefix="+a.cfg.InstallDir)
	}
	if shared := a.cfg.Shared; shared != nil {
		if *shared {
			args = append(args, "--enable-shared", "--disable-static")
		} else {
			args = append(args, "--disable-shared", "--enable-static")
		}
	}
	if pic := a.cfg.PIC; pic != nil && *pic {
		args = append(args, "--with-pic")
	}
	return append(args, a.flags...)
}

// commandEnv returns the overlay for one command: the adapter's own
// environment plus the flags implied by the build type.
func (a *AutoTools) commandEnv() buildsys.Env {
	env := maps.Clone(a.env)
	if a.cfg.BuildType == "Debug" {
		env.AppendFlag("CFLAGS", "-g -O0")
		env.AppendFlag("CXXFLAGS", "-g -O0")
	}
	return env
}

func (a *AutoTools) run(ctx context.Context, name string, args []string) error {
	return a.runner(ctx, buildsys.Command{
		Dir:  a.cfg.BuildDir,
		Name: name,
		Args: args,
		Env:  a.commandEnv(),
	})
}
