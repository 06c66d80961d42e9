// Package buildsys defines the adapter contract shared by build helpers
// (CMake, Autotools) and the command plumbing they have in common.
package buildsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Adapter captures the lifecycle a recipe drives on an external build tool.
// Implementations keep their own environment overlay; they never mutate the
// process environment.
type Adapter interface {
	// Use injects a resolved dependency installed at root.
	Use(root string)

	// Lifecycle.
	Configure(ctx context.Context, cfg Config) error
	Build(ctx context.Context, jobs int) error
	Install(ctx context.Context) error
}

// Config is what a recipe hands to the adapter before building.
type Config struct {
	SourceDir  string
	BuildDir   string
	InstallDir string
	BuildType  string // e.g. "Release", "Debug"

	// Shared and PIC are nil when the option does not apply.
	Shared *bool
	PIC    *bool
}

// Command is a single external tool invocation.
type Command struct {
	Dir  string
	Name string
	Args []string
	Env  map[string]string // overlay on top of os.Environ()
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes a Command.
type Runner func(ctx context.Context, cmd Command) error

// ExecRunner returns a Runner backed by os/exec that streams the tool output
// to stdout and stderr.
func ExecRunner(stdout, stderr io.Writer) Runner {
	return func(ctx context.Context, c Command) error {
		cmd := exec.CommandContext(ctx, c.Name, c.Args...)
		cmd.Dir = c.Dir
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		if len(c.Env) > 0 {
			cmd.Env = MergeEnv(os.Environ(), c.Env)
		}
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %w", c, err)
		}
		return nil
	}
}

// DefaultRunner streams to the process stdout and stderr.
var DefaultRunner = ExecRunner(os.Stdout, os.Stderr)

// MergeEnv returns base with every key in override replaced or appended,
// sorted by key.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(override))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// Env is an environment overlay. Lookups fall back to the process
// environment so prepends keep the inherited value.
type Env map[string]string

func (e Env) get(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// Prepend prepends value to a PATH-style variable.
func (e Env) Prepend(key, value string) {
	if cur := e.get(key); cur != "" {
		value += string(os.PathListSeparator) + cur
	}
	e[key] = value
}

// AppendFlag appends a space-separated flag to a variable.
func (e Env) AppendFlag(key, flag string) {
	if cur := e.get(key); cur != "" {
		flag = strings.TrimSpace(cur + " " + flag)
	}
	e[key] = flag
}

// Use records the search paths of a dependency installed at root so that
// CMake, pkg-config and compilers find its headers and libraries.
func (e Env) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		e.Prepend("PKG_CONFIG_PATH", pkgconfigDir)
	}
	e.Prepend("CMAKE_PREFIX_PATH", root)
	if isDir(includeDir) {
		e.Prepend("CMAKE_INCLUDE_PATH", includeDir)
	}
	if isDir(libDir) {
		e.Prepend("CMAKE_LIBRARY_PATH", libDir)
	}

	if runtime.GOOS == "windows" {
		if isDir(includeDir) {
			e.Prepend("INCLUDE", includeDir)
		}
		if isDir(libDir) {
			e.Prepend("LIB", libDir)
		}
		return
	}
	if isDir(includeDir) {
		e.AppendFlag("CPPFLAGS", "-I"+includeDir)
	}
	if isDir(libDir) {
		e.AppendFlag("LDFLAGS", "-L"+libDir)
	}
}

// Jobs clamps a parallelism hint to at least one.
func Jobs(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
