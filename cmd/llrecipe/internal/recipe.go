package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/llrecipe/internal/config"
	"github.com/goplus/llrecipe/pkgs/buildsys"
	"github.com/goplus/llrecipe/pkgs/buildsys/autotools"
	"github.com/goplus/llrecipe/pkgs/buildsys/cmake"
	"github.com/goplus/llrecipe/recipe"
	"github.com/sirupsen/logrus"
)

// loadDescriptor reads the recipe descriptor of dir (default ".").
func loadDescriptor(args []string) (dir string, d *recipe.Descriptor, err error) {
	dir = "."
	if len(args) > 0 {
		dir = args[0]
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return "", nil, err
	}
	d, err = recipe.Load(filepath.Join(dir, recipe.DescriptorFile))
	if err != nil {
		return "", nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return dir, d, nil
}

// loadConfig reads the profile and applies -s and -o overrides.
func loadConfig(settings, options []string) (*config.Config, error) {
	cfg, used, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if used != "" {
		logrus.Debugf("Using profile %s", used)
	}
	kv, err := parseKeyValues(settings)
	if err != nil {
		return nil, fmt.Errorf("-s: %w", err)
	}
	for k, v := range kv {
		if err := setSetting(&cfg.Settings, k, v); err != nil {
			return nil, err
		}
	}
	kv, err = parseKeyValues(options)
	if err != nil {
		return nil, fmt.Errorf("-o: %w", err)
	}
	for k, v := range kv {
		cfg.Options[k] = v
	}
	return cfg, nil
}

// parseKeyValues parses "key=value" arguments.
func parseKeyValues(args []string) (map[string]string, error) {
	kv := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		kv[k] = strings.TrimSpace(v)
	}
	return kv, nil
}

func setSetting(s *recipe.Settings, key, value string) error {
	switch key {
	case "os":
		s.OS = value
	case "arch":
		s.Arch = value
	case "compiler":
		s.Compiler = value
	case "compiler.version", "compiler_version":
		s.CompilerVersion = value
	case "build_type":
		s.BuildType = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// newTool returns the build tool adapter a descriptor asks for.
func newTool(d *recipe.Descriptor, cfg *config.Config, out io.Writer) buildsys.Adapter {
	runner := buildsys.ExecRunner(out, out)
	switch d.BuildSystem {
	case recipe.Autotools:
		at := autotools.New(runner)
		for _, f := range d.ConfigureFlags {
			at.Flag(f)
		}
		return at
	default:
		generator, toolchain := cfg.CMake.Generator, cfg.CMake.Toolchain
		if d.CMake.Generator != "" {
			generator = d.CMake.Generator
		}
		if d.CMake.Toolchain != "" {
			toolchain = d.CMake.Toolchain
		}
		cm := cmake.New(runner).Generator(generator).Toolchain(toolchain)
		for k, v := range d.CMake.Defines {
			cm.Define(k, v)
		}
		return cm
	}
}

// toolOutput is where build tool output goes: the terminal when verbose,
// nowhere otherwise.
func toolOutput() io.Writer {
	if flagVerbose {
		return os.Stderr
	}
	return io.Discard
}
