package recipe

import (
	"fmt"
	"os"
	"slices"

	"github.com/goplus/llrecipe/pkgs/buildsys"
	"gopkg.in/yaml.v3"
)

// DescriptorFile is the recipe descriptor looked up in a recipe directory.
const DescriptorFile = "recipe.yaml"

// Build systems a descriptor can name.
const (
	CMake     = "cmake"
	Autotools = "autotools"
)

// OptionSpec declares one option in a descriptor. An empty Values list
// declares a True/False option. "fPIC" always follows PICApplicable.
type OptionSpec struct {
	Name    string   `yaml:"name"`
	Values  []string `yaml:"values,omitempty"`
	Default string   `yaml:"default,omitempty"`
}

// CMakeSpec holds CMake specific descriptor settings.
type CMakeSpec struct {
	Generator string            `yaml:"generator,omitempty"`
	Toolchain string            `yaml:"toolchain,omitempty"`
	Defines   map[string]string `yaml:"defines,omitempty"`
}

// Descriptor is the on-disk form of a recipe.
type Descriptor struct {
	Metadata `yaml:",inline"`

	BuildSystem    string       `yaml:"build_system,omitempty"`
	Options        []OptionSpec `yaml:"options,omitempty"`
	BuildRequires  []string     `yaml:"build_requires,omitempty"`
	Requires       []string     `yaml:"requires,omitempty"`
	Generators     []string     `yaml:"generators,omitempty"`
	ExportsSources []string     `yaml:"exports_sources,omitempty"`
	Defines        []string     `yaml:"defines,omitempty"`
	LinkFlags      []string     `yaml:"linkflags,omitempty"`

	CMake          CMakeSpec `yaml:"cmake,omitempty"`
	ConfigureFlags []string  `yaml:"configure_flags,omitempty"`
}

// Load reads the descriptor at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a YAML descriptor.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, newError(KindConfiguration, "descriptor", "", err)
	}
	if d.BuildSystem == "" {
		d.BuildSystem = CMake
	}
	switch d.BuildSystem {
	case CMake, Autotools:
	default:
		return nil, newError(KindConfiguration, "descriptor", d.Name,
			fmt.Errorf("unknown build system %q", d.BuildSystem))
	}
	return &d, nil
}

// Recipe builds the recipe d describes, driven by tool.
func (d *Descriptor) Recipe(tool buildsys.Adapter) (*Recipe, error) {
	r, err := New(d.Metadata, tool)
	if err != nil {
		return nil, err
	}
	for _, spec := range d.Options {
		opt := Option{Name: spec.Name, Values: spec.Values, Default: spec.Default}
		if len(opt.Values) == 0 {
			opt.Values = []string{True, False}
		}
		if spec.Name == "fPIC" {
			opt.Applicable = PICApplicable
		}
		if err := r.Options.Declare(opt); err != nil {
			return nil, withRecipe(err, d.Name)
		}
	}
	for _, s := range d.BuildRequires {
		if err := r.Deps.BuildRequire(s); err != nil {
			return nil, withRecipe(err, d.Name)
		}
	}
	for _, s := range d.Requires {
		if err := r.Deps.Require(s); err != nil {
			return nil, withRecipe(err, d.Name)
		}
	}
	r.Generators = slices.Clone(d.Generators)
	r.ExportsSources = slices.Clone(d.ExportsSources)
	r.Defines = slices.Clone(d.Defines)
	r.LinkFlags = slices.Clone(d.LinkFlags)
	return r, nil
}

func withRecipe(err error, name string) error {
	if e, ok := err.(*Error); ok && e.Recipe == "" {
		e.Recipe = name
	}
	return err
}
