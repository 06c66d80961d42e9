package internal

import (
	"fmt"

	"github.com/goplus/llrecipe/internal/build"
	"github.com/goplus/llrecipe/recipe"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectSettings, inspectOptions []string

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Show the configured recipe",
	Long:  `Inspect loads a recipe, applies the profile and prints its options, dependencies and package ID.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringArrayVarP(&inspectSettings, "settings", "s", nil, "Setting override key=value")
	inspectCmd.Flags().StringArrayVarP(&inspectOptions, "options", "o", nil, "Option value key=value")
	rootCmd.AddCommand(inspectCmd)
}

type inspection struct {
	recipe.Metadata `yaml:",inline"`

	BuildSystem    string          `yaml:"build_system"`
	Settings       recipe.Settings `yaml:"settings"`
	Options        []optionView    `yaml:"options"`
	PackageID      string          `yaml:"package_id"`
	BuildRequires  []string        `yaml:"build_requires,omitempty"`
	Requires       []string        `yaml:"requires,omitempty"`
	Generators     []string        `yaml:"generators,omitempty"`
	ExportsSources []string        `yaml:"exports_sources,omitempty"`
}

type optionView struct {
	Name   string   `yaml:"name"`
	Value  string   `yaml:"value"`
	Domain []string `yaml:"domain,flow"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, d, err := loadDescriptor(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(inspectSettings, inspectOptions)
	if err != nil {
		return err
	}
	out, err := inspect(d, build.Options{Settings: cfg.Settings, Options: cfg.Options})
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// inspect configures the recipe of d for opts without building it.
func inspect(d *recipe.Descriptor, opts build.Options) (*inspection, error) {
	r, err := d.Recipe(nil)
	if err != nil {
		return nil, err
	}
	id, err := build.Configure(r, opts)
	if err != nil {
		return nil, err
	}

	out := &inspection{
		Metadata:       r.Metadata,
		BuildSystem:    d.BuildSystem,
		Settings:       opts.Settings,
		PackageID:      id,
		Generators:     r.Generators,
		ExportsSources: r.ExportsSources,
	}
	for _, name := range r.Options.Names() {
		v, _ := r.Options.Get(name)
		out.Options = append(out.Options, optionView{Name: name, Value: v, Domain: r.Options.Domain(name)})
	}
	for _, br := range r.BuildRequirements() {
		out.BuildRequires = append(out.BuildRequires, br.String())
	}
	for _, rq := range r.Requirements() {
		out.Requires = append(out.Requires, rq.String())
	}
	return out, nil
}
