package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/llrecipe/recipe"
	"github.com/spf13/cobra"
)

var initParams recipe.Params
var initTopics string

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a recipe descriptor",
	Long:  `Init writes a recipe.yaml for the canonical library recipe into the current directory.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initParams.Version, "version", "0.1.0", "Package version")
	f.StringVar(&initParams.License, "license", "MIT", "SPDX license identifier")
	f.StringVar(&initParams.Author, "author", "", "Package author")
	f.StringVar(&initParams.Description, "description", "", "Package description")
	f.StringVar(&initParams.Homepage, "homepage", "", "Project homepage")
	f.StringVar(&initParams.URL, "url", "", "Recipe repository URL")
	f.StringVar(&initTopics, "topics", "", "Comma separated topics")
	f.StringVar(&initParams.BuildSystem, "build-system", recipe.CMake, "Build system (cmake or autotools)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	p := initParams
	p.Name = args[0]
	if initTopics != "" {
		for _, t := range strings.Split(initTopics, ",") {
			if t = strings.TrimSpace(t); t != "" {
				p.Topics = append(p.Topics, t)
			}
		}
	}

	path := filepath.Join(".", recipe.DescriptorFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", recipe.DescriptorFile)
	}

	var buf bytes.Buffer
	if err := recipe.RenderTemplate(&buf, p); err != nil {
		return fmt.Errorf("failed to render %s: %w", recipe.DescriptorFile, err)
	}
	// reject what a later create would reject
	d, err := recipe.Parse(buf.Bytes())
	if err != nil {
		return err
	}
	if _, err := d.Recipe(nil); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", recipe.DescriptorFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized recipe %s/%s\n", p.Name, p.Version)
	return nil
}
