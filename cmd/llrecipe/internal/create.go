package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/goplus/llrecipe/internal/archive"
	"github.com/goplus/llrecipe/internal/build"
	"github.com/goplus/llrecipe/internal/store"
	"github.com/spf13/cobra"
)

var (
	createSettings    []string
	createOptions     []string
	createBuildFolder string
	createForce       bool
	createSkipDeps    bool
	createArchive     string
	createOutput      string
)

var createCmd = &cobra.Command{
	Use:   "create [dir]",
	Short: "Build, package and publish a recipe",
	Long: `Create builds the recipe in dir (default: the current directory), stages the
artifacts into a package folder and publishes it to the package store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	f := createCmd.Flags()
	f.StringArrayVarP(&createSettings, "settings", "s", nil, "Setting override key=value")
	f.StringArrayVarP(&createOptions, "options", "o", nil, "Option value key=value")
	f.StringVar(&createBuildFolder, "build-folder", "", "Build folder (default: in the workspace)")
	f.BoolVar(&createForce, "force", false, "Rebuild even if the package is cached")
	f.BoolVar(&createSkipDeps, "skip-deps", false, "Do not resolve dependencies")
	f.StringVar(&createArchive, "archive", "", "Also publish an archive (tgz, txz, tzst or zip)")
	f.StringVar(&createOutput, "output", "", "Copy the package to a directory or archive file")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	dir, d, err := loadDescriptor(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(createSettings, createOptions)
	if err != nil {
		return err
	}

	opts := build.Options{
		Settings:   cfg.Settings,
		Options:    cfg.Options,
		SourceDir:  dir,
		BuildDir:   createBuildFolder,
		ImportPath: cfg.ImportPath,
		Jobs:       cfg.Jobs,
		Force:      createForce,
		SkipDeps:   createSkipDeps,
	}
	format := cfg.Archive
	if createArchive != "" {
		format = createArchive
	}
	if format != "" {
		if opts.Archive, err = archive.ParseFormat(format); err != nil {
			return err
		}
	}
	// Resolve output path to absolute before build
	if createOutput != "" {
		if createOutput, err = filepath.Abs(createOutput); err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
	}

	r, err := d.Recipe(newTool(d, cfg, toolOutput()))
	if err != nil {
		return err
	}

	st := store.New(cfg.StoreDir)
	builder := build.NewBuilder(cfg.WorkspaceDir, st, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := builder.Run(ctx, r, opts)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.Ref(), err)
	}

	if createOutput != "" {
		if err := outputResult(res.PackageFolder, createOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return printResult(cmd, res)
}

// outputResult writes the package folder to dest. If dest has an archive
// extension the folder is archived, otherwise it is copied.
func outputResult(srcDir, dest string) error {
	if _, err := archive.FormatOf(dest); err == nil {
		return archive.WriteFile(dest, srcDir)
	}
	return copyTree(srcDir, dest)
}

// copyTree copies srcDir to dest, recreating symlinks as they are. Existing
// files in dest are an error.
func copyTree(srcDir, dest string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case !d.Type().IsRegular():
			return fmt.Errorf("%s: unsupported file type %v", path, d.Type())
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func printResult(cmd *cobra.Command, res *build.Result) error {
	out := struct {
		Ref           string `json:"ref"`
		ID            string `json:"id"`
		Cached        bool   `json:"cached"`
		PackageFolder string `json:"package_folder"`
		CppInfo       any    `json:"cpp_info"`
	}{res.Ref.String(), res.ID, res.Cached, res.PackageFolder, res.Info}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
