// Package config loads the llrecipe profile: default settings, options and
// the directories packages are built and published in.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goplus/llrecipe/internal/archive"
	"github.com/goplus/llrecipe/internal/env"
	"github.com/goplus/llrecipe/recipe"
	"github.com/spf13/viper"
)

// ProfileName is the base name of the profile file, looked up as
// profile.yaml, profile.toml or profile.json.
const ProfileName = "profile"

// EnvPrefix prefixes environment overrides, e.g. LLRECIPE_STORE_DIR or
// LLRECIPE_SETTINGS_BUILD_TYPE.
const EnvPrefix = "LLRECIPE"

// CMake holds defaults for the CMake adapter.
type CMake struct {
	Generator string `mapstructure:"generator"`
	Toolchain string `mapstructure:"toolchain"`
}

// Config is the resolved profile.
type Config struct {
	StoreDir     string            `mapstructure:"store_dir"`
	WorkspaceDir string            `mapstructure:"workspace_dir"`
	ImportPath   string            `mapstructure:"import_path"`
	Archive      string            `mapstructure:"archive"`
	Jobs         int               `mapstructure:"jobs"`
	Settings     recipe.Settings   `mapstructure:"settings"`
	Options      map[string]string `mapstructure:"options"`
	CMake        CMake             `mapstructure:"cmake"`
}

// Default returns the configuration used when no profile exists.
func Default() (*Config, error) {
	workDir, err := env.WorkDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		StoreDir:     filepath.Join(workDir, "packages"),
		WorkspaceDir: filepath.Join(workDir, "workspace"),
		ImportPath:   recipe.DefaultImportPath,
		Settings:     recipe.DefaultSettings(),
		Options:      map[string]string{},
	}, nil
}

// Load reads the profile at path, or profile.* in the work directory and
// then the current directory when path is empty. A missing profile is not
// an error. Environment variables override file values. It returns the
// configuration and the profile file used, if any.
func Load(path string) (*Config, string, error) {
	defaults, err := Default()
	if err != nil {
		return nil, "", err
	}

	v := viper.New()
	v.SetDefault("store_dir", defaults.StoreDir)
	v.SetDefault("workspace_dir", defaults.WorkspaceDir)
	v.SetDefault("import_path", defaults.ImportPath)
	v.SetDefault("archive", defaults.Archive)
	v.SetDefault("jobs", defaults.Jobs)
	v.SetDefault("settings.os", defaults.Settings.OS)
	v.SetDefault("settings.arch", defaults.Settings.Arch)
	v.SetDefault("settings.compiler", defaults.Settings.Compiler)
	v.SetDefault("settings.compiler_version", defaults.Settings.CompilerVersion)
	v.SetDefault("settings.build_type", defaults.Settings.BuildType)
	v.SetDefault("options", defaults.Options)
	v.SetDefault("cmake.generator", defaults.CMake.Generator)
	v.SetDefault("cmake.toolchain", defaults.CMake.Toolchain)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("import_path", EnvPrefix+"_IMPORT_PATH", recipe.ImportPathEnv); err != nil {
		return nil, "", err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		workDir, err := env.WorkDir()
		if err != nil {
			return nil, "", err
		}
		v.SetConfigName(ProfileName)
		v.AddConfigPath(workDir)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read profile: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

func (c *Config) validate() error {
	if c.Archive != "" {
		if _, err := archive.ParseFormat(c.Archive); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs: must not be negative, got %d", c.Jobs)
	}
	if c.Options == nil {
		c.Options = map[string]string{}
	}
	return nil
}
