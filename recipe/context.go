package recipe

import (
	"runtime"
	"strings"
)

// Platform identifiers used in Settings.OS.
const (
	Windows = "Windows"
	Linux   = "Linux"
	Macos   = "Macos"
	FreeBSD = "FreeBSD"
)

// Settings describes the target of one build variant.
type Settings struct {
	OS              string `json:"os" yaml:"os" mapstructure:"os"`
	Arch            string `json:"arch" yaml:"arch" mapstructure:"arch"`
	Compiler        string `json:"compiler" yaml:"compiler" mapstructure:"compiler"`
	CompilerVersion string `json:"compiler_version,omitempty" yaml:"compiler_version,omitempty" mapstructure:"compiler_version"`
	BuildType       string `json:"build_type" yaml:"build_type" mapstructure:"build_type"`
}

// DefaultSettings returns the settings of the host: a Release build for the
// running OS and architecture with the platform's usual compiler.
func DefaultSettings() Settings {
	s := Settings{
		OS:        OSFromGOOS(runtime.GOOS),
		Arch:      ArchFromGOARCH(runtime.GOARCH),
		BuildType: "Release",
	}
	switch s.OS {
	case Windows:
		s.Compiler = "Visual Studio"
	case Macos:
		s.Compiler = "apple-clang"
	case FreeBSD:
		s.Compiler = "clang"
	default:
		s.Compiler = "gcc"
	}
	return s
}

// OSFromGOOS maps a GOOS value to a platform identifier.
func OSFromGOOS(goos string) string {
	switch goos {
	case "windows":
		return Windows
	case "linux":
		return Linux
	case "darwin":
		return Macos
	case "freebsd":
		return FreeBSD
	}
	if goos == "" {
		return ""
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}

// ArchFromGOARCH maps a GOARCH value to an architecture identifier.
func ArchFromGOARCH(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "armv8"
	case "arm":
		return "armv7"
	}
	return goarch
}

// IsWindows reports whether os names the Windows platform.
func IsWindows(os string) bool {
	return strings.EqualFold(os, Windows)
}

// BuildContext is created per build invocation and discarded afterwards.
type BuildContext struct {
	Settings      Settings
	SourceFolder  string
	BuildFolder   string
	PackageFolder string

	// Jobs is the parallelism hint handed to the build tool. It is advisory;
	// values below 1 are treated as 1.
	Jobs int
}
