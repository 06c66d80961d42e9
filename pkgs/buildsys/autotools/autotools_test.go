package autotools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/llrecipe/pkgs/buildsys"
)

type recorder struct {
	cmds []buildsys.Command
}

func (r *recorder) run(_ context.Context, cmd buildsys.Command) error {
	r.cmds = append(r.cmds, cmd)
	return nil
}

func ptr(b bool) *bool { return &b }

func TestLifecycleArgs(t *testing.T) {
	tmp := t.TempDir()
	buildDir := filepath.Join(tmp, "build")

	rec := &recorder{}
	a := New(rec.run).Flag("--disable-docs")
	cfg := buildsys.Config{
		SourceDir:  "/src",
		BuildDir:   buildDir,
		InstallDir: "/pkg",
		Shared:     ptr(false),
		PIC:        ptr(true),
	}
	ctx := context.Background()
	if err := a.Configure(ctx, cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := a.Build(ctx, 4); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := a.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := os.Stat(buildDir); err != nil {
		t.Errorf("build dir not created: %v", err)
	}

	want := []string{
		filepath.Join("/src", "configure") + " --prefix=/pkg --disable-shared --enable-static --with-pic --disable-docs",
		"make -j4",
		"make install",
	}
	if len(rec.cmds) != len(want) {
		t.Fatalf("ran %d commands, want %d", len(rec.cmds), len(want))
	}
	for i, cmd := range rec.cmds {
		if cmd.String() != want[i] {
			t.Errorf("command %d = %q, want %q", i, cmd.String(), want[i])
		}
		if cmd.Dir != buildDir {
			t.Errorf("command %d dir = %q, want %q", i, cmd.Dir, buildDir)
		}
	}
}

func TestConfigureShared(t *testing.T) {
	rec := &recorder{}
	a := New(rec.run)
	err := a.Configure(context.Background(), buildsys.Config{
		SourceDir: "/src",
		BuildDir:  t.TempDir(),
		Shared:    ptr(true),
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	got := strings.Join(rec.cmds[0].Args, " ")
	if got != "--enable-shared --disable-static" {
		t.Errorf("configure args = %q", got)
	}
}

func TestBuildBeforeConfigure(t *testing.T) {
	a := New((&recorder{}).run)
	if err := a.Build(context.Background(), 1); err == nil {
		t.Error("Build before Configure succeeded, want error")
	}
}

func TestUseSetsEnvOverlay(t *testing.T) {
	root := t.TempDir()
	libDir := filepath.Join(root, "lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CMAKE_LIBRARY_PATH", "/existing")
	t.Setenv("LDFLAGS", "-L/opt/lib")

	rec := &recorder{}
	a := New(rec.run)
	a.Use(root)
	if err := a.Configure(context.Background(), buildsys.Config{SourceDir: "/src", BuildDir: t.TempDir()}); err != nil {
		t.Fatal(err)
	}

	env := rec.cmds[0].Env
	want := libDir + string(os.PathListSeparator) + "/existing"
	if got := env["CMAKE_LIBRARY_PATH"]; got != want {
		t.Errorf("CMAKE_LIBRARY_PATH = %q, want %q", got, want)
	}
	if _, ok := env["PKG_CONFIG_PATH"]; ok {
		t.Error("PKG_CONFIG_PATH set without a pkgconfig dir")
	}
	if runtime.GOOS != "windows" {
		if got := env["LDFLAGS"]; got != "-L/opt/lib -L"+libDir {
			t.Errorf("LDFLAGS = %q", got)
		}
	}
}

func TestDebugFlagsDoNotAccumulate(t *testing.T) {
	t.Setenv("CFLAGS", "")
	t.Setenv("CXXFLAGS", "")
	rec := &recorder{}
	a := New(rec.run)
	cfg := buildsys.Config{SourceDir: "/src", BuildDir: t.TempDir(), BuildType: "Debug"}
	ctx := context.Background()
	for range 2 {
		if err := a.Configure(ctx, cfg); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Install(ctx); err != nil {
		t.Fatal(err)
	}
	for i, cmd := range rec.cmds {
		if got := cmd.Env["CFLAGS"]; got != "-g -O0" {
			t.Errorf("command %d CFLAGS = %q, want %q", i, got, "-g -O0")
		}
		if got := cmd.Env["CXXFLAGS"]; got != "-g -O0" {
			t.Errorf("command %d CXXFLAGS = %q, want %q", i, got, "-g -O0")
		}
	}

	cfg.BuildType = "Release"
	if err := a.Configure(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.cmds[len(rec.cmds)-1].Env["CFLAGS"]; ok {
		t.Error("Release configure inherited Debug CFLAGS")
	}
}
