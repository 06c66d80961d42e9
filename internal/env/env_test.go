package env

import (
	"os"
	"path/filepath"
	"testing"
)

func setCacheHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", home)
	t.Setenv("HOME", home)
	t.Setenv("LocalAppData", home)
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		t.Skipf("no user cache dir: %v", err)
	}
	return cacheDir
}

func TestWorkDir(t *testing.T) {
	cacheDir := setCacheHome(t)
	workDir, err := WorkDir()
	if err != nil {
		t.Fatalf("WorkDir() returned error: %v", err)
	}
	if want := filepath.Join(cacheDir, ".llrecipe"); workDir != want {
		t.Errorf("WorkDir() = %q, want %q", workDir, want)
	}
}

func TestSubDirs(t *testing.T) {
	cacheDir := setCacheHome(t)
	tests := []struct {
		name string
		fn   func() (string, error)
		sub  string
	}{
		{"StoreDir", StoreDir, "packages"},
		{"WorkspaceDir", WorkspaceDir, "workspace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := tt.fn()
			if err != nil {
				t.Fatalf("%s() returned error: %v", tt.name, err)
			}
			if want := filepath.Join(cacheDir, ".llrecipe", tt.sub); dir != want {
				t.Errorf("%s() = %q, want %q", tt.name, dir, want)
			}
			info, err := os.Stat(dir)
			if err != nil {
				t.Fatalf("Directory was not created: %v", err)
			}
			if !info.IsDir() {
				t.Errorf("%s() created a file instead of a directory", tt.name)
			}

			// Calling again must be harmless
			again, err := tt.fn()
			if err != nil || again != dir {
				t.Errorf("second %s() = %q, %v", tt.name, again, err)
			}
		})
	}
}
