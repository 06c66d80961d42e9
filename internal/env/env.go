package env

import (
	"os"
	"path/filepath"
)

// WorkDir returns the root of all llrecipe state.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".llrecipe"), nil
}

// StoreDir returns the directory published packages live in, creating it
// if needed.
func StoreDir() (string, error) {
	return subDir("packages")
}

// WorkspaceDir returns the directory build folders, locks and build caches
// live in, creating it if needed.
func WorkspaceDir() (string, error) {
	return subDir("workspace")
}

func subDir(name string) (string, error) {
	workDir, err := WorkDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(workDir, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
