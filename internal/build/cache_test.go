package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goplus/llrecipe/recipe"
)

func TestSaveAndLoadCache(t *testing.T) {
	b := &Builder{workspaceDir: t.TempDir()}

	now := time.Now().Truncate(time.Second)
	cache := &buildCache{}
	cache.set("3.5.2", "abc", &buildEntry{
		PackageFolder: "/tmp/package",
		Info:          recipe.ConsumptionInfo{Libs: []string{"entt"}},
		BuildTime:     now,
	})

	if err := b.saveCache("entt", cache); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.workspaceDir, "entt", cacheFile)); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	loaded, err := b.loadCache("entt")
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	entry, ok := loaded.get("3.5.2", "abc")
	if !ok {
		t.Fatal("entry 3.5.2-abc missing")
	}
	if entry.PackageFolder != "/tmp/package" {
		t.Errorf("PackageFolder mismatch: got %q", entry.PackageFolder)
	}
	if len(entry.Info.Libs) != 1 || entry.Info.Libs[0] != "entt" {
		t.Errorf("Libs mismatch: got %v", entry.Info.Libs)
	}
	if !entry.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", entry.BuildTime, now)
	}
	if _, ok := loaded.get("3.5.2", "other"); ok {
		t.Error("unexpected entry for another package id")
	}
}

func TestLoadCache_NotExist(t *testing.T) {
	b := &Builder{workspaceDir: t.TempDir()}
	if _, err := b.loadCache("missing"); err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
}

func TestLoadCache_InvalidJSON(t *testing.T) {
	b := &Builder{workspaceDir: t.TempDir()}
	dir := filepath.Join(b.workspaceDir, "entt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := b.loadCache("entt"); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}
