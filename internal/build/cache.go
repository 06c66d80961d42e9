package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llrecipe/recipe"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <name>/                 # recipe-level dir (cacheDir)
//	    .cache.json           # build cache: maps "version-id" -> buildEntry
//	    <id>.lock             # held while a variant is built
//	    <version>-<id>/build/ # default build folder
const cacheFile = ".cache.json"

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	PackageFolder string                 `json:"package_folder"`
	Info          recipe.ConsumptionInfo `json:"cpp_info"`
	BuildTime     time.Time              `json:"build_time"`
}

// buildCache maps "version-id" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, id string) string {
	return version + "-" + id
}

func (c *buildCache) get(version, id string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, id)]
	return entry, ok
}

func (c *buildCache) set(version, id string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, id)] = entry
}

// cacheDir returns the recipe-level directory: workspaceDir/<name>.
func (b *Builder) cacheDir(name string) string {
	return filepath.Join(b.workspaceDir, name)
}

// loadCache reads the cache file of a recipe from the workspace directory.
func (b *Builder) loadCache(name string) (*buildCache, error) {
	data, err := os.ReadFile(filepath.Join(b.cacheDir(name), cacheFile))
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file of a recipe to the workspace directory.
func (b *Builder) saveCache(name string, cache *buildCache) error {
	dir := b.cacheDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}
