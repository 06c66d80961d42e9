package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/llrecipe/internal/store"
	"github.com/goplus/llrecipe/pkgs/buildsys"
	"github.com/goplus/llrecipe/pkgs/ref"
	"github.com/goplus/llrecipe/recipe"
)

// mockTool implements buildsys.Adapter, producing libfoo.so and a header
// instead of compiling anything.
type mockTool struct {
	cfg      buildsys.Config
	jobs     int
	builds   int
	roots    []string
	buildErr error
}

func (m *mockTool) Use(root string) { m.roots = append(m.roots, root) }

func (m *mockTool) Configure(ctx context.Context, cfg buildsys.Config) error {
	m.cfg = cfg
	return nil
}

func (m *mockTool) Build(ctx context.Context, jobs int) error {
	m.builds++
	m.jobs = jobs
	if m.buildErr != nil {
		return m.buildErr
	}
	return writeFile(filepath.Join(m.cfg.BuildDir, "libfoo.so"), "ELF")
}

func (m *mockTool) Install(ctx context.Context) error {
	return writeFile(filepath.Join(m.cfg.InstallDir, "include", "foo.h"), "int foo(void);")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// mockResolver resolves from a fixed set of dependencies.
type mockResolver struct {
	deps     map[string]recipe.Dependency
	resolved []string
}

func (m *mockResolver) Resolve(ctx context.Context, r ref.Ref) (recipe.Dependency, error) {
	m.resolved = append(m.resolved, r.String())
	dep, ok := m.deps[r.String()]
	if !ok {
		return recipe.Dependency{}, fmt.Errorf("%s: %w", r, store.ErrNotFound)
	}
	return dep, nil
}
