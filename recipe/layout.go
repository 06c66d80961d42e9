package recipe

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// Package folder roots. Every packaged artifact lands under exactly one.
const (
	IncludeDir  = "include"
	LibDir      = "lib"
	BinDir      = "bin"
	LicensesDir = "licenses"
	AssetsDir   = "assets"
)

// LayoutRoots lists the package folder roots in a fixed order.
var LayoutRoots = []string{IncludeDir, LibDir, BinDir, LicensesDir, AssetsDir}

// PackageLayout is the staged output directory structure.
type PackageLayout struct {
	Root string
}

func (l PackageLayout) Include() string  { return filepath.Join(l.Root, IncludeDir) }
func (l PackageLayout) Lib() string      { return filepath.Join(l.Root, LibDir) }
func (l PackageLayout) Bin() string      { return filepath.Join(l.Root, BinDir) }
func (l PackageLayout) Licenses() string { return filepath.Join(l.Root, LicensesDir) }
func (l PackageLayout) Assets() string   { return filepath.Join(l.Root, AssetsDir) }

// Dir returns the absolute path of one of the LayoutRoots.
func (l PackageLayout) Dir(root string) string { return filepath.Join(l.Root, root) }

// CopyRule copies files matching Pattern under Src into Dst.
type CopyRule struct {
	Class      string // artifact class, e.g. "license", "headers"
	Pattern    string // glob matched against the file name, or the relative path if it contains "/"
	Src        string
	Dst        string // relative to the destination root
	KeepPath   bool   // keep the path relative to Src instead of flattening
	IgnoreCase bool
}

// A literal pattern (no glob meta characters) also matches directories;
// a matched directory is copied as a whole tree.
func (r CopyRule) literal() bool {
	return !strings.ContainsAny(r.Pattern, "*?[")
}

func (r CopyRule) match(rel string) bool {
	name := path.Base(rel)
	if strings.Contains(r.Pattern, "/") {
		name = rel
	}
	pattern := r.Pattern
	if r.IgnoreCase {
		pattern, name = strings.ToLower(pattern), strings.ToLower(name)
	}
	ok, _ := path.Match(pattern, name)
	return ok
}

// copier copies files into root, never overwriting existing destinations.
type copier struct {
	root    string
	allowed []string // permitted Dst roots; nil allows any
	exclude string   // directory never descended into
	log     logrus.FieldLogger
}

type copyStats struct {
	matched int
	copied  int
}

func (c *copier) copy(rule CopyRule) (copyStats, error) {
	var st copyStats
	if c.allowed != nil && !slices.Contains(c.allowed, rule.Dst) {
		return st, fmt.Errorf("destination %q is not one of %v", rule.Dst, c.allowed)
	}
	if fi, err := os.Stat(rule.Src); err != nil || !fi.IsDir() {
		return st, nil
	}
	err := filepath.WalkDir(rule.Src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rule.Src, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if c.exclude != "" && sameDir(p, c.exclude) {
				return filepath.SkipDir
			}
			if rel != "." && rule.literal() && rule.match(rel) {
				if err := c.copyTree(p, rule.Dst, &st); err != nil {
					return err
				}
				return filepath.SkipDir
			}
			return nil
		}
		if !rule.match(rel) {
			return nil
		}
		destRel := path.Base(rel)
		if rule.KeepPath {
			destRel = rel
		}
		return c.copyOne(p, path.Join(filepath.ToSlash(rule.Dst), destRel), d, &st)
	})
	return st, err
}

func (c *copier) copyTree(dir, dst string, st *copyStats) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return c.copyOne(p, path.Join(filepath.ToSlash(dst), filepath.ToSlash(rel)), d, st)
	})
}

func (c *copier) copyOne(src, destRel string, d fs.DirEntry, st *copyStats) error {
	st.matched++
	target, err := c.target(destRel)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		c.log.Debugf("keep existing %s", target)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if d.Type()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if err := os.Symlink(link, target); err != nil {
			return err
		}
	} else if err := copyFile(src, target); err != nil {
		return err
	}
	st.copied++
	c.log.Debugf("copied %s -> %s", src, target)
	return nil
}

// target resolves destRel under root and rejects anything escaping it.
func (c *copier) target(destRel string) (string, error) {
	target := filepath.Join(c.root, filepath.FromSlash(destRel))
	rel, err := filepath.Rel(c.root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s escapes %s", destRel, c.root)
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sameDir(a, b string) bool {
	a, errA := filepath.Abs(a)
	b, errB := filepath.Abs(b)
	return errA == nil && errB == nil && a == b
}

func isEmptyDir(dir string) bool {
	empty := true
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipAll
		}
		if !d.IsDir() {
			empty = false
			return filepath.SkipAll
		}
		return nil
	})
	return empty
}
