// Package store manages the local package store: published package folders
// and their metadata, keyed by reference and package ID.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goplus/llrecipe/internal/archive"
	"github.com/goplus/llrecipe/pkgs/ref"
	"github.com/goplus/llrecipe/recipe"
)

// ErrNotFound is returned when no published package matches a reference.
var ErrNotFound = errors.New("package not found")

const (
	packageDir = "package"
	infoFile   = "info.json"
)

// Info is the metadata published next to a package folder.
type Info struct {
	Ref       string                 `json:"ref"`
	ID        string                 `json:"id"`
	Settings  recipe.Settings        `json:"settings"`
	Options   map[string]string      `json:"options,omitempty"`
	Requires  []string               `json:"requires,omitempty"`
	CppInfo   recipe.ConsumptionInfo `json:"cpp_info"`
	Archive   string                 `json:"archive,omitempty"`
	Published time.Time              `json:"published"`
}

// Store is a package store rooted at a directory. The layout is
// <dir>/<name>/<version>/<user>/<channel>/<id>/{package/,info.json}.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) refDir(r ref.Ref) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	escaped, err := r.EscapePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, escaped), nil
}

func (s *Store) idDir(r ref.Ref, id string) (string, error) {
	dir, err := s.refDir(r)
	if err != nil {
		return "", err
	}
	if id == "" || !filepath.IsLocal(id) || filepath.Base(id) != id {
		return "", fmt.Errorf("bad package id %q", id)
	}
	return filepath.Join(dir, id), nil
}

// Folder returns the package folder path of a package variant without
// touching the file system.
func (s *Store) Folder(r ref.Ref, id string) (string, error) {
	dir, err := s.idDir(r, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, packageDir), nil
}

// PackageFolder returns the package folder of a package variant, creating
// it with 0700 permissions if it doesn't exist.
func (s *Store) PackageFolder(r ref.Ref, id string) (string, error) {
	folder, err := s.Folder(r, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return "", err
	}
	return folder, nil
}

// Reset removes a package variant, published or not, and returns its
// fresh empty package folder.
func (s *Store) Reset(r ref.Ref, id string) (string, error) {
	dir, err := s.idDir(r, id)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	return s.PackageFolder(r, id)
}

// Publish marks a package folder as complete by writing its info.json.
// If format is not empty the package folder is also archived next to it.
func (s *Store) Publish(ctx context.Context, r ref.Ref, info *Info, format archive.Format) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.idDir(r, info.ID)
	if err != nil {
		return err
	}
	folder := filepath.Join(dir, packageDir)
	if _, err := os.Stat(folder); err != nil {
		return fmt.Errorf("publish %s: %w", r, err)
	}
	info.Ref = r.String()
	if format != "" {
		name := packageDir + format.Ext()
		if err := archive.WriteFile(filepath.Join(dir, name), folder); err != nil {
			return fmt.Errorf("publish %s: %w", r, err)
		}
		info.Archive = name
	}
	if info.Published.IsZero() {
		info.Published = time.Now().UTC()
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	// info.json is written last: its presence marks the package as published
	tmp := filepath.Join(dir, infoFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, infoFile))
}

// Info returns the published metadata of one package variant. A variant
// whose package folder is missing or empty is not published.
func (s *Store) Info(r ref.Ref, id string) (*Info, error) {
	dir, err := s.idDir(r, id)
	if err != nil {
		return nil, err
	}
	if !complete(dir) {
		return nil, fmt.Errorf("%s:%s: %w", r, id, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(dir, infoFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s:%s: %w", r, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%s:%s: corrupt %s: %w", r, id, infoFile, err)
	}
	return &info, nil
}

// IDs returns the published package IDs of r in sorted order.
func (s *Store) IDs(r ref.Ref) ([]string, error) {
	dir, err := s.refDir(r)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if complete(filepath.Join(dir, e.Name())) {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// complete reports whether the variant in dir has its info.json and a
// non-empty package folder.
func complete(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, infoFile)); err != nil {
		return false
	}
	entries, err := os.ReadDir(filepath.Join(dir, packageDir))
	return err == nil && len(entries) > 0
}

// Resolve returns the first published package of r. Its consumption info is
// rooted at the package folder found in this store.
func (s *Store) Resolve(ctx context.Context, r ref.Ref) (recipe.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return recipe.Dependency{}, err
	}
	ids, err := s.IDs(r)
	if err != nil {
		return recipe.Dependency{}, err
	}
	if len(ids) == 0 {
		return recipe.Dependency{}, fmt.Errorf("%s: %w", r, ErrNotFound)
	}
	id := ids[0]
	info, err := s.Info(r, id)
	if err != nil {
		return recipe.Dependency{}, err
	}
	dir, _ := s.idDir(r, id)
	folder := filepath.Join(dir, packageDir)
	return recipe.Dependency{Ref: r, ID: id, Folder: folder, Info: rebase(info.CppInfo, folder)}, nil
}

// rebase moves absolute paths recorded under the publishing root to root.
func rebase(ci recipe.ConsumptionInfo, root string) recipe.ConsumptionInfo {
	out := ci.Clone()
	old := ci.RootPath
	out.RootPath = root
	if old == "" || old == root {
		return out
	}
	move := func(p string) string {
		if rel, err := filepath.Rel(old, p); err == nil && filepath.IsLocal(rel) {
			return filepath.Join(root, rel)
		}
		return p
	}
	for i, d := range out.IncludeDirs {
		out.IncludeDirs[i] = move(d)
	}
	for _, vals := range out.Env {
		for i, v := range vals {
			vals[i] = move(v)
		}
	}
	return out
}

// Versions lists the versions of name present in the store, ordered by
// ref.CompareVersion.
func (s *Store) Versions(name string) ([]string, error) {
	if err := (ref.Ref{Name: name, Version: "0"}).Validate(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	slices.SortFunc(versions, ref.CompareVersion)
	return versions, nil
}

// Refs returns the references of name that have at least one published
// package, ordered by version, then user and channel.
func (s *Store) Refs(name string) ([]ref.Ref, error) {
	versions, err := s.Versions(name)
	if err != nil {
		return nil, err
	}
	var refs []ref.Ref
	for _, v := range versions {
		users, err := subdirs(filepath.Join(s.dir, name, v))
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			channels, err := subdirs(filepath.Join(s.dir, name, v, u))
			if err != nil {
				return nil, err
			}
			for _, c := range channels {
				r := ref.Ref{Name: name, Version: v}
				if u != "_" {
					r.User, r.Channel = u, c
				} else if c != "_" {
					continue
				}
				if r.Validate() != nil {
					continue
				}
				if ids, err := s.IDs(r); err != nil {
					return nil, err
				} else if len(ids) > 0 {
					refs = append(refs, r)
				}
			}
		}
	}
	return refs, nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
