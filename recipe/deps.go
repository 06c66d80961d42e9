package recipe

import (
	"fmt"
	"slices"

	"github.com/goplus/llrecipe/pkgs/ref"
)

// DependencySpec holds the dependencies a recipe declares. BuildRequires are
// tools needed only while building; Requires are linked into the artifact.
type DependencySpec struct {
	buildRequires []ref.Ref
	requires      []ref.Ref
}

// BuildRequire declares a tool-only dependency, e.g. "cppcheck_installer/1.90@conan/stable".
func (d *DependencySpec) BuildRequire(reference string) error {
	r, err := parseRef(reference)
	if err != nil {
		return err
	}
	return add(&d.buildRequires, r, "build requirement")
}

// Require declares a link-time/runtime dependency, e.g. "entt/3.5.2".
func (d *DependencySpec) Require(reference string) error {
	r, err := parseRef(reference)
	if err != nil {
		return err
	}
	return add(&d.requires, r, "requirement")
}

// BuildRequires returns the tool-only dependencies in declaration order.
func (d *DependencySpec) BuildRequires() []ref.Ref {
	return slices.Clone(d.buildRequires)
}

// Requires returns the linked dependencies in declaration order.
func (d *DependencySpec) Requires() []ref.Ref {
	return slices.Clone(d.requires)
}

func add(list *[]ref.Ref, r ref.Ref, what string) error {
	for _, have := range *list {
		if have.Name == r.Name {
			return newError(KindConfiguration, "requirements", "",
				fmt.Errorf("duplicate %s %s: %s already declared", what, r, have))
		}
	}
	*list = append(*list, r)
	return nil
}

func parseRef(s string) (ref.Ref, error) {
	r, err := ref.Parse(s)
	if err != nil {
		return ref.Ref{}, newError(KindConfiguration, "requirements", "", err)
	}
	return r, nil
}

// Dependency is a resolved requirement: the package folder it was found in
// and the consumption metadata it published.
type Dependency struct {
	Ref    ref.Ref
	ID     string
	Folder string
	Info   ConsumptionInfo
}
