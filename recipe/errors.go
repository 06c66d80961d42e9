package recipe

import (
	"errors"
	"fmt"
)

// Kind classifies recipe failures.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindDependencyResolution
	KindBuild
	KindPackaging
)

// String returns the name the engine reports for k.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindDependencyResolution:
		return "DependencyResolutionError"
	case KindBuild:
		return "BuildFailure"
	case KindPackaging:
		return "PackagingError"
	default:
		return "Unknown"
	}
}

var (
	// ErrConfiguration reports an invalid or conflicting option combination.
	ErrConfiguration = errors.New("configuration error")

	// ErrDependencyResolution reports a dependency reference that cannot be
	// resolved to a package.
	ErrDependencyResolution = errors.New("dependency resolution error")

	// ErrBuild reports a build tool invocation that failed.
	ErrBuild = errors.New("build failure")

	// ErrPackaging reports a mandatory artifact that matched no files, or an
	// artifact that would land outside the package folder.
	ErrPackaging = errors.New("packaging error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindDependencyResolution:
		return ErrDependencyResolution
	case KindBuild:
		return ErrBuild
	case KindPackaging:
		return ErrPackaging
	}
	return nil
}

// Error is the error returned by every recipe hook.
type Error struct {
	Kind   Kind
	Op     string // hook that failed, e.g. "build"
	Recipe string // recipe name, if known
	Err    error
}

func (e *Error) Error() string {
	if e.Recipe != "" {
		return fmt.Sprintf("[%s] %s %s: %v", e.Kind, e.Op, e.Recipe, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrBuild) and friends match on the kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, op, recipe string, err error) *Error {
	return &Error{Kind: kind, Op: op, Recipe: recipe, Err: err}
}

// Errorf builds an *Error of the given kind for hooks implemented outside
// this package, such as the engine's dependency resolution.
func Errorf(kind Kind, op, recipe, format string, args ...any) *Error {
	return newError(kind, op, recipe, fmt.Errorf(format, args...))
}
