// Package ref defines package references of the form
// "name/version[@user/channel]" along with support code.
package ref

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalid is returned by Parse for malformed references.
var ErrInvalid = errors.New("invalid reference")

// A Ref identifies one package by name and version, optionally scoped to a
// user and channel.
type Ref struct {
	Name    string
	Version string
	User    string
	Channel string
}

// Parse parses s in the form "name/version" or "name/version@user/channel".
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	nameVer, userChan, scoped := strings.Cut(s, "@")

	name, version, ok := strings.Cut(nameVer, "/")
	if !ok {
		return Ref{}, fmt.Errorf("%w %q: missing version", ErrInvalid, s)
	}
	r := Ref{Name: name, Version: version}
	if scoped {
		user, channel, ok := strings.Cut(userChan, "/")
		if !ok {
			return Ref{}, fmt.Errorf("%w %q: missing channel", ErrInvalid, s)
		}
		r.User, r.Channel = user, channel
	}
	if err := r.Validate(); err != nil {
		return Ref{}, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return r, nil
}

// Validate checks every component of r.
func (r Ref) Validate() error {
	if !validName(r.Name) {
		return fmt.Errorf("bad name %q", r.Name)
	}
	if !validField(r.Version, "~") {
		return fmt.Errorf("bad version %q", r.Version)
	}
	if (r.User == "") != (r.Channel == "") {
		return errors.New("user and channel must be set together")
	}
	if r.User != "" && (!validField(r.User, "") || !validField(r.Channel, "")) {
		return fmt.Errorf("bad user/channel %q/%q", r.User, r.Channel)
	}
	return nil
}

// String returns the canonical text form of r.
func (r Ref) String() string {
	s := r.Name + "/" + r.Version
	if r.User != "" {
		s += "@" + r.User + "/" + r.Channel
	}
	return s
}

// Pinned reports whether r names an exact semantic version, such as
// "3.5.2" or "1.90". Channel-like versions ("stable") are not pinned.
func (r Ref) Pinned() bool {
	return semver.IsValid(semverOf(r.Version)) && semver.Build(semverOf(r.Version)) == ""
}

// EscapePath returns r as a relative file system path
// "name/version/user/channel", with "_" standing in for an empty user and
// channel. It fails if any component cannot be localized.
func (r Ref) EscapePath() (string, error) {
	user, channel := r.User, r.Channel
	if user == "" {
		user, channel = "_", "_"
	}
	parts := []string{r.Name, r.Version, user, channel}
	for i, p := range parts {
		local, err := filepath.Localize(p)
		if err != nil {
			return "", fmt.Errorf("escape %s: %w", r, err)
		}
		parts[i] = local
	}
	return filepath.Join(parts...), nil
}

// Compare orders refs by name, then by version (semantically when both
// versions are semantic versions), then by user and channel.
func Compare(a, b Ref) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := CompareVersion(a.Version, b.Version); c != 0 {
		return c
	}
	if c := strings.Compare(a.User, b.User); c != 0 {
		return c
	}
	return strings.Compare(a.Channel, b.Channel)
}

// CompareVersion compares two version strings. Semantic versions sort
// before non-semantic ones; two non-semantic versions compare segment by
// segment with numeric runs compared by value.
func CompareVersion(v1, v2 string) int {
	s1, s2 := semverOf(v1), semverOf(v2)
	ok1, ok2 := semver.IsValid(s1), semver.IsValid(s2)
	switch {
	case ok1 && ok2:
		if c := semver.Compare(s1, s2); c != 0 {
			return c
		}
		return strings.Compare(v1, v2)
	case ok1:
		return -1
	case ok2:
		return 1
	}
	return compareLoose(v1, v2)
}

func semverOf(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func validName(s string) bool {
	if s == "" || s[0] == '-' || s[0] == '.' {
		return false
	}
	for _, c := range s {
		if !isAlnum(c) && !strings.ContainsRune("_-.+", c) {
			return false
		}
	}
	return true
}

// validField reports whether s is a path-safe reference field; extra lists
// punctuation allowed besides "_-.+".
func validField(s, extra string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, c := range s {
		if !isAlnum(c) && !strings.ContainsRune("_-.+", c) && !strings.ContainsRune(extra, c) {
			return false
		}
	}
	return true
}

func isAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
