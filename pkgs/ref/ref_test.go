package ref

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

func mustParse(t *testing.T, s string) Ref {
	t.Helper()
	r, err := Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Ref
		wantErr bool
	}{
		{
			name: "name and version",
			in:   "entt/3.5.2",
			want: Ref{Name: "entt", Version: "3.5.2"},
		},
		{
			name: "user and channel",
			in:   "cppcheck_installer/1.90@conan/stable",
			want: Ref{Name: "cppcheck_installer", Version: "1.90", User: "conan", Channel: "stable"},
		},
		{
			name: "surrounding spaces",
			in:   "  zlib/1.2.13 ",
			want: Ref{Name: "zlib", Version: "1.2.13"},
		},
		{
			name: "pre-release tilde",
			in:   "entt/3.6.0~rc1",
			want: Ref{Name: "entt", Version: "3.6.0~rc1"},
		},
		{name: "tilde in channel", in: "entt/3.5.2@conan/st~ble", wantErr: true},
		{name: "missing version", in: "entt", wantErr: true},
		{name: "empty version", in: "entt/", wantErr: true},
		{name: "missing channel", in: "entt/3.5.2@conan", wantErr: true},
		{name: "empty channel", in: "entt/3.5.2@conan/", wantErr: true},
		{name: "bad name", in: "-entt/3.5.2", wantErr: true},
		{name: "slash in version", in: "a/b/c", wantErr: true},
		{name: "dotdot version", in: "a/..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalid", tt.in, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != trimmed(tt.in) {
				t.Errorf("String() = %q, want %q", got.String(), trimmed(tt.in))
			}
		})
	}
}

func trimmed(s string) string {
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

func TestPinned(t *testing.T) {
	for in, want := range map[string]bool{
		"entt/3.5.2":                      true,
		"cppcheck_installer/1.90@a/b":     true,
		"conan_gtest/stable@conan/stable": false,
		"libjpeg/9e":                      false,
		"foo/1.0.0-rc.1":                  true,
	} {
		if got := mustParse(t, in).Pinned(); got != want {
			t.Errorf("%s Pinned() = %v, want %v", in, got, want)
		}
	}
}

func TestEscapePath(t *testing.T) {
	got, err := mustParse(t, "entt/3.5.2").EscapePath()
	if err != nil {
		t.Fatalf("EscapePath: %v", err)
	}
	if want := filepath.Join("entt", "3.5.2", "_", "_"); got != want {
		t.Errorf("EscapePath() = %q, want %q", got, want)
	}

	got, err = mustParse(t, "gtest/1.10@conan/stable").EscapePath()
	if err != nil {
		t.Fatalf("EscapePath: %v", err)
	}
	if want := filepath.Join("gtest", "1.10", "conan", "stable"); got != want {
		t.Errorf("EscapePath() = %q, want %q", got, want)
	}
}

func TestCompare(t *testing.T) {
	refs := []Ref{
		mustParse(t, "zlib/1.2.13"),
		mustParse(t, "entt/3.10.0"),
		mustParse(t, "entt/stable"),
		mustParse(t, "entt/3.5.2"),
		mustParse(t, "entt/3.5.2@conan/stable"),
	}
	slices.SortFunc(refs, Compare)

	var got []string
	for _, r := range refs {
		got = append(got, r.String())
	}
	want := []string{
		"entt/3.5.2",
		"entt/3.5.2@conan/stable",
		"entt/3.10.0",
		"entt/stable",
		"zlib/1.2.13",
	}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestCompareVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.13", "1.10.0", -1},
		{"3.5.2", "3.5.2", 0},
		{"1.10", "1.9", 1},
		{"1.0.0-rc1", "1.0.0", -1},
		{"3.5.2", "stable", -1},
		{"stable", "3.5.2", 1},
		{"1.0~rc1", "1.0", 1},
		{"stable", "testing", -1},
		{"1.0~alpha", "1.0~beta", -1},
		{"2.0.0.1", "2.0.0.10", -1},
	}
	for _, tt := range tests {
		if got := CompareVersion(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersion(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareLoose(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "2.0", -1},
		{"1.2.10", "1.2.9", 1},
		{"2", "10", -1},
		{"1.01", "1.1", 0},
		{"001", "01", 0},
		{"", "", 0},
		{"", "1", -1},
		{"1.0~rc1", "1.0", -1},
		{"1.0~", "1.0", -1},
		{"~", "", -1},
		{"a", "1", 1},
		{"1a", "1b", -1},
		{"1.0a", "1.0", 1},
		{"1.0alpha1", "1.0alpha2", -1},
		{"1.0+", "1.0a", 1},
		{"1.0-rc1", "1.0-rc2", -1},
	}
	for _, tt := range tests {
		if got := compareLoose(tt.a, tt.b); got != tt.want {
			t.Errorf("compareLoose(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := compareLoose(tt.b, tt.a); got != -tt.want {
			t.Errorf("compareLoose(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
		}
	}
}
