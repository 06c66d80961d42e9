package recipe

import (
	"crypto/sha1"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/goplus/llrecipe/pkgs/ref"
)

// PackageID identifies one binary variant of the recipe. It is stable for
// equal settings, applicable option values and linked requirements, and
// changes when any of them does. Removed options do not contribute.
func (r *Recipe) PackageID(s Settings) string {
	var b strings.Builder
	b.WriteString("[settings]\n")
	for _, kv := range [][2]string{
		{"arch", s.Arch},
		{"build_type", s.BuildType},
		{"compiler", s.Compiler},
		{"compiler.version", s.CompilerVersion},
		{"os", s.OS},
	} {
		if kv[1] != "" {
			b.WriteString(kv[0] + "=" + kv[1] + "\n")
		}
	}
	b.WriteString("[options]\n")
	vals := r.Options.Values()
	names := make([]string, 0, len(vals))
	for k := range vals {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		b.WriteString(k + "=" + vals[k] + "\n")
	}
	b.WriteString("[requires]\n")
	reqs := r.Requirements()
	slices.SortFunc(reqs, ref.Compare)
	for _, rq := range reqs {
		b.WriteString(rq.String() + "\n")
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
