package ref

import "strings"

// compareLoose orders free-form versions the way Debian and GNU sort
// do: alternating non-digit and digit runs, digit runs compared by value,
// letters before punctuation, and '~' before everything including the end
// of the string, so "1.0~rc1" < "1.0" < "1.0a" < "1.0.1".
func compareLoose(a, b string) int {
	for a != "" || b != "" {
		var wa, wb string
		wa, a = splitRun(a, false)
		wb, b = splitRun(b, false)
		if c := compareWords(wa, wb); c != 0 {
			return c
		}
		var na, nb string
		na, a = splitRun(a, true)
		nb, b = splitRun(b, true)
		if c := compareNumbers(na, nb); c != 0 {
			return c
		}
	}
	return 0
}

func splitRun(s string, digits bool) (run, rest string) {
	i := strings.IndexFunc(s, func(r rune) bool { return isDigit(r) != digits })
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func compareWords(a, b string) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if oa, ob := weight(ca), weight(cb); oa != ob {
			return sign(oa - ob)
		}
	}
	return 0
}

// weight ranks one byte of a non-digit run; 0 stands for the end of the run.
func weight(c byte) int {
	switch {
	case c == 0:
		return 0
	case c == '~':
		return -1
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return int(c)
	}
	return int(c) + 256
}

func compareNumbers(a, b string) int {
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
