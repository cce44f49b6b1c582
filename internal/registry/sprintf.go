package registry

import (
	"strconv"
	"strings"
)

// Sprintf renders a pattern the way PHP's sprintf does for string
// conversions: %s and %d consume the next argument, %N$s picks the Nth
// argument, %% is a literal percent. Missing arguments render empty and
// surplus arguments are ignored, so one pattern string works both here and
// inside generated PHP.
func Sprintf(tmpl string, args ...string) string {
	var sb strings.Builder
	sb.Grow(len(tmpl))
	next := 0
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 >= len(tmpl) {
			sb.WriteByte(c)
			continue
		}
		rest := tmpl[i+1:]
		switch {
		case rest[0] == '%':
			sb.WriteByte('%')
			i++
		case rest[0] == 's' || rest[0] == 'd':
			sb.WriteString(arg(args, next))
			next++
			i++
		default:
			n, width := positional(rest)
			if width == 0 {
				sb.WriteByte(c)
				continue
			}
			sb.WriteString(arg(args, n-1))
			i += width
		}
	}
	return sb.String()
}

// positional parses "N$s" at the start of s and returns N and the number of
// bytes consumed, or 0 width when s is not a positional conversion.
func positional(s string) (int, int) {
	j := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == 0 || j+1 >= len(s) || s[j] != '$' || (s[j+1] != 's' && s[j+1] != 'd') {
		return 0, 0
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil || n < 1 {
		return 0, 0
	}
	return n, j + 2
}

func arg(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}
