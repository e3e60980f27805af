// Package glob compiles the route-matcher glob syntax
// (SPEC_FULL.md §5, spec §3 "Route registration") into a regular
// expression: "**" crosses path segments, "*" stays within one
// segment, "?" matches a single character, "{a,b}" is alternation,
// "\c" is a literal escape, and any other regex metacharacter is
// quoted.
package glob

import (
	"regexp"
	"strings"
)

// Compile translates a glob pattern into an anchored regular expression.
func Compile(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\\':
			if i+1 < len(runes) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				sb.WriteString(regexp.QuoteMeta(`\`))
			}
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				sb.WriteString(".*")
				i++
			} else {
				sb.WriteString("[^/]*")
			}
		case '?':
			sb.WriteString(".")
		case '{':
			end := matchingBrace(runes, i)
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			alts := strings.Split(string(runes[i+1:end]), ",")
			sb.WriteString("(?:")
			for j, alt := range alts {
				if j > 0 {
					sb.WriteString("|")
				}
				sb.WriteString(regexp.QuoteMeta(alt))
			}
			sb.WriteString(")")
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

func matchingBrace(runes []rune, start int) int {
	depth := 0
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
