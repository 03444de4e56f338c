package engine

import (
	"strings"
	"unicode"
)

// IsRead reports whether sql produces rows rather than an affected-row
// count. Only a leading SELECT keyword counts; leading whitespace, Unicode
// spaces included, is skipped and case is ignored.
func IsRead(sql string) bool {
	const keyword = "SELECT"
	s := strings.TrimLeftFunc(sql, unicode.IsSpace)
	if len(s) < len(keyword) || !strings.EqualFold(s[:len(keyword)], keyword) {
		return false
	}
	return len(s) == len(keyword) || !isIdentChar(s[len(keyword)])
}
