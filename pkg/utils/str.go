package utils

import (
	"regexp"
	"strings"
)

// FirstNonEmpty returns str1 unless it is empty, then str2
func FirstNonEmpty(str1, str2 string) string {
	if str1 != "" {
		return str1
	}
	return str2
}

// SplitByMultipleDelimiters splits s on any of the single-character delimiters
func SplitByMultipleDelimiters(s string, delimiters ...string) []string {
	if len(delimiters) == 0 {
		return []string{s}
	}
	delimiterPattern := "[" + regexp.QuoteMeta(strings.Join(delimiters, "")) + "]"
	re := regexp.MustCompile(delimiterPattern)
	return re.Split(s, -1)
}
