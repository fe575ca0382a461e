package naming

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// RemoveAccents converts accented characters to their base forms
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Words splits an identifier into words on separators and case changes.
// "XMLHttpRequest" yields "XML", "Http", "Request".
func Words(s string) []string {
	s = RemoveAccents(strings.TrimSpace(s))
	var words []string
	for _, part := range nonAlnum.Split(s, -1) {
		if part == "" {
			continue
		}
		words = append(words, splitCamelCase(part)...)
	}
	return words
}

func splitCamelCase(s string) []string {
	var parts []string
	var current strings.Builder

	rs := []rune(s)
	for i, r := range rs {
		newWord := false
		if i > 0 && isUpper(r) {
			if !isUpper(rs[i-1]) {
				newWord = true
			} else if i < len(rs)-1 && isLower(rs[i+1]) {
				// "XMLHttp" -> "XML", "Http"
				newWord = true
			}
		}
		if newWord && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

// ToPascalCase converts a string to PascalCase, lowercasing the tail of each word
func ToPascalCase(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(strings.ToLower(w[1:]))
	}
	return b.String()
}
