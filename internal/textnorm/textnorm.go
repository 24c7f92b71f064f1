// Package textnorm canonicalizes transcripts so that hypotheses and references
// can be compared word by word regardless of casing or punctuation style.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// anything that is neither an uppercase ASCII letter nor whitespace
	disallowedPattern = regexp.MustCompile(`[^A-Z\s]`)
	spaceRunPattern   = regexp.MustCompile(`\s+`)
)

// Normalize maps text to uppercase A-Z words separated by single spaces.
// Digits, punctuation and non-ASCII letters are dropped without leaving a gap,
// so "it's" becomes "ITS".
func Normalize(text string) string {
	text = upperASCII(text)
	text = disallowedPattern.ReplaceAllString(text, "")
	text = spaceRunPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func upperASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}
